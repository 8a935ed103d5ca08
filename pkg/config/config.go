package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddr string `mapstructure:"server_addr"`

	MySQLDSN string `mapstructure:"mysql_dsn"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	PrivateKeyPath string `mapstructure:"private_key_path"`
	PublicKeyPath  string `mapstructure:"public_key_path"`

	FrontendURL string `mapstructure:"frontend_url"`

	MailgunDomain string `mapstructure:"mailgun_domain"`
	MailgunAPIKey string `mapstructure:"mailgun_api_key"`
	MailFrom      string `mapstructure:"mail_from"`
}

// Load reads lireddit.yaml from the working directory when present; every key
// can also come from a LIREDDIT_* environment variable.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server_addr", "127.0.0.1:8000")
	v.SetDefault("mysql_dsn", "root:qwer1234@tcp(localhost:3306)/lireddit?parseTime=true")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("private_key_path", "key.rsa")
	v.SetDefault("public_key_path", "key.rsa.pub")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("mailgun_domain", "")
	v.SetDefault("mailgun_api_key", "")
	v.SetDefault("mail_from", "lireddit <noreply@localhost>")

	v.SetConfigName("lireddit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("lireddit")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
