package main

import (
	"context"
	"database/sql"
	"io/ioutil"
	"log"
	"net/http"
	"time"

	"lireddit/pkg/config"
	"lireddit/pkg/graph"
	"lireddit/pkg/mailer"
	"lireddit/pkg/middleware"
	"lireddit/pkg/posts"
	"lireddit/pkg/session"
	"lireddit/pkg/user"
	"lireddit/pkg/votes"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/graphql-go/handler"
	"go.uber.org/zap"
)

var createSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id int(11) unsigned NOT NULL AUTO_INCREMENT,
	username VARCHAR(50) NOT NULL,
	email VARCHAR(255) NOT NULL,
	password VARBINARY(100) NOT NULL,
	created_at DATETIME(3) NOT NULL,
	updated_at DATETIME(3) NOT NULL,
	PRIMARY KEY (id),
	UNIQUE KEY username (username),
	UNIQUE KEY email (email)
) ENGINE=INNODB DEFAULT CHARSET=utf8;`,
	`CREATE TABLE IF NOT EXISTS posts (
	id int(11) unsigned NOT NULL AUTO_INCREMENT,
	title VARCHAR(100) NOT NULL,
	text TEXT NOT NULL,
	creator_id int(11) unsigned NOT NULL,
	points int(11) NOT NULL DEFAULT 0,
	created_at DATETIME(3) NOT NULL,
	updated_at DATETIME(3) NOT NULL,
	PRIMARY KEY (id),
	KEY created_at (created_at)
) ENGINE=INNODB DEFAULT CHARSET=utf8;`,
	`CREATE TABLE IF NOT EXISTS votes (
	user_id int(11) unsigned NOT NULL,
	post_id int(11) unsigned NOT NULL,
	value tinyint NOT NULL,
	PRIMARY KEY (user_id, post_id)
) ENGINE=INNODB DEFAULT CHARSET=utf8;`,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	app := &Application{Config: cfg}
	app.Run()
}

type Application struct {
	Config *config.Config

	HTTPServer *http.Server
}

func (a *Application) Run() {
	zapLogger, _ := zap.NewProduction()
	defer zapLogger.Sync() // flushes buffer, if any
	logger := zapLogger.Sugar()

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		panic(err.Error())
	}

	privateKeyBytes, err := ioutil.ReadFile(a.Config.PrivateKeyPath)
	if err != nil {
		panic(err)
	}

	publicKeyBytes, err := ioutil.ReadFile(a.Config.PublicKeyPath)
	if err != nil {
		panic(err)
	}

	smJWT, err := session.NewSessionsJWTManager(privateKeyBytes, publicKeyBytes)
	if err != nil {
		panic(err)
	}

	sm := session.NewSessionManagerRedis(rdb, smJWT)

	db, err := sql.Open("mysql", a.Config.MySQLDSN)
	if err != nil {
		panic(err.Error())
	}

	defer db.Close()
	if err = db.Ping(); err != nil {
		panic(err)
	}

	for _, stmt := range createSchema {
		if _, err = db.Exec(stmt); err != nil {
			panic(err)
		}
	}

	usersRepo := user.NewUserRepoSQL(db)
	postsRepo := posts.NewPostsRepoSQL(db)
	ledger := votes.NewVoteLedgerSQL(db)
	resetTokens := user.NewResetTokenStoreRedis(rdb)

	var sender mailer.Sender
	if a.Config.MailgunDomain != "" {
		sender = mailer.NewMailgunSender(a.Config.MailgunDomain, a.Config.MailgunAPIKey, a.Config.MailFrom)
	} else {
		sender = mailer.NewLogSender(logger)
	}

	resolver := &graph.Resolver{
		PostsRepo:   postsRepo,
		UsersRepo:   usersRepo,
		VotesRepo:   ledger,
		Sm:          sm,
		ResetTokens: resetTokens,
		Mailer:      sender,
		FrontendURL: a.Config.FrontendURL,
		Logger:      logger,
	}

	schema, err := graph.NewSchema(resolver)
	if err != nil {
		panic(err)
	}

	gqlHandler := handler.New(&handler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: true,
	})

	r := mux.NewRouter()
	r.Handle("/graphql", graph.LoadersMiddleware(usersRepo, ledger, gqlHandler)).
		Methods(http.MethodGet, http.MethodPost)

	handlerChain := middleware.Auth(logger, sm, r)
	handlerChain = middleware.Log(logger, handlerChain)
	handlerChain = middleware.Recover(logger, handlerChain)

	srv := &http.Server{
		Handler:      handlerChain,
		Addr:         a.Config.ServerAddr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	a.HTTPServer = srv

	logger.Infof("Started server at %s", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}
