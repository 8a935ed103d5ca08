package user

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	resetKeyPrefix = "forget-password:"
	resetTokenTTL  = 72 * time.Hour
)

type resetCmdable interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ResetTokenStoreRedis keeps single-use password reset tokens with a TTL.
type ResetTokenStoreRedis struct {
	rdb resetCmdable
}

func NewResetTokenStoreRedis(rdb resetCmdable) *ResetTokenStoreRedis {
	return &ResetTokenStoreRedis{rdb: rdb}
}

func (s *ResetTokenStoreRedis) Issue(ctx context.Context, userID int64) (string, error) {
	token := uuid.New().String()
	err := s.rdb.Set(ctx, resetKeyPrefix+token, userID, resetTokenTTL).Err()
	if err != nil {
		return "", err
	}

	return token, nil
}

// Redeem returns the user id bound to the token, or 0 when the token is
// unknown or already expired.
func (s *ResetTokenStoreRedis) Redeem(ctx context.Context, token string) (int64, error) {
	userIDStr, err := s.rdb.Get(ctx, resetKeyPrefix+token).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return strconv.ParseInt(userIDStr, 10, 64)
}

func (s *ResetTokenStoreRedis) Revoke(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, resetKeyPrefix+token).Err()
}
