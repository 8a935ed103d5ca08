package graph

import (
	"context"
	"errors"
	"time"

	"lireddit/pkg/mailer"
	"lireddit/pkg/posts"
	"lireddit/pkg/session"
	"lireddit/pkg/user"
	"lireddit/pkg/votes"

	"go.uber.org/zap"
)

var errUnauthorized = errors.New("unauthorized")

type PostsRepo interface {
	List(ctx context.Context, limit int, before *time.Time) (*posts.Feed, error)
	GetByID(ctx context.Context, id int64) (*posts.Post, error)
	Add(ctx context.Context, p *posts.Post) (int64, error)
	Update(ctx context.Context, id, creatorID int64, title, text string) (*posts.Post, error)
	Delete(ctx context.Context, id, creatorID int64) (bool, error)
}

type VotesRepo interface {
	Apply(ctx context.Context, postID, userID int64, rawValue int) error
	GetByKeys(ctx context.Context, keys []votes.Key) ([]*votes.Vote, error)
}

type UsersRepo interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Add(ctx context.Context, u *user.User) (int64, error)
	UpdatePassword(ctx context.Context, id int64, passHash []byte) error
}

type ResetTokens interface {
	Issue(ctx context.Context, userID int64) (string, error)
	Redeem(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string) error
}

type Resolver struct {
	PostsRepo   PostsRepo
	UsersRepo   UsersRepo
	VotesRepo   VotesRepo
	Sm          session.SessionManager
	ResetTokens ResetTokens
	Mailer      mailer.Sender
	FrontendURL string
	Logger      *zap.SugaredLogger
}
