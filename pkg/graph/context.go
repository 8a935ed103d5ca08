package graph

import (
	"context"
	"fmt"
	"net/http"

	"lireddit/pkg/loader"
	"lireddit/pkg/user"
	"lireddit/pkg/votes"
)

type ctxKey int

const loadersKey ctxKey = 1

// Loaders is the per-request batching bundle: one loader per key shape. A
// fresh bundle is built for every inbound request so nothing cached for one
// caller is ever visible to another.
type Loaders struct {
	Users *loader.Loader[int64, *user.User]
	Votes *loader.Loader[votes.Key, *votes.Vote]
}

func NewLoaders(users UsersRepo, ledger VotesRepo) *Loaders {
	return &Loaders{
		Users: loader.New(func(ctx context.Context, keys []int64) (map[int64]*user.User, error) {
			rows, err := users.GetByIDs(ctx, keys)
			if err != nil {
				return nil, err
			}

			byID := make(map[int64]*user.User, len(rows))
			for _, u := range rows {
				byID[u.ID] = u
			}
			return byID, nil
		}),
		Votes: loader.New(func(ctx context.Context, keys []votes.Key) (map[votes.Key]*votes.Vote, error) {
			rows, err := ledger.GetByKeys(ctx, keys)
			if err != nil {
				return nil, err
			}

			byKey := make(map[votes.Key]*votes.Vote, len(rows))
			for _, v := range rows {
				byKey[votes.Key{UserID: v.UserID, PostID: v.PostID}] = v
			}
			return byKey, nil
		}),
	}
}

func ContextWithLoaders(ctx context.Context, lds *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, lds)
}

func LoadersFromContext(ctx context.Context) (*Loaders, error) {
	lds, ok := ctx.Value(loadersKey).(*Loaders)
	if !ok {
		return nil, fmt.Errorf("loaders not found")
	}

	return lds, nil
}

// LoadersMiddleware builds the request-scoped loader bundle.
func LoadersMiddleware(users UsersRepo, ledger VotesRepo, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ContextWithLoaders(r.Context(), NewLoaders(users, ledger))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
