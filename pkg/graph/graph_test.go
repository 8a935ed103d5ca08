package graph

import (
	"context"
	"testing"
	"time"

	"lireddit/pkg/posts"
	"lireddit/pkg/session"
	"lireddit/pkg/user"
	"lireddit/pkg/votes"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"
)

var testTime = time.Date(2021, 3, 14, 15, 9, 26, 535000000, time.UTC)

type appliedVote struct {
	postID, userID int64
	rawValue       int
}

type fakePostsRepo struct {
	feed *posts.Feed
	post *posts.Post

	lastLimit  int
	lastBefore *time.Time

	added       *posts.Post
	updated     *posts.Post
	updateArgs  []interface{}
	deleteOK    bool
	deletedArgs []int64
}

func (f *fakePostsRepo) List(ctx context.Context, limit int, before *time.Time) (*posts.Feed, error) {
	f.lastLimit = limit
	f.lastBefore = before
	if f.feed == nil {
		return &posts.Feed{Posts: []*posts.Post{}}, nil
	}
	return f.feed, nil
}

func (f *fakePostsRepo) GetByID(ctx context.Context, id int64) (*posts.Post, error) {
	if f.post != nil && f.post.ID == id {
		return f.post, nil
	}
	return nil, nil
}

func (f *fakePostsRepo) Add(ctx context.Context, p *posts.Post) (int64, error) {
	p.ID = 12
	p.Created = testTime
	p.Updated = testTime
	f.added = p
	return p.ID, nil
}

func (f *fakePostsRepo) Update(ctx context.Context, id, creatorID int64, title, text string) (*posts.Post, error) {
	f.updateArgs = []interface{}{id, creatorID, title, text}
	return f.updated, nil
}

func (f *fakePostsRepo) Delete(ctx context.Context, id, creatorID int64) (bool, error) {
	f.deletedArgs = []int64{id, creatorID}
	return f.deleteOK, nil
}

type fakeUsersRepo struct {
	users []*user.User

	bulkCalls int
	bulkKeys  []int64

	addErr error
	added  *user.User

	updatedPassword []byte
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsersRepo) GetByIDs(ctx context.Context, ids []int64) ([]*user.User, error) {
	f.bulkCalls++
	f.bulkKeys = ids

	result := make([]*user.User, 0, len(ids))
	for _, id := range ids {
		if u, _ := f.GetByID(ctx, id); u != nil {
			result = append(result, u)
		}
	}
	return result, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsersRepo) Add(ctx context.Context, u *user.User) (int64, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	u.ID = 34
	u.Created = testTime
	u.Updated = testTime
	f.added = u
	return u.ID, nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id int64, passHash []byte) error {
	f.updatedPassword = passHash
	return nil
}

type fakeVotesRepo struct {
	votes map[votes.Key]*votes.Vote

	applied   []appliedVote
	applyErr  error
	bulkCalls int
}

func (f *fakeVotesRepo) Apply(ctx context.Context, postID, userID int64, rawValue int) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, appliedVote{postID: postID, userID: userID, rawValue: rawValue})
	return nil
}

func (f *fakeVotesRepo) GetByKeys(ctx context.Context, keys []votes.Key) ([]*votes.Vote, error) {
	f.bulkCalls++

	result := make([]*votes.Vote, 0, len(keys))
	for _, k := range keys {
		if v, ok := f.votes[k]; ok {
			result = append(result, v)
		}
	}
	return result, nil
}

type fakeMailer struct {
	to   string
	link string
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	f.to = to
	f.link = link
	return nil
}

type fakeResetTokens struct {
	issued   string
	issuedTo int64
	byToken  map[string]int64
	revoked  string
}

func (f *fakeResetTokens) Issue(ctx context.Context, userID int64) (string, error) {
	f.issued = "reset-token-1"
	f.issuedTo = userID
	return f.issued, nil
}

func (f *fakeResetTokens) Redeem(ctx context.Context, token string) (int64, error) {
	return f.byToken[token], nil
}

func (f *fakeResetTokens) Revoke(ctx context.Context, token string) error {
	f.revoked = token
	return nil
}

type testEnv struct {
	rv     *Resolver
	schema graphql.Schema

	postsRepo   *fakePostsRepo
	usersRepo   *fakeUsersRepo
	votesRepo   *fakeVotesRepo
	mailer      *fakeMailer
	resetTokens *fakeResetTokens
}

func newTestEnv(t *testing.T, sm session.SessionManager) *testEnv {
	t.Helper()

	env := &testEnv{
		postsRepo:   &fakePostsRepo{},
		usersRepo:   &fakeUsersRepo{},
		votesRepo:   &fakeVotesRepo{votes: map[votes.Key]*votes.Vote{}},
		mailer:      &fakeMailer{},
		resetTokens: &fakeResetTokens{byToken: map[string]int64{}},
	}

	env.rv = &Resolver{
		PostsRepo:   env.postsRepo,
		UsersRepo:   env.usersRepo,
		VotesRepo:   env.votesRepo,
		Sm:          sm,
		ResetTokens: env.resetTokens,
		Mailer:      env.mailer,
		FrontendURL: "http://localhost:3000",
		Logger:      zap.NewNop().Sugar(),
	}

	schema, err := NewSchema(env.rv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Error())
	}
	env.schema = schema

	return env
}

// requestContext mirrors what the middleware chain builds for a real request.
func (env *testEnv) requestContext(sess *session.Session) context.Context {
	ctx := context.Background()
	if sess != nil {
		ctx = session.ContextWithSession(ctx, sess)
	}
	return ContextWithLoaders(ctx, NewLoaders(env.usersRepo, env.votesRepo))
}

func (env *testEnv) do(t *testing.T, ctx context.Context, query string) *graphql.Result {
	t.Helper()

	return graphql.Do(graphql.Params{
		Schema:        env.schema,
		RequestString: query,
		Context:       ctx,
	})
}

func (env *testEnv) doOK(t *testing.T, ctx context.Context, query string) map[string]interface{} {
	t.Helper()

	result := env.do(t, ctx, query)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	return result.Data.(map[string]interface{})
}

func testSession(userID int64, username string) *session.Session {
	return &session.Session{
		User:      &session.User{ID: userID, Username: username},
		SessionID: "test-session",
	}
}
