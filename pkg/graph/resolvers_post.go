package graph

import (
	"fmt"
	"strconv"
	"time"

	"lireddit/pkg/posts"
	"lireddit/pkg/session"
	"lireddit/pkg/votes"

	"github.com/graphql-go/graphql"
)

const snippetLength = 50

func (rv *Resolver) resolvePosts(p graphql.ResolveParams) (interface{}, error) {
	limit, _ := p.Args["limit"].(int)

	var before *time.Time
	if cursor, ok := p.Args["cursor"].(string); ok && cursor != "" {
		ms, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad cursor: %q", cursor)
		}
		t := time.UnixMilli(ms)
		before = &t
	}

	feed, err := rv.PostsRepo.List(p.Context, limit, before)
	if err != nil {
		rv.Logger.Errorf("feed query failed: %v", err)
		return nil, err
	}

	// announce the whole page to the loaders up front, so the nested
	// creator/voteStatus fields below cost one bulk query per key shape
	if lds, lerr := LoadersFromContext(p.Context); lerr == nil {
		sess, serr := session.SessionFromContext(p.Context)
		for _, post := range feed.Posts {
			lds.Users.Prime(post.CreatorID)
			if serr == nil {
				lds.Votes.Prime(votes.Key{UserID: sess.User.ID, PostID: post.ID})
			}
		}
	}

	return feed, nil
}

func (rv *Resolver) resolvePost(p graphql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(int)

	post, err := rv.PostsRepo.GetByID(p.Context, int64(id))
	if err != nil {
		rv.Logger.Errorf("post query failed: %v", err)
		return nil, err
	}
	if post == nil {
		return nil, nil
	}

	return post, nil
}

func (rv *Resolver) resolveCreatePost(p graphql.ResolveParams) (interface{}, error) {
	sess, err := session.SessionFromContext(p.Context)
	if err != nil {
		return nil, errUnauthorized
	}

	input, _ := p.Args["input"].(map[string]interface{})
	title, _ := input["title"].(string)
	text, _ := input["text"].(string)

	titleValidator := &fieldValidator{field: "title", value: title}
	if verr := titleValidator.empty(); verr != nil {
		return nil, fmt.Errorf("title %s", verr.Message)
	}
	if verr := titleValidator.maxLength(100); verr != nil {
		return nil, fmt.Errorf("title %s", verr.Message)
	}

	// creatorId comes from the session, never from the client
	post := &posts.Post{
		Title:     title,
		Text:      text,
		CreatorID: sess.User.ID,
	}

	_, err = rv.PostsRepo.Add(p.Context, post)
	if err != nil {
		rv.Logger.Errorf("createPost failed: %v", err)
		return nil, err
	}

	return post, nil
}

func (rv *Resolver) resolveUpdatePost(p graphql.ResolveParams) (interface{}, error) {
	sess, err := session.SessionFromContext(p.Context)
	if err != nil {
		return nil, errUnauthorized
	}

	id, _ := p.Args["id"].(int)
	title, _ := p.Args["title"].(string)
	text, _ := p.Args["text"].(string)

	post, err := rv.PostsRepo.Update(p.Context, int64(id), sess.User.ID, title, text)
	if err != nil {
		rv.Logger.Errorf("updatePost failed: %v", err)
		return nil, err
	}
	if post == nil {
		// absent post and someone else's post look the same
		return nil, nil
	}

	return post, nil
}

func (rv *Resolver) resolveDeletePost(p graphql.ResolveParams) (interface{}, error) {
	sess, err := session.SessionFromContext(p.Context)
	if err != nil {
		return nil, errUnauthorized
	}

	id, _ := p.Args["id"].(int)

	deleted, err := rv.PostsRepo.Delete(p.Context, int64(id), sess.User.ID)
	if err != nil {
		rv.Logger.Errorf("deletePost failed: %v", err)
		return nil, err
	}

	return deleted, nil
}

func (rv *Resolver) resolveVote(p graphql.ResolveParams) (interface{}, error) {
	sess, err := session.SessionFromContext(p.Context)
	if err != nil {
		return nil, errUnauthorized
	}

	postID, _ := p.Args["postId"].(int)
	value, _ := p.Args["value"].(int)

	err = rv.VotesRepo.Apply(p.Context, int64(postID), sess.User.ID, value)
	if err != nil {
		rv.Logger.Errorf("vote failed: %v", err)
		return nil, err
	}

	return true, nil
}

func (rv *Resolver) resolveTextSnippet(p graphql.ResolveParams) (interface{}, error) {
	post, ok := p.Source.(*posts.Post)
	if !ok {
		return nil, fmt.Errorf("textSnippet: unexpected source %T", p.Source)
	}

	runes := []rune(post.Text)
	if len(runes) <= snippetLength {
		return post.Text, nil
	}

	return string(runes[:snippetLength]), nil
}

func (rv *Resolver) resolveCreator(p graphql.ResolveParams) (interface{}, error) {
	post, ok := p.Source.(*posts.Post)
	if !ok {
		return nil, fmt.Errorf("creator: unexpected source %T", p.Source)
	}

	lds, err := LoadersFromContext(p.Context)
	if err != nil {
		return nil, err
	}

	u, err := lds.Users.Load(p.Context, post.CreatorID)()
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("creator %d not found", post.CreatorID)
	}

	return u, nil
}

func (rv *Resolver) resolveVoteStatus(p graphql.ResolveParams) (interface{}, error) {
	post, ok := p.Source.(*posts.Post)
	if !ok {
		return nil, fmt.Errorf("voteStatus: unexpected source %T", p.Source)
	}

	sess, err := session.SessionFromContext(p.Context)
	if err != nil {
		return nil, nil
	}

	lds, err := LoadersFromContext(p.Context)
	if err != nil {
		return nil, err
	}

	v, err := lds.Votes.Load(p.Context, votes.Key{UserID: sess.User.ID, PostID: post.ID})()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}

	return int(v.Value), nil
}

func formatTimestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func (rv *Resolver) resolvePostCreatedAt(p graphql.ResolveParams) (interface{}, error) {
	post, ok := p.Source.(*posts.Post)
	if !ok {
		return nil, fmt.Errorf("createdAt: unexpected source %T", p.Source)
	}

	return formatTimestamp(post.Created), nil
}

func (rv *Resolver) resolvePostUpdatedAt(p graphql.ResolveParams) (interface{}, error) {
	post, ok := p.Source.(*posts.Post)
	if !ok {
		return nil, fmt.Errorf("updatedAt: unexpected source %T", p.Source)
	}

	return formatTimestamp(post.Updated), nil
}
