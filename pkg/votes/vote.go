package votes

type Value int8

const (
	Downvote Value = -1
	Upvote   Value = 1
)

// Normalize clamps a client-supplied magnitude to exactly ±1. Anything that
// is not a downvote counts as an upvote, arbitrary values are never stored.
func Normalize(raw int) Value {
	if raw == -1 {
		return Downvote
	}

	return Upvote
}

// Key identifies the single vote a user may hold on a post.
type Key struct {
	UserID int64
	PostID int64
}

type Vote struct {
	UserID int64 `json:"userId"`
	PostID int64 `json:"postId"`
	Value  Value `json:"value"`
}
