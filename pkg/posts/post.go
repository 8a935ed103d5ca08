package posts

import (
	"time"
)

type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	CreatorID int64     `json:"creatorId"`
	Points    int       `json:"points"`
	Created   time.Time `json:"-"`
	Updated   time.Time `json:"-"`
}

// Feed holds one page of the reverse-chronological feed.
type Feed struct {
	Posts   []*Post
	HasMore bool
}
