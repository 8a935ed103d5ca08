package user

import (
	"time"
)

type User struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"-"`
	Password []byte    `json:"-"`
	Created  time.Time `json:"-"`
	Updated  time.Time `json:"-"`
}
