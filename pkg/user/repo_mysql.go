package user

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const userColumns = "`id`, `username`, `email`, `password`, `created_at`, `updated_at`"

type UserRepoSQL struct {
	db *sql.DB
}

func NewUserRepoSQL(db *sql.DB) *UserRepoSQL {
	return &UserRepoSQL{db: db}
}

func (repo *UserRepoSQL) GetByID(ctx context.Context, id int64) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	return repo.getOne(ctx, query, id)
}

func (repo *UserRepoSQL) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE username = ?"
	return repo.getOne(ctx, query, username)
}

func (repo *UserRepoSQL) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	return repo.getOne(ctx, query, email)
}

// GetByIDs is the bulk lookup behind the user loader: one query regardless
// of how many ids were requested, absent ids are simply missing from the result.
func (repo *UserRepoSQL) GetByIDs(ctx context.Context, ids []int64) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := "SELECT " + userColumns + " FROM users WHERE id IN (" + placeholders + ")"

	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*User, 0, len(ids))
	for rows.Next() {
		u := &User{}
		err = rows.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Created, &u.Updated)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (repo *UserRepoSQL) Add(ctx context.Context, u *User) (int64, error) {
	now := time.Now()
	query := "INSERT INTO users (`username`, `email`, `password`, `created_at`, `updated_at`) VALUES (?, ?, ?, ?, ?)"
	r, err := repo.db.ExecContext(ctx, query, u.Username, u.Email, u.Password, now, now)
	if err != nil {
		return 0, err
	}

	lastID, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}

	u.ID = lastID
	u.Created = now
	u.Updated = now
	return lastID, nil
}

func (repo *UserRepoSQL) UpdatePassword(ctx context.Context, id int64, passHash []byte) error {
	query := "UPDATE users SET `password` = ?, `updated_at` = ? WHERE id = ?"
	_, err := repo.db.ExecContext(ctx, query, passHash, time.Now(), id)
	return err
}

func (repo *UserRepoSQL) getOne(ctx context.Context, query string, arg interface{}) (*User, error) {
	r := repo.db.QueryRowContext(ctx, query, arg)

	u := User{}
	err := r.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Created, &u.Updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}
