package posts

import (
	"context"
	"database/sql"
	"time"
)

// MaxPageSize caps a single feed page; larger requests are clamped, not rejected.
const MaxPageSize = 50

const postColumns = "`id`, `title`, `text`, `creator_id`, `points`, `created_at`, `updated_at`"

type PostsRepoSQL struct {
	db *sql.DB
}

func NewPostsRepoSQL(db *sql.DB) *PostsRepoSQL {
	return &PostsRepoSQL{db: db}
}

// List returns at most limit posts ordered by creation time descending,
// strictly older than before when a cursor is given. It fetches one extra row
// to learn whether another page exists without a count query.
func (repo *PostsRepoSQL) List(ctx context.Context, limit int, before *time.Time) (*Feed, error) {
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if limit < 1 {
		limit = 1
	}

	var (
		rows *sql.Rows
		err  error
	)
	if before != nil {
		query := "SELECT " + postColumns + " FROM posts WHERE created_at < ? ORDER BY created_at DESC LIMIT ?"
		rows, err = repo.db.QueryContext(ctx, query, *before, limit+1)
	} else {
		query := "SELECT " + postColumns + " FROM posts ORDER BY created_at DESC LIMIT ?"
		rows, err = repo.db.QueryContext(ctx, query, limit+1)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*Post, 0, limit+1)
	for rows.Next() {
		p := &Post{}
		err = rows.Scan(&p.ID, &p.Title, &p.Text, &p.CreatorID, &p.Points, &p.Created, &p.Updated)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(result) == limit+1
	if hasMore {
		result = result[:limit]
	}

	return &Feed{Posts: result, HasMore: hasMore}, nil
}

func (repo *PostsRepoSQL) GetByID(ctx context.Context, id int64) (*Post, error) {
	query := "SELECT " + postColumns + " FROM posts WHERE id = ?"
	r := repo.db.QueryRowContext(ctx, query, id)

	p := Post{}
	err := r.Scan(&p.ID, &p.Title, &p.Text, &p.CreatorID, &p.Points, &p.Created, &p.Updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (repo *PostsRepoSQL) Add(ctx context.Context, p *Post) (int64, error) {
	now := time.Now()
	query := "INSERT INTO posts (`title`, `text`, `creator_id`, `points`, `created_at`, `updated_at`) VALUES (?, ?, ?, 0, ?, ?)"
	r, err := repo.db.ExecContext(ctx, query, p.Title, p.Text, p.CreatorID, now, now)
	if err != nil {
		return 0, err
	}

	lastID, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}

	p.ID = lastID
	p.Points = 0
	p.Created = now
	p.Updated = now
	return lastID, nil
}

// Update rewrites title and text. Ownership is enforced inside the predicate
// itself: a row belonging to someone else simply matches nothing and nil is
// returned, the same as for an absent post.
func (repo *PostsRepoSQL) Update(ctx context.Context, id, creatorID int64, title, text string) (*Post, error) {
	query := "UPDATE posts SET `title` = ?, `text` = ?, `updated_at` = ? WHERE id = ? AND creator_id = ?"
	r, err := repo.db.ExecContext(ctx, query, title, text, time.Now(), id, creatorID)
	if err != nil {
		return nil, err
	}

	affected, err := r.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}

	return repo.GetByID(ctx, id)
}

// Delete removes the post and its votes in one transaction. Deleting a post
// that does not exist or is owned by another user reports false without error.
func (repo *PostsRepoSQL) Delete(ctx context.Context, id, creatorID int64) (bool, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}

	r, err := tx.ExecContext(ctx, "DELETE FROM posts WHERE id = ? AND creator_id = ?", id, creatorID)
	if err != nil {
		tx.Rollback()
		return false, err
	}

	affected, err := r.RowsAffected()
	if err != nil {
		tx.Rollback()
		return false, err
	}
	if affected == 0 {
		tx.Rollback()
		return false, nil
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM votes WHERE post_id = ?", id)
	if err != nil {
		tx.Rollback()
		return false, err
	}

	return true, tx.Commit()
}
