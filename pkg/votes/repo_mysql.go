package votes

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

var (
	// ErrPostNotFound reports a vote against a post that does not exist.
	ErrPostNotFound = errors.New("post not found")
	// ErrLedgerCorrupt reports a stored vote value outside {-1, +1}. The flip
	// arithmetic below assumes the old value is exactly the opposite sign, so
	// anything else must fail loudly instead of silently skewing points.
	ErrLedgerCorrupt = errors.New("vote ledger holds value outside {-1, +1}")
)

type VoteLedgerSQL struct {
	db *sql.DB
}

func NewVoteLedgerSQL(db *sql.DB) *VoteLedgerSQL {
	return &VoteLedgerSQL{db: db}
}

// Apply records the caller's vote and keeps posts.points equal to the sum of
// the votes table, all inside one transaction:
//
//	no prior vote     -> insert row, points += value
//	opposite vote     -> update row, points += 2*value
//	same vote again   -> no-op, still success
func (r *VoteLedgerSQL) Apply(ctx context.Context, postID, userID int64, rawValue int) error {
	value := Normalize(rawValue)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var old Value
	row := tx.QueryRowContext(ctx,
		"SELECT `value` FROM votes WHERE user_id = ? AND post_id = ? FOR UPDATE",
		userID, postID)
	err = row.Scan(&old)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			"INSERT INTO votes (`user_id`, `post_id`, `value`) VALUES (?, ?, ?)",
			userID, postID, value)
		if err != nil {
			tx.Rollback()
			return err
		}
		if err = r.addPoints(ctx, tx, postID, int(value)); err != nil {
			tx.Rollback()
			return err
		}

	case err != nil:
		tx.Rollback()
		return err

	case old == value:
		// idempotent re-vote
		return tx.Commit()

	case old != Upvote && old != Downvote:
		tx.Rollback()
		return ErrLedgerCorrupt

	default:
		_, err = tx.ExecContext(ctx,
			"UPDATE votes SET `value` = ? WHERE user_id = ? AND post_id = ?",
			value, userID, postID)
		if err != nil {
			tx.Rollback()
			return err
		}
		// the flip removes the old contribution and adds the new one
		if err = r.addPoints(ctx, tx, postID, 2*int(value)); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (r *VoteLedgerSQL) addPoints(ctx context.Context, tx *sql.Tx, postID int64, delta int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE posts SET points = points + ? WHERE id = ?", delta, postID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPostNotFound
	}

	return nil
}

// GetByKeys is the bulk lookup behind the vote loader: one query per batch of
// (user, post) keys, pairs with no vote are simply missing from the result.
func (r *VoteLedgerSQL) GetByKeys(ctx context.Context, keys []Key) ([]*Vote, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("(?, ?), ", len(keys)), ", ")
	query := "SELECT `user_id`, `post_id`, `value` FROM votes WHERE (user_id, post_id) IN (" + placeholders + ")"

	args := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k.UserID, k.PostID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*Vote, 0, len(keys))
	for rows.Next() {
		v := &Vote{}
		err = rows.Scan(&v.UserID, &v.PostID, &v.Value)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}

	return result, rows.Err()
}
