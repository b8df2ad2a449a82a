package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/credo/internal/model"
)

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RatingRepo persists immutable ratings.
type RatingRepo struct {
	db *sql.DB
}

// NewRatingRepo returns a RatingRepo bound to db.
func NewRatingRepo(db *sql.DB) *RatingRepo { return &RatingRepo{db: db} }

// CreateTx inserts a rating and sets its generated ID.  A second rating by
// the same rater on the same task yields ErrDuplicate.
func (r *RatingRepo) CreateTx(ctx context.Context, tx *sql.Tx, rt *model.Rating) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO ratings (task_id, rater_id, rated_id, rating_value, rating_type, comment)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rt.TaskID, rt.RaterID, rt.RatedID, rt.Value, rt.Type, rt.Comment)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)
	return nil
}

func exists(ctx context.Context, q rowQuerier, taskID, raterID uint64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ratings WHERE task_id = ? AND rater_id = ?", taskID, raterID).Scan(&n)
	return n > 0, err
}

// Exists reports whether raterID already rated someone on the task.
func (r *RatingRepo) Exists(ctx context.Context, taskID, raterID uint64) (bool, error) {
	return exists(ctx, r.db, taskID, raterID)
}

// ExistsTx is Exists inside a transaction.
func (r *RatingRepo) ExistsTx(ctx context.Context, tx *sql.Tx, taskID, raterID uint64) (bool, error) {
	return exists(ctx, tx, taskID, raterID)
}

// TotalsTx returns how many ratings of one type a user has received and
// their sum.  It is a locking read so it sees rows committed after tx's
// snapshot was taken.
func (r *RatingRepo) TotalsTx(ctx context.Context, tx *sql.Tx, ratedID uint64, ratingType string) (count int64, sum int64, err error) {
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(rating_value), 0) FROM ratings WHERE rated_id = ? AND rating_type = ? FOR SHARE",
		ratedID, ratingType).Scan(&count, &sum)
	return count, sum, err
}

// ListReceived returns every rating a user received, newest first.
func (r *RatingRepo) ListReceived(ctx context.Context, ratedID uint64) ([]*model.RatingReceived, error) {
	const q = `SELECT r.rating_id, r.task_id, r.rater_id, r.rated_id, r.rating_value, r.rating_type,
	                  r.comment, r.created_at, u.username, t.title
	           FROM ratings r
	           JOIN users u ON u.user_id = r.rater_id
	           JOIN tasks t ON t.task_id = r.task_id
	           WHERE r.rated_id = ?
	           ORDER BY r.created_at DESC, r.rating_id DESC`
	rows, err := r.db.QueryContext(ctx, q, ratedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.RatingReceived{}
	for rows.Next() {
		rr := new(model.RatingReceived)
		var comment sql.NullString
		if err := rows.Scan(&rr.ID, &rr.TaskID, &rr.RaterID, &rr.RatedID, &rr.Value, &rr.Type,
			&comment, &rr.CreatedAt, &rr.RaterUsername, &rr.TaskTitle); err != nil {
			return nil, err
		}
		if comment.Valid {
			c := comment.String
			rr.Comment = &c
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}
