package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/credo/internal/model"
)

const commentSelect = `SELECT c.comment_id, c.task_id, c.user_id, c.parent_comment_id, c.comment_text,
		c.is_system, c.created_at, u.username, (u.trophies_given + u.trophies_accepted),
		(c.user_id = t.giver_id)
	FROM task_comments c
	JOIN users u ON u.user_id = c.user_id
	JOIN tasks t ON t.task_id = c.task_id`

// CommentRepo stores task discussion threads.  Replies and task deletion
// cascade at the storage level.
type CommentRepo struct {
	db *sql.DB
}

// NewCommentRepo returns a CommentRepo bound to db.
func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db} }

func scanComment(row scanner) (*model.Comment, error) {
	var (
		c      model.Comment
		parent sql.NullInt64
		text   sql.NullString
	)
	err := row.Scan(&c.ID, &c.TaskID, &c.UserID, &parent, &text, &c.IsSystem, &c.CreatedAt,
		&c.Username, &c.TotalTrophies, &c.IsGiver)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	if parent.Valid {
		p := uint64(parent.Int64)
		c.ParentID = &p
	}
	c.Text = text.String
	return &c, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertComment(ctx context.Context, ex execer, c *model.Comment) (uint64, error) {
	var parent any
	if c.ParentID != nil {
		parent = *c.ParentID
	}
	res, err := ex.ExecContext(ctx,
		"INSERT INTO task_comments (task_id, user_id, parent_comment_id, comment_text, is_system) VALUES (?, ?, ?, ?, ?)",
		c.TaskID, c.UserID, parent, c.Text, c.IsSystem)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Create inserts a comment and returns its ID.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) (uint64, error) {
	return insertComment(ctx, r.db, c)
}

// CreateTx inserts a comment as part of a wider transaction.
func (r *CommentRepo) CreateTx(ctx context.Context, tx *sql.Tx, c *model.Comment) (uint64, error) {
	return insertComment(ctx, tx, c)
}

// GetByID fetches one comment annotated with its author.
func (r *CommentRepo) GetByID(ctx context.Context, id uint64) (*model.Comment, error) {
	return scanComment(r.db.QueryRowContext(ctx, commentSelect+" WHERE c.comment_id = ?", id))
}

// ListForTask returns all comments on a task in creation order.
func (r *CommentRepo) ListForTask(ctx context.Context, taskID uint64) ([]*model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		commentSelect+" WHERE c.task_id = ? ORDER BY c.created_at ASC, c.comment_id ASC", taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
