package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/credo/internal/model"
)

const taskColumns = `task_id, giver_id, acceptor_id, title, description, reward, deadline, status, created_at, updated_at`

const summarySelect = `SELECT t.task_id, t.giver_id, t.acceptor_id, t.title, t.description, t.reward,
		t.deadline, t.status, t.created_at, t.updated_at,
		u.username, u.phone_number, u.giving_rating, (u.trophies_given + u.trophies_accepted)
	FROM tasks t
	JOIN users u ON u.user_id = t.giver_id`

// TaskRepo encapsulates all queries on the tasks table.  Methods with a
// Tx suffix run inside a caller-owned transaction; the caller commits or
// rolls back.
type TaskRepo struct {
	db *sql.DB
}

// NewTaskRepo constructs a TaskRepo with the provided DB handle.
func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{db: db} }

// DB exposes the pool so services can open transactions that span
// several repositories.
func (r *TaskRepo) DB() *sql.DB { return r.db }

type scanner interface{ Scan(...any) error }

func scanTask(row scanner) (*model.Task, error) {
	var t model.Task
	var acceptor sql.NullInt64
	err := row.Scan(&t.ID, &t.GiverID, &acceptor, &t.Title, &t.Description, &t.Reward,
		&t.Deadline, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if acceptor.Valid {
		id := uint64(acceptor.Int64)
		t.AcceptorID = &id
	}
	return &t, nil
}

func scanSummary(row scanner) (*model.TaskSummary, error) {
	var s model.TaskSummary
	var acceptor sql.NullInt64
	err := row.Scan(&s.ID, &s.GiverID, &acceptor, &s.Title, &s.Description, &s.Reward,
		&s.Deadline, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		&s.GiverUsername, &s.GiverPhone, &s.GivingRating, &s.GiverTotalTrophies)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if acceptor.Valid {
		id := uint64(acceptor.Int64)
		s.AcceptorID = &id
	}
	return &s, nil
}

// Create inserts a new OPEN task and reads back the stored row so that
// defaults (status, timestamps) are populated on t.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	const q = `INSERT INTO tasks (giver_id, title, description, reward, deadline) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.GiverID, t.Title, t.Description, t.Reward, t.Deadline.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = *stored
	return nil
}

// GetByID fetches a task or ErrTaskNotFound.
func (r *TaskRepo) GetByID(ctx context.Context, id uint64) (*model.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE task_id = ?", id))
}

// GetForUpdateTx fetches a task and locks its row until the transaction
// ends, serialising concurrent transitions on the same task.
func (r *TaskRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Task, error) {
	return scanTask(tx.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE task_id = ? FOR UPDATE", id))
}

// GetSummary fetches a task joined with its giver's public details.
func (r *TaskRepo) GetSummary(ctx context.Context, id uint64) (*model.TaskSummary, error) {
	return scanSummary(r.db.QueryRowContext(ctx, summarySelect+" WHERE t.task_id = ?", id))
}

// List returns tasks matching the filter, newest first.
func (r *TaskRepo) List(ctx context.Context, f model.TaskFilter) ([]*model.TaskSummary, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "t.status = ?")
		args = append(args, f.Status)
	}
	if f.GiverID != 0 {
		where = append(where, "t.giver_id = ?")
		args = append(args, f.GiverID)
	}
	if f.AcceptorID != 0 {
		where = append(where, "t.acceptor_id = ?")
		args = append(args, f.AcceptorID)
	}
	q := summarySelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY t.created_at DESC, t.task_id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.TaskSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TransitionTx moves a task to status `to` and sets its acceptor, but only
// if the current status is one of `from`.  It reports whether a row was
// changed; false means another transaction moved the task first.
func (r *TaskRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, to string, acceptor *uint64, from ...string) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("transition requires at least one source status")
	}
	var acc any
	if acceptor != nil {
		acc = *acceptor
	}
	args := []any{to, acc, id}
	for _, s := range from {
		args = append(args, s)
	}
	q := `UPDATE tasks SET status = ?, acceptor_id = ?, updated_at = UTC_TIMESTAMP()
	      WHERE task_id = ? AND status IN (?` + strings.Repeat(",?", len(from)-1) + `)`
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateDeadlineTx moves a task's deadline.
func (r *TaskRepo) UpdateDeadlineTx(ctx context.Context, tx *sql.Tx, id uint64, deadline time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE tasks SET deadline = ?, updated_at = UTC_TIMESTAMP() WHERE task_id = ?",
		deadline.UTC(), id)
	return err
}

// ExpireOverdue cancels every OPEN task whose deadline is before now and
// returns how many rows changed.  Running it again without new overdue
// tasks changes nothing.
func (r *TaskRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tasks SET status = 'CANCELLED', updated_at = UTC_TIMESTAMP() WHERE status = 'OPEN' AND deadline < ?",
		now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
