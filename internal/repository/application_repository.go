package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/credo/internal/model"
)

const applicationColumns = `application_id, task_id, applicant_id, status, applied_at, updated_at`

// ApplicationRepo manages task_applications.  Rows are never deleted; their
// status records the history of who applied, who was picked and how each
// acceptor's participation ended.
type ApplicationRepo struct {
	db *sql.DB
}

// NewApplicationRepo returns an ApplicationRepo bound to db.
func NewApplicationRepo(db *sql.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

func scanApplication(row scanner) (*model.Application, error) {
	var a model.Application
	if err := row.Scan(&a.ID, &a.TaskID, &a.ApplicantID, &a.Status, &a.AppliedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateTx inserts a PENDING application.  A second application for the
// same (task, applicant) pair yields ErrDuplicate.
func (r *ApplicationRepo) CreateTx(ctx context.Context, tx *sql.Tx, taskID, applicantID uint64) (*model.Application, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO task_applications (task_id, applicant_id) VALUES (?, ?)", taskID, applicantID)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return scanApplication(tx.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM task_applications WHERE application_id = ?", id))
}

// GetForUpdateTx loads and locks the application of one applicant.
func (r *ApplicationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, taskID, applicantID uint64) (*model.Application, error) {
	return scanApplication(tx.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM task_applications WHERE task_id = ? AND applicant_id = ? FOR UPDATE",
		taskID, applicantID))
}

// SetStatusTx changes the status of a single application.
func (r *ApplicationRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, applicationID uint64, status string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE task_applications SET status = ?, updated_at = UTC_TIMESTAMP() WHERE application_id = ?",
		status, applicationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

// RejectOthersTx rejects every PENDING application on the task except the
// one belonging to keepApplicant.
func (r *ApplicationRepo) RejectOthersTx(ctx context.Context, tx *sql.Tx, taskID, keepApplicant uint64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE task_applications SET status = 'REJECTED', updated_at = UTC_TIMESTAMP()
		 WHERE task_id = ? AND applicant_id <> ? AND status = 'PENDING'`,
		taskID, keepApplicant)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordOutcomeTx stores how an acceptor left a task (WITHDRAWN or
// REMOVED), creating the history row if none exists yet.
func (r *ApplicationRepo) RecordOutcomeTx(ctx context.Context, tx *sql.Tx, taskID, applicantID uint64, status string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO task_applications (task_id, applicant_id, status) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE status = VALUES(status), updated_at = UTC_TIMESTAMP()`,
		taskID, applicantID, status)
	return err
}

// ListForTask returns the applications on a task with each applicant's
// doer reputation, oldest first.
func (r *ApplicationRepo) ListForTask(ctx context.Context, taskID uint64) ([]*model.ApplicationDetail, error) {
	const q = `SELECT a.application_id, a.task_id, a.applicant_id, a.status, a.applied_at, a.updated_at,
	                  u.username, u.accepting_rating, (u.trophies_given + u.trophies_accepted)
	           FROM task_applications a
	           JOIN users u ON u.user_id = a.applicant_id
	           WHERE a.task_id = ?
	           ORDER BY a.applied_at, a.application_id`
	rows, err := r.db.QueryContext(ctx, q, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.ApplicationDetail{}
	for rows.Next() {
		d := new(model.ApplicationDetail)
		if err := rows.Scan(&d.ID, &d.TaskID, &d.ApplicantID, &d.Status, &d.AppliedAt, &d.UpdatedAt,
			&d.ApplicantUsername, &d.AcceptingRating, &d.TotalTrophies); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByApplicant returns a user's applications with a summary of each
// task, newest first.
func (r *ApplicationRepo) ListByApplicant(ctx context.Context, applicantID uint64) ([]*model.MyApplication, error) {
	const q = `SELECT a.application_id, a.task_id, a.applicant_id, a.status, a.applied_at, a.updated_at,
	                  t.title, t.reward, t.status, t.deadline
	           FROM task_applications a
	           JOIN tasks t ON t.task_id = a.task_id
	           WHERE a.applicant_id = ?
	           ORDER BY a.applied_at DESC, a.application_id DESC`
	rows, err := r.db.QueryContext(ctx, q, applicantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.MyApplication{}
	for rows.Next() {
		m := new(model.MyApplication)
		if err := rows.Scan(&m.ID, &m.TaskID, &m.ApplicantID, &m.Status, &m.AppliedAt, &m.UpdatedAt,
			&m.TaskTitle, &m.TaskReward, &m.TaskStatus, &m.TaskDeadline); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ParticipationsTx derives the past-acceptor records of a task from its
// application history: withdrawn and removed acceptors, plus the acceptor
// still marked ACCEPTED when the task itself was cancelled.
func (r *ApplicationRepo) ParticipationsTx(ctx context.Context, tx *sql.Tx, taskID uint64) ([]model.ParticipationRecord, error) {
	const q = `SELECT a.applicant_id, a.status
	           FROM task_applications a
	           JOIN tasks t ON t.task_id = a.task_id
	           WHERE a.task_id = ?
	             AND (a.status IN ('WITHDRAWN', 'REMOVED') OR (a.status = 'ACCEPTED' AND t.status = 'CANCELLED'))`
	rows, err := tx.QueryContext(ctx, q, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ParticipationRecord
	for rows.Next() {
		var (
			userID uint64
			status string
		)
		if err := rows.Scan(&userID, &status); err != nil {
			return nil, err
		}
		rec := model.ParticipationRecord{TaskID: taskID, UserID: userID, Role: model.RoleAcceptor}
		switch status {
		case model.ApplicationWithdrawn:
			rec.Outcome = model.OutcomeWithdrawn
		case model.ApplicationRemoved:
			rec.Outcome = model.OutcomeRemoved
		default:
			rec.Outcome = model.OutcomeCancelled
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
