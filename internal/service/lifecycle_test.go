package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/credo/internal/model"
	"github.com/iliyamo/credo/internal/queue"
	"github.com/iliyamo/credo/internal/repository"
)

const (
	selectTaskForUpdate = `FROM tasks WHERE task_id = \? FOR UPDATE`
	selectAppForUpdate  = `FROM task_applications WHERE task_id = \? AND applicant_id = \? FOR UPDATE`
	updateTaskStatus    = `UPDATE tasks SET status = \?, acceptor_id = \?`
	updateAppStatus     = `UPDATE task_applications SET status = \?`
	rejectOthers        = `UPDATE task_applications SET status = 'REJECTED'`
)

var taskCols = []string{"task_id", "giver_id", "acceptor_id", "title", "description", "reward",
	"deadline", "status", "created_at", "updated_at"}

func taskRows(id, giver uint64, acceptor interface{}, status string) *sqlmock.Rows {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(taskCols).
		AddRow(id, giver, acceptor, "Fix bike", "Flat tyre", "Coffee", now.Add(24*time.Hour), status, now, now)
}

func appRows(id, taskID, applicant uint64, status string) *sqlmock.Rows {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"application_id", "task_id", "applicant_id", "status", "applied_at", "updated_at"}).
		AddRow(id, taskID, applicant, status, now, now)
}

type recordingPublisher struct {
	events []queue.TaskEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.TaskEvent) error {
	p.events = append(p.events, ev)
	return nil
}

type fixture struct {
	db         *sql.DB
	mock       sqlmock.Sqlmock
	pub        *recordingPublisher
	lifecycle  *Lifecycle
	reputation *Reputation
	comments   *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tasks := repository.NewTaskRepo(db)
	apps := repository.NewApplicationRepo(db)
	comments := repository.NewCommentRepo(db)
	pub := &recordingPublisher{}
	rep := NewReputation(db, repository.NewUserRepo(db), tasks, apps, repository.NewRatingRepo(db), pub)
	return &fixture{
		db:         db,
		mock:       mock,
		pub:        pub,
		lifecycle:  NewLifecycle(db, tasks, apps, comments, rep, pub),
		reputation: rep,
		comments:   NewCommentService(tasks, comments),
	}
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t)
	deadline := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		in     TaskInput
		reason string
	}{
		{"blank title", TaskInput{Title: "  ", Description: "d", Reward: "r", Deadline: deadline}, "title is required"},
		{"no description", TaskInput{Title: "t", Reward: "r", Deadline: deadline}, "description is required"},
		{"no reward", TaskInput{Title: "t", Description: "d", Deadline: deadline}, "reward is required"},
		{"no deadline", TaskInput{Title: "t", Description: "d", Reward: "r"}, "deadline is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.lifecycle.CreateTask(context.Background(), 1, tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.EqualError(t, err, tt.reason)
		})
	}
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestListTasksRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.lifecycle.ListTasks(context.Background(), "archived")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAcceptPicksApplicantAndRejectsOthers(t *testing.T) {
	f := newFixture(t)
	m := f.mock

	m.ExpectBegin()
	m.ExpectQuery(selectTaskForUpdate).WithArgs(uint64(1)).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
	m.ExpectQuery(selectAppForUpdate).WithArgs(uint64(1), uint64(20)).WillReturnRows(appRows(5, 1, 20, model.ApplicationPending))
	m.ExpectExec(updateTaskStatus).
		WithArgs(model.TaskInProgress, uint64(20), uint64(1), model.TaskOpen).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectExec(updateAppStatus).WithArgs(model.ApplicationAccepted, uint64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectExec(rejectOthers).WithArgs(uint64(1), uint64(20)).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()

	task, err := f.lifecycle.Accept(context.Background(), 1, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, model.TaskInProgress, task.Status)
	require.NotNil(t, task.AcceptorID)
	assert.Equal(t, uint64(20), *task.AcceptorID)
	assert.NoError(t, m.ExpectationsWereMet())

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, queue.EventTaskAccepted, f.pub.events[0].Type)
	assert.Equal(t, uint64(20), f.pub.events[0].SubjectID)
}

func TestAcceptRejections(t *testing.T) {
	tests := []struct {
		name   string
		caller uint64
		setup  func(m sqlmock.Sqlmock)
		kind   error
		reason string
	}{
		{
			name:   "task missing",
			caller: 10,
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(selectTaskForUpdate).WillReturnError(sql.ErrNoRows)
			},
			kind:   ErrNotFound,
			reason: "task not found",
		},
		{
			name:   "not the giver",
			caller: 99,
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
			},
			kind:   ErrForbidden,
			reason: "only the task giver can accept applicants",
		},
		{
			name:   "already in progress",
			caller: 10,
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, uint64(20), model.TaskInProgress))
			},
			kind:   ErrConflict,
			reason: "task is not open",
		},
		{
			name:   "no application",
			caller: 10,
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
				m.ExpectQuery(selectAppForUpdate).WillReturnError(sql.ErrNoRows)
			},
			kind:   ErrNotFound,
			reason: "application not found",
		},
		{
			name:   "application already rejected",
			caller: 10,
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
				m.ExpectQuery(selectAppForUpdate).WillReturnRows(appRows(6, 1, 30, model.ApplicationRejected))
			},
			kind:   ErrConflict,
			reason: "application is not pending",
		},
		{
			name:   "lost the race",
			caller: 10,
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
				m.ExpectQuery(selectAppForUpdate).WillReturnRows(appRows(6, 1, 30, model.ApplicationPending))
				m.ExpectExec(updateTaskStatus).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			kind:   ErrConflict,
			reason: "task is not open",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.mock.ExpectBegin()
			tt.setup(f.mock)
			f.mock.ExpectRollback()

			_, err := f.lifecycle.Accept(context.Background(), 1, tt.caller, 30)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.EqualError(t, err, tt.reason)
			assert.NoError(t, f.mock.ExpectationsWereMet())
			assert.Empty(t, f.pub.events)
		})
	}
}

func TestApplyRejections(t *testing.T) {
	t.Run("own task", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
		f.mock.ExpectRollback()

		_, err := f.lifecycle.Apply(context.Background(), 1, 10)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("duplicate application", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
		f.mock.ExpectExec(`INSERT INTO task_applications`).
			WillReturnError(errors.New("Error 1062: Duplicate entry '1-20' for key 'uq_application_task_applicant'"))
		f.mock.ExpectRollback()

		_, err := f.lifecycle.Apply(context.Background(), 1, 20)
		assert.ErrorIs(t, err, ErrConflict)
		assert.EqualError(t, err, "already applied to this task")
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("task not open", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskCancelled))
		f.mock.ExpectRollback()

		_, err := f.lifecycle.Apply(context.Background(), 1, 20)
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestCompleteAwardsBothTrophies(t *testing.T) {
	f := newFixture(t)
	m := f.mock

	m.ExpectBegin()
	m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, uint64(20), model.TaskInProgress))
	m.ExpectExec(updateTaskStatus).
		WithArgs(model.TaskCompleted, uint64(20), uint64(1), model.TaskInProgress).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectExec(`UPDATE users SET trophies_given`).WithArgs(1, 0, uint64(10)).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectExec(`UPDATE users SET trophies_given`).WithArgs(0, 1, uint64(20)).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()

	task, err := f.lifecycle.Complete(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, task.Status)
	assert.NoError(t, m.ExpectationsWereMet())
	require.Len(t, f.pub.events, 1)
	assert.Equal(t, queue.EventTaskCompleted, f.pub.events[0].Type)
}

func TestCompleteRequiresInProgress(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
	f.mock.ExpectRollback()

	_, err := f.lifecycle.Complete(context.Background(), 1, 10)
	assert.ErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "task is not in progress")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCancelClearsAcceptor(t *testing.T) {
	f := newFixture(t)
	m := f.mock

	m.ExpectBegin()
	m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, uint64(20), model.TaskInProgress))
	m.ExpectExec(updateTaskStatus).
		WithArgs(model.TaskCancelled, nil, uint64(1), model.TaskOpen, model.TaskInProgress).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()

	task, err := f.lifecycle.Cancel(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCancelled, task.Status)
	assert.Nil(t, task.AcceptorID)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestCancelTerminalTask(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, uint64(20), model.TaskCompleted))
	f.mock.ExpectRollback()

	_, err := f.lifecycle.Cancel(context.Background(), 1, 10)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestWithdrawReopensTask(t *testing.T) {
	f := newFixture(t)
	m := f.mock

	m.ExpectBegin()
	m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, uint64(20), model.TaskInProgress))
	m.ExpectExec(`INSERT INTO task_applications \(task_id, applicant_id, status\)`).
		WithArgs(uint64(1), uint64(20), model.ApplicationWithdrawn).
		WillReturnResult(sqlmock.NewResult(0, 2))
	m.ExpectExec(`INSERT INTO task_comments`).
		WithArgs(uint64(1), uint64(20), nil, "Task withdrawn by acceptor. Reason: busy", true).
		WillReturnResult(sqlmock.NewResult(7, 1))
	m.ExpectExec(updateTaskStatus).
		WithArgs(model.TaskOpen, nil, uint64(1), model.TaskInProgress).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()

	task, err := f.lifecycle.Withdraw(context.Background(), 1, 20, "  busy ")
	require.NoError(t, err)
	assert.Equal(t, model.TaskOpen, task.Status)
	assert.Nil(t, task.AcceptorID)
	assert.NoError(t, m.ExpectationsWereMet())

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, queue.EventTaskWithdrawn, f.pub.events[0].Type)
	assert.Equal(t, "busy", f.pub.events[0].Reason)
}

func TestWithdrawRejections(t *testing.T) {
	t.Run("blank reason", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.lifecycle.Withdraw(context.Background(), 1, 20, "   ")
		assert.ErrorIs(t, err, ErrValidation)
		assert.EqualError(t, err, "reason is required")
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("not the acceptor", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, uint64(20), model.TaskInProgress))
		f.mock.ExpectRollback()

		_, err := f.lifecycle.Withdraw(context.Background(), 1, 10, "busy")
		assert.ErrorIs(t, err, ErrForbidden)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("task open", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
		f.mock.ExpectRollback()

		_, err := f.lifecycle.Withdraw(context.Background(), 1, 20, "busy")
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestRemoveAcceptorRecordsRemoval(t *testing.T) {
	f := newFixture(t)
	m := f.mock

	m.ExpectBegin()
	m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, uint64(20), model.TaskInProgress))
	m.ExpectExec(`INSERT INTO task_applications \(task_id, applicant_id, status\)`).
		WithArgs(uint64(1), uint64(20), model.ApplicationRemoved).
		WillReturnResult(sqlmock.NewResult(0, 2))
	m.ExpectExec(`INSERT INTO task_comments`).
		WithArgs(uint64(1), uint64(10), nil, "Acceptor removed by task giver. Reason: no show", true).
		WillReturnResult(sqlmock.NewResult(8, 1))
	m.ExpectExec(updateTaskStatus).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()

	task, err := f.lifecycle.RemoveAcceptor(context.Background(), 1, 10, "no show")
	require.NoError(t, err)
	assert.Equal(t, model.TaskOpen, task.Status)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestRemoveAcceptorOnlyByGiver(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, uint64(20), model.TaskInProgress))
	f.mock.ExpectRollback()

	_, err := f.lifecycle.RemoveAcceptor(context.Background(), 1, 20, "no show")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAutoExpireIsIdempotent(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	f.lifecycle.WithClock(func() time.Time { return now })

	f.mock.ExpectExec(`UPDATE tasks SET status = 'CANCELLED'`).WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`UPDATE tasks SET status = 'CANCELLED'`).WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := f.lifecycle.AutoExpire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.lifecycle.AutoExpire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	assert.NoError(t, f.mock.ExpectationsWereMet())
	require.Len(t, f.pub.events, 1)
	assert.Equal(t, queue.EventTasksExpired, f.pub.events[0].Type)
	assert.Equal(t, int64(1), f.pub.events[0].Count)
}

func TestUpdateTaskPostsGiverComment(t *testing.T) {
	f := newFixture(t)
	m := f.mock
	deadline := time.Date(2024, 7, 1, 18, 0, 0, 0, time.UTC)

	m.ExpectBegin()
	m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
	m.ExpectExec(`UPDATE tasks SET deadline = \?`).WithArgs(deadline, uint64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectExec(`INSERT INTO task_comments`).
		WithArgs(uint64(1), uint64(10), nil, "pushed back a week", false).
		WillReturnResult(sqlmock.NewResult(3, 1))
	m.ExpectCommit()

	task, err := f.lifecycle.UpdateTask(context.Background(), 1, 10, deadline, "pushed back a week")
	require.NoError(t, err)
	assert.Equal(t, deadline, task.Deadline)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestRejectTurnsDownPendingApplication(t *testing.T) {
	f := newFixture(t)
	m := f.mock

	m.ExpectBegin()
	m.ExpectQuery(selectTaskForUpdate).WithArgs(uint64(1)).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
	m.ExpectQuery(selectAppForUpdate).WithArgs(uint64(1), uint64(20)).WillReturnRows(appRows(5, 1, 20, model.ApplicationPending))
	m.ExpectExec(updateAppStatus).WithArgs(model.ApplicationRejected, uint64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()

	require.NoError(t, f.lifecycle.Reject(context.Background(), 1, 10, 20))
	assert.NoError(t, m.ExpectationsWereMet())
	assert.Empty(t, f.pub.events)
}

func TestRejectRejections(t *testing.T) {
	tests := []struct {
		name   string
		caller uint64
		setup  func(m sqlmock.Sqlmock)
		kind   error
		reason string
	}{
		{
			name:   "unknown task",
			caller: 10,
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(selectTaskForUpdate).WillReturnRows(sqlmock.NewRows(taskCols))
			},
			kind:   ErrNotFound,
			reason: "task not found",
		},
		{
			name:   "not the giver",
			caller: 99,
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
			},
			kind:   ErrForbidden,
			reason: "only the task giver can reject applicants",
		},
		{
			name:   "no application",
			caller: 10,
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
				m.ExpectQuery(selectAppForUpdate).WillReturnRows(
					sqlmock.NewRows([]string{"application_id", "task_id", "applicant_id", "status", "applied_at", "updated_at"}))
			},
			kind:   ErrNotFound,
			reason: "application not found",
		},
		{
			name:   "already accepted",
			caller: 10,
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, uint64(20), model.TaskInProgress))
				m.ExpectQuery(selectAppForUpdate).WillReturnRows(appRows(5, 1, 20, model.ApplicationAccepted))
			},
			kind:   ErrConflict,
			reason: "application is not pending",
		},
		{
			name:   "withdrawn earlier",
			caller: 10,
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(selectTaskForUpdate).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
				m.ExpectQuery(selectAppForUpdate).WillReturnRows(appRows(5, 1, 20, model.ApplicationWithdrawn))
			},
			kind:   ErrConflict,
			reason: "application is not pending",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.mock.ExpectBegin()
			tt.setup(f.mock)
			f.mock.ExpectRollback()

			err := f.lifecycle.Reject(context.Background(), 1, tt.caller, 20)
			assert.ErrorIs(t, err, tt.kind)
			assert.EqualError(t, err, tt.reason)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

const selectTask = `SELECT task_id, giver_id, acceptor_id, .* FROM tasks WHERE task_id = \?`

func TestDuplicateTaskCopiesBlankFields(t *testing.T) {
	f := newFixture(t)
	m := f.mock
	deadline := time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)

	m.ExpectQuery(selectTask).WithArgs(uint64(1)).WillReturnRows(taskRows(1, 10, nil, model.TaskCompleted))
	m.ExpectExec(`INSERT INTO tasks`).
		WithArgs(uint64(10), "Fix bike", "Flat tyre", "Two coffees", deadline).
		WillReturnResult(sqlmock.NewResult(2, 1))
	m.ExpectQuery(selectTask).WithArgs(uint64(2)).WillReturnRows(taskRows(2, 10, nil, model.TaskOpen))

	task, err := f.lifecycle.DuplicateTask(context.Background(), 1, 10, TaskInput{Reward: " Two coffees ", Deadline: deadline})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), task.ID)
	assert.Equal(t, model.TaskOpen, task.Status)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestDuplicateTaskRejections(t *testing.T) {
	deadline := time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		caller uint64
		rows   *sqlmock.Rows
		in     TaskInput
		kind   error
		reason string
	}{
		{"unknown source", 10, sqlmock.NewRows(taskCols), TaskInput{Deadline: deadline}, ErrNotFound, "task not found"},
		{"not the giver", 99, taskRows(1, 10, nil, model.TaskOpen), TaskInput{Deadline: deadline}, ErrForbidden, "only the task giver can duplicate the task"},
		{"needs a new deadline", 10, taskRows(1, 10, nil, model.TaskCancelled), TaskInput{Title: "Fix car"}, ErrValidation, "deadline is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.mock.ExpectQuery(selectTask).WithArgs(uint64(1)).WillReturnRows(tt.rows)

			_, err := f.lifecycle.DuplicateTask(context.Background(), 1, tt.caller, tt.in)
			assert.ErrorIs(t, err, tt.kind)
			assert.EqualError(t, err, tt.reason)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestGetTaskNotFound(t *testing.T) {
	f := newFixture(t)
	cols := append(append([]string{}, taskCols...), "username", "phone_number", "giving_rating", "trophies")
	f.mock.ExpectQuery(`FROM tasks t JOIN users u ON u.user_id = t.giver_id WHERE t.task_id = \?`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(cols))

	_, err := f.lifecycle.GetTask(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "task not found")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestListMyApplications(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"application_id", "task_id", "applicant_id", "status", "applied_at", "updated_at",
		"title", "reward", "task_status", "deadline"}).
		AddRow(6, 2, 20, model.ApplicationPending, now, now, "Move desk", "Lunch", model.TaskOpen, now.Add(time.Hour)).
		AddRow(5, 1, 20, model.ApplicationRejected, now, now, "Fix bike", "Coffee", model.TaskInProgress, now.Add(2*time.Hour))
	f.mock.ExpectQuery(`FROM task_applications a JOIN tasks t`).WithArgs(uint64(20)).WillReturnRows(rows)

	out, err := f.lifecycle.ListMyApplications(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, uint64(2), out[0].TaskID)
	assert.Equal(t, "Move desk", out[0].TaskTitle)
	assert.Equal(t, model.ApplicationRejected, out[1].Status)
	assert.Equal(t, model.TaskInProgress, out[1].TaskStatus)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
