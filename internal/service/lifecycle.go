package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/credo/internal/metrics"
	"github.com/iliyamo/credo/internal/model"
	"github.com/iliyamo/credo/internal/repository"
)

// TaskInput carries the editable fields of a task.
type TaskInput struct {
	Title       string
	Description string
	Reward      string
	Deadline    time.Time
}

func (in *TaskInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Reward = strings.TrimSpace(in.Reward)
}

func (in TaskInput) validate() error {
	switch {
	case in.Title == "":
		return invalid("title is required")
	case in.Description == "":
		return invalid("description is required")
	case in.Reward == "":
		return invalid("reward is required")
	case in.Deadline.IsZero():
		return invalid("deadline is required")
	}
	return nil
}

// Lifecycle is the task state machine.  Every operation that writes more
// than one row runs in a single transaction, and the task row is locked
// before its guards are checked.
type Lifecycle struct {
	db       *sql.DB
	tasks    *repository.TaskRepo
	apps     *repository.ApplicationRepo
	comments *repository.CommentRepo
	events   EventHandler
	pub      Publisher
	now      func() time.Time
}

// NewLifecycle wires the engine.  events receives TaskCompleted inside
// the completing transaction; pub may be nil.
func NewLifecycle(db *sql.DB, tasks *repository.TaskRepo, apps *repository.ApplicationRepo,
	comments *repository.CommentRepo, events EventHandler, pub Publisher) *Lifecycle {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &Lifecycle{
		db:       db,
		tasks:    tasks,
		apps:     apps,
		comments: comments,
		events:   events,
		pub:      pub,
		now:      time.Now,
	}
}

// WithClock replaces the time source used by AutoExpire.
func (l *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	l.now = now
	return l
}

// loadLocked fetches and locks a task, translating a missing row.
func (l *Lifecycle) loadLocked(ctx context.Context, tx *sql.Tx, id uint64) (*model.Task, error) {
	t, err := l.tasks.GetForUpdateTx(ctx, tx, id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return nil, notFound("task not found")
	}
	if err != nil {
		return nil, wrap("load task", err)
	}
	return t, nil
}

func requireGiver(t *model.Task, caller uint64, action string) error {
	if t.GiverID != caller {
		return forbidden("only the task giver can " + action)
	}
	return nil
}

// CreateTask posts a new OPEN task owned by caller.  Deadlines in the
// past are accepted; the next expiry sweep cancels such tasks.
func (l *Lifecycle) CreateTask(ctx context.Context, caller uint64, in TaskInput) (*model.Task, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	t := &model.Task{
		GiverID:     caller,
		Title:       in.Title,
		Description: in.Description,
		Reward:      in.Reward,
		Deadline:    in.Deadline,
	}
	if err := l.tasks.Create(ctx, t); err != nil {
		return nil, wrap("create task", err)
	}
	metrics.TaskTransitions.WithLabelValues("create").Inc()
	log.Info().Uint64("task_id", t.ID).Uint64("giver_id", caller).Msg("task created")
	return t, nil
}

// ListTasks lists tasks, optionally only those in one status.
func (l *Lifecycle) ListTasks(ctx context.Context, status string) ([]*model.TaskSummary, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && !model.ValidTaskStatus(status) {
		return nil, invalid("invalid status filter")
	}
	out, err := l.tasks.List(ctx, model.TaskFilter{Status: status})
	if err != nil {
		return nil, wrap("list tasks", err)
	}
	return out, nil
}

// ListMyGiven lists the tasks caller posted.
func (l *Lifecycle) ListMyGiven(ctx context.Context, caller uint64) ([]*model.TaskSummary, error) {
	out, err := l.tasks.List(ctx, model.TaskFilter{GiverID: caller})
	if err != nil {
		return nil, wrap("list given tasks", err)
	}
	return out, nil
}

// ListMyAccepted lists the tasks caller is working on or has completed.
func (l *Lifecycle) ListMyAccepted(ctx context.Context, caller uint64) ([]*model.TaskSummary, error) {
	out, err := l.tasks.List(ctx, model.TaskFilter{AcceptorID: caller})
	if err != nil {
		return nil, wrap("list accepted tasks", err)
	}
	return out, nil
}

// ListMyApplications lists caller's applications with their tasks.
func (l *Lifecycle) ListMyApplications(ctx context.Context, caller uint64) ([]*model.MyApplication, error) {
	out, err := l.apps.ListByApplicant(ctx, caller)
	if err != nil {
		return nil, wrap("list applications", err)
	}
	return out, nil
}

// GetTask returns a task with its giver's details and every application.
func (l *Lifecycle) GetTask(ctx context.Context, id uint64) (*model.TaskDetail, error) {
	s, err := l.tasks.GetSummary(ctx, id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return nil, notFound("task not found")
	}
	if err != nil {
		return nil, wrap("get task", err)
	}
	apps, err := l.apps.ListForTask(ctx, id)
	if err != nil {
		return nil, wrap("list applications", err)
	}
	return &model.TaskDetail{Task: s, Applications: apps}, nil
}

// Apply records caller's PENDING application on an OPEN task.
func (l *Lifecycle) Apply(ctx context.Context, taskID, caller uint64) (*model.Application, error) {
	var app *model.Application
	err := runInTx(ctx, l.db, func(tx *sql.Tx) error {
		t, err := l.loadLocked(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if t.GiverID == caller {
			return forbidden("cannot apply to your own task")
		}
		if t.Status != model.TaskOpen {
			return conflict("task is not open")
		}
		app, err = l.apps.CreateTx(ctx, tx, taskID, caller)
		if errors.Is(err, repository.ErrDuplicate) {
			return conflict("already applied to this task")
		}
		if err != nil {
			return wrap("create application", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TaskTransitions.WithLabelValues("apply").Inc()
	return app, nil
}

// Accept picks applicant as the acceptor.  The task moves to IN_PROGRESS,
// the application to ACCEPTED and every other pending application to
// REJECTED.  Of two concurrent accepts only one can see the task OPEN.
func (l *Lifecycle) Accept(ctx context.Context, taskID, caller, applicant uint64) (*model.Task, error) {
	var task *model.Task
	err := runInTx(ctx, l.db, func(tx *sql.Tx) error {
		t, err := l.loadLocked(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := requireGiver(t, caller, "accept applicants"); err != nil {
			return err
		}
		if t.Status != model.TaskOpen {
			return conflict("task is not open")
		}
		app, err := l.apps.GetForUpdateTx(ctx, tx, taskID, applicant)
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return notFound("application not found")
		}
		if err != nil {
			return wrap("load application", err)
		}
		if app.Status != model.ApplicationPending {
			return conflict("application is not pending")
		}
		ok, err := l.tasks.TransitionTx(ctx, tx, taskID, model.TaskInProgress, &applicant, model.TaskOpen)
		if err != nil {
			return wrap("transition task", err)
		}
		if !ok {
			return conflict("task is not open")
		}
		if err := l.apps.SetStatusTx(ctx, tx, app.ID, model.ApplicationAccepted); err != nil {
			return wrap("accept application", err)
		}
		if _, err := l.apps.RejectOthersTx(ctx, tx, taskID, applicant); err != nil {
			return wrap("reject other applications", err)
		}
		t.Status = model.TaskInProgress
		t.AcceptorID = &applicant
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TaskTransitions.WithLabelValues("accept").Inc()
	publish(ctx, l.pub, TaskAccepted{TaskID: taskID, GiverID: caller, AcceptorID: applicant})
	return task, nil
}

// Reject turns down one pending application.  The task is untouched.
func (l *Lifecycle) Reject(ctx context.Context, taskID, caller, applicant uint64) error {
	err := runInTx(ctx, l.db, func(tx *sql.Tx) error {
		t, err := l.loadLocked(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := requireGiver(t, caller, "reject applicants"); err != nil {
			return err
		}
		app, err := l.apps.GetForUpdateTx(ctx, tx, taskID, applicant)
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return notFound("application not found")
		}
		if err != nil {
			return wrap("load application", err)
		}
		if app.Status != model.ApplicationPending {
			return conflict("application is not pending")
		}
		if err := l.apps.SetStatusTx(ctx, tx, app.ID, model.ApplicationRejected); err != nil {
			return wrap("reject application", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.TaskTransitions.WithLabelValues("reject").Inc()
	return nil
}

// Complete closes an in-progress task and hands TaskCompleted to the
// reputation handler in the same transaction.
func (l *Lifecycle) Complete(ctx context.Context, taskID, caller uint64) (*model.Task, error) {
	var (
		task *model.Task
		ev   TaskCompleted
	)
	err := runInTx(ctx, l.db, func(tx *sql.Tx) error {
		t, err := l.loadLocked(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := requireGiver(t, caller, "complete the task"); err != nil {
			return err
		}
		if t.Status != model.TaskInProgress || !t.HasAcceptor() {
			return conflict("task is not in progress")
		}
		ok, err := l.tasks.TransitionTx(ctx, tx, taskID, model.TaskCompleted, t.AcceptorID, model.TaskInProgress)
		if err != nil {
			return wrap("transition task", err)
		}
		if !ok {
			return conflict("task is not in progress")
		}
		ev = TaskCompleted{TaskID: taskID, GiverID: t.GiverID, AcceptorID: *t.AcceptorID}
		if err := l.events.Apply(ctx, tx, ev); err != nil {
			return err
		}
		t.Status = model.TaskCompleted
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TaskTransitions.WithLabelValues("complete").Inc()
	publish(ctx, l.pub, ev)
	return task, nil
}

// Cancel ends an OPEN or IN_PROGRESS task.  The acceptor is cleared but
// their ACCEPTED application stays, which later lets them rate the giver.
func (l *Lifecycle) Cancel(ctx context.Context, taskID, caller uint64) (*model.Task, error) {
	var task *model.Task
	err := runInTx(ctx, l.db, func(tx *sql.Tx) error {
		t, err := l.loadLocked(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := requireGiver(t, caller, "cancel the task"); err != nil {
			return err
		}
		if t.Status != model.TaskOpen && t.Status != model.TaskInProgress {
			return conflict("task can no longer be cancelled")
		}
		ok, err := l.tasks.TransitionTx(ctx, tx, taskID, model.TaskCancelled, nil, model.TaskOpen, model.TaskInProgress)
		if err != nil {
			return wrap("transition task", err)
		}
		if !ok {
			return conflict("task can no longer be cancelled")
		}
		t.Status = model.TaskCancelled
		t.AcceptorID = nil
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TaskTransitions.WithLabelValues("cancel").Inc()
	publish(ctx, l.pub, TaskCancelled{TaskID: taskID, GiverID: caller})
	return task, nil
}

// Withdraw lets the acceptor give the task back.  Their application becomes
// WITHDRAWN, the reason is posted as a system comment and the task reopens.
func (l *Lifecycle) Withdraw(ctx context.Context, taskID, caller uint64, reason string) (*model.Task, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason is required")
	}
	var task *model.Task
	err := runInTx(ctx, l.db, func(tx *sql.Tx) error {
		t, err := l.loadLocked(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if t.Status != model.TaskInProgress {
			return conflict("task is not in progress")
		}
		if !t.IsAcceptor(caller) {
			return forbidden("only the acceptor can withdraw from the task")
		}
		task, err = l.reopen(ctx, tx, t, caller, caller, model.ApplicationWithdrawn,
			"Task withdrawn by acceptor. Reason: "+reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.TaskTransitions.WithLabelValues("withdraw").Inc()
	publish(ctx, l.pub, TaskWithdrawn{TaskID: taskID, AcceptorID: caller, Reason: reason})
	return task, nil
}

// RemoveAcceptor lets the giver take the task away from its acceptor.
func (l *Lifecycle) RemoveAcceptor(ctx context.Context, taskID, caller uint64, reason string) (*model.Task, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason is required")
	}
	var (
		task     *model.Task
		acceptor uint64
	)
	err := runInTx(ctx, l.db, func(tx *sql.Tx) error {
		t, err := l.loadLocked(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := requireGiver(t, caller, "remove the acceptor"); err != nil {
			return err
		}
		if t.Status != model.TaskInProgress {
			return conflict("task is not in progress")
		}
		if !t.HasAcceptor() {
			return conflict("task has no acceptor to remove")
		}
		acceptor = *t.AcceptorID
		task, err = l.reopen(ctx, tx, t, acceptor, caller, model.ApplicationRemoved,
			"Acceptor removed by task giver. Reason: "+reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.TaskTransitions.WithLabelValues("remove_acceptor").Inc()
	publish(ctx, l.pub, AcceptorRemoved{TaskID: taskID, GiverID: caller, AcceptorID: acceptor, Reason: reason})
	return task, nil
}

// reopen is the shared tail of Withdraw and RemoveAcceptor: record how the
// acceptor left, post the system comment as author, reset the task.
func (l *Lifecycle) reopen(ctx context.Context, tx *sql.Tx, t *model.Task, acceptor, author uint64,
	outcome, text string) (*model.Task, error) {
	if err := l.apps.RecordOutcomeTx(ctx, tx, t.ID, acceptor, outcome); err != nil {
		return nil, wrap("record outcome", err)
	}
	if _, err := l.comments.CreateTx(ctx, tx, &model.Comment{
		TaskID:   t.ID,
		UserID:   author,
		Text:     text,
		IsSystem: true,
	}); err != nil {
		return nil, wrap("system comment", err)
	}
	ok, err := l.tasks.TransitionTx(ctx, tx, t.ID, model.TaskOpen, nil, model.TaskInProgress)
	if err != nil {
		return nil, wrap("transition task", err)
	}
	if !ok {
		return nil, conflict("task is not in progress")
	}
	t.Status = model.TaskOpen
	t.AcceptorID = nil
	return t, nil
}

// UpdateTask moves the deadline of an unfinished task and optionally posts
// a comment from the giver explaining the change.
func (l *Lifecycle) UpdateTask(ctx context.Context, taskID, caller uint64, deadline time.Time, comment string) (*model.Task, error) {
	if deadline.IsZero() {
		return nil, invalid("deadline is required")
	}
	comment = strings.TrimSpace(comment)
	var task *model.Task
	err := runInTx(ctx, l.db, func(tx *sql.Tx) error {
		t, err := l.loadLocked(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := requireGiver(t, caller, "update the task"); err != nil {
			return err
		}
		if t.Status != model.TaskOpen && t.Status != model.TaskInProgress {
			return conflict("task can no longer be updated")
		}
		if err := l.tasks.UpdateDeadlineTx(ctx, tx, taskID, deadline); err != nil {
			return wrap("update deadline", err)
		}
		if comment != "" {
			if _, err := l.comments.CreateTx(ctx, tx, &model.Comment{TaskID: taskID, UserID: caller, Text: comment}); err != nil {
				return wrap("update comment", err)
			}
		}
		t.Deadline = deadline.UTC()
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TaskTransitions.WithLabelValues("update").Inc()
	return task, nil
}

// DuplicateTask reposts one of caller's tasks as a new OPEN task.  Empty
// fields of in are copied from the source; a new deadline is required.
func (l *Lifecycle) DuplicateTask(ctx context.Context, taskID, caller uint64, in TaskInput) (*model.Task, error) {
	src, err := l.tasks.GetByID(ctx, taskID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return nil, notFound("task not found")
	}
	if err != nil {
		return nil, wrap("load task", err)
	}
	if err := requireGiver(src, caller, "duplicate the task"); err != nil {
		return nil, err
	}
	in.normalize()
	if in.Title == "" {
		in.Title = src.Title
	}
	if in.Description == "" {
		in.Description = src.Description
	}
	if in.Reward == "" {
		in.Reward = src.Reward
	}
	return l.CreateTask(ctx, caller, in)
}

// AutoExpire cancels every OPEN task whose deadline has passed and reports
// how many changed.  A second run with nothing new overdue returns 0.
func (l *Lifecycle) AutoExpire(ctx context.Context) (int64, error) {
	now := l.now()
	n, err := l.tasks.ExpireOverdue(ctx, now)
	if err != nil {
		return 0, wrap("expire tasks", err)
	}
	if n > 0 {
		metrics.TasksExpired.Add(float64(n))
		log.Info().Int64("count", n).Msg("overdue tasks cancelled")
		publish(ctx, l.pub, TasksExpired{Count: n, At: now})
	}
	return n, nil
}
