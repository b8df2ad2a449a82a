package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/credo/internal/queue"
)

// Event is a domain fact emitted by the lifecycle engine or the reputation
// subsystem.  Aggregates on users change only in response to events.
type Event interface {
	eventType() string
}

// TaskCompleted is emitted when a giver marks an in-progress task done.
type TaskCompleted struct {
	TaskID     uint64
	GiverID    uint64
	AcceptorID uint64
}

// RatingSubmitted is emitted after a rating row has been inserted.
type RatingSubmitted struct {
	TaskID  uint64
	RaterID uint64
	RatedID uint64
	Type    string
	Value   int
}

// TaskAccepted is emitted when an applicant is picked.
type TaskAccepted struct {
	TaskID     uint64
	GiverID    uint64
	AcceptorID uint64
}

// TaskWithdrawn is emitted when the acceptor gives a task back.
type TaskWithdrawn struct {
	TaskID     uint64
	AcceptorID uint64
	Reason     string
}

// AcceptorRemoved is emitted when the giver takes a task away from its
// acceptor.
type AcceptorRemoved struct {
	TaskID     uint64
	GiverID    uint64
	AcceptorID uint64
	Reason     string
}

// TaskCancelled is emitted when the giver cancels a task.
type TaskCancelled struct {
	TaskID  uint64
	GiverID uint64
}

// TasksExpired is emitted by a sweep that cancelled at least one task.
type TasksExpired struct {
	Count int64
	At    time.Time
}

func (TaskCompleted) eventType() string   { return queue.EventTaskCompleted }
func (RatingSubmitted) eventType() string { return queue.EventRatingSubmitted }
func (TaskAccepted) eventType() string    { return queue.EventTaskAccepted }
func (TaskWithdrawn) eventType() string   { return queue.EventTaskWithdrawn }
func (AcceptorRemoved) eventType() string { return queue.EventAcceptorRemoved }
func (TaskCancelled) eventType() string   { return queue.EventTaskCancelled }
func (TasksExpired) eventType() string    { return queue.EventTasksExpired }

// EventHandler consumes events inside the transaction that produced them.
type EventHandler interface {
	Apply(ctx context.Context, tx *sql.Tx, ev Event) error
}

// Publisher ships committed events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev queue.TaskEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.TaskEvent) error { return nil }

// toMessage flattens an event into its wire form.
func toMessage(ev Event, now time.Time) queue.TaskEvent {
	m := queue.TaskEvent{Type: ev.eventType(), OccurredAt: now.UTC()}
	switch e := ev.(type) {
	case TaskCompleted:
		m.TaskID, m.ActorID, m.SubjectID = e.TaskID, e.GiverID, e.AcceptorID
	case RatingSubmitted:
		m.TaskID, m.ActorID, m.SubjectID = e.TaskID, e.RaterID, e.RatedID
		m.RatingType, m.Value = e.Type, e.Value
	case TaskAccepted:
		m.TaskID, m.ActorID, m.SubjectID = e.TaskID, e.GiverID, e.AcceptorID
	case TaskWithdrawn:
		m.TaskID, m.ActorID, m.Reason = e.TaskID, e.AcceptorID, e.Reason
	case AcceptorRemoved:
		m.TaskID, m.ActorID, m.SubjectID, m.Reason = e.TaskID, e.GiverID, e.AcceptorID, e.Reason
	case TaskCancelled:
		m.TaskID, m.ActorID = e.TaskID, e.GiverID
	case TasksExpired:
		m.Count = e.Count
		m.OccurredAt = e.At.UTC()
	}
	return m
}

// publish sends events after commit.  Delivery is best effort: the database
// is the source of truth, so failures are only logged.
func publish(ctx context.Context, pub Publisher, events ...Event) {
	for _, ev := range events {
		msg := toMessage(ev, time.Now())
		if err := pub.Publish(ctx, msg); err != nil {
			log.Warn().Err(err).Str("event", msg.Type).Uint64("task_id", msg.TaskID).Msg("publish event failed")
		}
	}
}
