// Package queue defines the task event payload exchanged over RabbitMQ,
// the publisher used by the service layer and the activity log consumer.
package queue

import (
	"fmt"
	"strings"
	"time"
)

// TaskEventsQueue is the durable queue every domain event is routed to.
const TaskEventsQueue = "task.events"

// Event type names.
const (
	EventTaskAccepted    = "task.accepted"
	EventTaskCompleted   = "task.completed"
	EventTaskCancelled   = "task.cancelled"
	EventTaskWithdrawn   = "task.withdrawn"
	EventAcceptorRemoved = "task.acceptor_removed"
	EventTasksExpired    = "tasks.expired"
	EventRatingSubmitted = "rating.submitted"
)

// TaskEvent is the JSON body of a message on task.events.  ActorID is the
// user who caused the event, SubjectID the other party when there is one.
type TaskEvent struct {
	ID         string    `json:"event_id"`
	Type       string    `json:"type"`
	TaskID     uint64    `json:"task_id,omitempty"`
	ActorID    uint64    `json:"actor_id,omitempty"`
	SubjectID  uint64    `json:"subject_id,omitempty"`
	RatingType string    `json:"rating_type,omitempty"`
	Value      int       `json:"value,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Count      int64     `json:"count,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Line renders the event as one activity log line.
func (e TaskEvent) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.OccurredAt.UTC().Format(time.RFC3339), e.Type)
	if e.TaskID != 0 {
		fmt.Fprintf(&b, " | task_id=%d", e.TaskID)
	}
	if e.ActorID != 0 {
		fmt.Fprintf(&b, " | actor_id=%d", e.ActorID)
	}
	if e.SubjectID != 0 {
		fmt.Fprintf(&b, " | subject_id=%d", e.SubjectID)
	}
	if e.RatingType != "" {
		fmt.Fprintf(&b, " | rating=%s:%d", e.RatingType, e.Value)
	}
	if e.Count != 0 {
		fmt.Fprintf(&b, " | count=%d", e.Count)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, " | reason=%q", e.Reason)
	}
	return b.String()
}
