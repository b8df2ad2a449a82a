package model

import "time"

// Task statuses.  OPEN is the initial state; COMPLETED and CANCELLED are
// terminal.  IN_PROGRESS falls back to OPEN when the acceptor withdraws
// or is removed by the giver.
const (
	TaskOpen       = "OPEN"
	TaskInProgress = "IN_PROGRESS"
	TaskCompleted  = "COMPLETED"
	TaskCancelled  = "CANCELLED"
)

// ValidTaskStatus reports whether s is one of the task statuses.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskOpen, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

// Task mirrors a row of the `tasks` table.  AcceptorID is set only while
// the task is IN_PROGRESS or COMPLETED.
type Task struct {
	ID          uint64    `json:"task_id"`
	GiverID     uint64    `json:"giver_id"`
	AcceptorID  *uint64   `json:"acceptor_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Reward      string    `json:"reward"`
	Deadline    time.Time `json:"deadline"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasAcceptor reports whether the task is currently bound to a doer.
func (t *Task) HasAcceptor() bool { return t.AcceptorID != nil && *t.AcceptorID != 0 }

// IsAcceptor reports whether userID is the task's current acceptor.
func (t *Task) IsAcceptor(userID uint64) bool { return t.HasAcceptor() && *t.AcceptorID == userID }

// TaskSummary is a task joined with the public details of its giver.
type TaskSummary struct {
	Task
	GiverUsername      string  `json:"giver_username"`
	GiverPhone         string  `json:"giver_phone,omitempty"`
	GivingRating       float64 `json:"giving_rating"`
	GiverTotalTrophies int     `json:"giver_total_trophies"`
}

// TaskFilter narrows task listings.  Zero values mean "any".
type TaskFilter struct {
	Status     string
	GiverID    uint64
	AcceptorID uint64
}

// TaskDetail is the response of a single task lookup.
type TaskDetail struct {
	Task         *TaskSummary         `json:"task"`
	Applications []*ApplicationDetail `json:"applications"`
}
