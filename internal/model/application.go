package model

import "time"

// Application statuses.  An application's status moves independently of
// its task's status.
const (
	ApplicationPending   = "PENDING"
	ApplicationAccepted  = "ACCEPTED"
	ApplicationRejected  = "REJECTED"
	ApplicationWithdrawn = "WITHDRAWN"
	ApplicationRemoved   = "REMOVED"
)

// Application mirrors the `task_applications` table.  There is at most
// one row per (task, applicant) pair.
type Application struct {
	ID          uint64    `json:"application_id"`
	TaskID      uint64    `json:"task_id"`
	ApplicantID uint64    `json:"applicant_id"`
	Status      string    `json:"status"`
	AppliedAt   time.Time `json:"applied_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ApplicationDetail adds the applicant's public reputation.
type ApplicationDetail struct {
	Application
	ApplicantUsername string  `json:"username"`
	AcceptingRating   float64 `json:"accepting_rating"`
	TotalTrophies     int     `json:"total_trophies"`
}

// MyApplication is an application listed from the applicant's side.
type MyApplication struct {
	Application
	TaskTitle    string    `json:"title"`
	TaskReward   string    `json:"reward"`
	TaskStatus   string    `json:"task_status"`
	TaskDeadline time.Time `json:"deadline"`
}

// Participation roles and outcomes.
const (
	RoleAcceptor = "ACCEPTOR"

	OutcomeWithdrawn = "WITHDRAWN"
	OutcomeRemoved   = "REMOVED"
	OutcomeCancelled = "CANCELLED"
)

// ParticipationRecord describes a user who once held a role on a task
// and how that participation ended short of completion.  Records are
// derived from application history.
type ParticipationRecord struct {
	TaskID  uint64
	UserID  uint64
	Role    string
	Outcome string
}
