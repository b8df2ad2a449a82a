package model

import "time"

// Rating types.  GIVING rates someone as task creator, ACCEPTING rates
// someone as task doer.
const (
	RatingGiving    = "GIVING"
	RatingAccepting = "ACCEPTING"
)

// Rating mirrors the immutable `ratings` table.
type Rating struct {
	ID        uint64    `json:"rating_id"`
	TaskID    uint64    `json:"task_id"`
	RaterID   uint64    `json:"rater_id"`
	RatedID   uint64    `json:"rated_id"`
	Value     int       `json:"rating_value"`
	Type      string    `json:"rating_type"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingReceived is a rating joined with its rater and task.
type RatingReceived struct {
	Rating
	RaterUsername string `json:"rater_username"`
	TaskTitle     string `json:"task_title"`
}
