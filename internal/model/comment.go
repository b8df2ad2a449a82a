package model

import "time"

// Comment is a node of a task's discussion thread.  ParentID links a
// reply to its parent; Replies is filled when the thread is assembled.
// Username, TotalTrophies and IsGiver describe the author.
type Comment struct {
	ID            uint64     `json:"comment_id"`
	TaskID        uint64     `json:"task_id"`
	UserID        uint64     `json:"user_id"`
	ParentID      *uint64    `json:"parent_comment_id"`
	Text          string     `json:"comment_text"`
	IsSystem      bool       `json:"is_system"`
	CreatedAt     time.Time  `json:"created_at"`
	Username      string     `json:"username"`
	TotalTrophies int        `json:"total_trophies"`
	IsGiver       bool       `json:"is_giver"`
	Replies       []*Comment `json:"replies"`
}
