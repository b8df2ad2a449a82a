// Package repository defines the data access layer over the MySQL store.
// Sentinel errors declared here let the service layer distinguish a
// missing row from a uniqueness violation without inspecting driver
// error strings.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrTaskNotFound is returned when a task id does not exist.
var ErrTaskNotFound = errors.New("task not found")

// ErrApplicationNotFound is returned when no application exists for the
// requested (task, applicant) pair.
var ErrApplicationNotFound = errors.New("application not found")

// ErrCommentNotFound is returned when a comment id does not exist.
var ErrCommentNotFound = errors.New("comment not found")

// ErrUserNotFound is returned when a user id or username does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicate signals a unique key violation (MySQL error 1062).
var ErrDuplicate = errors.New("duplicate entry")

// Unique key violations on the users table, reported separately so the
// caller can tell the client which field collided.
var (
	ErrUsernameExists = errors.New("username already exists")
	ErrPhoneExists    = errors.New("phone number already registered")
	ErrRollExists     = errors.New("roll number already registered")
)

// isDuplicate reports whether err is a MySQL duplicate key error.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return err != nil && strings.Contains(err.Error(), "1062")
}

// duplicateKey returns the name of the violated key from a 1062 message,
// e.g. "Duplicate entry 'bob' for key 'users.uq_users_username'".
func duplicateKey(err error) string {
	msg := err.Error()
	i := strings.LastIndex(msg, "for key '")
	if i < 0 {
		return ""
	}
	return strings.TrimSuffix(msg[i+len("for key '"):], "'")
}
