package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/credo/internal/model"
)

func ptr(v uint64) *uint64 { return &v }

func TestBuildTree(t *testing.T) {
	flat := []*model.Comment{
		{ID: 1, Text: "anyone free tonight?"},
		{ID: 2, ParentID: ptr(1), Text: "I can do it"},
		{ID: 3, Text: "deadline moved"},
		{ID: 4, ParentID: ptr(2), Text: "great"},
		{ID: 5, ParentID: ptr(99), Text: "orphan"},
		{ID: 6, ParentID: ptr(1), Text: "me too"},
	}

	roots := BuildTree(flat)
	require.Len(t, roots, 2)
	assert.Equal(t, uint64(1), roots[0].ID)
	assert.Equal(t, uint64(3), roots[1].ID)

	require.Len(t, roots[0].Replies, 2)
	assert.Equal(t, uint64(2), roots[0].Replies[0].ID)
	assert.Equal(t, uint64(6), roots[0].Replies[1].ID)
	require.Len(t, roots[0].Replies[0].Replies, 1)
	assert.Equal(t, uint64(4), roots[0].Replies[0].Replies[0].ID)

	assert.NotNil(t, roots[1].Replies)
	assert.Empty(t, roots[1].Replies)
}

func TestBuildTreeEmpty(t *testing.T) {
	roots := BuildTree(nil)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}

var commentCols = []string{"comment_id", "task_id", "user_id", "parent_comment_id", "comment_text",
	"is_system", "created_at", "username", "total", "is_giver"}

func TestAddCommentRejectsBlankText(t *testing.T) {
	f := newFixture(t)
	_, err := f.comments.AddComment(context.Background(), 1, 10, " \n ", nil)
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "comment text is required")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAddCommentParentOnOtherTask(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	f.mock.ExpectQuery(`FROM tasks WHERE task_id = \?`).WithArgs(uint64(1)).
		WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
	f.mock.ExpectQuery(`WHERE c.comment_id = \?`).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(7, 2, 30, nil, "elsewhere", false, now, "carol", 0, false))

	_, err := f.comments.AddComment(context.Background(), 1, 10, "reply", ptr(7))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "parent comment not found")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAddCommentReply(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	f.mock.ExpectQuery(`FROM tasks WHERE task_id = \?`).WillReturnRows(taskRows(1, 10, nil, model.TaskOpen))
	f.mock.ExpectQuery(`WHERE c.comment_id = \?`).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(7, 1, 30, nil, "question", false, now, "carol", 2, false))
	f.mock.ExpectExec(`INSERT INTO task_comments`).
		WithArgs(uint64(1), uint64(10), uint64(7), "answer", false).
		WillReturnResult(sqlmock.NewResult(8, 1))
	f.mock.ExpectQuery(`WHERE c.comment_id = \?`).WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(8, 1, 10, 7, "answer", false, now, "alice", 5, true))

	c, err := f.comments.AddComment(context.Background(), 1, 10, " answer ", ptr(7))
	require.NoError(t, err)
	assert.Equal(t, uint64(8), c.ID)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, uint64(7), *c.ParentID)
	assert.True(t, c.IsGiver)
	assert.NotNil(t, c.Replies)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestListCommentsUnknownTask(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(`FROM tasks WHERE task_id = \?`).WillReturnRows(sqlmock.NewRows(taskCols))

	_, err := f.comments.ListComments(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
