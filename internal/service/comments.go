package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/credo/internal/model"
	"github.com/iliyamo/credo/internal/repository"
)

// CommentService manages the discussion thread of each task.
type CommentService struct {
	tasks    *repository.TaskRepo
	comments *repository.CommentRepo
}

// NewCommentService returns a CommentService.
func NewCommentService(tasks *repository.TaskRepo, comments *repository.CommentRepo) *CommentService {
	return &CommentService{tasks: tasks, comments: comments}
}

// AddComment posts text on a task, optionally as a reply.  The parent must
// be a comment on the same task.
func (s *CommentService) AddComment(ctx context.Context, taskID, author uint64, text string, parentID *uint64) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("comment text is required")
	}
	if err := s.requireTask(ctx, taskID); err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := s.comments.GetByID(ctx, *parentID)
		if errors.Is(err, repository.ErrCommentNotFound) || (err == nil && parent.TaskID != taskID) {
			return nil, notFound("parent comment not found")
		}
		if err != nil {
			return nil, wrap("load parent comment", err)
		}
	}
	id, err := s.comments.Create(ctx, &model.Comment{TaskID: taskID, UserID: author, ParentID: parentID, Text: text})
	if err != nil {
		return nil, wrap("create comment", err)
	}
	c, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, wrap("load comment", err)
	}
	c.Replies = []*model.Comment{}
	return c, nil
}

// ListComments returns the task's thread as a forest of root comments.
func (s *CommentService) ListComments(ctx context.Context, taskID uint64) ([]*model.Comment, error) {
	if err := s.requireTask(ctx, taskID); err != nil {
		return nil, err
	}
	flat, err := s.comments.ListForTask(ctx, taskID)
	if err != nil {
		return nil, wrap("list comments", err)
	}
	return BuildTree(flat), nil
}

func (s *CommentService) requireTask(ctx context.Context, taskID uint64) error {
	_, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return notFound("task not found")
	}
	if err != nil {
		return wrap("load task", err)
	}
	return nil
}

// BuildTree attaches each comment to its parent.  flat must be in creation
// order; roots and every Replies slice keep that order.  A comment whose
// parent is not in flat is dropped.
func BuildTree(flat []*model.Comment) []*model.Comment {
	byID := make(map[uint64]*model.Comment, len(flat))
	for _, c := range flat {
		c.Replies = []*model.Comment{}
		byID[c.ID] = c
	}
	roots := []*model.Comment{}
	for _, c := range flat {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if p, ok := byID[*c.ParentID]; ok {
			p.Replies = append(p.Replies, c)
		}
	}
	return roots
}
