package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/credo/internal/service"
)

// CommentHandler serves task discussion threads.
type CommentHandler struct {
	Comments *service.CommentService
}

// NewCommentHandler returns a CommentHandler backed by s.
func NewCommentHandler(s *service.CommentService) *CommentHandler { return &CommentHandler{Comments: s} }

type commentReq struct {
	Text     string  `json:"comment_text" validate:"required"`
	ParentID *uint64 `json:"parent_comment_id"`
}

// List handles GET /v1/tasks/:id/comments.
func (h *CommentHandler) List(c echo.Context) error {
	taskID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Comments.ListComments(ctx, taskID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Add handles POST /v1/tasks/:id/comments.
func (h *CommentHandler) Add(c echo.Context) error {
	uid, taskID, err := callerAndTask(c)
	if err != nil {
		return respondError(c, err)
	}
	var req commentReq
	if err := decode(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	cm, err := h.Comments.AddComment(ctx, taskID, uid, req.Text, req.ParentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, cm)
}
