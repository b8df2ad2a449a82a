package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/credo/internal/service"
)

// TaskHandler exposes the task lifecycle.
type TaskHandler struct {
	Tasks *service.Lifecycle
}

// NewTaskHandler returns a TaskHandler backed by the lifecycle engine.
func NewTaskHandler(l *service.Lifecycle) *TaskHandler { return &TaskHandler{Tasks: l} }

type createTaskReq struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Reward      string `json:"reward" validate:"required,max=200"`
	Deadline    string `json:"deadline" validate:"required"`
}

type duplicateTaskReq struct {
	Title       string `json:"title" validate:"max=200"`
	Description string `json:"description"`
	Reward      string `json:"reward" validate:"max=200"`
	Deadline    string `json:"deadline" validate:"required"`
}

type updateTaskReq struct {
	Deadline string `json:"deadline" validate:"required"`
	Comment  string `json:"comment"`
}

type reasonReq struct {
	Reason string `json:"reason" validate:"required"`
}

// callerAndTask reads the caller id and the :id task parameter.
func callerAndTask(c echo.Context) (uint64, uint64, error) {
	uid, err := getUserID(c)
	if err != nil {
		return 0, 0, err
	}
	taskID, err := parseID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	return uid, taskID, nil
}

// Create handles POST /v1/tasks.
func (h *TaskHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createTaskReq
	if err := decode(c, &req); err != nil {
		return respondError(c, err)
	}
	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tasks.CreateTask(ctx, uid, service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Reward:      req.Reward,
		Deadline:    deadline,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// List handles GET /v1/tasks?status=.
func (h *TaskHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Tasks.ListTasks(ctx, c.QueryParam("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// MyGiven handles GET /v1/tasks/my/given.
func (h *TaskHandler) MyGiven(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Tasks.ListMyGiven(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// MyAccepted handles GET /v1/tasks/my/accepted.
func (h *TaskHandler) MyAccepted(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Tasks.ListMyAccepted(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// MyApplications handles GET /v1/tasks/my/applications.
func (h *TaskHandler) MyApplications(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Tasks.ListMyApplications(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/tasks/:id.
func (h *TaskHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Tasks.GetTask(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Update handles PUT /v1/tasks/:id.
func (h *TaskHandler) Update(c echo.Context) error {
	uid, taskID, err := callerAndTask(c)
	if err != nil {
		return respondError(c, err)
	}
	var req updateTaskReq
	if err := decode(c, &req); err != nil {
		return respondError(c, err)
	}
	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tasks.UpdateTask(ctx, taskID, uid, deadline, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Duplicate handles POST /v1/tasks/:id/duplicate.
func (h *TaskHandler) Duplicate(c echo.Context) error {
	uid, taskID, err := callerAndTask(c)
	if err != nil {
		return respondError(c, err)
	}
	var req duplicateTaskReq
	if err := decode(c, &req); err != nil {
		return respondError(c, err)
	}
	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tasks.DuplicateTask(ctx, taskID, uid, service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Reward:      req.Reward,
		Deadline:    deadline,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Apply handles POST /v1/tasks/:id/apply.
func (h *TaskHandler) Apply(c echo.Context) error {
	uid, taskID, err := callerAndTask(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	app, err := h.Tasks.Apply(ctx, taskID, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, app)
}

// Accept handles POST /v1/tasks/:id/accept/:applicant.
func (h *TaskHandler) Accept(c echo.Context) error {
	uid, taskID, err := callerAndTask(c)
	if err != nil {
		return respondError(c, err)
	}
	applicant, err := parseID(c, "applicant")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tasks.Accept(ctx, taskID, uid, applicant)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Reject handles POST /v1/tasks/:id/reject/:applicant.
func (h *TaskHandler) Reject(c echo.Context) error {
	uid, taskID, err := callerAndTask(c)
	if err != nil {
		return respondError(c, err)
	}
	applicant, err := parseID(c, "applicant")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tasks.Reject(ctx, taskID, uid, applicant); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "application rejected"})
}

// Complete handles POST /v1/tasks/:id/complete.
func (h *TaskHandler) Complete(c echo.Context) error {
	uid, taskID, err := callerAndTask(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tasks.Complete(ctx, taskID, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Cancel handles DELETE /v1/tasks/:id.
func (h *TaskHandler) Cancel(c echo.Context) error {
	uid, taskID, err := callerAndTask(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tasks.Cancel(ctx, taskID, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Withdraw handles POST /v1/tasks/:id/withdraw.
func (h *TaskHandler) Withdraw(c echo.Context) error {
	uid, taskID, err := callerAndTask(c)
	if err != nil {
		return respondError(c, err)
	}
	var req reasonReq
	if err := decode(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tasks.Withdraw(ctx, taskID, uid, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// RemoveAcceptor handles POST /v1/tasks/:id/remove-acceptor.
func (h *TaskHandler) RemoveAcceptor(c echo.Context) error {
	uid, taskID, err := callerAndTask(c)
	if err != nil {
		return respondError(c, err)
	}
	var req reasonReq
	if err := decode(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tasks.RemoveAcceptor(ctx, taskID, uid, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// AutoExpire handles POST /v1/tasks/auto-expire.
func (h *TaskHandler) AutoExpire(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Tasks.AutoExpire(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}
