package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/credo/internal/service"
)

// ReputationHandler serves ratings, profiles and leaderboards.
type ReputationHandler struct {
	Reputation *service.Reputation
}

// NewReputationHandler returns a ReputationHandler backed by r.
func NewReputationHandler(r *service.Reputation) *ReputationHandler {
	return &ReputationHandler{Reputation: r}
}

type rateReq struct {
	RatingValue int    `json:"rating_value" validate:"required,min=1,max=5"`
	Comment     string `json:"comment"`
	RatedUserID uint64 `json:"rated_user_id"`
}

type profileReq struct {
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
	RollNumber  string `json:"roll_number" validate:"required,max=32"`
}

// Rate handles POST /v1/tasks/:id/rate.
func (h *ReputationHandler) Rate(c echo.Context) error {
	uid, taskID, err := callerAndTask(c)
	if err != nil {
		return respondError(c, err)
	}
	var req rateReq
	if err := decode(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reputation.Rate(ctx, uid, service.RateInput{
		TaskID:  taskID,
		RatedID: req.RatedUserID,
		Value:   req.RatingValue,
		Comment: req.Comment,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// HasRated handles GET /v1/tasks/:id/has-rated.
func (h *ReputationHandler) HasRated(c echo.Context) error {
	uid, taskID, err := callerAndTask(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ok, err := h.Reputation.HasRated(ctx, taskID, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"has_rated": ok})
}

func (h *ReputationHandler) profile(c echo.Context, userID uint64) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Reputation.GetProfile(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// MyProfile handles GET /v1/profile.
func (h *ReputationHandler) MyProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	return h.profile(c, uid)
}

// UserProfile handles GET /v1/users/:id/profile.
func (h *ReputationHandler) UserProfile(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	return h.profile(c, id)
}

// UpdateProfile handles PUT /v1/profile.
func (h *ReputationHandler) UpdateProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req profileReq
	if err := decode(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Reputation.UpdateProfile(ctx, uid, req.PhoneNumber, req.RollNumber)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ReputationHandler) ratings(c echo.Context, userID uint64) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Reputation.ListRatingsReceived(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// MyRatings handles GET /v1/ratings.
func (h *ReputationHandler) MyRatings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	return h.ratings(c, uid)
}

// UserRatings handles GET /v1/users/:id/ratings.
func (h *ReputationHandler) UserRatings(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	return h.ratings(c, id)
}

// Leaderboard handles GET /v1/leaderboard?category=giver|acceptor|overall.
func (h *ReputationHandler) Leaderboard(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Reputation.Leaderboard(ctx, c.QueryParam("category"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
