package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/credo/internal/middleware"
	"github.com/iliyamo/credo/internal/service"
	"github.com/iliyamo/credo/internal/utils"
)

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = utils.NewRequestValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestRespondErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", &service.Error{Kind: service.ErrValidation, Reason: "title is required"}, http.StatusBadRequest, "title is required"},
		{"forbidden", &service.Error{Kind: service.ErrForbidden, Reason: "cannot apply to your own task"}, http.StatusForbidden, "cannot apply to your own task"},
		{"not found", &service.Error{Kind: service.ErrNotFound, Reason: "task not found"}, http.StatusNotFound, "task not found"},
		{"conflict", &service.Error{Kind: service.ErrConflict, Reason: "task is not open"}, http.StatusConflict, "task is not open"},
		{"wrapped conflict", fmt.Errorf("accept: %w", &service.Error{Kind: service.ErrConflict, Reason: "task is not open"}), http.StatusConflict, "task is not open"},
		{"http error", echo.NewHTTPError(http.StatusUnauthorized, "unauthorized"), http.StatusUnauthorized, "unauthorized"},
		{"internal", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/", "")
			require.NoError(t, respondError(c, tt.err))
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.msg, errorBody(t, rec))
		})
	}
}

func TestParseDeadline(t *testing.T) {
	want := time.Date(2024, 9, 1, 18, 30, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-09-01T18:30:00Z",
		"2024-09-01T20:30:00+02:00",
		"2024-09-01T18:30:00",
		"2024-09-01T18:30",
		"2024-09-01 18:30:00",
		" 2024-09-01 18:30 ",
	} {
		got, err := parseDeadline(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	day, err := parseDeadline("2024-09-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), day)

	_, err = parseDeadline("next friday")
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("42")
	id, err := parseID(c, "id")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		c, _ := newContext(http.MethodGet, "/", "")
		c.SetParamNames("id")
		c.SetParamValues(bad)
		_, err := parseID(c, "id")
		assert.Error(t, err, bad)
	}
}

func TestCreateTaskRequiresAuth(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/v1/tasks", `{}`)
	h := &TaskHandler{}
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateTaskValidatesBody(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/v1/tasks",
		`{"description":"Flat tyre","reward":"Coffee","deadline":"2024-09-01"}`)
	c.Set(middleware.CtxUserID, uint64(1))

	h := &TaskHandler{}
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title is required", errorBody(t, rec))
}

func TestCreateTaskRejectsBadDeadline(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/v1/tasks",
		`{"title":"Fix bike","description":"Flat tyre","reward":"Coffee","deadline":"soon"}`)
	c.Set(middleware.CtxUserID, uint64(1))

	h := &TaskHandler{}
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid deadline", errorBody(t, rec))
}

func TestRateValidatesRange(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/v1/tasks/1/rate", `{"rating_value":7}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	c.Set(middleware.CtxUserID, uint64(1))

	h := &ReputationHandler{}
	require.NoError(t, h.Rate(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rating_value must satisfy max=5", errorBody(t, rec))
}

func TestWithdrawRequiresReason(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/v1/tasks/1/withdraw", `{}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	c.Set(middleware.CtxUserID, uint64(20))

	h := &TaskHandler{}
	require.NoError(t, h.Withdraw(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reason is required", errorBody(t, rec))
}
