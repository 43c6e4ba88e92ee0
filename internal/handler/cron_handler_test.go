package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moehefner/streb/internal/handler"
	"github.com/moehefner/streb/internal/model"
	"github.com/moehefner/streb/internal/scheduler"
)

type fakeSweeper struct {
	calls  int
	result *scheduler.SweepResult
	err    error
}

func (f *fakeSweeper) Sweep(ctx context.Context) (*scheduler.SweepResult, error) {
	f.calls++
	return f.result, f.err
}

func newHandler(secret string, s *fakeSweeper) *handler.CronHandler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &handler.CronHandler{Sweeper: s, Secret: secret, Logger: logger}
}

func TestCronSweepAuthorization(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		value  string
		status int
		calls  int
	}{
		{"missing secret config", "", "Authorization", "Bearer anything", http.StatusInternalServerError, 0},
		{"no credentials", "s3cret", "", "", http.StatusUnauthorized, 0},
		{"wrong bearer", "s3cret", "Authorization", "Bearer nope", http.StatusUnauthorized, 0},
		{"bearer", "s3cret", "Authorization", "Bearer s3cret", http.StatusOK, 1},
		{"header", "s3cret", handler.SecretHeader, "s3cret", http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSweeper{result: &scheduler.SweepResult{CampaignsChecked: 2}}
			h := newHandler(tt.secret, s)

			req := httptest.NewRequest(http.MethodPost, "/cron/sweep", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			h.Sweep(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.calls, s.calls)
		})
	}
}

func TestCronSweepResult(t *testing.T) {
	s := &fakeSweeper{result: &scheduler.SweepResult{CampaignsChecked: 3, Dispatched: []model.ActionJob{{ID: "j1"}, {ID: "j2"}}}}
	h := newHandler("s3cret", s)

	req := httptest.NewRequest(http.MethodPost, "/cron/sweep", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w := httptest.NewRecorder()
	h.Sweep(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.EqualValues(t, 3, res["campaignsChecked"])
	assert.Len(t, res["dispatched"], 2)
}

func TestCronSweepFailures(t *testing.T) {
	s := &fakeSweeper{err: scheduler.ErrSweepInProgress}
	h := newHandler("s3cret", s)

	req := httptest.NewRequest(http.MethodPost, "/cron/sweep", nil)
	req.Header.Set(handler.SecretHeader, "s3cret")
	w := httptest.NewRecorder()
	h.Sweep(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	s.err = errors.New("db down")
	w = httptest.NewRecorder()
	h.Sweep(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "db down")
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
