// internal/handler/cron_handler.go
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/scheduler"
)

// SecretHeader is an alternative to a Bearer token for cron providers that
// cannot set Authorization.
const SecretHeader = "X-Cron-Secret"

type Sweeper interface {
	Sweep(ctx context.Context) (*scheduler.SweepResult, error)
}

// CronHandler lets an external scheduler trigger a sweep.
type CronHandler struct {
	Sweeper Sweeper
	Secret  string
	Logger  *logrus.Logger
}

func (h *CronHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if h.Secret == "" {
		err := appErrors.NewConfigError("CRON_SECRET")
		h.Logger.WithError(err).Error("cron trigger rejected")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	result, err := h.Sweeper.Sweep(r.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrSweepInProgress) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{"skipAction": true, "reason": "sweep_in_progress"})
			return
		}
		h.Logger.WithError(err).Error("sweep failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CronHandler) authorized(r *http.Request) bool {
	got := r.Header.Get(SecretHeader)
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		got = strings.TrimPrefix(auth, "Bearer ")
	}
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) == 1
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
