// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/moehefner/streb/internal/config"
	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
	"github.com/moehefner/streb/internal/service"
)

// UserHeader carries the authenticated user id set by the auth proxy.
const UserHeader = "X-User-ID"

// ActionRunner runs a single action synchronously.
type ActionRunner interface {
	Run(ctx context.Context, job model.ActionJob) (*service.ActionResult, error)
}

type CampaignController struct {
	CampaignService *service.CampaignService
	Runner          ActionRunner
	Validate        *validator.Validate
	Logger          *logrus.Logger
}

func NewCampaignController(svc *service.CampaignService, runner ActionRunner, logger *logrus.Logger) *CampaignController {
	return &CampaignController{
		CampaignService: svc,
		Runner:          runner,
		Validate:        validator.New(),
		Logger:          logger,
	}
}

// Routes mounts the campaign endpoints.
func (c *CampaignController) Routes(r chi.Router) {
	r.Get("/campaigns", c.ListCampaigns)
	r.Get("/campaigns/{id}", c.GetCampaignDetails)
	r.Patch("/campaigns/{id}/settings", c.UpdateSettings)
	r.Get("/campaigns/{id}/budget", c.PreviewBudget)
	r.Post("/campaigns/{id}/actions/{action}", c.RunAction)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), userID, page, pageSize, status)
	if err != nil {
		c.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	details, err := c.CampaignService.GetCampaignDetailsWithStats(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		c.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (c *CampaignController) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body service.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := c.Validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	campaign, err := c.CampaignService.UpdateSettings(r.Context(), userID, chi.URLParam(r, "id"), body)
	if err != nil {
		c.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) PreviewBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	budget, err := c.CampaignService.PreviewBudget(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		c.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

// RunAction executes post, video or outreach immediately. A skipped action
// is a 200 with skipAction set; failures carry an error field.
func (c *CampaignController) RunAction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	action := model.ActionKind(chi.URLParam(r, "action"))
	if !action.Valid() {
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}

	result, err := c.Runner.Run(r.Context(), model.ActionJob{
		ID:         uuid.NewString(),
		UserID:     userID,
		CampaignID: chi.URLParam(r, "id"),
		Action:     action,
	})
	if err != nil {
		c.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c *CampaignController) fail(w http.ResponseWriter, err error) {
	switch {
	case appErrors.IsCampaignNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case appErrors.IsInvalidSettings(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		config.LogError(c.Logger, "controller", "CampaignController", "request failed", nil, err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user")
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
