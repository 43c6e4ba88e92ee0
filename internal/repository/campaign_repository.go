package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/moehefner/streb/internal/errors"
	"github.com/moehefner/streb/internal/model"
)

type CampaignRepositoryInterface interface {
	ListActive(ctx context.Context) ([]*model.Campaign, error)
	GetForUser(ctx context.Context, userID, campaignID string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, userID string, offset, limit int, status string) ([]*model.Campaign, int, error)
	UpdateSettings(ctx context.Context, c *model.Campaign) error
	GetLeadStats(ctx context.Context, campaignID string) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sqlx.DB
}

const campaignColumns = `
	id, user_id, name, app_name, app_description, target_keyword, is_active, is_paused,
	post_frequency, post_frequency_hours, video_frequency, video_frequency_hours,
	outreach_frequency, outreach_frequency_hours,
	last_post_at, last_video_at, last_outreach_at,
	post_platforms, video_platforms, outreach_enabled, max_results_per_day,
	sender_verified, sender_email, sender_name, outreach_subject,
	created_at, updated_at`

// Campaign status filters used by ListCampaigns.
const (
	StatusActive = "active"
	StatusPaused = "paused"
)

// ListActive returns every active, non-paused campaign in creation order.
func (r *CampaignRepository) ListActive(ctx context.Context) ([]*model.Campaign, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns
		WHERE is_active = TRUE AND is_paused = FALSE
		ORDER BY created_at, id`
	if err := r.DB.SelectContext(ctx, &campaigns, query); err != nil {
		return nil, err
	}

	connected := map[string][]model.Platform{}
	for _, c := range campaigns {
		platforms, ok := connected[c.UserID]
		if !ok {
			var err error
			platforms, err = r.connectedPlatforms(ctx, c.UserID)
			if err != nil {
				return nil, err
			}
			connected[c.UserID] = platforms
		}
		c.ConnectedPlatforms = platforms
	}
	return campaigns, nil
}

func (r *CampaignRepository) GetForUser(ctx context.Context, userID, campaignID string) (*model.Campaign, error) {
	var c model.Campaign
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 AND user_id = $2`
	if err := r.DB.GetContext(ctx, &c, query, campaignID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(campaignID)
		}
		return nil, err
	}

	platforms, err := r.connectedPlatforms(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.ConnectedPlatforms = platforms
	return &c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, userID string, offset, limit int, status string) ([]*model.Campaign, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if userID != "" {
		where += fmt.Sprintf(" AND user_id=$%d", argPos)
		args = append(args, userID)
		argPos++
	}
	switch status {
	case StatusActive:
		where += " AND is_active = TRUE AND is_paused = FALSE"
	case StatusPaused:
		where += " AND is_paused = TRUE"
	}

	var total int
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM campaigns`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	campaigns := []*model.Campaign{}
	if err := r.DB.SelectContext(ctx, &campaigns, query, args...); err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

func (r *CampaignRepository) UpdateSettings(ctx context.Context, c *model.Campaign) error {
	query := `
		UPDATE campaigns SET
			is_paused = :is_paused,
			post_frequency = :post_frequency,
			post_frequency_hours = :post_frequency_hours,
			video_frequency = :video_frequency,
			video_frequency_hours = :video_frequency_hours,
			outreach_frequency = :outreach_frequency,
			outreach_frequency_hours = :outreach_frequency_hours,
			post_platforms = :post_platforms,
			video_platforms = :video_platforms,
			outreach_enabled = :outreach_enabled,
			max_results_per_day = :max_results_per_day,
			outreach_subject = :outreach_subject,
			updated_at = NOW()
		WHERE id = :id AND user_id = :user_id`
	res, err := r.DB.NamedExecContext(ctx, query, c)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	return nil
}

// GetLeadStats counts ledger rows per status for the campaign.
func (r *CampaignRepository) GetLeadStats(ctx context.Context, campaignID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM outreach_leads WHERE campaign_id = $1 GROUP BY status`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"total": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}

func (r *CampaignRepository) connectedPlatforms(ctx context.Context, userID string) ([]model.Platform, error) {
	var names []string
	err := r.DB.SelectContext(ctx, &names,
		`SELECT platform FROM social_connections WHERE user_id = $1 AND connected = TRUE`, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Platform, 0, len(names))
	for _, n := range names {
		if p, err := model.ParsePlatform(n); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func touchLastRunAt(ctx context.Context, q sqlx.ExecerContext, campaignID string, action model.ActionKind, at time.Time) error {
	var column string
	switch action {
	case model.ActionPost:
		column = "last_post_at"
	case model.ActionVideo:
		column = "last_video_at"
	case model.ActionOutreach:
		column = "last_outreach_at"
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	_, err := q.ExecContext(ctx,
		`UPDATE campaigns SET `+column+` = $1, updated_at = NOW() WHERE id = $2`, at, campaignID)
	return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
