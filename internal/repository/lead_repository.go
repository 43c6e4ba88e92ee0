package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/moehefner/streb/internal/model"
)

// LeadRepositoryInterface is the outreach ledger.
type LeadRepositoryInterface interface {
	FindPriorContact(ctx context.Context, userID, campaignID, email string, statuses []model.LeadStatus) (bool, error)
	InsertLeadRecord(ctx context.Context, rec *model.OutreachLead) error
	CountSentSince(ctx context.Context, userID string, since time.Time) (int, error)
	CountLeads(ctx context.Context, userID, campaignID string) (int, error)
}

type LeadRepository struct {
	DB *sqlx.DB
}

// FindPriorContact compares addresses case-insensitively.
func (r *LeadRepository) FindPriorContact(ctx context.Context, userID, campaignID, email string, statuses []model.LeadStatus) (bool, error) {
	var one int
	err := r.DB.GetContext(ctx, &one, `
		SELECT 1 FROM outreach_leads
		WHERE user_id = $1 AND campaign_id = $2 AND LOWER(email) = $3 AND status = ANY($4)
		LIMIT 1`,
		userID, campaignID, model.NormalizeEmail(email), pq.Array(model.StatusStrings(statuses)))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *LeadRepository) InsertLeadRecord(ctx context.Context, rec *model.OutreachLead) error {
	_, err := insertLeadRecord(ctx, r.DB, rec)
	return err
}

// CountSentSince counts the user's successful sends, across campaigns,
// stamped at or after since.
func (r *LeadRepository) CountSentSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM outreach_leads
		WHERE user_id = $1 AND sent_at >= $2 AND status = ANY($3)`,
		userID, since, pq.Array(model.StatusStrings(model.ContactedStatuses)))
	return n, err
}

// CountLeads counts every ledger row of the campaign, whatever its status.
func (r *LeadRepository) CountLeads(ctx context.Context, userID, campaignID string) (int, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM outreach_leads WHERE user_id = $1 AND campaign_id = $2`,
		userID, campaignID)
	return n, err
}

// insertLeadRecord returns false when a row with the same provider message
// id already exists.
func insertLeadRecord(ctx context.Context, q sqlx.QueryerContext, rec *model.OutreachLead) (bool, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err := sqlx.GetContext(ctx, q, &rec.ID, `
		INSERT INTO outreach_leads
			(user_id, campaign_id, email, name, title, company, linkedin_url, status,
			 skip_reason, last_error, message_id, subject, body, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (message_id) WHERE message_id IS NOT NULL DO NOTHING
		RETURNING id`,
		rec.UserID, rec.CampaignID, model.NormalizeEmail(rec.Email), rec.Name, rec.Title, rec.Company,
		rec.LinkedInURL, rec.Status, rec.SkipReason, rec.LastError, rec.MessageID, rec.Subject,
		rec.Body, rec.SentAt, rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
