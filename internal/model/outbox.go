package model

import "time"

// OutboxStatus tracks reconciliation of a send whose ledger write failed.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxReconciled OutboxStatus = "reconciled"
)

// OutboxEntry holds a delivered e-mail that is not yet reflected in the
// ledger and usage counters.
type OutboxEntry struct {
	ID         int64        `db:"id" json:"id"`
	UserID     string       `db:"user_id" json:"user_id"`
	CampaignID string       `db:"campaign_id" json:"campaign_id"`
	Payload    []byte       `db:"payload" json:"payload"`
	Status     OutboxStatus `db:"status" json:"status"`
	Attempts   int          `db:"attempts" json:"attempts"`
	LastError  *string      `db:"last_error" json:"last_error,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}
