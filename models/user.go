package models

import "time"

// User is the local account record. Created on first authenticated request
// (identity itself lives in the auth service); never hard-deleted.
type User struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // auth service UUID
	Username       string `gorm:"index" json:"username"`

	// Linked social accounts. TelegramID arrives with authentication (the
	// client is a Telegram mini-app); the Twitter binding goes through the
	// verification-code flow.
	TelegramID    string `gorm:"index" json:"telegram_id,omitempty"`
	TwitterID     string `gorm:"index" json:"twitter_id,omitempty"`
	TwitterHandle string `json:"twitter_handle,omitempty"`

	// RiskScore is always recomputed from evidence (devices, IPs, velocity,
	// events). Admin overrides go through the risk service and are logged.
	RiskScore int `gorm:"default:0" json:"risk_score"`

	// Points accumulated through the reward ledger.
	Points int64 `gorm:"default:0" json:"points"`

	// InviterID is set once when the invite is registered and never changes.
	InviterID *string `gorm:"index" json:"inviter_id,omitempty"`

	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`

	Timestamps
}
