package models

import "time"

type RiskSeverity string

const (
	RiskSeverityLow      RiskSeverity = "low"
	RiskSeverityMedium   RiskSeverity = "medium"
	RiskSeverityHigh     RiskSeverity = "high"
	RiskSeverityCritical RiskSeverity = "critical"
)

// RiskEvent is the append-only audit trail for the risk pipeline.
// Rows are never updated or deleted.
type RiskEvent struct {
	ID        string       `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    *string      `gorm:"index" json:"user_id,omitempty"`
	EventType string       `gorm:"index;not null" json:"event_type"` // e.g. rate_limit_exceeded, risk_block, blacklist_add
	Severity  RiskSeverity `gorm:"index;not null" json:"severity"`
	Details   string       `gorm:"type:text" json:"details,omitempty"`
	IP        string       `json:"ip,omitempty"`
	VisitorID string       `json:"visitor_id,omitempty"`
	CreatedAt time.Time    `json:"created_at" gorm:"autoCreateTime;index"`
}
