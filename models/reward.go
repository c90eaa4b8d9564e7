package models

import "time"

// RewardType indicates whether the reward is cash or points
type RewardType string

const (
	RewardTypeCash   RewardType = "cash"
	RewardTypePoints RewardType = "points"
)

type RewardCategory string

const (
	RewardCategoryQuest      RewardCategory = "quest"
	RewardCategoryCommission RewardCategory = "commission"
	RewardCategorySignup     RewardCategory = "signup"
)

// RewardStatus tracks payout settlement, which happens outside this service.
type RewardStatus string

const (
	RewardStatusPending RewardStatus = "pending"
	RewardStatusPaid    RewardStatus = "paid"
	RewardStatusFailed  RewardStatus = "failed"
)

// Reward is immutable once created. One quest-category row exists iff the
// matching action reached rewarded — that is the ledger's central invariant.
type Reward struct {
	ID       string         `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string         `gorm:"index;not null" json:"user_id"`
	QuestID  *string        `gorm:"index" json:"quest_id,omitempty"`
	ActionID *string        `gorm:"index" json:"action_id,omitempty"`
	Category RewardCategory `gorm:"not null" json:"category"`
	Type     RewardType     `gorm:"not null" json:"type"`
	Amount   float64        `json:"amount"`
	Asset    string         `gorm:"default:'USDT'" json:"asset"`
	Status   RewardStatus   `gorm:"not null;default:'pending'" json:"status"`

	// Notified is flipped by the notification worker once delivery succeeded.
	Notified bool `gorm:"default:false;index" json:"notified"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}
