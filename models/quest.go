package models

import "time"

// QuestType selects the verifier used at submission time
type QuestType string

const (
	QuestTypeJoinChannel   QuestType = "join_channel"   // Telegram channel/group membership
	QuestTypeFollowTwitter QuestType = "follow_twitter" // follow target account
	QuestTypeRetweet       QuestType = "retweet"        // retweet target tweet
	QuestTypeScreenshot    QuestType = "screenshot"     // proof image, AI-classified
)

// SocialIdentityBound reports whether rewards for this quest type are keyed
// to an external social account rather than only to the local user.
func (t QuestType) SocialIdentityBound() bool {
	return t == QuestTypeFollowTwitter || t == QuestTypeRetweet
}

type QuestRewardType string

const (
	QuestRewardCash   QuestRewardType = "cash"
	QuestRewardPoints QuestRewardType = "points"
)

type QuestStatus string

const (
	QuestStatusDraft     QuestStatus = "draft"
	QuestStatusScheduled QuestStatus = "scheduled"
	QuestStatusActive    QuestStatus = "active"
	QuestStatusPaused    QuestStatus = "paused"
	QuestStatusArchived  QuestStatus = "archived"
)

// Quest is an admin-owned task users complete for a reward. Status moves are
// admin/scheduler-only and independent of the per-user action lifecycle.
type Quest struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Type        QuestType `gorm:"not null;index" json:"type"`
	Title       string    `gorm:"not null" json:"title"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	ImageURL    string    `gorm:"type:text" json:"image_url,omitempty"`

	// Reward spec
	RewardType     QuestRewardType `gorm:"not null;default:'cash'" json:"reward_type"`
	RewardAmount   float64         `json:"reward_amount"`
	RewardAsset    string          `gorm:"default:'USDT'" json:"reward_asset"`
	PointsOverride *int64          `json:"points_override,omitempty"` // nil → derived from amount

	// Limits
	DailyCap   int  `gorm:"default:0" json:"daily_cap"` // 0 = unlimited claims per day
	PerUserCap int  `gorm:"default:1" json:"per_user_cap"`
	OneShot    bool `gorm:"default:false" json:"one_shot"` // deterministic verify failure rejects instead of allowing retry

	// Verifier parameters
	TargetURL string `json:"target_url,omitempty"` // profile/tweet URL for twitter quests
	ChannelID string `json:"channel_id,omitempty"` // telegram chat id for join quests

	Status  QuestStatus `gorm:"not null;default:'draft';index" json:"status"`
	StartAt *time.Time  `json:"start_at,omitempty"` // scheduler flips scheduled → active
	EndAt   *time.Time  `json:"end_at,omitempty"`   // scheduler flips active → paused

	CreatedBy string `json:"created_by,omitempty"` // admin user id

	Timestamps
}
