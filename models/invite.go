package models

import "time"

// Invite records who invited whom. An invitee appears at most once, ever —
// the unique index on invitee_id is load-bearing, same as the action pair.
type Invite struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	InviterID string `gorm:"index;not null" json:"inviter_id"`
	InviteeID string `gorm:"uniqueIndex;not null" json:"invitee_id"`

	CodeUsed string `json:"code_used,omitempty"`

	// Bonus accumulates the inviter's commission across all of the
	// invitee's rewarded quests.
	Bonus float64 `gorm:"default:0" json:"bonus"`

	// InviteeBonus is the one-time signup reward for the invitee; awarding
	// may be delayed until the invitee's first verified activity.
	InviteeBonus        float64    `gorm:"default:0" json:"invitee_bonus"`
	InviteeBonusAwarded bool       `gorm:"default:false" json:"invitee_bonus_awarded"`
	AwardedAt           *time.Time `json:"awarded_at,omitempty"`

	Timestamps
}
