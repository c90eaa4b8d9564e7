package models

import "time"

// BlacklistSubject is what kind of thing is being blocked
type BlacklistSubject string

const (
	BlacklistSubjectUser   BlacklistSubject = "user"
	BlacklistSubjectDevice BlacklistSubject = "device"
	BlacklistSubjectIP     BlacklistSubject = "ip"
)

// BlacklistEntry blocks a user, device or IP from claiming.
// An expired entry stays in the table but lookups must skip it
// (expires_at IS NULL OR expires_at > now).
type BlacklistEntry struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	SubjectType BlacklistSubject `gorm:"uniqueIndex:idx_subject;not null" json:"subject_type"`
	Value       string           `gorm:"uniqueIndex:idx_subject;not null" json:"value"`
	Reason      string           `gorm:"type:text" json:"reason"`
	AddedBy     string           `json:"added_by,omitempty"` // admin user id, empty for system
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// Active reports whether the entry still blocks at the given time.
func (e *BlacklistEntry) Active(now time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}
