package models

import "time"

// DeviceFingerprint links a browser/device visitor ID to a user.
// The relation is many-to-many on purpose: several users on one visitor ID
// is the device-farming signal, several visitor IDs on one user is the
// multi-device signal. Upserted on every fingerprint submission.
type DeviceFingerprint struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	VisitorID string    `gorm:"uniqueIndex:idx_visitor_user;not null;index" json:"visitor_id"`
	UserID    string    `gorm:"uniqueIndex:idx_visitor_user;not null;index" json:"user_id"`
	RawData   string    `gorm:"type:text" json:"raw_data,omitempty"` // client attributes as submitted
	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// IpRecord tracks which IPs a user has been seen on. Same many-to-many
// shape and same fraud signal as DeviceFingerprint.
type IpRecord struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	IP           string    `gorm:"uniqueIndex:idx_ip_user;not null;index" json:"ip"`
	UserID       string    `gorm:"uniqueIndex:idx_ip_user;not null;index" json:"user_id"`
	RequestCount int64     `gorm:"default:1" json:"request_count"`
	LastSeen     time.Time `json:"last_seen"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}
