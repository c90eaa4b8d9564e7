package services

import (
	"fmt"
	"log"
	"time"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BlacklistService struct {
	DB *gorm.DB
}

func NewBlacklistService(db *gorm.DB) *BlacklistService {
	return &BlacklistService{DB: db}
}

// IsBlocked reports whether an active (non-expired) entry exists for the
// subject. Expired entries stay in the table but never block.
func (s *BlacklistService) IsBlocked(subjectType models.BlacklistSubject, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	var count int64
	err := s.DB.Model(&models.BlacklistEntry{}).
		Where("subject_type = ? AND value = ?", subjectType, value).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return count > 0, nil
}

// Add upserts an entry keyed on (subject_type, value): re-adding refreshes
// the reason and expiry instead of erroring.
func (s *BlacklistService) Add(subjectType models.BlacklistSubject, value, reason, addedBy string, expiresAt *time.Time) error {
	entry := models.BlacklistEntry{
		ID:          uuid.NewString(),
		SubjectType: subjectType,
		Value:       value,
		Reason:      reason,
		AddedBy:     addedBy,
		ExpiresAt:   expiresAt,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_type"}, {Name: "value"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "added_by", "expires_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("blacklist add: %w", err)
	}

	var userID *string
	if subjectType == models.BlacklistSubjectUser {
		userID = &value
	}
	logRiskEvent(s.DB, userID, "blacklist_add", models.RiskSeverityHigh,
		fmt.Sprintf("%s %s blacklisted by %s: %s", subjectType, value, addedBy, reason), "", "")
	log.Printf("[BLACKLIST] added %s %s (by %s)", subjectType, value, addedBy)
	return nil
}

func (s *BlacklistService) Remove(subjectType models.BlacklistSubject, value, removedBy string) error {
	res := s.DB.Where("subject_type = ? AND value = ?", subjectType, value).
		Delete(&models.BlacklistEntry{})
	if res.Error != nil {
		return fmt.Errorf("blacklist remove: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	var userID *string
	if subjectType == models.BlacklistSubjectUser {
		userID = &value
	}
	logRiskEvent(s.DB, userID, "blacklist_remove", models.RiskSeverityMedium,
		fmt.Sprintf("%s %s removed from blacklist by %s", subjectType, value, removedBy), "", "")
	log.Printf("[BLACKLIST] removed %s %s (by %s)", subjectType, value, removedBy)
	return nil
}

// List returns entries for the admin dashboard, newest first.
func (s *BlacklistService) List(limit int) ([]models.BlacklistEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []models.BlacklistEntry
	err := s.DB.Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
