package services

import (
	"fmt"
	"time"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FingerprintService keeps the device/IP attribution graph the risk
// evaluator scores against.
type FingerprintService struct {
	DB *gorm.DB
}

func NewFingerprintService(db *gorm.DB) *FingerprintService {
	return &FingerprintService{DB: db}
}

// Touch upserts the (visitor, user) and (ip, user) pairs for a request.
// Called from the fingerprint middleware on every authenticated request.
func (s *FingerprintService) Touch(userID, ip, visitorID, rawData string) error {
	now := time.Now()

	if visitorID != "" {
		fp := models.DeviceFingerprint{
			ID:        uuid.NewString(),
			VisitorID: visitorID,
			UserID:    userID,
			RawData:   rawData,
			LastSeen:  now,
		}
		assignments := []string{"last_seen"}
		if rawData != "" {
			assignments = append(assignments, "raw_data")
		}
		err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "visitor_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(assignments),
		}).Create(&fp).Error
		if err != nil {
			return fmt.Errorf("fingerprint upsert: %w", err)
		}
	}

	if ip != "" {
		rec := models.IpRecord{
			ID:           uuid.NewString(),
			IP:           ip,
			UserID:       userID,
			RequestCount: 1,
			LastSeen:     now,
		}
		err := s.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ip"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"request_count": gorm.Expr("request_count + 1"),
				"last_seen":     now,
			}),
		}).Create(&rec).Error
		if err != nil {
			return fmt.Errorf("ip record upsert: %w", err)
		}
	}

	return nil
}

// UsersOnDevice lists accounts seen on a visitor ID (admin tooling).
func (s *FingerprintService) UsersOnDevice(visitorID string) ([]string, error) {
	var userIDs []string
	err := s.DB.Model(&models.DeviceFingerprint{}).
		Where("visitor_id = ?", visitorID).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}
