package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// EnsureUser loads the local record for an authenticated identity, creating
// it on first sight. Safe under concurrent first requests — the loser of the
// unique-index race re-reads the winner's row.
func (s *UserService) EnsureUser(externalUserID, username, telegramID string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error
	if err == nil {
		now := time.Now()
		updates := map[string]interface{}{"last_seen_at": now}
		if username != "" && username != user.Username {
			updates["username"] = username
		}
		if telegramID != "" && user.TelegramID == "" {
			updates["telegram_id"] = telegramID
		}
		if err := s.DB.Model(&user).Updates(updates).Error; err != nil {
			log.Printf("[USER] touch failed for %s: %v", user.ID, err)
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	now := time.Now()
	user = models.User{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Username:       username,
		TelegramID:     telegramID,
		LastSeenAt:     &now,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if ferr := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; ferr == nil {
				return &user, nil
			}
		}
		return nil, fmt.Errorf("ensure user: create: %w", err)
	}
	log.Printf("[USER] created %s (external %s)", user.ID, externalUserID)
	return &user, nil
}

func (s *UserService) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
