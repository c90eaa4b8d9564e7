package services

import (
	"errors"
	"fmt"
	"log"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InviteService struct {
	DB *gorm.DB
	// SignupBonus is recorded on the invite and released by the commission
	// cascade on the invitee's first rewarded quest.
	SignupBonus float64
}

func NewInviteService(db *gorm.DB, signupBonus float64) *InviteService {
	return &InviteService{DB: db, SignupBonus: signupBonus}
}

// Register binds an invitee to an inviter, once and forever. A repeat
// registration (any inviter) is an idempotent no-op returning the original
// invite — the invitee_id unique index backs this under races.
func (s *InviteService) Register(inviterID, inviteeID, codeUsed string) (*models.Invite, error) {
	if inviterID == inviteeID {
		return nil, fmt.Errorf("self-invites are not allowed")
	}

	var existing models.Invite
	err := s.DB.Where("invitee_id = ?", inviteeID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("invite register: %w", err)
	}

	invite := models.Invite{
		ID:           uuid.NewString(),
		InviterID:    inviterID,
		InviteeID:    inviteeID,
		CodeUsed:     codeUsed,
		InviteeBonus: s.SignupBonus,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&invite).Error; err != nil {
			return err
		}
		// inviter_ref is set once; never overwrite an existing binding
		return tx.Model(&models.User{}).
			Where("id = ? AND inviter_id IS NULL", inviteeID).
			Update("inviter_id", inviterID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if ferr := s.DB.Where("invitee_id = ?", inviteeID).First(&existing).Error; ferr == nil {
				return &existing, nil
			}
		}
		return nil, fmt.Errorf("invite register: %w", err)
	}

	log.Printf("[INVITE] %s invited %s (code %s)", inviterID, inviteeID, codeUsed)
	return &invite, nil
}

// InviteCount returns the inviter's lifetime invite total (the commission
// tier input).
func (s *InviteService) InviteCount(inviterID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Invite{}).Where("inviter_id = ?", inviterID).Count(&count).Error
	return count, err
}
