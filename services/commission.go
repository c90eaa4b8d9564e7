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

// CommissionService runs the inviter commission cascade. It is a side
// cascade of the reward ledger: it shares the grant's transaction scope
// through a savepoint but is never allowed to fail the primary grant.
type CommissionService struct {
	Tiers []CommissionTier
}

func NewCommissionService() *CommissionService {
	return &CommissionService{Tiers: DefaultCommissionTiers}
}

// RateFor picks the commission rate from the inviter's total invite count.
// Tiers are ordered highest-first and closed on the lower bound.
func (s *CommissionService) RateFor(inviteCount int64) float64 {
	for _, tier := range s.Tiers {
		if inviteCount >= tier.MinInvites {
			return tier.Rate
		}
	}
	return 0
}

// Cascade credits the inviter of rewardedUserID with a commission on the
// reward amount, and releases the invitee's one-time signup bonus on their
// first rewarded quest. No-op when the user was never invited.
func (s *CommissionService) Cascade(tx *gorm.DB, rewardedUserID string, rewardAmount float64, asset string) error {
	var invite models.Invite
	err := tx.Where("invitee_id = ?", rewardedUserID).First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("commission: invite lookup: %w", err)
	}

	var inviteCount int64
	if err := tx.Model(&models.Invite{}).
		Where("inviter_id = ?", invite.InviterID).
		Count(&inviteCount).Error; err != nil {
		return fmt.Errorf("commission: invite count: %w", err)
	}

	rate := s.RateFor(inviteCount)
	commission := rewardAmount * rate
	if commission > 0 {
		if err := tx.Model(&models.Invite{}).
			Where("id = ?", invite.ID).
			Update("bonus", gorm.Expr("bonus + ?", commission)).Error; err != nil {
			return fmt.Errorf("commission: bonus update: %w", err)
		}

		reward := models.Reward{
			ID:       uuid.NewString(),
			UserID:   invite.InviterID,
			Category: models.RewardCategoryCommission,
			Type:     models.RewardTypeCash,
			Amount:   commission,
			Asset:    asset,
			Status:   models.RewardStatusPending,
		}
		if err := tx.Create(&reward).Error; err != nil {
			return fmt.Errorf("commission: reward insert: %w", err)
		}
		log.Printf("[COMMISSION] inviter %s earns %.4f %s (rate %.0f%%, %d invites)",
			invite.InviterID, commission, asset, rate*100, inviteCount)
	}

	// One-time invitee signup bonus, released on first rewarded quest.
	if !invite.InviteeBonusAwarded && invite.InviteeBonus > 0 {
		now := time.Now()
		if err := tx.Model(&models.Invite{}).
			Where("id = ? AND invitee_bonus_awarded = ?", invite.ID, false).
			Updates(map[string]interface{}{
				"invitee_bonus_awarded": true,
				"awarded_at":            now,
			}).Error; err != nil {
			return fmt.Errorf("commission: signup bonus flag: %w", err)
		}
		signup := models.Reward{
			ID:       uuid.NewString(),
			UserID:   invite.InviteeID,
			Category: models.RewardCategorySignup,
			Type:     models.RewardTypeCash,
			Amount:   invite.InviteeBonus,
			Asset:    asset,
			Status:   models.RewardStatusPending,
		}
		if err := tx.Create(&signup).Error; err != nil {
			return fmt.Errorf("commission: signup reward insert: %w", err)
		}
	}

	return nil
}
