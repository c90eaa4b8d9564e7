package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAlreadyRewarded means the action reached rewarded before this grant
// attempt. Callers treat it as idempotent success, not a fault.
var ErrAlreadyRewarded = errors.New("action already rewarded")

// ErrIdentityRewarded means another action on the same quest was already
// rewarded for the same social identity.
var ErrIdentityRewarded = errors.New("identity already rewarded for this quest")

// LedgerService grants rewards. One grant is one all-or-nothing unit:
// status flip, reward row, points credit. The commission cascade runs in a
// savepoint inside the same unit and may fail without taking the grant down.
type LedgerService struct {
	DB         *gorm.DB
	Config     RewardConfig
	Commission *CommissionService
}

func NewLedgerService(db *gorm.DB, commission *CommissionService) *LedgerService {
	return &LedgerService{DB: db, Config: DefaultRewardConfig, Commission: commission}
}

// Grant moves the action to rewarded and credits the user. socialIdentity is
// stamped onto the action when the quest type binds rewards to an external
// account ("" otherwise).
//
// The status flip is a guarded update evaluated inside the transaction that
// performs the write, so two concurrent grants for the same action cannot
// both pass the "not yet rewarded" check — the loser sees zero rows
// affected and backs out with ErrAlreadyRewarded.
func (s *LedgerService) Grant(actionID, socialIdentity string) (*models.Reward, error) {
	var granted *models.Reward

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var action models.QuestAction
		if err := tx.First(&action, "id = ?", actionID).Error; err != nil {
			return fmt.Errorf("ledger: load action: %w", err)
		}

		var quest models.Quest
		if err := tx.First(&quest, "id = ?", action.QuestID).Error; err != nil {
			return fmt.Errorf("ledger: load quest: %w", err)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":      models.ActionStatusRewarded,
			"verified_at": now,
		}
		if socialIdentity != "" {
			updates["social_identity"] = socialIdentity
		}
		res := tx.Model(&models.QuestAction{}).
			Where("id = ? AND status IN ?", actionID,
				[]models.ActionStatus{models.ActionStatusClaimed, models.ActionStatusSubmitted}).
			Updates(updates)
		if res.Error != nil {
			// unique (quest, identity, rewarded) index trips here when a
			// second account tries to cash in the same external identity
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return ErrIdentityRewarded
			}
			return fmt.Errorf("ledger: status transition: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if action.Status == models.ActionStatusRewarded {
				return ErrAlreadyRewarded
			}
			return fmt.Errorf("ledger: action %s not in a grantable state (%s)", actionID, action.Status)
		}

		reward := models.Reward{
			ID:       uuid.NewString(),
			UserID:   action.UserID,
			QuestID:  &action.QuestID,
			ActionID: &action.ID,
			Category: models.RewardCategoryQuest,
			Type:     models.RewardType(quest.RewardType),
			Amount:   quest.RewardAmount,
			Asset:    quest.RewardAsset,
			Status:   models.RewardStatusPending,
		}
		if err := tx.Create(&reward).Error; err != nil {
			return fmt.Errorf("ledger: reward insert: %w", err)
		}

		points := s.pointsFor(&quest)
		if points > 0 {
			if err := tx.Model(&models.User{}).
				Where("id = ?", action.UserID).
				Update("points", gorm.Expr("points + ?", points)).Error; err != nil {
				return fmt.Errorf("ledger: points credit: %w", err)
			}
		}

		// Side cascade in a savepoint: commission bookkeeping may fail
		// without invalidating the primary grant.
		cascadeErr := tx.Transaction(func(tx2 *gorm.DB) error {
			return s.Commission.Cascade(tx2, action.UserID, quest.RewardAmount, quest.RewardAsset)
		})
		if cascadeErr != nil {
			log.Printf("[LEDGER] commission cascade failed for action %s: %v (primary grant kept)",
				actionID, cascadeErr)
		}

		granted = &reward
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] action %s rewarded: %.4f %s to user %s", actionID, granted.Amount, granted.Asset, granted.UserID)
	return granted, nil
}

// pointsFor derives the points credit from the quest's reward spec:
// the explicit override when set, otherwise floor(amount × PointsPerUnit).
func (s *LedgerService) pointsFor(quest *models.Quest) int64 {
	if quest.PointsOverride != nil {
		return *quest.PointsOverride
	}
	return int64(math.Floor(quest.RewardAmount * s.Config.PointsPerUnit))
}
