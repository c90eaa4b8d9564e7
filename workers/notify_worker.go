package workers

import (
	"context"
	"log"
	"time"

	"quest-reward-system/models"
	"quest-reward-system/services"

	"gorm.io/gorm"
)

// RewardNotifyWorker drains the reward outbox: rewards whose notification
// has not gone out yet are delivered and flagged. Delivery failures stay
// unflagged and are retried on the next poll — notification is best-effort
// and never blocks or fails a grant.
type RewardNotifyWorker struct {
	DB       *gorm.DB
	Notifier services.Notifier
}

func NewRewardNotifyWorker(db *gorm.DB, notifier services.Notifier) *RewardNotifyWorker {
	return &RewardNotifyWorker{DB: db, Notifier: notifier}
}

// PollRewards loops until ctx is done, draining pending notifications at the
// given interval.
func PollRewards(ctx context.Context, w *RewardNotifyWorker, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reward notify worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *RewardNotifyWorker) drain(ctx context.Context) {
	var rewards []models.Reward
	err := w.DB.Where("notified = ?", false).
		Order("created_at ASC").
		Limit(50).
		Find(&rewards).Error
	if err != nil {
		log.Printf("[NOTIFY] outbox query failed: %v", err)
		return
	}

	for _, reward := range rewards {
		title := questTitleFor(w.DB, reward.QuestID, reward.Category)

		if err := w.Notifier.NotifyRewardGranted(ctx, reward.UserID, title, reward.Amount, string(reward.Type)); err != nil {
			log.Printf("[NOTIFY] delivery failed for reward %s: %v", reward.ID, err)
			continue
		}
		if err := w.DB.Model(&models.Reward{}).
			Where("id = ?", reward.ID).
			Update("notified", true).Error; err != nil {
			log.Printf("[NOTIFY] failed to flag reward %s: %v", reward.ID, err)
		}
	}
}

func questTitleFor(db *gorm.DB, questID *string, category models.RewardCategory) string {
	if questID != nil {
		var quest models.Quest
		if err := db.Select("title").First(&quest, "id = ?", *questID).Error; err == nil {
			return quest.Title
		}
	}
	switch category {
	case models.RewardCategoryCommission:
		return "Invite commission"
	case models.RewardCategorySignup:
		return "Signup bonus"
	default:
		return "Quest reward"
	}
}
