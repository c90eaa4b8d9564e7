package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type QuestService struct {
	DB *gorm.DB
}

func NewQuestService(db *gorm.DB) *QuestService {
	return &QuestService{DB: db}
}

// CreateQuest stores a new quest in draft (or the requested status) with a
// slug derived from the title.
func (s *QuestService) CreateQuest(q *models.Quest) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Status == "" {
		q.Status = models.QuestStatusDraft
	}
	if q.Slug == "" {
		q.Slug = s.uniqueSlug(q.Title)
	}
	if err := s.DB.Create(q).Error; err != nil {
		return fmt.Errorf("create quest: %w", err)
	}
	log.Printf("[QUEST] created %s (%s, %s)", q.ID, q.Slug, q.Type)
	return nil
}

// uniqueSlug slugifies the title and suffixes a counter on collision.
func (s *QuestService) uniqueSlug(title string) string {
	base := slug.Make(title)
	if base == "" {
		base = "quest"
	}
	candidate := base
	for i := 2; ; i++ {
		var count int64
		s.DB.Model(&models.Quest{}).Where("slug = ?", candidate).Count(&count)
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

var questStatusTransitions = map[models.QuestStatus][]models.QuestStatus{
	models.QuestStatusDraft:     {models.QuestStatusScheduled, models.QuestStatusActive, models.QuestStatusArchived},
	models.QuestStatusScheduled: {models.QuestStatusActive, models.QuestStatusDraft, models.QuestStatusArchived},
	models.QuestStatusActive:    {models.QuestStatusPaused, models.QuestStatusArchived},
	models.QuestStatusPaused:    {models.QuestStatusActive, models.QuestStatusArchived},
}

// SetStatus applies an admin status transition. Quest status is orthogonal
// to the per-user action lifecycle.
func (s *QuestService) SetStatus(questID string, next models.QuestStatus, adminID string) error {
	var quest models.Quest
	if err := s.DB.First(&quest, "id = ?", questID).Error; err != nil {
		return err
	}
	if quest.Status == next {
		return nil
	}
	allowed := false
	for _, st := range questStatusTransitions[quest.Status] {
		if st == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("quest status %s → %s is not allowed", quest.Status, next)
	}
	if err := s.DB.Model(&quest).Update("status", next).Error; err != nil {
		return fmt.Errorf("quest status update: %w", err)
	}
	log.Printf("[QUEST] %s status %s → %s (by %s)", questID, quest.Status, next, adminID)
	return nil
}

// ListActive returns claimable quests for the user-facing listing.
func (s *QuestService) ListActive(limit int) ([]models.Quest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var quests []models.Quest
	err := s.DB.Where("status = ?", models.QuestStatusActive).
		Order("created_at DESC").
		Limit(limit).
		Find(&quests).Error
	return quests, err
}

func (s *QuestService) GetBySlug(slugOrID string) (*models.Quest, error) {
	var quest models.Quest
	err := s.DB.Where("slug = ? OR id = ?", slugOrID, slugOrID).First(&quest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("quest lookup: %w", err)
	}
	return &quest, nil
}

// ActivateDue flips scheduled quests whose window opened, and pauses active
// quests whose window closed. Called from the scheduler every minute.
func (s *QuestService) ActivateDue() {
	now := time.Now()

	var due []models.Quest
	if err := s.DB.Where("status = ? AND start_at IS NOT NULL AND start_at <= ?",
		models.QuestStatusScheduled, now).Find(&due).Error; err != nil {
		log.Printf("[QUEST] scheduler query failed: %v", err)
		return
	}
	for _, q := range due {
		if err := s.DB.Model(&q).Update("status", models.QuestStatusActive).Error; err != nil {
			log.Printf("[QUEST] failed to activate %s: %v", q.ID, err)
		} else {
			log.Printf("[QUEST] auto-activated %s (%s)", q.ID, q.Slug)
		}
	}

	var expired []models.Quest
	if err := s.DB.Where("status = ? AND end_at IS NOT NULL AND end_at <= ?",
		models.QuestStatusActive, now).Find(&expired).Error; err != nil {
		log.Printf("[QUEST] scheduler query failed: %v", err)
		return
	}
	for _, q := range expired {
		if err := s.DB.Model(&q).Update("status", models.QuestStatusPaused).Error; err != nil {
			log.Printf("[QUEST] failed to pause %s: %v", q.ID, err)
		} else {
			log.Printf("[QUEST] auto-paused %s (%s)", q.ID, q.Slug)
		}
	}
}
