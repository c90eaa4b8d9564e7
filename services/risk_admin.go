package services

import (
	"time"

	"quest-reward-system/models"
)

// RiskEventFilter narrows the admin risk-event query.
type RiskEventFilter struct {
	UserID   string
	Severity models.RiskSeverity
	Since    *time.Time
	Limit    int
}

// ListEvents reads the append-only trail for the admin dashboard.
func (s *RiskService) ListEvents(filter RiskEventFilter) ([]models.RiskEvent, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := s.DB.Model(&models.RiskEvent{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}

	var events []models.RiskEvent
	err := query.Order("created_at DESC").Limit(limit).Find(&events).Error
	return events, err
}
