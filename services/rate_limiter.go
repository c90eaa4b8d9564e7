package services

import (
	"fmt"
	"time"

	"quest-reward-system/models"

	"gorm.io/gorm"
)

// RateDecision is a typed policy outcome, never an error — clients
// legitimately retry after the window moves on.
type RateDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// RateLimiter counts a user's claim actions over sliding windows. Counts are
// plain reads, not locked: a slight overshoot under heavy concurrency is an
// accepted trade — the caps deter farming, they are not financial guarantees.
type RateLimiter struct {
	DB     *gorm.DB
	Limits RateLimits
}

func NewRateLimiter(db *gorm.DB) *RateLimiter {
	return &RateLimiter{DB: db, Limits: DefaultRateLimits}
}

type rateWindow struct {
	span     time.Duration
	limit    int
	reason   string
	severity models.RiskSeverity
}

// CheckRate evaluates the minute, hour and day windows in that order.
// The first exceeded window wins and the later ones are not consulted.
func (rl *RateLimiter) CheckRate(userID, action string) (RateDecision, error) {
	if action != "quest_claim" {
		return RateDecision{Allowed: true}, nil
	}

	windows := []rateWindow{
		{time.Minute, rl.Limits.PerMinute, "too many claims, slow down", models.RiskSeverityMedium},
		{time.Hour, rl.Limits.PerHour, "hourly claim limit reached", models.RiskSeverityMedium},
		{24 * time.Hour, rl.Limits.PerDay, "daily claim limit reached", models.RiskSeverityLow},
	}

	now := time.Now()
	for _, w := range windows {
		if w.limit <= 0 {
			continue
		}
		var count int64
		if err := rl.DB.Model(&models.QuestAction{}).
			Where("user_id = ? AND claimed_at >= ?", userID, now.Add(-w.span)).
			Count(&count).Error; err != nil {
			return RateDecision{}, fmt.Errorf("rate check: %w", err)
		}
		if count >= int64(w.limit) {
			logRiskEvent(rl.DB, &userID, "rate_limit_exceeded", w.severity,
				fmt.Sprintf("%s: %d claims in %s (limit %d)", action, count, w.span, w.limit), "", "")
			return RateDecision{Allowed: false, Reason: w.reason}, nil
		}
	}

	return RateDecision{Allowed: true}, nil
}
