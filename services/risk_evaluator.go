package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"quest-reward-system/models"

	"gorm.io/gorm"
)

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// RiskAssessment is the outcome of one evaluation pass.
type RiskAssessment struct {
	Score       int       `json:"score"` // 0–100
	Level       RiskLevel `json:"level"`
	Factors     []string  `json:"factors"`
	ShouldBlock bool      `json:"should_block"`
}

type RiskService struct {
	DB         *gorm.DB
	Weights    RiskWeights
	Thresholds RiskThresholds
	RateLimits RateLimits
}

func NewRiskService(db *gorm.DB) *RiskService {
	return &RiskService{
		DB:         db,
		Weights:    DefaultRiskWeights,
		Thresholds: DefaultRiskThresholds,
		RateLimits: DefaultRateLimits,
	}
}

// Evaluate recomputes the user's risk score from current evidence and
// persists it. The call runs several aggregate queries — callers must
// evaluate once per decision and reuse the result, not call it per check.
func (s *RiskService) Evaluate(userID string) (*RiskAssessment, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("risk evaluate: load user %s: %w", userID, err)
	}

	score := 0
	var factors []string

	// Signal: unusually many devices on one account.
	var visitorIDs []string
	if err := s.DB.Model(&models.DeviceFingerprint{}).
		Where("user_id = ?", userID).
		Pluck("visitor_id", &visitorIDs).Error; err != nil {
		return nil, fmt.Errorf("risk evaluate: device lookup: %w", err)
	}
	if len(visitorIDs) > s.Thresholds.DeviceCountLimit {
		score += s.Weights.ManyDevices
		factors = append(factors, fmt.Sprintf("devices:%d", len(visitorIDs)))
	}

	// Signal: one of the user's devices is shared with other accounts.
	// First shared device is enough; the weight is applied once.
	for _, visitorID := range visitorIDs {
		var users int64
		if err := s.DB.Model(&models.DeviceFingerprint{}).
			Where("visitor_id = ?", visitorID).
			Distinct("user_id").
			Count(&users).Error; err != nil {
			return nil, fmt.Errorf("risk evaluate: shared device lookup: %w", err)
		}
		if users > int64(s.Thresholds.SharedDeviceUsers) {
			score += s.Weights.SharedDevice
			factors = append(factors, fmt.Sprintf("shared_device:%s", visitorID))
			break
		}
	}

	// Signal: one of the user's IPs serves a crowd (proxy/farm).
	var ips []string
	if err := s.DB.Model(&models.IpRecord{}).
		Where("user_id = ?", userID).
		Pluck("ip", &ips).Error; err != nil {
		return nil, fmt.Errorf("risk evaluate: ip lookup: %w", err)
	}
	for _, ip := range ips {
		var users int64
		if err := s.DB.Model(&models.IpRecord{}).
			Where("ip = ?", ip).
			Distinct("user_id").
			Count(&users).Error; err != nil {
			return nil, fmt.Errorf("risk evaluate: shared ip lookup: %w", err)
		}
		if users > int64(s.Thresholds.SharedIPUsers) {
			score += s.Weights.SharedIP
			factors = append(factors, fmt.Sprintf("shared_ip:%s", ip))
			break
		}
	}

	// Signal: claim velocity above the hourly cap.
	var recentClaims int64
	hourAgo := time.Now().Add(-time.Hour)
	if err := s.DB.Model(&models.QuestAction{}).
		Where("user_id = ? AND claimed_at >= ?", userID, hourAgo).
		Count(&recentClaims).Error; err != nil {
		return nil, fmt.Errorf("risk evaluate: velocity lookup: %w", err)
	}
	if recentClaims > int64(s.RateLimits.PerHour) {
		score += s.Weights.ClaimVelocity
		factors = append(factors, fmt.Sprintf("velocity:%d/h", recentClaims))
	}

	// Signal: fresh account.
	if time.Since(user.CreatedAt) < s.Thresholds.NewAccountAge {
		score += s.Weights.NewAccount
		factors = append(factors, "new_account")
	}

	// Signal: recent high/critical risk events.
	var recentEvents int64
	windowStart := time.Now().Add(-s.Thresholds.EventWindow)
	if err := s.DB.Model(&models.RiskEvent{}).
		Where("user_id = ? AND severity IN ? AND created_at >= ?",
			userID, []models.RiskSeverity{models.RiskSeverityHigh, models.RiskSeverityCritical}, windowStart).
		Count(&recentEvents).Error; err != nil {
		return nil, fmt.Errorf("risk evaluate: event lookup: %w", err)
	}
	if recentEvents > 0 {
		score += int(recentEvents) * s.Weights.PerRecentEvent
		factors = append(factors, fmt.Sprintf("recent_events:%d", recentEvents))
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	assessment := &RiskAssessment{
		Score:       score,
		Factors:     factors,
		ShouldBlock: score >= s.Thresholds.BlockScore,
	}
	switch {
	case score >= s.Thresholds.BlockScore:
		assessment.Level = RiskLevelHigh
	case score >= s.Thresholds.WarnScore:
		assessment.Level = RiskLevelMedium
	default:
		assessment.Level = RiskLevelLow
	}

	// Last writer wins; concurrent recomputation for the same user is safe.
	if err := s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("risk_score", score).Error; err != nil {
		return nil, fmt.Errorf("risk evaluate: persist score: %w", err)
	}

	return assessment, nil
}

// OverrideScore hand-sets a user's score. Only reachable from the admin
// surface, and always leaves an audit event behind.
func (s *RiskService) OverrideScore(userID string, score int, adminID, reason string) error {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	if err := s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("risk_score", score).Error; err != nil {
		return fmt.Errorf("risk override: %w", err)
	}
	logRiskEvent(s.DB, &userID, "admin_score_override", models.RiskSeverityHigh,
		fmt.Sprintf("score set to %d by %s: %s", score, adminID, reason), "", "")
	return nil
}

// RecomputeActiveUsers re-scores everyone who claimed within the lookback
// window. Invoked from the scheduler; per-user failures are logged and the
// sweep continues.
func (s *RiskService) RecomputeActiveUsers(lookback time.Duration) {
	var userIDs []string
	since := time.Now().Add(-lookback)
	if err := s.DB.Model(&models.QuestAction{}).
		Where("claimed_at >= ?", since).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error; err != nil {
		log.Printf("[RISK] sweep query failed: %v", err)
		return
	}
	for _, id := range userIDs {
		if _, err := s.Evaluate(id); err != nil {
			log.Printf("[RISK] sweep: evaluate %s failed: %v", id, err)
		}
	}
	if len(userIDs) > 0 {
		log.Printf("[RISK] re-scored %d active users", len(userIDs))
	}
}

func (a *RiskAssessment) FactorSummary() string {
	return strings.Join(a.Factors, ",")
}
