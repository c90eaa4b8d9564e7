package services

import (
	"log"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// logRiskEvent appends one row to the risk audit trail. The trail is
// append-only; failures are logged and swallowed so audit writes can never
// break the calling decision path.
func logRiskEvent(db *gorm.DB, userID *string, eventType string, severity models.RiskSeverity, details, ip, visitorID string) {
	event := models.RiskEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		EventType: eventType,
		Severity:  severity,
		Details:   details,
		IP:        ip,
		VisitorID: visitorID,
	}
	if err := db.Create(&event).Error; err != nil {
		log.Printf("[RISK] failed to write risk event %s: %v", eventType, err)
	}
}
