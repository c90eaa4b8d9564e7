package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database per test. TranslateError must be
// on: the claim and invite races depend on gorm.ErrDuplicatedKey.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps every session on the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.DeviceFingerprint{},
		&models.IpRecord{},
		&models.BlacklistEntry{},
		&models.RiskEvent{},
		&models.Quest{},
		&models.QuestAction{},
		&models.Reward{},
		&models.Invite{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, createdAgo time.Duration) *models.User {
	t.Helper()
	user := models.User{
		ID:             uuid.NewString(),
		ExternalUserID: uuid.NewString(),
		Username:       "tester",
	}
	user.CreatedAt = time.Now().Add(-createdAgo)
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func seedQuest(t *testing.T, db *gorm.DB, questType models.QuestType, amount float64) *models.Quest {
	t.Helper()
	quest := models.Quest{
		ID:           uuid.NewString(),
		Type:         questType,
		Title:        "Test Quest",
		Slug:         "test-quest-" + uuid.NewString(),
		RewardType:   models.QuestRewardCash,
		RewardAmount: amount,
		RewardAsset:  "USDT",
		Status:       models.QuestStatusActive,
	}
	require.NoError(t, db.Create(&quest).Error)
	return &quest
}

func seedAction(t *testing.T, db *gorm.DB, userID, questID string, status models.ActionStatus) *models.QuestAction {
	t.Helper()
	action := models.QuestAction{
		ID:        uuid.NewString(),
		UserID:    userID,
		QuestID:   questID,
		Status:    status,
		ClaimedAt: time.Now(),
	}
	if status == models.ActionStatusSubmitted {
		now := time.Now()
		action.SubmittedAt = &now
	}
	require.NoError(t, db.Create(&action).Error)
	return &action
}

func newID() string {
	return uuid.NewString()
}

func visitorN(i int) string {
	return fmt.Sprintf("visitor-%d", i)
}

// stubVerifier returns a canned verdict (or error) regardless of input.
type stubVerifier struct {
	result *VerifyResult
	err    error
	calls  int
}

func (v *stubVerifier) Verify(_ context.Context, _ *models.Quest, _ *models.User, _ models.ProofPayload) (*VerifyResult, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	return v.result, nil
}

// stubIdentity maps local user ids to social identities.
type stubIdentity map[string]string

func (s stubIdentity) Lookup(userID string) (string, error) {
	return s[userID], nil
}

// newActionService wires the full claim/submit stack against the test DB with
// a stub verifier for the given quest type.
func newActionService(t *testing.T, db *gorm.DB, questType models.QuestType, verifier Verifier, identity SocialIdentityLookup) *ActionService {
	t.Helper()
	risk := NewRiskService(db)
	limiter := NewRateLimiter(db)
	blacklist := NewBlacklistService(db)
	gate := NewGatekeeper(db, blacklist, limiter, risk)

	registry := NewVerifierRegistry()
	if verifier != nil {
		registry.Register(questType, verifier)
	}
	ledger := NewLedgerService(db, NewCommissionService())
	if identity == nil {
		identity = stubIdentity{}
	}
	return NewActionService(db, gate, registry, ledger, identity)
}
