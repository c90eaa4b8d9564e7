package services

import (
	"testing"
	"time"

	"quest-reward-system/models"

	"github.com/stretchr/testify/require"
)

func TestGrantRewardsClaimedAction(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 2.5)
	action := seedAction(t, db, user.ID, quest.ID, models.ActionStatusClaimed)

	ledger := NewLedgerService(db, NewCommissionService())
	reward, err := ledger.Grant(action.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.RewardCategoryQuest, reward.Category)
	require.Equal(t, 2.5, reward.Amount)
	require.Equal(t, models.RewardStatusPending, reward.Status)
	require.Equal(t, action.ID, *reward.ActionID)

	var stored models.QuestAction
	require.NoError(t, db.First(&stored, "id = ?", action.ID).Error)
	require.Equal(t, models.ActionStatusRewarded, stored.Status)
	require.NotNil(t, stored.VerifiedAt)

	// floor(2.5 × 10) = 25 points
	var u models.User
	require.NoError(t, db.First(&u, "id = ?", user.ID).Error)
	require.Equal(t, int64(25), u.Points)
}

func TestGrantIsAtMostOnce(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 10)
	action := seedAction(t, db, user.ID, quest.ID, models.ActionStatusSubmitted)

	ledger := NewLedgerService(db, NewCommissionService())
	_, err := ledger.Grant(action.ID, "")
	require.NoError(t, err)

	_, err = ledger.Grant(action.ID, "")
	require.ErrorIs(t, err, ErrAlreadyRewarded)

	var rewards int64
	require.NoError(t, db.Model(&models.Reward{}).
		Where("action_id = ?", action.ID).Count(&rewards).Error)
	require.Equal(t, int64(1), rewards)

	var u models.User
	require.NoError(t, db.First(&u, "id = ?", user.ID).Error)
	require.Equal(t, int64(100), u.Points)
}

func TestGrantRejectsRejectedAction(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 10)
	action := seedAction(t, db, user.ID, quest.ID, models.ActionStatusRejected)

	ledger := NewLedgerService(db, NewCommissionService())
	_, err := ledger.Grant(action.ID, "")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAlreadyRewarded)

	var rewards int64
	require.NoError(t, db.Model(&models.Reward{}).Count(&rewards).Error)
	require.Zero(t, rewards)
}

func TestGrantHonorsPointsOverride(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 100)
	override := int64(7)
	require.NoError(t, db.Model(quest).Update("points_override", override).Error)
	action := seedAction(t, db, user.ID, quest.ID, models.ActionStatusClaimed)

	ledger := NewLedgerService(db, NewCommissionService())
	_, err := ledger.Grant(action.ID, "")
	require.NoError(t, err)

	var u models.User
	require.NoError(t, db.First(&u, "id = ?", user.ID).Error)
	require.Equal(t, int64(7), u.Points)
}

func TestGrantStampsSocialIdentity(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeFollowTwitter, 10)
	action := seedAction(t, db, user.ID, quest.ID, models.ActionStatusClaimed)

	ledger := NewLedgerService(db, NewCommissionService())
	_, err := ledger.Grant(action.ID, "tw-12345")
	require.NoError(t, err)

	var stored models.QuestAction
	require.NoError(t, db.First(&stored, "id = ?", action.ID).Error)
	require.Equal(t, "tw-12345", stored.SocialIdentity)
}

func TestGrantRunsCommissionCascade(t *testing.T) {
	db := newTestDB(t)
	inviter := seedUser(t, db, 48*time.Hour)
	invitee := seedUser(t, db, 48*time.Hour)
	_, err := NewInviteService(db, 1).Register(inviter.ID, invitee.ID, "ref")
	require.NoError(t, err)

	quest := seedQuest(t, db, models.QuestTypeScreenshot, 100)
	action := seedAction(t, db, invitee.ID, quest.ID, models.ActionStatusClaimed)

	ledger := NewLedgerService(db, NewCommissionService())
	_, err = ledger.Grant(action.ID, "")
	require.NoError(t, err)

	var commission models.Reward
	require.NoError(t, db.Where("user_id = ? AND category = ?",
		inviter.ID, models.RewardCategoryCommission).First(&commission).Error)
	require.Equal(t, 10.0, commission.Amount)

	var signup models.Reward
	require.NoError(t, db.Where("user_id = ? AND category = ?",
		invitee.ID, models.RewardCategorySignup).First(&signup).Error)
	require.Equal(t, 1.0, signup.Amount)
}

func TestCascadeFailureNeverFailsTheGrant(t *testing.T) {
	db := newTestDB(t)
	inviter := seedUser(t, db, 48*time.Hour)
	invitee := seedUser(t, db, 48*time.Hour)
	_, err := NewInviteService(db, 1).Register(inviter.ID, invitee.ID, "ref")
	require.NoError(t, err)

	quest := seedQuest(t, db, models.QuestTypeScreenshot, 100)
	action := seedAction(t, db, invitee.ID, quest.ID, models.ActionStatusClaimed)

	// breaking the invites table makes every cascade query fail hard
	require.NoError(t, db.Migrator().DropTable(&models.Invite{}))

	ledger := NewLedgerService(db, NewCommissionService())
	reward, err := ledger.Grant(action.ID, "")
	require.NoError(t, err)
	require.NotNil(t, reward)

	var stored models.QuestAction
	require.NoError(t, db.First(&stored, "id = ?", action.ID).Error)
	require.Equal(t, models.ActionStatusRewarded, stored.Status)

	// the quest reward row survived; no commission row could be written
	var categories []string
	require.NoError(t, db.Model(&models.Reward{}).Pluck("category", &categories).Error)
	require.Equal(t, []string{string(models.RewardCategoryQuest)}, categories)
}
