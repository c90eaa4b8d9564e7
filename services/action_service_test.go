package services

import (
	"context"
	"testing"
	"time"

	"quest-reward-system/models"

	"github.com/stretchr/testify/require"
)

func TestClaimCreatesAction(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 5)
	svc := newActionService(t, db, quest.Type, nil, nil)

	result, err := svc.Claim(user.ID, quest.ID, "1.2.3.4", "v1")
	require.NoError(t, err)
	require.True(t, result.Allowed)
	require.NotNil(t, result.Action)
	require.Equal(t, models.ActionStatusClaimed, result.Action.Status)
}

func TestClaimIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 5)
	svc := newActionService(t, db, quest.Type, nil, nil)

	first, err := svc.Claim(user.ID, quest.ID, "1.2.3.4", "v1")
	require.NoError(t, err)
	second, err := svc.Claim(user.ID, quest.ID, "1.2.3.4", "v1")
	require.NoError(t, err)
	require.True(t, second.Allowed)
	require.Equal(t, first.Action.ID, second.Action.ID)

	var count int64
	require.NoError(t, db.Model(&models.QuestAction{}).
		Where("user_id = ? AND quest_id = ?", user.ID, quest.ID).
		Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestClaimDeniedForInactiveQuest(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 5)
	require.NoError(t, db.Model(quest).Update("status", models.QuestStatusPaused).Error)
	svc := newActionService(t, db, quest.Type, nil, nil)

	result, err := svc.Claim(user.ID, quest.ID, "1.2.3.4", "v1")
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, "quest is not active", result.Reason)
}

func TestClaimDeniedByDailyCap(t *testing.T) {
	db := newTestDB(t)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 5)
	require.NoError(t, db.Model(quest).Update("daily_cap", 1).Error)
	svc := newActionService(t, db, quest.Type, nil, nil)

	first := seedUser(t, db, 48*time.Hour)
	result, err := svc.Claim(first.ID, quest.ID, "1.2.3.4", "v1")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	second := seedUser(t, db, 48*time.Hour)
	result, err = svc.Claim(second.ID, quest.ID, "1.2.3.5", "v2")
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, "quest daily cap reached", result.Reason)
}

func TestClaimDeniedForBlacklistedUser(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 5)
	svc := newActionService(t, db, quest.Type, nil, nil)

	require.NoError(t, svc.Gate.Blacklist.Add(models.BlacklistSubjectUser, user.ID, "farm", "admin-1", nil))

	result, err := svc.Claim(user.ID, quest.ID, "1.2.3.4", "v1")
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, "account banned", result.Reason)

	// a denied claim leaves no action row
	var count int64
	require.NoError(t, db.Model(&models.QuestAction{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSubmitApproveGrantsReward(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeJoinChannel, 5)
	verifier := &stubVerifier{result: &VerifyResult{Decision: VerifyApprove, Message: "member"}}
	svc := newActionService(t, db, quest.Type, verifier, nil)

	seedAction(t, db, user.ID, quest.ID, models.ActionStatusClaimed)

	result, err := svc.Submit(context.Background(), user.ID, quest.ID, models.ProofPayload{})
	require.NoError(t, err)
	require.Equal(t, OutcomeRewarded, result.Outcome)
	require.NotNil(t, result.Reward)
	require.Equal(t, 5.0, result.Reward.Amount)
	require.Equal(t, models.ActionStatusRewarded, result.Action.Status)
}

func TestSubmitWithoutClaimIsDenied(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeJoinChannel, 5)
	svc := newActionService(t, db, quest.Type, &stubVerifier{result: &VerifyResult{Decision: VerifyApprove}}, nil)

	result, err := svc.Submit(context.Background(), user.ID, quest.ID, models.ProofPayload{})
	require.NoError(t, err)
	require.Equal(t, OutcomeDenied, result.Outcome)
	require.Equal(t, "quest not claimed", result.Reason)
}

func TestSubmitAfterRewardIsIdempotentSuccess(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeJoinChannel, 5)
	verifier := &stubVerifier{result: &VerifyResult{Decision: VerifyApprove}}
	svc := newActionService(t, db, quest.Type, verifier, nil)
	seedAction(t, db, user.ID, quest.ID, models.ActionStatusClaimed)

	_, err := svc.Submit(context.Background(), user.ID, quest.ID, models.ProofPayload{})
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), user.ID, quest.ID, models.ProofPayload{})
	require.NoError(t, err)
	require.Equal(t, OutcomeRewarded, result.Outcome)

	// no second verifier call, no second reward
	require.Equal(t, 1, verifier.calls)
	var rewards int64
	require.NoError(t, db.Model(&models.Reward{}).Where("user_id = ?", user.ID).Count(&rewards).Error)
	require.Equal(t, int64(1), rewards)
}

func TestSubmitTransientVerifierErrorLeavesStateUntouched(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeJoinChannel, 5)
	verifier := &stubVerifier{err: ErrVerifierUnavailable}
	svc := newActionService(t, db, quest.Type, verifier, nil)
	action := seedAction(t, db, user.ID, quest.ID, models.ActionStatusClaimed)

	_, err := svc.Submit(context.Background(), user.ID, quest.ID, models.ProofPayload{})
	require.ErrorIs(t, err, ErrVerifierUnavailable)

	var stored models.QuestAction
	require.NoError(t, db.First(&stored, "id = ?", action.ID).Error)
	require.Equal(t, models.ActionStatusClaimed, stored.Status)
	require.Empty(t, stored.Proof)
}

func TestSubmitNeedsReviewParksAction(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 5)
	verifier := &stubVerifier{result: &VerifyResult{Decision: VerifyNeedsReview, Message: "low confidence"}}
	svc := newActionService(t, db, quest.Type, verifier, nil)
	action := seedAction(t, db, user.ID, quest.ID, models.ActionStatusClaimed)

	result, err := svc.Submit(context.Background(), user.ID, quest.ID,
		models.ProofPayload{ImageURL: "https://cdn.example/proof.png"})
	require.NoError(t, err)
	require.Equal(t, OutcomePendingReview, result.Outcome)

	queue, err := svc.ReviewQueue(10)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, action.ID, queue[0].ID)
}

func TestSubmitScreenshotRequiresImage(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 5)
	verifier := &stubVerifier{result: &VerifyResult{Decision: VerifyApprove}}
	svc := newActionService(t, db, quest.Type, verifier, nil)
	seedAction(t, db, user.ID, quest.ID, models.ActionStatusClaimed)

	result, err := svc.Submit(context.Background(), user.ID, quest.ID, models.ProofPayload{})
	require.NoError(t, err)
	require.Equal(t, OutcomeDenied, result.Outcome)
	require.Equal(t, "proof image required", result.Reason)
	require.Zero(t, verifier.calls)
}

func TestSubmitRejectLeavesRetryUnlessOneShot(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeJoinChannel, 5)
	verifier := &stubVerifier{result: &VerifyResult{Decision: VerifyReject, Message: "not a member"}}
	svc := newActionService(t, db, quest.Type, verifier, nil)
	action := seedAction(t, db, user.ID, quest.ID, models.ActionStatusClaimed)

	result, err := svc.Submit(context.Background(), user.ID, quest.ID, models.ProofPayload{})
	require.NoError(t, err)
	require.Equal(t, OutcomeDenied, result.Outcome)

	// the action stays claimable; joining for real and resubmitting succeeds
	var stored models.QuestAction
	require.NoError(t, db.First(&stored, "id = ?", action.ID).Error)
	require.Equal(t, models.ActionStatusClaimed, stored.Status)

	verifier.result = &VerifyResult{Decision: VerifyApprove}
	result, err = svc.Submit(context.Background(), user.ID, quest.ID, models.ProofPayload{})
	require.NoError(t, err)
	require.Equal(t, OutcomeRewarded, result.Outcome)
}

func TestSubmitRejectOnOneShotQuestIsFinal(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 5)
	require.NoError(t, db.Model(quest).Update("one_shot", true).Error)
	verifier := &stubVerifier{result: &VerifyResult{Decision: VerifyReject, Message: "fabricated screenshot"}}
	svc := newActionService(t, db, quest.Type, verifier, nil)
	seedAction(t, db, user.ID, quest.ID, models.ActionStatusClaimed)

	result, err := svc.Submit(context.Background(), user.ID, quest.ID,
		models.ProofPayload{ImageURL: "https://cdn.example/proof.png"})
	require.NoError(t, err)
	require.Equal(t, OutcomeRejected, result.Outcome)

	// subsequent submissions bounce without reaching the verifier
	calls := verifier.calls
	result, err = svc.Submit(context.Background(), user.ID, quest.ID,
		models.ProofPayload{ImageURL: "https://cdn.example/proof.png"})
	require.NoError(t, err)
	require.Equal(t, OutcomeDenied, result.Outcome)
	require.Equal(t, calls, verifier.calls)
}

func TestSubmitIdentityExclusivityAcrossAccounts(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, 48*time.Hour)
	mallory := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeFollowTwitter, 5)

	// both local accounts are bound to the same external twitter account
	identity := stubIdentity{alice.ID: "tw-777", mallory.ID: "tw-777"}
	verifier := &stubVerifier{result: &VerifyResult{Decision: VerifyApprove, ExternalID: "tw-777"}}
	svc := newActionService(t, db, quest.Type, verifier, identity)

	seedAction(t, db, alice.ID, quest.ID, models.ActionStatusClaimed)
	seedAction(t, db, mallory.ID, quest.ID, models.ActionStatusClaimed)

	result, err := svc.Submit(context.Background(), alice.ID, quest.ID, models.ProofPayload{})
	require.NoError(t, err)
	require.Equal(t, OutcomeRewarded, result.Outcome)

	result, err = svc.Submit(context.Background(), mallory.ID, quest.ID, models.ProofPayload{})
	require.NoError(t, err)
	require.Equal(t, OutcomeRejected, result.Outcome)
	require.Equal(t, "identity already rewarded", result.Reason)

	var rewarded int64
	require.NoError(t, db.Model(&models.QuestAction{}).
		Where("quest_id = ? AND status = ?", quest.ID, models.ActionStatusRewarded).
		Count(&rewarded).Error)
	require.Equal(t, int64(1), rewarded)
}

func TestSubmitUnboundIdentityIsDenied(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeFollowTwitter, 5)
	verifier := &stubVerifier{result: &VerifyResult{Decision: VerifyApprove}}
	svc := newActionService(t, db, quest.Type, verifier, stubIdentity{})
	seedAction(t, db, user.ID, quest.ID, models.ActionStatusClaimed)

	result, err := svc.Submit(context.Background(), user.ID, quest.ID, models.ProofPayload{})
	require.NoError(t, err)
	require.Equal(t, OutcomeDenied, result.Outcome)
	require.Equal(t, "link your account first", result.Reason)
	require.Zero(t, verifier.calls)
}

func TestAdminApproveGrantsFromReviewQueue(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 5)
	svc := newActionService(t, db, quest.Type, nil, nil)
	action := seedAction(t, db, user.ID, quest.ID, models.ActionStatusSubmitted)

	result, err := svc.AdminApprove(action.ID, "admin-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeRewarded, result.Outcome)
	require.NotNil(t, result.Reward)

	proof := models.ParseProof(result.Action.Proof)
	require.Equal(t, "admin-1", proof.ReviewedBy)

	// approving again is idempotent success
	result, err = svc.AdminApprove(action.ID, "admin-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeRewarded, result.Outcome)
}

func TestAdminApproveOnlyTakesSubmittedActions(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 5)
	svc := newActionService(t, db, quest.Type, nil, nil)
	action := seedAction(t, db, user.ID, quest.ID, models.ActionStatusClaimed)

	result, err := svc.AdminApprove(action.ID, "admin-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeDenied, result.Outcome)
}

func TestAdminRejectAndReopen(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 5)
	svc := newActionService(t, db, quest.Type, nil, nil)
	action := seedAction(t, db, user.ID, quest.ID, models.ActionStatusSubmitted)

	result, err := svc.AdminReject(action.ID, "admin-1", "blurry screenshot")
	require.NoError(t, err)
	require.Equal(t, OutcomeRejected, result.Outcome)
	proof := models.ParseProof(result.Action.Proof)
	require.Equal(t, "blurry screenshot", proof.RejectReason)

	require.NoError(t, svc.AdminReopen(action.ID, "admin-2"))
	var stored models.QuestAction
	require.NoError(t, db.First(&stored, "id = ?", action.ID).Error)
	require.Equal(t, models.ActionStatusSubmitted, stored.Status)

	// rewarded actions are final: reopen must refuse
	_, err = svc.AdminApprove(action.ID, "admin-2")
	require.NoError(t, err)
	require.Error(t, svc.AdminReopen(action.ID, "admin-2"))
}

func TestClaimSubmitRewardCommissionEndToEnd(t *testing.T) {
	db := newTestDB(t)
	inviter := seedUser(t, db, 48*time.Hour)
	user := seedUser(t, db, 48*time.Hour)
	_, err := NewInviteService(db, 0).Register(inviter.ID, user.ID, "ref")
	require.NoError(t, err)
	// 50 lifetime invites keeps the inviter on the base 10% tier
	pad := make([]models.Invite, 0, 49)
	for i := 0; i < 49; i++ {
		pad = append(pad, models.Invite{ID: newID(), InviterID: inviter.ID, InviteeID: newID()})
	}
	require.NoError(t, db.CreateInBatches(pad, 100).Error)

	quest := seedQuest(t, db, models.QuestTypeJoinChannel, 100)
	verifier := &stubVerifier{result: &VerifyResult{Decision: VerifyApprove, Message: "member"}}
	svc := newActionService(t, db, quest.Type, verifier, nil)

	claim, err := svc.Claim(user.ID, quest.ID, "1.2.3.4", "v1")
	require.NoError(t, err)
	require.True(t, claim.Allowed)
	require.Equal(t, models.ActionStatusClaimed, claim.Action.Status)

	result, err := svc.Submit(context.Background(), user.ID, quest.ID, models.ProofPayload{})
	require.NoError(t, err)
	require.Equal(t, OutcomeRewarded, result.Outcome)
	require.Equal(t, 100.0, result.Reward.Amount)

	var u models.User
	require.NoError(t, db.First(&u, "id = ?", user.ID).Error)
	require.Equal(t, int64(1000), u.Points)

	var commission models.Reward
	require.NoError(t, db.Where("user_id = ? AND category = ?",
		inviter.ID, models.RewardCategoryCommission).First(&commission).Error)
	require.Equal(t, 10.0, commission.Amount)

	var invite models.Invite
	require.NoError(t, db.Where("invitee_id = ?", user.ID).First(&invite).Error)
	require.Equal(t, 10.0, invite.Bonus)

	// resubmission is idempotent success with no second reward
	result, err = svc.Submit(context.Background(), user.ID, quest.ID, models.ProofPayload{})
	require.NoError(t, err)
	require.Equal(t, OutcomeRewarded, result.Outcome)
	var questRewards int64
	require.NoError(t, db.Model(&models.Reward{}).
		Where("user_id = ? AND category = ?", user.ID, models.RewardCategoryQuest).
		Count(&questRewards).Error)
	require.Equal(t, int64(1), questRewards)
}

func TestHardDeleteCascadesRewards(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, 48*time.Hour)
	quest := seedQuest(t, db, models.QuestTypeScreenshot, 5)
	svc := newActionService(t, db, quest.Type, nil, nil)
	action := seedAction(t, db, user.ID, quest.ID, models.ActionStatusSubmitted)

	_, err := svc.AdminApprove(action.ID, "admin-1")
	require.NoError(t, err)

	require.NoError(t, svc.HardDelete(action.ID))

	var actions, rewards int64
	require.NoError(t, db.Model(&models.QuestAction{}).Where("id = ?", action.ID).Count(&actions).Error)
	require.NoError(t, db.Model(&models.Reward{}).Where("action_id = ?", action.ID).Count(&rewards).Error)
	require.Zero(t, actions)
	require.Zero(t, rewards)
}
