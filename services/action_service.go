package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"quest-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmitOutcome summarizes what one Submit/review call did.
type SubmitOutcome string

const (
	OutcomeRewarded      SubmitOutcome = "rewarded"
	OutcomePendingReview SubmitOutcome = "pending_review"
	OutcomeDenied        SubmitOutcome = "denied"
	OutcomeRejected      SubmitOutcome = "rejected"
)

// ClaimResult is returned to the claim endpoint. A denied claim leaves no
// action row behind — only the risk trail records it.
type ClaimResult struct {
	Allowed bool                `json:"allowed"`
	Reason  string              `json:"reason,omitempty"`
	Score   int                 `json:"score,omitempty"`
	Action  *models.QuestAction `json:"action,omitempty"`
}

type SubmitResult struct {
	Outcome SubmitOutcome       `json:"outcome"`
	Reason  string              `json:"reason,omitempty"`
	Action  *models.QuestAction `json:"action,omitempty"`
	Reward  *models.Reward      `json:"reward,omitempty"`
}

// ActionService owns the per-(user,quest) lifecycle:
// claimed → submitted → rewarded/rejected, with the gatekeeper in front and
// the ledger behind.
type ActionService struct {
	DB        *gorm.DB
	Gate      *Gatekeeper
	Verifiers *VerifierRegistry
	Ledger    *LedgerService
	Identity  SocialIdentityLookup
}

func NewActionService(db *gorm.DB, gate *Gatekeeper, verifiers *VerifierRegistry, ledger *LedgerService, identity SocialIdentityLookup) *ActionService {
	return &ActionService{DB: db, Gate: gate, Verifiers: verifiers, Ledger: ledger, Identity: identity}
}

// Claim admits a user onto a quest. Admission order: gatekeeper (blacklist,
// rate, risk), quest active, existing action (idempotent return), quest
// daily cap, create. Duplicate-claim races resolve at the storage layer via
// the (user_id, quest_id) unique index.
func (s *ActionService) Claim(userID, questID, ip, visitorID string) (*ClaimResult, error) {
	decision, err := s.Gate.Decide(GateContext{
		UserID:    userID,
		IP:        ip,
		VisitorID: visitorID,
		Action:    "quest_claim",
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return &ClaimResult{Allowed: false, Reason: decision.Reason, Score: decision.Score}, nil
	}

	var quest models.Quest
	if err := s.DB.First(&quest, "id = ?", questID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ClaimResult{Allowed: false, Reason: "quest not found"}, nil
		}
		return nil, fmt.Errorf("claim: load quest: %w", err)
	}
	if quest.Status != models.QuestStatusActive {
		return &ClaimResult{Allowed: false, Reason: "quest is not active"}, nil
	}

	// Idempotent repeat claim: hand back the existing action as-is.
	var existing models.QuestAction
	err = s.DB.Where("user_id = ? AND quest_id = ?", userID, questID).First(&existing).Error
	if err == nil {
		return &ClaimResult{Allowed: true, Score: decision.Score, Action: &existing}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("claim: existing lookup: %w", err)
	}

	if quest.DailyCap > 0 {
		var todays int64
		if err := s.DB.Model(&models.QuestAction{}).
			Where("quest_id = ? AND claimed_at >= ?", questID, localMidnight(time.Now())).
			Count(&todays).Error; err != nil {
			return nil, fmt.Errorf("claim: daily cap count: %w", err)
		}
		if todays >= int64(quest.DailyCap) {
			return &ClaimResult{Allowed: false, Reason: "quest daily cap reached"}, nil
		}
	}

	action := models.QuestAction{
		ID:               uuid.NewString(),
		UserID:           userID,
		QuestID:          questID,
		Status:           models.ActionStatusClaimed,
		RiskScoreAtClaim: decision.Score,
		ClaimedAt:        time.Now(),
	}
	if err := s.DB.Create(&action).Error; err != nil {
		// lost the race against a concurrent claim — the winner's row is
		// the action, return it
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if ferr := s.DB.Where("user_id = ? AND quest_id = ?", userID, questID).First(&existing).Error; ferr == nil {
				return &ClaimResult{Allowed: true, Score: decision.Score, Action: &existing}, nil
			}
		}
		return nil, fmt.Errorf("claim: create action: %w", err)
	}

	log.Printf("[ACTION] user %s claimed quest %s (risk %d)", userID, questID, decision.Score)
	return &ClaimResult{Allowed: true, Score: decision.Score, Action: &action}, nil
}

// Submit hands the proof to the quest-type verifier and acts on its verdict.
// Verification runs before any transaction is opened; the ledger's unit of
// work never waits on provider I/O.
func (s *ActionService) Submit(ctx context.Context, userID, questID string, proof models.ProofPayload) (*SubmitResult, error) {
	var action models.QuestAction
	err := s.DB.Where("user_id = ? AND quest_id = ?", userID, questID).First(&action).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &SubmitResult{Outcome: OutcomeDenied, Reason: "quest not claimed"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("submit: load action: %w", err)
	}

	switch action.Status {
	case models.ActionStatusRewarded:
		// client retries after a granted reward are success, not double-pay
		return &SubmitResult{Outcome: OutcomeRewarded, Action: &action}, nil
	case models.ActionStatusRejected:
		return &SubmitResult{Outcome: OutcomeDenied, Reason: "submission was rejected"}, nil
	}

	var quest models.Quest
	if err := s.DB.First(&quest, "id = ?", action.QuestID).Error; err != nil {
		return nil, fmt.Errorf("submit: load quest: %w", err)
	}
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("submit: load user: %w", err)
	}

	if reason := validateProofShape(quest.Type, &proof); reason != "" {
		return &SubmitResult{Outcome: OutcomeDenied, Reason: reason}, nil
	}

	// Identity exclusivity: a social account can be rewarded once per quest
	// no matter how many local accounts it is bound to.
	socialIdentity := ""
	if quest.Type.SocialIdentityBound() {
		socialIdentity, err = s.Identity.Lookup(userID)
		if err != nil {
			return nil, fmt.Errorf("submit: identity lookup: %w", err)
		}
		if socialIdentity == "" {
			return &SubmitResult{Outcome: OutcomeDenied, Reason: "link your account first"}, nil
		}
		taken, err := s.identityRewarded(quest.ID, socialIdentity, action.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return &SubmitResult{Outcome: OutcomeRejected, Reason: "identity already rewarded"}, nil
		}
	}

	verifier := s.Verifiers.For(quest.Type)
	if verifier == nil {
		return nil, fmt.Errorf("submit: no verifier registered for quest type %s", quest.Type)
	}

	// Provider I/O happens here, outside any transaction. A transient
	// failure leaves the action exactly as it was.
	result, err := verifier.Verify(ctx, &quest, &user, proof)
	if err != nil {
		if errors.Is(err, ErrVerifierUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("submit: verify: %w", err)
	}
	if result.ExternalID != "" {
		socialIdentity = result.ExternalID
	}

	proof.VerifierMessage = result.Message
	proof.Confidence = result.Confidence
	proof.ExternalID = socialIdentity

	switch result.Decision {
	case VerifyApprove:
		if err := s.storeProof(&action, &proof, nil); err != nil {
			return nil, err
		}
		reward, err := s.Ledger.Grant(action.ID, socialIdentity)
		if errors.Is(err, ErrAlreadyRewarded) {
			return &SubmitResult{Outcome: OutcomeRewarded, Action: &action}, nil
		}
		if errors.Is(err, ErrIdentityRewarded) {
			return &SubmitResult{Outcome: OutcomeRejected, Reason: "identity already rewarded"}, nil
		}
		if err != nil {
			return nil, err
		}
		s.DB.First(&action, "id = ?", action.ID)
		return &SubmitResult{Outcome: OutcomeRewarded, Action: &action, Reward: reward}, nil

	case VerifyNeedsReview:
		submitted := models.ActionStatusSubmitted
		if err := s.storeProof(&action, &proof, &submitted); err != nil {
			return nil, err
		}
		return &SubmitResult{Outcome: OutcomePendingReview, Reason: result.Message, Action: &action}, nil

	default: // VerifyReject — deterministic "not done yet"
		if quest.OneShot {
			rejected := models.ActionStatusRejected
			proof.RejectReason = result.Message
			if err := s.storeProof(&action, &proof, &rejected); err != nil {
				return nil, err
			}
			return &SubmitResult{Outcome: OutcomeRejected, Reason: result.Message, Action: &action}, nil
		}
		// leave the action claimable state untouched so the user can retry
		// after actually completing the task; keep the attempt on record
		if err := s.storeProof(&action, &proof, nil); err != nil {
			return nil, err
		}
		return &SubmitResult{Outcome: OutcomeDenied, Reason: result.Message, Action: &action}, nil
	}
}

// AdminApprove grants a reward for an action sitting in the review queue.
func (s *ActionService) AdminApprove(actionID, adminID string) (*SubmitResult, error) {
	var action models.QuestAction
	if err := s.DB.First(&action, "id = ?", actionID).Error; err != nil {
		return nil, fmt.Errorf("approve: load action: %w", err)
	}
	if action.Status == models.ActionStatusRewarded {
		return &SubmitResult{Outcome: OutcomeRewarded, Action: &action}, nil
	}
	if action.Status != models.ActionStatusSubmitted {
		return &SubmitResult{Outcome: OutcomeDenied,
			Reason: fmt.Sprintf("action is %s, only submitted actions can be approved", action.Status)}, nil
	}

	proof := models.ParseProof(action.Proof)
	proof.ReviewedBy = adminID
	if err := s.storeProof(&action, &proof, nil); err != nil {
		return nil, err
	}

	reward, err := s.Ledger.Grant(actionID, action.SocialIdentity)
	if errors.Is(err, ErrAlreadyRewarded) {
		return &SubmitResult{Outcome: OutcomeRewarded, Action: &action}, nil
	}
	if errors.Is(err, ErrIdentityRewarded) {
		return &SubmitResult{Outcome: OutcomeRejected, Reason: "identity already rewarded"}, nil
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[ACTION] admin %s approved action %s", adminID, actionID)
	s.DB.First(&action, "id = ?", actionID)
	return &SubmitResult{Outcome: OutcomeRewarded, Action: &action, Reward: reward}, nil
}

// AdminReject moves a submitted action to rejected, keeping the reason in
// the proof blob for audit.
func (s *ActionService) AdminReject(actionID, adminID, reason string) (*SubmitResult, error) {
	var action models.QuestAction
	if err := s.DB.First(&action, "id = ?", actionID).Error; err != nil {
		return nil, fmt.Errorf("reject: load action: %w", err)
	}
	if action.Status != models.ActionStatusSubmitted {
		return &SubmitResult{Outcome: OutcomeDenied,
			Reason: fmt.Sprintf("action is %s, only submitted actions can be rejected", action.Status)}, nil
	}

	proof := models.ParseProof(action.Proof)
	proof.RejectReason = reason
	proof.ReviewedBy = adminID
	rejected := models.ActionStatusRejected
	if err := s.storeProof(&action, &proof, &rejected); err != nil {
		return nil, err
	}

	log.Printf("[ACTION] admin %s rejected action %s: %s", adminID, actionID, reason)
	return &SubmitResult{Outcome: OutcomeRejected, Reason: reason, Action: &action}, nil
}

// AdminReopen returns a rejected action to the review queue. Rewarded
// actions are final and cannot be reopened.
func (s *ActionService) AdminReopen(actionID, adminID string) error {
	res := s.DB.Model(&models.QuestAction{}).
		Where("id = ? AND status = ?", actionID, models.ActionStatusRejected).
		Update("status", models.ActionStatusSubmitted)
	if res.Error != nil {
		return fmt.Errorf("reopen: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reopen: action %s is not in rejected state", actionID)
	}
	log.Printf("[ACTION] admin %s reopened action %s", adminID, actionID)
	return nil
}

// HardDelete removes an action and its dependent reward rows. Admin tooling
// only; the cascade keeps referential integrity.
func (s *ActionService) HardDelete(actionID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("action_id = ?", actionID).Delete(&models.Reward{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.QuestAction{}, "id = ?", actionID).Error
	})
}

// ReviewQueue lists submitted actions awaiting an admin decision.
func (s *ActionService) ReviewQueue(limit int) ([]models.QuestAction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var actions []models.QuestAction
	err := s.DB.Where("status = ?", models.ActionStatusSubmitted).
		Order("submitted_at ASC").
		Limit(limit).
		Find(&actions).Error
	return actions, err
}

// storeProof persists the proof blob and, when status is non-nil, performs a
// guarded lifecycle transition (never out of rewarded/rejected).
func (s *ActionService) storeProof(action *models.QuestAction, proof *models.ProofPayload, status *models.ActionStatus) error {
	updates := map[string]interface{}{"proof": proof.Marshal()}
	if proof.ImageURL != "" {
		updates["proof_image_url"] = proof.ImageURL
	}
	query := s.DB.Model(&models.QuestAction{}).Where("id = ?", action.ID)
	if status != nil {
		now := time.Now()
		updates["status"] = *status
		updates["submitted_at"] = now
		// terminal states only move through the ledger or admin paths
		query = query.Where("status IN ?",
			[]models.ActionStatus{models.ActionStatusClaimed, models.ActionStatusSubmitted})
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("store proof: %w", res.Error)
	}
	if status != nil && res.RowsAffected == 0 {
		return fmt.Errorf("store proof: action %s changed state concurrently", action.ID)
	}
	action.Proof = proof.Marshal()
	if status != nil {
		action.Status = *status
	}
	return nil
}

func (s *ActionService) identityRewarded(questID, socialIdentity, excludeActionID string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.QuestAction{}).
		Where("quest_id = ? AND social_identity = ? AND status = ? AND id <> ?",
			questID, socialIdentity, models.ActionStatusRewarded, excludeActionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("identity check: %w", err)
	}
	return count > 0, nil
}

// validateProofShape checks the closed proof variants per quest type before
// anything is dispatched or stored.
func validateProofShape(t models.QuestType, proof *models.ProofPayload) string {
	switch t {
	case models.QuestTypeScreenshot:
		proof.Kind = models.ProofKindScreenshot
		if proof.ImageURL == "" {
			return "proof image required"
		}
	case models.QuestTypeFollowTwitter, models.QuestTypeRetweet:
		proof.Kind = models.ProofKindHandle
	default:
		proof.Kind = models.ProofKindMembership
	}
	return ""
}

// localMidnight returns today's 00:00 in server-local time, the boundary the
// quest daily cap counts from.
func localMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
