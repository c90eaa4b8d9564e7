package services

import (
	"context"
	"errors"

	"quest-reward-system/models"
)

type VerifyDecision string

const (
	VerifyApprove     VerifyDecision = "approve"
	VerifyReject      VerifyDecision = "reject"
	VerifyNeedsReview VerifyDecision = "needs_review"
)

// VerifyResult is the verifier's verdict on one submission attempt.
type VerifyResult struct {
	Decision   VerifyDecision `json:"decision"`
	Message    string         `json:"message,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	// ExternalID is the social identity the verdict is based on, when the
	// quest type binds rewards to an external account.
	ExternalID string `json:"external_id,omitempty"`
}

// ErrVerifierUnavailable marks a transient provider failure (timeout, 5xx).
// The action must be left in its pre-call state and the client told to
// retry — it is never a rejection.
var ErrVerifierUnavailable = errors.New("verifier temporarily unavailable")

// Verifier decides whether a quest's completion proof is valid.
// One implementation per quest type, selected through the registry.
type Verifier interface {
	Verify(ctx context.Context, quest *models.Quest, user *models.User, proof models.ProofPayload) (*VerifyResult, error)
}

// VerifierRegistry dispatches on quest type. Registering per type keeps each
// verifier independently testable instead of growing one switch.
type VerifierRegistry struct {
	verifiers map[models.QuestType]Verifier
}

func NewVerifierRegistry() *VerifierRegistry {
	return &VerifierRegistry{verifiers: make(map[models.QuestType]Verifier)}
}

func (r *VerifierRegistry) Register(t models.QuestType, v Verifier) {
	r.verifiers[t] = v
}

// For returns the verifier for a quest type, or nil when none is registered.
func (r *VerifierRegistry) For(t models.QuestType) Verifier {
	return r.verifiers[t]
}
