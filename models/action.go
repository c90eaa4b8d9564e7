package models

import (
	"encoding/json"
	"time"
)

// ActionStatus is the per-(user,quest) lifecycle state.
//
//	claimed → submitted | rewarded | rejected
//	submitted → rewarded | rejected | submitted (resubmission)
//	rejected → submitted (admin reopen only)
//	rewarded → (terminal, absolutely)
type ActionStatus string

const (
	ActionStatusClaimed   ActionStatus = "claimed"
	ActionStatusSubmitted ActionStatus = "submitted"
	ActionStatusRewarded  ActionStatus = "rewarded"
	ActionStatusRejected  ActionStatus = "rejected"
)

// QuestAction is the core aggregate: one row per (user, quest), ever.
// The composite unique index is load-bearing — concurrent duplicate claims
// are resolved by the storage layer, not by application checks.
type QuestAction struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"uniqueIndex:idx_user_quest;not null;index" json:"user_id"`
	QuestID string `gorm:"uniqueIndex:idx_user_quest;uniqueIndex:idx_quest_identity_rewarded;not null;index" json:"quest_id"`

	Status           ActionStatus `gorm:"not null;default:'claimed';index" json:"status"`
	RiskScoreAtClaim int          `json:"risk_score_at_claim"`

	// Proof is the serialized ProofPayload for the submission; admin review
	// notes and verifier output are appended into the same blob for audit.
	Proof         string `gorm:"type:text" json:"proof,omitempty"`
	ProofImageURL string `gorm:"type:text" json:"proof_image_url,omitempty"`

	// SocialIdentity is the external account id captured at reward time.
	// At most one rewarded action per (quest, social identity) worldwide —
	// the partial unique index enforces it at the storage layer.
	SocialIdentity string `gorm:"index;uniqueIndex:idx_quest_identity_rewarded,where:status = 'rewarded' AND social_identity <> ''" json:"social_identity,omitempty"`

	ClaimedAt   time.Time  `json:"claimed_at" gorm:"autoCreateTime;index"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// ProofKind tags the closed set of proof payload shapes.
type ProofKind string

const (
	ProofKindMembership ProofKind = "membership" // join_channel: nothing user-supplied, verifier fills result
	ProofKindHandle     ProofKind = "handle"     // follow/retweet: bound social handle
	ProofKindScreenshot ProofKind = "screenshot" // uploaded image
)

// ProofPayload is the typed proof blob stored on QuestAction.Proof.
// Keeping it a closed tagged struct (not an open map) lets the state machine
// validate shape before dispatching a verifier.
type ProofPayload struct {
	Kind ProofKind `json:"kind"`

	// handle proofs
	Handle     string `json:"handle,omitempty"`
	ExternalID string `json:"external_id,omitempty"`

	// screenshot proofs
	ImageURL string `json:"image_url,omitempty"`

	// verifier/admin audit trail
	VerifierMessage string   `json:"verifier_message,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty"`
	RejectReason    string   `json:"reject_reason,omitempty"`
	ReviewedBy      string   `json:"reviewed_by,omitempty"`
}

func (p *ProofPayload) Marshal() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// ParseProof decodes a stored proof blob; an empty blob yields a zero payload.
func ParseProof(raw string) ProofPayload {
	var p ProofPayload
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &p)
	}
	return p
}
