package services

import (
	"fmt"

	"quest-reward-system/models"

	"gorm.io/gorm"
)

// GateContext carries everything the gatekeeper needs about the request.
type GateContext struct {
	UserID    string
	IP        string
	VisitorID string
	Action    string // e.g. "quest_claim"
}

// GateDecision is the composite admission result. Denials are expected
// outcomes with a human-readable reason, not errors.
type GateDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Score   int    `json:"score"`
}

// Gatekeeper composes blacklist, rate limiter and risk evaluator into one
// allow/deny decision taken before any claim is admitted.
type Gatekeeper struct {
	DB        *gorm.DB
	Blacklist *BlacklistService
	Limiter   *RateLimiter
	Risk      *RiskService
}

func NewGatekeeper(db *gorm.DB, blacklist *BlacklistService, limiter *RateLimiter, risk *RiskService) *Gatekeeper {
	return &Gatekeeper{DB: db, Blacklist: blacklist, Limiter: limiter, Risk: risk}
}

// Decide runs the checks cheapest-and-most-authoritative first: explicit
// blacklists (a human already decided) dominate rate windows, which dominate
// the computed score. First failure short-circuits.
func (g *Gatekeeper) Decide(gc GateContext) (GateDecision, error) {
	blocked, err := g.Blacklist.IsBlocked(models.BlacklistSubjectUser, gc.UserID)
	if err != nil {
		return GateDecision{}, err
	}
	if blocked {
		return GateDecision{Allowed: false, Reason: "account banned"}, nil
	}

	blocked, err = g.Blacklist.IsBlocked(models.BlacklistSubjectDevice, gc.VisitorID)
	if err != nil {
		return GateDecision{}, err
	}
	if blocked {
		return GateDecision{Allowed: false, Reason: "device banned"}, nil
	}

	blocked, err = g.Blacklist.IsBlocked(models.BlacklistSubjectIP, gc.IP)
	if err != nil {
		return GateDecision{}, err
	}
	if blocked {
		return GateDecision{Allowed: false, Reason: "ip banned"}, nil
	}

	rate, err := g.Limiter.CheckRate(gc.UserID, gc.Action)
	if err != nil {
		return GateDecision{}, err
	}
	if !rate.Allowed {
		return GateDecision{Allowed: false, Reason: rate.Reason}, nil
	}

	// Single evaluation per decision; the score is reused by the caller
	// as risk_score_at_claim.
	assessment, err := g.Risk.Evaluate(gc.UserID)
	if err != nil {
		return GateDecision{}, err
	}
	if assessment.ShouldBlock {
		logRiskEvent(g.DB, &gc.UserID, "risk_block", models.RiskSeverityCritical,
			fmt.Sprintf("claim blocked at score %d [%s]", assessment.Score, assessment.FactorSummary()),
			gc.IP, gc.VisitorID)
		return GateDecision{Allowed: false, Reason: "risk too high", Score: assessment.Score}, nil
	}

	return GateDecision{Allowed: true, Score: assessment.Score}, nil
}
