package services

import "time"

// Business constants live in explicit config structs (tunable via env later)
// so tests can exercise tier and threshold boundaries without touching
// globals. The literal values mirror the product decisions in use today;
// they are configuration, not law.

// RiskWeights are the additive signal weights for the risk evaluator.
type RiskWeights struct {
	ManyDevices    int // user owns more devices than DeviceCountLimit
	SharedDevice   int // one of the user's devices is used by another user
	SharedIP       int // one of the user's IPs is shared by a crowd
	ClaimVelocity  int // more claims in the last hour than the hourly cap
	NewAccount     int // account younger than NewAccountAge
	PerRecentEvent int // per high/critical risk event in EventWindow
}

var DefaultRiskWeights = RiskWeights{
	ManyDevices:    15,
	SharedDevice:   25,
	SharedIP:       20,
	ClaimVelocity:  30,
	NewAccount:     10,
	PerRecentEvent: 5,
}

// RiskThresholds hold the cut-offs the weights are measured against.
type RiskThresholds struct {
	BlockScore        int // score at which claims are denied outright
	WarnScore         int // score at which level becomes medium
	DeviceCountLimit  int // devices per user considered normal
	SharedDeviceUsers int // users per device considered normal
	SharedIPUsers     int // users per IP considered normal
	NewAccountAge     time.Duration
	EventWindow       time.Duration
}

var DefaultRiskThresholds = RiskThresholds{
	BlockScore:        80,
	WarnScore:         50,
	DeviceCountLimit:  3,
	SharedDeviceUsers: 1,
	SharedIPUsers:     5,
	NewAccountAge:     24 * time.Hour,
	EventWindow:       7 * 24 * time.Hour,
}

// RateLimits are sliding-window claim caps per user.
type RateLimits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

var DefaultRateLimits = RateLimits{
	PerMinute: 5,
	PerHour:   20,
	PerDay:    50,
}

// CommissionTier maps an inviter's total invite count to a commission rate.
// Tiers are closed on the lower bound.
type CommissionTier struct {
	MinInvites int64
	Rate       float64
}

// DefaultCommissionTiers: <500 → 10%, 500–4999 → 15%, ≥5000 → 20%.
// Ordered highest-first so the first match wins.
var DefaultCommissionTiers = []CommissionTier{
	{MinInvites: 5000, Rate: 0.20},
	{MinInvites: 500, Rate: 0.15},
	{MinInvites: 0, Rate: 0.10},
}

// RewardConfig holds ledger-side conversion constants.
type RewardConfig struct {
	// PointsPerUnit converts a cash reward amount into points when a quest
	// has no explicit points override: points = floor(amount × PointsPerUnit).
	PointsPerUnit float64
}

var DefaultRewardConfig = RewardConfig{
	PointsPerUnit: 10,
}
