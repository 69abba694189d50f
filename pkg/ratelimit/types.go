package ratelimit

import (
	"time"
)

// Policy is an immutable rate-limiting tier: at most MaxRequests admissions
// per Window for a single identifier. Policies are replaced wholesale when
// values change; existing window records are never migrated.
type Policy struct {
	Name        string
	MaxRequests int64
	Window      time.Duration
}

// Named policies, chosen to reflect cost and abuse-risk tradeoffs.
var (
	// PolicyAuth protects login/signup against brute force.
	PolicyAuth = Policy{Name: "auth", MaxRequests: 5, Window: 15 * time.Minute}

	// PolicyAI bounds spend on expensive inference calls.
	PolicyAI = Policy{Name: "ai", MaxRequests: 20, Window: time.Minute}

	// PolicyAPI covers general data operations.
	PolicyAPI = Policy{Name: "api", MaxRequests: 60, Window: time.Minute}

	// PolicyExpensive protects heavy, resource-intensive operations.
	PolicyExpensive = Policy{Name: "expensive", MaxRequests: 10, Window: time.Minute}
)

// DefaultPolicies returns the built-in policy table keyed by name.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		PolicyAuth.Name:      PolicyAuth,
		PolicyAI.Name:        PolicyAI,
		PolicyAPI.Name:       PolicyAPI,
		PolicyExpensive.Name: PolicyExpensive,
	}
}

// Verdict is the result of an admission decision.
type Verdict struct {
	Allowed   bool      `json:"allowed"`
	Remaining int64     `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

// RetryAfter returns the whole seconds a denied caller should wait before
// retrying, rounded up and never negative.
func (v Verdict) RetryAfter(now time.Time) int64 {
	d := v.ResetTime.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
