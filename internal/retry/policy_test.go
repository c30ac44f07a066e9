package retry

import (
	"testing"
	"time"
)

func TestDelayGrowth(t *testing.T) {
	cases := []struct {
		name    string
		policy  Policy
		attempt int
		want    time.Duration
	}{
		{"zero attempt", DefaultPolicy(), 0, 0},
		{"linear first", Policy{Mode: BackoffLinear, Initial: time.Second, Max: 30 * time.Second}, 1, time.Second},
		{"linear third", Policy{Mode: BackoffLinear, Initial: time.Second, Max: 30 * time.Second}, 3, 3 * time.Second},
		{"linear capped", Policy{Mode: BackoffLinear, Initial: time.Second, Max: 5 * time.Second}, 10, 5 * time.Second},
		{"fixed stays flat", Policy{Mode: BackoffFixed, Initial: 2 * time.Second, Max: time.Minute}, 7, 2 * time.Second},
		{"exponential second", Policy{Mode: BackoffExponential, Initial: time.Second, Max: time.Minute}, 2, 2 * time.Second},
		{"exponential fourth", Policy{Mode: BackoffExponential, Initial: time.Second, Max: time.Minute}, 4, 8 * time.Second},
		{"exponential capped", Policy{Mode: BackoffExponential, Initial: time.Second, Max: 10 * time.Second}, 10, 10 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.policy.Delay(tc.attempt); got != tc.want {
				t.Errorf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
			}
		})
	}
}

func TestNewPolicyFallsBackToDefaults(t *testing.T) {
	p := NewPolicy("bogus", 0, 0, 0)
	if p != DefaultPolicy() {
		t.Errorf("invalid inputs did not fall back: %+v", p)
	}

	p = NewPolicy(BackoffExponential, 2*time.Second, time.Minute, 8)
	if p.Mode != BackoffExponential || p.Initial != 2*time.Second || p.Max != time.Minute || p.MaxAttempts != 8 {
		t.Errorf("explicit values dropped: %+v", p)
	}

	// Initial above the cap is clamped down, not rejected.
	p = NewPolicy(BackoffFixed, time.Minute, time.Second, 1)
	if p.Initial != time.Second {
		t.Errorf("initial not clamped to max: %v", p.Initial)
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Errorf("default policy invalid: %v", err)
	}
	bad := []Policy{
		{Mode: BackoffLinear, Initial: 0, Max: time.Second},
		{Mode: BackoffLinear, Initial: time.Second, Max: 0},
		{Mode: BackoffLinear, Initial: time.Second, Max: time.Second, MaxAttempts: -1},
	}
	for i, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("case %d: expected validation error for %+v", i, p)
		}
	}
}
