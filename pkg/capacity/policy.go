package capacity

import (
	"fmt"
	"strings"
)

// Policy decides what a capacity violation means for the caller.
type Policy string

const (
	// PolicyHardCap rejects allocations that exceed a limit.
	PolicyHardCap Policy = "hard"
	// PolicyAdvisory lets them through with a "Warning: " reason.
	PolicyAdvisory Policy = "advisory"
)

func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyHardCap:
		return PolicyHardCap, nil
	case PolicyAdvisory:
		return PolicyAdvisory, nil
	default:
		return "", fmt.Errorf("unknown capacity policy %q", value)
	}
}

func (p Policy) apply(d Decision, violation Violation, reason string) Decision {
	d.Violation = violation
	if p == PolicyAdvisory {
		d.Outcome = AllowedWithWarning
		d.Reason = warningPrefix + reason
		return d
	}
	d.Outcome = Rejected
	d.Reason = reason
	return d
}
