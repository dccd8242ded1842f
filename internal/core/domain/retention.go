package domain

import (
	"fmt"
	"regexp"
	"strings"
)

type RetentionMode string

const (
	RetentionLast        RetentionMode = "last"
	RetentionFirst       RetentionMode = "first"
	RetentionOlder       RetentionMode = "older"
	RetentionNewer       RetentionMode = "newer"
	RetentionAll         RetentionMode = "all"
	RetentionInteractive RetentionMode = "interactive"
)

// RetentionPolicy selects archives for deletion. Param is a count for
// last/first and a number of days for older/newer.
type RetentionPolicy struct {
	Mode  RetentionMode
	Param int
}

func (p RetentionPolicy) String() string {
	switch p.Mode {
	case RetentionLast, RetentionFirst, RetentionOlder, RetentionNewer:
		return fmt.Sprintf("%s %d", p.Mode, p.Param)
	default:
		return string(p.Mode)
	}
}

// PolicyBuilder enforces that at most one retention mode is chosen.
type PolicyBuilder struct {
	policy *RetentionPolicy
}

// Set records mode. Setting a second mode is a configuration error.
func (b *PolicyBuilder) Set(mode RetentionMode, param int) error {
	if b.policy != nil {
		return fmt.Errorf("%w: retention mode %q conflicts with %q", ErrConfiguration, mode, b.policy.Mode)
	}
	switch mode {
	case RetentionLast, RetentionFirst, RetentionOlder, RetentionNewer:
		if param < 0 {
			return fmt.Errorf("%w: %s requires a non-negative value, got %d", ErrConfiguration, mode, param)
		}
	case RetentionAll, RetentionInteractive:
		param = 0
	default:
		return fmt.Errorf("%w: unknown retention mode %q", ErrConfiguration, mode)
	}
	b.policy = &RetentionPolicy{Mode: mode, Param: param}
	return nil
}

// Build returns the chosen policy, falling back to interactive selection.
func (b *PolicyBuilder) Build() RetentionPolicy {
	if b.policy == nil {
		return RetentionPolicy{Mode: RetentionInteractive}
	}
	return *b.policy
}

var affirmative = regexp.MustCompile(`^(?i)y(es)?$`)

// IsAffirmative reports whether an operator answer confirms a prompt.
func IsAffirmative(answer string) bool {
	return affirmative.MatchString(strings.TrimSpace(answer))
}
