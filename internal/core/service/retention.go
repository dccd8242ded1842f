package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/martijn/snapchain/internal/core/domain"
)

const (
	secondsPerDay = 24 * 60 * 60
	maxDays       = math.MaxInt64 / secondsPerDay / 4
)

// SelectForDeletion evaluates policy against an ascending catalog. The
// result is a subset of catalog in catalog order. Interactive policies are
// resolved with ParseInteractiveSelection instead.
func SelectForDeletion(catalog []string, policy domain.RetentionPolicy, now time.Time) ([]string, error) {
	n, k := len(catalog), policy.Param
	if k < 0 {
		return nil, fmt.Errorf("%w: %s requires a non-negative value", domain.ErrConfiguration, policy.Mode)
	}

	switch policy.Mode {
	case domain.RetentionLast:
		if n < k {
			return nil, insufficient(policy, n)
		}
		return clone(catalog[n-k:]), nil

	case domain.RetentionFirst:
		if n < k {
			return nil, insufficient(policy, n)
		}
		return clone(catalog[:k]), nil

	case domain.RetentionOlder:
		cutoff := daysBefore(now, k)
		// Unparsable ids count as the epoch.
		return filter(catalog, func(t time.Time, _ bool) bool { return t.Before(cutoff) }), nil

	case domain.RetentionNewer:
		cutoff := daysBefore(now, k)
		return filter(catalog, func(t time.Time, ok bool) bool { return ok && t.After(cutoff) }), nil

	case domain.RetentionAll:
		return clone(catalog), nil

	case domain.RetentionInteractive:
		return nil, fmt.Errorf("%w: interactive policy needs operator input", domain.ErrInvalidSelection)
	}

	return nil, fmt.Errorf("%w: unknown retention mode %q", domain.ErrConfiguration, policy.Mode)
}

// SelectAllToken selects every archive in an interactive prompt.
const SelectAllToken = "all"

// ParseInteractiveSelection turns operator input into a selection. Input is
// either "all" (or "*") or whitespace separated 1-based ordinals into
// catalog. A single bad token rejects the whole input.
func ParseInteractiveSelection(catalog []string, input string) ([]string, error) {
	tokens := strings.Fields(input)
	if len(tokens) == 0 {
		return []string{}, nil
	}

	if len(tokens) == 1 && (strings.EqualFold(tokens[0], SelectAllToken) || tokens[0] == "*") {
		return clone(catalog), nil
	}

	chosen := make(map[int]bool, len(tokens))
	for _, token := range tokens {
		ordinal, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidSelection, token)
		}
		if ordinal < 1 || ordinal > len(catalog) {
			return nil, fmt.Errorf("%w: %d is out of range 1-%d", domain.ErrInvalidSelection, ordinal, len(catalog))
		}
		chosen[ordinal-1] = true
	}

	selection := make([]string, 0, len(chosen))
	for i, id := range catalog {
		if chosen[i] {
			selection = append(selection, id)
		}
	}
	return selection, nil
}

// daysBefore subtracts k whole days in seconds. A time.Duration overflows
// past roughly 292 years.
func daysBefore(now time.Time, k int) time.Time {
	if int64(k) > maxDays {
		k = int(maxDays)
	}
	return time.Unix(now.Unix()-int64(k)*secondsPerDay, int64(now.Nanosecond())).In(now.Location())
}

func filter(catalog []string, keep func(t time.Time, ok bool) bool) []string {
	selection := []string{}
	for _, id := range catalog {
		if keep(domain.ArchiveTime(id)) {
			selection = append(selection, id)
		}
	}
	return selection
}

func clone(ids []string) []string {
	return append([]string{}, ids...)
}

func insufficient(policy domain.RetentionPolicy, n int) error {
	return fmt.Errorf("%w: %s needs %d archives, repository has %d",
		domain.ErrInsufficientArchives, policy.Mode, policy.Param, n)
}
