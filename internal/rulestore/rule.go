package rulestore

import (
	"errors"
	"strings"
)

const (
	// MaxRuleLen is the maximum length of a rule in bytes, excluding the
	// NUL terminator of the 256-byte wire field.
	MaxRuleLen = 255

	// SentinelUID is the reserved bucket for identifier-less writes. On
	// read paths it means "all users".
	SentinelUID uint32 = 0xFFFFFFFF

	// DefaultMaxRules caps the total number of stored rules. Legacy
	// variants of the device capped at 100; the bound here is explicit
	// and configurable because the store is fed from an unprivileged
	// channel.
	DefaultMaxRules = 128
)

var (
	ErrRuleTooLong      = errors.New("rule exceeds maximum length")
	ErrInvalidRule      = errors.New("invalid rule")
	ErrCapacityExceeded = errors.New("rule capacity exceeded")
)

// ValidateRule checks a rule against the store's admission policy.
// Oversized rules are rejected, never truncated. Empty rules, rules with
// interior NUL bytes (unrepresentable in the NUL-terminated wire field)
// and rules with newlines (they would corrupt the line-oriented export)
// are invalid.
func ValidateRule(rule string) error {
	if rule == "" {
		return ErrInvalidRule
	}
	if len(rule) > MaxRuleLen {
		return ErrRuleTooLong
	}
	if strings.ContainsAny(rule, "\x00\n") {
		return ErrInvalidRule
	}
	return nil
}
