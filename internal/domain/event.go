package domain

import (
	"fmt"
	"time"
)

// Severity is the closed set of severity levels a security event can carry.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// ParseSeverity converts a stored string back into a Severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.Valid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// Rule identifies which detection rule produced a security event.
// RuleOther is part of the closed set but no registered pattern produces it;
// it is reserved for events classified outside the built-in registry.
type Rule string

const (
	RuleEgress     Rule = "egress"
	RuleBruteForce Rule = "brute_force"
	RuleSudo       Rule = "sudo"
	RuleOOMKill    Rule = "oom_kill"
	RuleOther      Rule = "other"
)

// Valid reports whether r is one of the five known rules.
func (r Rule) Valid() bool {
	switch r {
	case RuleEgress, RuleBruteForce, RuleSudo, RuleOOMKill, RuleOther:
		return true
	}
	return false
}

// ParseRule converts a stored string back into a Rule.
func ParseRule(s string) (Rule, error) {
	rule := Rule(s)
	if !rule.Valid() {
		return "", fmt.Errorf("unknown rule %q", s)
	}
	return rule, nil
}

// SecurityEvent is one classified log line. It is created once by the
// detection pipeline and never mutated afterwards; Message preserves the
// full formatted input line verbatim for audit reproducibility.
type SecurityEvent struct {
	VMName    string            `json:"vm_name"`
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
	Message   string            `json:"message"`
	Severity  Severity          `json:"severity"`
	Rule      Rule              `json:"rule"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// StoredEvent is a SecurityEvent as persisted, with its database identity
// and acknowledgement state.
type StoredEvent struct {
	ID        int64             `json:"id"`
	VMID      int64             `json:"vm_id"`
	VMName    string            `json:"vm_name,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
	Message   string            `json:"message"`
	Severity  Severity          `json:"severity"`
	Rule      Rule              `json:"rule"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	AckAt     *time.Time        `json:"ack_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// EventFilter narrows a stored-event query. Zero values mean "no constraint".
type EventFilter struct {
	VMID         int64
	Severity     Severity
	Rule         Rule
	Since        time.Time
	Until        time.Time
	Acknowledged *bool
}

// EventStats summarizes stored events by severity and acknowledgement state.
type EventStats struct {
	Total          int64 `json:"total"`
	Critical       int64 `json:"critical"`
	High           int64 `json:"high"`
	Medium         int64 `json:"medium"`
	Low            int64 `json:"low"`
	Last24h        int64 `json:"last24h"`
	Acknowledged   int64 `json:"acknowledged"`
	Unacknowledged int64 `json:"unacknowledged"`
}
