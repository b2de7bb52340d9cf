package detect

import (
	"testing"

	"github.com/i4ops/vmwatch/internal/domain"
)

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		name    string
		rule    domain.Rule
		groups  []string
		message string
		want    domain.Severity
	}{
		{
			name:   "Egress reading sql dump is critical",
			rule:   domain.RuleEgress,
			groups: []string{"4242", "/var/backups/db.sql", "10.9.8.7:443", "1000", "1000"},
			want:   domain.SeverityCritical,
		},
		{
			name:   "Egress reading uppercase extension is critical",
			rule:   domain.RuleEgress,
			groups: []string{"4242", "/home/bob/KEYS.ZIP", "10.9.8.7:443", "1000", "1000"},
			want:   domain.SeverityCritical,
		},
		{
			name:   "Egress reading plain text is high",
			rule:   domain.RuleEgress,
			groups: []string{"4242", "/tmp/notes.txt", "10.9.8.7:443", "1000", "1000"},
			want:   domain.SeverityHigh,
		},
		{
			name:   "Egress with too few groups is high",
			rule:   domain.RuleEgress,
			groups: []string{"4242"},
			want:   domain.SeverityHigh,
		},
		{
			name: "Brute force is always high",
			rule: domain.RuleBruteForce,
			want: domain.SeverityHigh,
		},
		{
			name:    "Sudo to root is high",
			rule:    domain.RuleSudo,
			message: "sudo: alice : TTY=pts/0 ; USER=root COMMAND=/bin/bash",
			want:    domain.SeverityHigh,
		},
		{
			name:    "Root session open is high",
			rule:    domain.RuleSudo,
			message: "sudo: pam_unix(sudo:session): session opened for user root",
			want:    domain.SeverityHigh,
		},
		{
			name:    "Sudo to non-root is medium",
			rule:    domain.RuleSudo,
			message: "sudo: alice : TTY=pts/0 ; USER=postgres COMMAND=/usr/bin/psql",
			want:    domain.SeverityMedium,
		},
		{
			name: "OOM kill is medium",
			rule: domain.RuleOOMKill,
			want: domain.SeverityMedium,
		},
		{
			name: "Defensive default is low",
			rule: domain.RuleOther,
			want: domain.SeverityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifySeverity(tt.rule, tt.groups, tt.message)
			if got != tt.want {
				t.Errorf("classifySeverity() = %q, want %q", got, tt.want)
			}
		})
	}
}
