package usecase

import (
	"fmt"
	"strings"
	"testing"

	"github.com/i4ops/vmwatch/internal/domain"
)

func bruteForceEvent(ip string) domain.SecurityEvent {
	return domain.SecurityEvent{
		Rule:     domain.RuleBruteForce,
		Severity: domain.SeverityHigh,
		Metadata: map[string]string{"username": "root", "source_ip": ip},
	}
}

func sudoEvent(user string) domain.SecurityEvent {
	return domain.SecurityEvent{
		Rule:     domain.RuleSudo,
		Severity: domain.SeverityMedium,
		Metadata: map[string]string{"user": user},
	}
}

func egressEvent(file string, severity domain.Severity) domain.SecurityEvent {
	return domain.SecurityEvent{
		Rule:     domain.RuleEgress,
		Severity: severity,
		Metadata: map[string]string{"pid": "1", "read_file": file, "write_dest": "10.0.0.1:443", "uid": "0", "gid": "0"},
	}
}

func TestAnalyzer_BruteForceThreshold(t *testing.T) {
	analyzer := NewAnalyzer()

	t.Run("Five attempts is below threshold", func(t *testing.T) {
		var events []domain.SecurityEvent
		for i := 0; i < 5; i++ {
			events = append(events, bruteForceEvent("10.0.0.5"))
		}

		report := analyzer.Analyze(events)
		if len(report.Threats) != 0 {
			t.Errorf("Threats = %v, want none at exactly 5 attempts", report.Threats)
		}
	})

	t.Run("Six attempts yields one threat", func(t *testing.T) {
		var events []domain.SecurityEvent
		for i := 0; i < 6; i++ {
			events = append(events, bruteForceEvent("10.0.0.5"))
		}

		report := analyzer.Analyze(events)
		if len(report.Threats) != 1 {
			t.Fatalf("Threats = %v, want exactly one", report.Threats)
		}
		if !strings.Contains(report.Threats[0], "10.0.0.5") || !strings.Contains(report.Threats[0], "6") {
			t.Errorf("threat %q should name the IP and the count 6", report.Threats[0])
		}
	})
}

func TestAnalyzer_SudoThreshold(t *testing.T) {
	analyzer := NewAnalyzer()

	var events []domain.SecurityEvent
	for i := 0; i < 10; i++ {
		events = append(events, sudoEvent("alice"))
	}
	for i := 0; i < 11; i++ {
		events = append(events, sudoEvent("bob"))
	}

	report := analyzer.Analyze(events)
	if len(report.Threats) != 1 {
		t.Fatalf("Threats = %v, want exactly one", report.Threats)
	}
	if !strings.Contains(report.Threats[0], "bob") || !strings.Contains(report.Threats[0], "11") {
		t.Errorf("threat %q should name bob with count 11", report.Threats[0])
	}
}

func TestAnalyzer_Egress(t *testing.T) {
	analyzer := NewAnalyzer()

	t.Run("Distinct files are counted once", func(t *testing.T) {
		events := []domain.SecurityEvent{
			egressEvent("/data/a.sql", domain.SeverityCritical),
			egressEvent("/data/a.sql", domain.SeverityCritical),
			egressEvent("/data/b.txt", domain.SeverityHigh),
			egressEvent("(null)", domain.SeverityHigh),
			egressEvent("", domain.SeverityHigh),
		}

		report := analyzer.Analyze(events)
		if len(report.Threats) != 1 {
			t.Fatalf("Threats = %v, want exactly one", report.Threats)
		}
		if !strings.Contains(report.Threats[0], "2 unique files") {
			t.Errorf("threat %q should report 2 unique files", report.Threats[0])
		}
	})

	t.Run("No egress events means no exfiltration output", func(t *testing.T) {
		report := analyzer.Analyze([]domain.SecurityEvent{bruteForceEvent("10.0.0.5")})
		for _, threat := range report.Threats {
			if strings.Contains(threat, "exfiltration") {
				t.Errorf("unexpected exfiltration threat: %q", threat)
			}
		}
		for _, rec := range report.Recommendations {
			if strings.Contains(rec, "DLP") {
				t.Errorf("unexpected DLP recommendation: %q", rec)
			}
		}
	})
}

func TestAnalyzer_Recommendations(t *testing.T) {
	analyzer := NewAnalyzer()

	t.Run("Critical event triggers investigation", func(t *testing.T) {
		report := analyzer.Analyze([]domain.SecurityEvent{egressEvent("/data/a.sql", domain.SeverityCritical)})

		found := false
		for _, rec := range report.Recommendations {
			if strings.Contains(rec, "Immediate investigation") {
				found = true
			}
		}
		if !found {
			t.Errorf("Recommendations = %v, want an immediate-investigation entry", report.Recommendations)
		}
	})

	t.Run("Many offending IPs trigger rate limiting", func(t *testing.T) {
		var events []domain.SecurityEvent
		for i := 0; i < 4; i++ {
			events = append(events, bruteForceEvent(fmt.Sprintf("10.0.0.%d", i+1)))
		}

		report := analyzer.Analyze(events)
		found := false
		for _, rec := range report.Recommendations {
			if strings.Contains(rec, "rate limiting") {
				found = true
			}
		}
		if !found {
			t.Errorf("Recommendations = %v, want a rate-limiting entry", report.Recommendations)
		}
	})

	t.Run("Three offending IPs do not", func(t *testing.T) {
		var events []domain.SecurityEvent
		for i := 0; i < 3; i++ {
			events = append(events, bruteForceEvent(fmt.Sprintf("10.0.0.%d", i+1)))
		}

		report := analyzer.Analyze(events)
		if len(report.Recommendations) != 0 {
			t.Errorf("Recommendations = %v, want none", report.Recommendations)
		}
	})
}

func TestAnalyzer_DeterministicOrdering(t *testing.T) {
	analyzer := NewAnalyzer()

	// Both IPs exceed the threshold; 10.0.0.9 appears first in the batch
	// and must therefore be reported first, every time.
	var events []domain.SecurityEvent
	for i := 0; i < 6; i++ {
		events = append(events, bruteForceEvent("10.0.0.9"))
		events = append(events, bruteForceEvent("10.0.0.1"))
	}

	for run := 0; run < 5; run++ {
		report := analyzer.Analyze(events)
		if len(report.Threats) != 2 {
			t.Fatalf("Threats = %v, want two", report.Threats)
		}
		if !strings.Contains(report.Threats[0], "10.0.0.9") {
			t.Fatalf("run %d: Threats[0] = %q, want the first-seen IP 10.0.0.9", run, report.Threats[0])
		}
		if !strings.Contains(report.Threats[1], "10.0.0.1") {
			t.Fatalf("run %d: Threats[1] = %q, want 10.0.0.1", run, report.Threats[1])
		}
	}
}

func TestAnalyzer_Breakdowns(t *testing.T) {
	analyzer := NewAnalyzer()

	events := []domain.SecurityEvent{
		bruteForceEvent("10.0.0.5"),
		sudoEvent("alice"),
		egressEvent("/data/a.sql", domain.SeverityCritical),
	}

	report := analyzer.Analyze(events)
	if report.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", report.TotalEvents)
	}
	if report.BySeverity[domain.SeverityHigh] != 1 || report.BySeverity[domain.SeverityMedium] != 1 || report.BySeverity[domain.SeverityCritical] != 1 {
		t.Errorf("BySeverity = %v, want one of each", report.BySeverity)
	}
	if report.ByRule[domain.RuleBruteForce] != 1 || report.ByRule[domain.RuleSudo] != 1 || report.ByRule[domain.RuleEgress] != 1 {
		t.Errorf("ByRule = %v, want one of each", report.ByRule)
	}
}
