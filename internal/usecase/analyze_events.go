package usecase

import (
	"fmt"
	"time"

	"github.com/i4ops/vmwatch/internal/domain"
)

const (
	// An IP is reported once its failed-attempt count exceeds this.
	bruteForceIPThreshold = 5
	// A user is reported once their sudo count exceeds this.
	sudoUserThreshold = 10
	// More offending IPs than this triggers the rate-limiting recommendation.
	offendingIPLimit = 3
)

// Analyzer derives batch-level threat conclusions from classified events.
// It is stateless across calls and needs the entire batch up front:
// threshold counts over a partial batch would under-report.
type Analyzer struct{}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze tallies one finite batch of events and produces threat lines and
// recommendations. Aggregation keys are iterated in order of first
// occurrence within the batch, so output is reproducible.
func (a *Analyzer) Analyze(events []domain.SecurityEvent) *domain.AnalysisReport {
	report := &domain.AnalysisReport{
		GeneratedAt:     time.Now().UTC(),
		TotalEvents:     len(events),
		BySeverity:      make(map[domain.Severity]int),
		ByRule:          make(map[domain.Rule]int),
		Threats:         []string{},
		Recommendations: []string{},
	}

	ipFailures := make(map[string]int)
	var ipOrder []string
	sudoUsers := make(map[string]int)
	var userOrder []string
	egressFiles := make(map[string]struct{})

	for _, event := range events {
		report.BySeverity[event.Severity]++
		report.ByRule[event.Rule]++

		switch event.Rule {
		case domain.RuleBruteForce:
			if ip := event.Metadata["source_ip"]; ip != "" {
				if _, seen := ipFailures[ip]; !seen {
					ipOrder = append(ipOrder, ip)
				}
				ipFailures[ip]++
			}
		case domain.RuleSudo:
			if user := event.Metadata["user"]; user != "" {
				if _, seen := sudoUsers[user]; !seen {
					userOrder = append(userOrder, user)
				}
				sudoUsers[user]++
			}
		case domain.RuleEgress:
			if file := event.Metadata["read_file"]; file != "" && file != "(null)" {
				egressFiles[file] = struct{}{}
			}
		}
	}

	for _, ip := range ipOrder {
		if count := ipFailures[ip]; count > bruteForceIPThreshold {
			report.Threats = append(report.Threats,
				fmt.Sprintf("Brute force attack from %s: %d failed attempts", ip, count))
		}
	}
	for _, user := range userOrder {
		if count := sudoUsers[user]; count > sudoUserThreshold {
			report.Threats = append(report.Threats,
				fmt.Sprintf("Excessive sudo usage by %s: %d attempts", user, count))
		}
	}
	if len(egressFiles) > 0 {
		report.Threats = append(report.Threats,
			fmt.Sprintf("Data exfiltration detected: %d unique files accessed", len(egressFiles)))
	}

	if report.BySeverity[domain.SeverityCritical] > 0 {
		report.Recommendations = append(report.Recommendations,
			"Immediate investigation required for critical events")
	}
	if len(ipFailures) > offendingIPLimit {
		report.Recommendations = append(report.Recommendations,
			"Consider implementing IP-based rate limiting")
	}
	if len(egressFiles) > 0 {
		report.Recommendations = append(report.Recommendations,
			"Review file access permissions and implement DLP controls")
	}

	return report
}
