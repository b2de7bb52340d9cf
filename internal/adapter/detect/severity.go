package detect

import (
	"strings"

	"github.com/i4ops/vmwatch/internal/domain"
)

// Read-source extensions that escalate an egress event to critical.
var sensitiveExtensions = []string{".csv", ".zip", ".sql", ".key", ".pem"}

// classifySeverity maps a matched rule and its context to a severity.
// Pure function: same inputs always yield the same severity.
func classifySeverity(rule domain.Rule, groups []string, message string) domain.Severity {
	switch rule {
	case domain.RuleEgress:
		// Critical when the read source names a sensitive file type.
		var readFile string
		if len(groups) > 1 {
			readFile = strings.ToLower(groups[1])
		}
		for _, ext := range sensitiveExtensions {
			if strings.Contains(readFile, ext) {
				return domain.SeverityCritical
			}
		}
		return domain.SeverityHigh

	case domain.RuleBruteForce:
		return domain.SeverityHigh

	case domain.RuleSudo:
		if strings.Contains(message, "USER=root") || strings.Contains(message, "session opened for user root") {
			return domain.SeverityHigh
		}
		return domain.SeverityMedium

	case domain.RuleOOMKill:
		return domain.SeverityMedium
	}

	// Unreachable with the current registry; documented default.
	return domain.SeverityLow
}
