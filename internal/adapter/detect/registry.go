package detect

import (
	"regexp"

	"github.com/i4ops/vmwatch/internal/domain"
)

// Match is the result of a successful registry lookup. Groups holds the
// pattern's captured groups, which may be fewer than a rule's metadata
// extractor expects.
type Match struct {
	Rule   domain.Rule
	Groups []string
}

type ruleEntry struct {
	rule     domain.Rule
	patterns []*regexp.Regexp
}

// Registry is an immutable, ordered set of detection rules. Rules are
// evaluated in a fixed order (egress, brute_force, sudo, oom_kill) and
// patterns within a rule in declaration order; the first pattern that
// matches wins, regardless of specificity.
type Registry struct {
	rules []ruleEntry
}

// NewRegistry compiles the built-in security patterns.
func NewRegistry() *Registry {
	return &Registry{rules: []ruleEntry{
		{
			// Kernel-logged egress marker: proxy for data exfiltration.
			rule: domain.RuleEgress,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)kernel:.*egress\s*\(\d+\)\s*pid\s+(\d+)\s+read\s+(\S+|\([^)]+\))\s+write\s+(\S*)\s+uid\s+(\d+)\s+gid\s+(\d+)`),
			},
		},
		{
			// SSH brute force and unauthorized sudo attempts.
			rule: domain.RuleBruteForce,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)sshd\[\d+\]:\s*Failed\s+password\s+for\s+(?:invalid\s+user\s+)?(\w+)\s+from\s+([\d.]+)`),
				regexp.MustCompile(`(?i)sshd\[\d+\]:\s*Invalid\s+user\s+(\w+)\s+from\s+([\d.]+)`),
				regexp.MustCompile(`(?i)sudo:.*user\s+NOT\s+in\s+sudoers.*USER=(\w+).*COMMAND=(.+)`),
			},
		},
		{
			// Successful privilege escalation via sudo/su.
			rule: domain.RuleSudo,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)sudo:\s*(\w+)\s*:.*TTY=.*USER=(\w+)\s+COMMAND=(.+)`),
				regexp.MustCompile(`(?i)sudo:\s*pam_unix\(sudo:session\):\s*session\s+(opened|closed)\s+for\s+user\s+(\w+)`),
				regexp.MustCompile(`(?i)su:\s*pam_unix\(su:session\):\s*session\s+opened\s+for\s+user\s+(\w+).*by\s+(\w+)`),
			},
		},
		{
			// Kernel out-of-memory killer.
			rule: domain.RuleOOMKill,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)kernel:.*Out\s+of\s+memory:\s*Kill\s+process\s+(\d+)\s*\(([^)]+)\)`),
				regexp.MustCompile(`(?i)kernel:.*oom-kill:.*killed\s+process\s+(\d+)`),
			},
		},
	}}
}

// Match returns the first rule whose first pattern matches the message
// body. Most log lines are not security events, so ok=false is the normal
// outcome, not an error.
func (r *Registry) Match(message string) (Match, bool) {
	for _, entry := range r.rules {
		for _, pattern := range entry.patterns {
			if m := pattern.FindStringSubmatch(message); m != nil {
				return Match{Rule: entry.rule, Groups: m[1:]}, true
			}
		}
	}
	return Match{}, false
}
