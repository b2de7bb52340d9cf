package detect

import "github.com/i4ops/vmwatch/internal/domain"

// extractMetadata maps a matched rule's captured groups to the field set
// downstream storage and analysis consume. Patterns may capture fewer
// groups than a rule's full field set; missing fields are simply omitted.
func extractMetadata(rule domain.Rule, groups []string) map[string]string {
	metadata := make(map[string]string)

	switch rule {
	case domain.RuleEgress:
		if len(groups) >= 5 {
			metadata["pid"] = groups[0]
			metadata["read_file"] = groups[1]
			metadata["write_dest"] = groups[2]
			metadata["uid"] = groups[3]
			metadata["gid"] = groups[4]
		}

	case domain.RuleBruteForce:
		if len(groups) >= 2 {
			metadata["username"] = groups[0]
			metadata["source_ip"] = groups[1]
		}

	case domain.RuleSudo:
		// The second group (the acting or target user, depending on the
		// pattern variant) is deliberately not surfaced.
		if len(groups) >= 1 {
			metadata["user"] = groups[0]
			if len(groups) >= 3 {
				metadata["command"] = groups[2]
			}
		}

	case domain.RuleOOMKill:
		// The patterns capture a pid and process name, but no fields are
		// surfaced for this rule today.
	}

	return metadata
}
