package detect

import "github.com/i4ops/vmwatch/internal/domain"

// Detector composes the line parser, pattern registry, severity classifier
// and metadata extractor into the full per-line pipeline. It holds no
// mutable state and is safe for concurrent use.
type Detector struct {
	parser   *Parser
	registry *Registry
}

// NewDetector builds a Detector over the built-in pattern registry.
func NewDetector() *Detector {
	return &Detector{
		parser:   NewParser(),
		registry: NewRegistry(),
	}
}

// Detect classifies one raw log line. It returns ok=false for lines that
// do not parse into four fields or match no security pattern; both are
// normal outcomes during a scan. The returned event's Message carries the
// entire formatted input line, not just the log body.
func (d *Detector) Detect(line string) (*domain.SecurityEvent, bool) {
	parsed, ok := d.parser.Parse(line)
	if !ok {
		return nil, false
	}

	match, ok := d.registry.Match(parsed.Message)
	if !ok {
		return nil, false
	}

	return &domain.SecurityEvent{
		VMName:    parsed.VMName,
		Timestamp: parsed.Timestamp,
		Source:    parsed.Source,
		Message:   parsed.Raw,
		Severity:  classifySeverity(match.Rule, match.Groups, parsed.Message),
		Rule:      match.Rule,
		Metadata:  extractMetadata(match.Rule, match.Groups),
	}, true
}
