package detect

import (
	"strings"
	"time"
)

// TimeLayout is the timestamp format of the 4-field log wire format.
const TimeLayout = "2006-01-02 15:04:05"

const fieldDelimiter = " | "

// ParsedLine is one raw log line split into its four fields. Raw preserves
// the trimmed original line verbatim.
type ParsedLine struct {
	Timestamp time.Time
	VMName    string
	Source    string
	Message   string
	Raw       string
}

// Parser splits raw lines of the form
// "<TIMESTAMP> | <VM_NAME> | <SOURCE> | <ORIGINAL_LINE>" into structured
// records. The message body absorbs any further delimiter occurrences.
type Parser struct {
	now func() time.Time
}

// NewParser returns a Parser using the wall clock for timestamp fallback.
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// Parse splits one line. A blank line or one that does not yield exactly
// four fields produces ok=false; that is a normal outcome, not an error.
// An unparseable timestamp is non-fatal and falls back to the current
// wall-clock time, so callers must not assume ordering accuracy then.
func (p *Parser) Parse(line string) (ParsedLine, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ParsedLine{}, false
	}

	parts := strings.SplitN(trimmed, fieldDelimiter, 4)
	if len(parts) != 4 {
		return ParsedLine{}, false
	}

	ts, err := time.ParseInLocation(TimeLayout, parts[0], time.Local)
	if err != nil {
		ts = p.now()
	}

	return ParsedLine{
		Timestamp: ts,
		VMName:    parts[1],
		Source:    parts[2],
		Message:   parts[3],
		Raw:       trimmed,
	}, true
}
