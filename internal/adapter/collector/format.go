package collector

import (
	"fmt"
	"strings"
	"time"

	"github.com/i4ops/vmwatch/internal/adapter/detect"
)

// FormatLine wraps one raw collected log line into the 4-field wire format
// the detector consumes: "<TIMESTAMP> | <VM_NAME> | <SOURCE> | <LINE>".
// Collected lines carry no reliable timestamp of their own, so the
// collection time is used.
func FormatLine(ts time.Time, vmName, source, line string) string {
	return fmt.Sprintf("%s | %s | %s | %s", ts.Format(detect.TimeLayout), vmName, source, line)
}

// isVMDir reports whether a directory name looks like a VM log directory:
// "u" followed by digits, or containing a "-vm" suffix (e.g. u2-vm30000).
func isVMDir(name string) bool {
	if strings.Contains(name, "-vm") {
		return true
	}
	if len(name) < 2 || name[0] != 'u' {
		return false
	}
	for _, r := range name[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
