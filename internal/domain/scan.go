package domain

import "time"

// LogSources are the log streams collected per VM, in collection order.
var LogSources = []string{"auth.log", "kern.log", "syslog"}

// SourceScanStats counts what one VM/source pass produced.
type SourceScanStats struct {
	Source         string `json:"source"`
	LinesProcessed int    `json:"lines_processed"`
	EventsFound    int    `json:"events_found"`
	EventsSaved    int    `json:"events_saved"`
}

// VMScanResult is the outcome of processing one VM's log sources. A VM that
// fails entirely still yields a result, with the failure recorded in Errors.
type VMScanResult struct {
	VMName      string             `json:"vm_name"`
	Sources     []SourceScanStats  `json:"sources,omitempty"`
	EventsFound int                `json:"events_found"`
	EventsSaved int                `json:"events_saved"`
	BySeverity  map[Severity]int   `json:"by_severity,omitempty"`
	ByRule      map[Rule]int       `json:"by_rule,omitempty"`
	Errors      []string           `json:"errors,omitempty"`
	Duration    time.Duration      `json:"duration"`
}

// ScanReport aggregates a whole scan run across VMs.
type ScanReport struct {
	RunID       string         `json:"run_id"`
	StartedAt   time.Time      `json:"started_at"`
	TotalVMs    int            `json:"total_vms"`
	VMsScanned  int            `json:"vms_scanned"`
	EventsFound int            `json:"events_found"`
	EventsSaved int            `json:"events_saved"`
	VMResults   []VMScanResult `json:"vm_results,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

// AnalysisReport is the threat analyzer's batch-level conclusion. Threats
// and Recommendations are ordered by first occurrence in the input batch so
// the output is reproducible.
type AnalysisReport struct {
	GeneratedAt     time.Time        `json:"generated_at"`
	TotalEvents     int              `json:"total_events"`
	BySeverity      map[Severity]int `json:"severity_breakdown"`
	ByRule          map[Rule]int     `json:"rule_breakdown"`
	Threats         []string         `json:"threats"`
	Recommendations []string         `json:"recommendations"`
}
