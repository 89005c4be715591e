package models

import "time"

// Severity of a journal entry.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// LogEntry is one line of the bounded event journal.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
}

// StatsSnapshot is a point-in-time copy of the replication counters.
type StatsSnapshot struct {
	Detected   uint64 `json:"detected"`
	Replicated uint64 `json:"replicated"`
	Failed     uint64 `json:"failed"`
}

// ClientInfo is the UI-facing view of one client connection.
type ClientInfo struct {
	ID          string           `json:"id"`
	LoginID     string           `json:"loginid"`
	Status      ConnectionStatus `json:"status"`
	Balance     float64          `json:"balance"`
	TotalCopied uint64           `json:"total_copied"`
}

// MasterInfo is the UI-facing view of the master session.
type MasterInfo struct {
	LoginID string           `json:"loginid"`
	Status  ConnectionStatus `json:"status"`
	Balance float64          `json:"balance"`
}
