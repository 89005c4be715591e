package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"CopyFlow/internal/domain/models"
	drepo "CopyFlow/internal/domain/repository"
)

// DefaultJournalCapacity bounds the event journal.
const DefaultJournalCapacity = 20

// Journal is the bounded event log plus the three replication counters.
// Entries are kept newest-first; the oldest entry is dropped silently once
// capacity is exceeded. Every entry is mirrored to the trace sinks.
type Journal struct {
	mu       sync.RWMutex
	capacity int
	entries  []models.LogEntry

	detected   atomic.Uint64
	replicated atomic.Uint64
	failed     atomic.Uint64

	sinks []drepo.TraceSink
}

// NewJournal creates a journal with the given capacity (<=0 uses the default).
func NewJournal(capacity int, sinks ...drepo.TraceSink) *Journal {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}
	return &Journal{
		capacity: capacity,
		entries:  make([]models.LogEntry, 0, capacity),
		sinks:    sinks,
	}
}

// Log appends an entry and mirrors it to the trace sinks.
func (j *Journal) Log(message string, severity models.Severity) {
	e := models.LogEntry{
		Timestamp: time.Now(),
		Severity:  severity,
		Message:   message,
	}

	j.mu.Lock()
	j.entries = append([]models.LogEntry{e}, j.entries...)
	if len(j.entries) > j.capacity {
		j.entries = j.entries[:j.capacity]
	}
	j.mu.Unlock()

	for _, s := range j.sinks {
		s.Trace(context.Background(), e)
	}
}

func (j *Journal) Info(message string)  { j.Log(message, models.SeverityInfo) }
func (j *Journal) Warn(message string)  { j.Log(message, models.SeverityWarn) }
func (j *Journal) Error(message string) { j.Log(message, models.SeverityError) }

// Entries returns a copy of the journal, newest first.
func (j *Journal) Entries() []models.LogEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]models.LogEntry, len(j.entries))
	copy(out, j.entries)
	return out
}

func (j *Journal) IncDetected()   { j.detected.Add(1) }
func (j *Journal) IncReplicated() { j.replicated.Add(1) }
func (j *Journal) IncFailed()     { j.failed.Add(1) }

// Stats returns the current counter values.
func (j *Journal) Stats() models.StatsSnapshot {
	return models.StatsSnapshot{
		Detected:   j.detected.Load(),
		Replicated: j.replicated.Load(),
		Failed:     j.failed.Load(),
	}
}

// Reset zeroes the counters. Called only when the operator explicitly
// (re)starts replication; the journal entries are kept.
func (j *Journal) Reset() {
	j.detected.Store(0)
	j.replicated.Store(0)
	j.failed.Store(0)
}
