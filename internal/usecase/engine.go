package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"CopyFlow/internal/domain/models"
	drepo "CopyFlow/internal/domain/repository"
	applogger "CopyFlow/pkg/logger"
)

// Engine is the coordinator: it owns the master session, the client
// registry, the detector, the replicator and the journal, and exposes the
// operations the UI boundary consumes. Connection callbacks mutate only the
// state their owner guards; the engine reads live state, never captured
// snapshots.
type Engine struct {
	master     *MasterSession
	registry   *ClientRegistry
	detector   *Detector
	replicator *Replicator
	journal    *Journal
	metrics    drepo.Metrics
	log        *applogger.Logger

	active atomic.Bool
}

// NewEngine assembles the replication core.
func NewEngine(
	factory drepo.ConnFactory,
	debounceDelay time.Duration,
	freshnessSeconds int64,
	journal *Journal,
	metrics drepo.Metrics,
	log *applogger.Logger,
) *Engine {
	e := &Engine{
		detector: NewDetector(freshnessSeconds),
		journal:  journal,
		metrics:  metrics,
		log:      log,
	}
	e.registry = NewClientRegistry(factory, journal, metrics, log)
	e.replicator = NewReplicator(e.registry, e.active.Load, journal, metrics, log)
	e.master = NewMasterSession(factory, debounceDelay, e.handleSnapshot, journal, metrics, log)
	return e
}

// handleSnapshot runs detection on every portfolio snapshot; the active flag
// gates only the fan-out, so toggling replication off never silences
// detection or its journal trail. There is deliberately no deduplication
// across consecutive snapshots: the same open position seen in two polls is
// detected, and replicated, twice.
func (e *Engine) handleSnapshot(positions []models.Position) {
	sig, reason := e.detector.Detect(positions, time.Now().Unix())
	switch reason {
	case ReasonDetected:
		if sig.Currency == "" {
			sig.Currency = e.master.Currency()
		}
		e.journal.IncDetected()
		e.metrics.RecordSignalDetected()
		e.journal.Info(fmt.Sprintf("signal: %s %s stake %.2f %s", sig.ContractType, sig.Symbol, sig.Amount, sig.Currency))
		if e.active.Load() {
			e.replicator.Replicate(context.Background(), sig)
		}
	case ReasonStale:
		e.journal.Warn("stale signal dropped: newest position is outside the freshness window")
	case ReasonNoValidPositions:
		e.journal.Info("no valid positions in snapshot")
	case ReasonMalformed:
		e.journal.Warn("malformed position rejected")
	}
}

// ConnectMaster opens the upstream session.
func (e *Engine) ConnectMaster(ctx context.Context, token string, appID int) error {
	return e.master.Connect(ctx, token, appID)
}

// DisconnectMaster tears the upstream session down; replication stops too.
func (e *Engine) DisconnectMaster() {
	e.StopReplication()
	e.master.Disconnect()
}

// StartReplication activates fan-out and resets the counters. Requires a
// connected master.
func (e *Engine) StartReplication() error {
	if !e.master.Connected() {
		return fmt.Errorf("master is not connected")
	}
	e.journal.Reset()
	e.active.Store(true)
	e.journal.Info("replication started")
	return nil
}

// StopReplication deactivates fan-out. Detection keeps running on incoming
// snapshots, but no new quote or buy requests are issued; requests already in
// flight complete on their own.
func (e *Engine) StopReplication() {
	if e.active.Swap(false) {
		e.journal.Info("replication stopped")
	}
}

// Active reports whether fan-out is currently enabled.
func (e *Engine) Active() bool { return e.active.Load() }

// AddClient registers a subscriber account and returns its id.
func (e *Engine) AddClient(ctx context.Context, token string, appID int) string {
	return e.registry.Register(ctx, token, appID)
}

// RemoveClient closes and removes a subscriber account. Idempotent.
func (e *Engine) RemoveClient(id string) {
	e.registry.Unregister(id)
}

// Stats returns the replication counters.
func (e *Engine) Stats() models.StatsSnapshot { return e.journal.Stats() }

// Logs returns the journal entries, newest first.
func (e *Engine) Logs() []models.LogEntry { return e.journal.Entries() }

// Master returns the UI-facing master view.
func (e *Engine) Master() models.MasterInfo { return e.master.Snapshot() }

// Clients returns the UI-facing client views.
func (e *Engine) Clients() []models.ClientInfo { return e.registry.Snapshot() }

// Shutdown closes every connection for process exit.
func (e *Engine) Shutdown() {
	e.StopReplication()
	e.master.Disconnect()
	e.registry.CloseAll()
	e.log.Info("engine shut down", applogger.Int("clients", len(e.registry.Snapshot())))
}
