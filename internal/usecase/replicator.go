package usecase

import (
	"context"
	"fmt"
	"time"

	"CopyFlow/internal/domain/models"
	drepo "CopyFlow/internal/domain/repository"
	applogger "CopyFlow/pkg/logger"

	"github.com/google/uuid"
)

// Replicator fans a detected signal out to every currently eligible client.
// Fan-out is fire-and-forget: one goroutine per eligible client, each owning
// its own quote/buy round trip. A failure on one client never affects the
// others, and there is no all-or-nothing semantics across the set.
type Replicator struct {
	registry *ClientRegistry
	journal  *Journal
	metrics  drepo.Metrics
	log      *applogger.Logger

	// active is the replication gate, checked before issuing each new quote
	// or buy request. It does not cancel requests already in flight.
	active func() bool
}

// NewReplicator creates a replicator reading eligibility from the live
// registry and gating new requests on the active flag.
func NewReplicator(registry *ClientRegistry, active func() bool, journal *Journal, metrics drepo.Metrics, log *applogger.Logger) *Replicator {
	return &Replicator{
		registry: registry,
		journal:  journal,
		metrics:  metrics,
		log:      log,
		active:   active,
	}
}

// Replicate computes the eligible set and spawns one copy task per client.
// An empty set counts as a failed replication opportunity.
func (r *Replicator) Replicate(ctx context.Context, sig *models.TradeSignal) {
	eligible := r.registry.Eligible(sig)
	if len(eligible) == 0 {
		r.journal.IncFailed()
		r.metrics.RecordReplicationFailed("no_eligible_clients")
		r.journal.Warn(fmt.Sprintf("no eligible clients for %s %s (stake %.2f)", sig.ContractType, sig.Symbol, sig.Amount))
		return
	}

	for _, client := range eligible {
		go r.copyTo(ctx, client, sig)
	}
}

// copyTo runs one client's autonomous round trip: quote the signal, then buy
// at the quoted price. The quoted price is executed as-is; there is no price
// re-validation or slippage guard.
func (r *Replicator) copyTo(ctx context.Context, client EligibleClient, sig *models.TradeSignal) {
	if !r.active() {
		return
	}

	correlationID := uuid.NewString()
	start := time.Now()

	quote, err := client.Conn.Proposal(ctx, sig, correlationID)
	if err != nil {
		r.metrics.RecordReplicationFailed("proposal_error")
		r.journal.Error(fmt.Sprintf("client %s: quote failed: %v", client.LoginID, err))
		return
	}

	if !r.active() {
		return
	}

	exec, err := client.Conn.Buy(ctx, quote.ProposalID, quote.AskPrice)
	if err != nil {
		r.metrics.RecordReplicationFailed("buy_error")
		r.journal.Error(fmt.Sprintf("client %s: buy failed: %v", client.LoginID, err))
		return
	}

	client.IncCopied()
	r.journal.IncReplicated()
	r.metrics.RecordTradeReplicated(client.LoginID)
	r.metrics.RecordRoundTrip("replicate", time.Since(start).Seconds())
	r.journal.Info(fmt.Sprintf("client %s: copied %s %s @ %.2f (contract %d)",
		client.LoginID, sig.ContractType, sig.Symbol, quote.AskPrice, exec.ContractID))
	r.log.Debug("replication round trip done",
		applogger.String("loginid", client.LoginID),
		applogger.String("shortcode", exec.Shortcode),
	)
}
