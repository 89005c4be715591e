package usecase

import (
	"CopyFlow/internal/domain/models"
)

// DefaultFreshnessWindow is the maximum age, in seconds, a position may have
// at detection time to be eligible for replication.
const DefaultFreshnessWindow = 30

// DetectReason explains why detection did or did not yield a signal.
type DetectReason int

const (
	ReasonDetected DetectReason = iota
	ReasonNoValidPositions
	ReasonStale
	ReasonMalformed
)

func (r DetectReason) String() string {
	switch r {
	case ReasonDetected:
		return "detected"
	case ReasonNoValidPositions:
		return "no valid positions"
	case ReasonStale:
		return "stale"
	case ReasonMalformed:
		return "malformed position"
	default:
		return "unknown"
	}
}

// Detector turns a position snapshot into at most one actionable signal.
// Pure logic, no connection state.
type Detector struct {
	freshnessSeconds int64
}

// NewDetector creates a detector with the given freshness window in seconds
// (<=0 uses the default).
func NewDetector(freshnessSeconds int64) *Detector {
	if freshnessSeconds <= 0 {
		freshnessSeconds = DefaultFreshnessWindow
	}
	return &Detector{freshnessSeconds: freshnessSeconds}
}

// Detect selects the most recently opened position with a defined open time
// and a strictly positive opening cost, drops it if older than the freshness
// window, and maps it to a TradeSignal. Age and staleness are evaluated
// against nowSeconds (epoch seconds).
func (d *Detector) Detect(positions []models.Position, nowSeconds int64) (*models.TradeSignal, DetectReason) {
	var newest *models.Position
	for i := range positions {
		p := &positions[i]
		if p.DateStart <= 0 || p.BuyPrice <= 0 {
			continue
		}
		if newest == nil || p.DateStart > newest.DateStart {
			newest = p
		}
	}
	if newest == nil {
		return nil, ReasonNoValidPositions
	}

	age := nowSeconds - newest.DateStart
	if age > d.freshnessSeconds {
		return nil, ReasonStale
	}

	if newest.ContractType == "" || newest.SymbolCode() == "" {
		return nil, ReasonMalformed
	}

	sig := &models.TradeSignal{
		ContractType: newest.ContractType,
		Symbol:       newest.SymbolCode(),
		Amount:       newest.BuyPrice,
		Duration:     newest.Duration,
		DurationUnit: newest.DurationUnit,
		Basis:        "stake",
		Currency:     newest.Currency,
		Barrier:      newest.Barrier,
		Barrier2:     newest.Barrier2,
		Prediction:   newest.Prediction,
	}
	return sig, ReasonDetected
}
