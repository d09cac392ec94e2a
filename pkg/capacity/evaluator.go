package capacity

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sitegrid/sitegrid/pkg/daterange"
	"github.com/sitegrid/sitegrid/pkg/model"
)

var (
	ErrCellNotFound   = errors.New("grid cell not found")
	ErrInvalidWindow  = errors.New("invalid allocation window")
	ErrInvalidWorkers = errors.New("worker count must be > 0")
	ErrNegativeLimit  = errors.New("capacity must be >= 0")
)

const (
	ReasonCellNotFound  = "Grid cell not found"
	ReasonTotalExceeded = "Total capacity exceeded"
	ReasonTradeExceeded = "Trade capacity exceeded"

	warningPrefix = "Warning: "
)

type Outcome string

const (
	Allowed            Outcome = "allowed"
	AllowedWithWarning Outcome = "allowed_with_warning"
	Rejected           Outcome = "rejected"
)

type Violation string

const (
	ViolationNone  Violation = ""
	ViolationCell  Violation = "cell_not_found"
	ViolationTotal Violation = "total_capacity"
	ViolationTrade Violation = "trade_capacity"
)

// Request is a candidate allocation of Workers workers of one trade over an
// inclusive window.
type Request struct {
	TradeID uuid.UUID
	Window  daterange.Range
	Workers int
}

// NewRequest applies the defaults for an absent end date (single day) and an
// absent head count (one worker).
func NewRequest(tradeID uuid.UUID, window daterange.Range, workers *int) Request {
	n := 1
	if workers != nil {
		n = *workers
	}
	return Request{TradeID: tradeID, Window: window, Workers: n}
}

func (r Request) Validate() error {
	if err := r.Window.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	if r.Workers <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, r.Workers)
	}
	return nil
}

// Decision is the verdict for one candidate allocation. Assigned counts are
// the loads already present in the window, before the candidate is added.
type Decision struct {
	Outcome       Outcome   `json:"outcome"`
	Reason        string    `json:"reason,omitempty"`
	Violation     Violation `json:"violation,omitempty"`
	TotalAssigned int       `json:"total_assigned"`
	TradeAssigned int       `json:"trade_assigned"`
	TotalCapacity int       `json:"total_capacity"`
	TradeCapacity *int      `json:"trade_capacity,omitempty"`
}

func (d Decision) Permitted() bool {
	return d.Outcome != Rejected
}

// Overlaps reports whether an existing allocation shares a day with window.
func Overlaps(a *model.Allocation, window daterange.Range) bool {
	start := daterange.Day(a.Start())
	end := daterange.Day(a.End())
	return !start.After(window.End) && !end.Before(window.Start)
}

// Load sums worker counts over the allocations of cellID that overlap window,
// across all trades and for tradeID alone.
func Load(cellID, tradeID uuid.UUID, window daterange.Range, existing []model.Allocation) (total, trade int) {
	for i := range existing {
		a := &existing[i]
		if a.GridCellID != cellID || !Overlaps(a, window) {
			continue
		}
		total += a.Workers()
		if a.TradeID == tradeID {
			trade += a.Workers()
		}
	}
	return total, trade
}

// Evaluate judges req against cell, the allocations already present and the
// optional per-trade limit. It performs no I/O and never mutates its inputs,
// so callers can run it inside their own transaction or lock.
func Evaluate(cell *model.GridCell, req Request, existing []model.Allocation, tradeCap *model.TradeCapacity, policy Policy) (Decision, error) {
	if cell == nil {
		return Decision{Outcome: Rejected, Reason: ReasonCellNotFound, Violation: ViolationCell}, ErrCellNotFound
	}
	if err := req.Validate(); err != nil {
		return Decision{}, err
	}

	total, trade := Load(cell.ID, req.TradeID, req.Window, existing)
	decision := Decision{
		Outcome:       Allowed,
		TotalAssigned: total,
		TradeAssigned: trade,
		TotalCapacity: cell.TotalCapacity,
	}
	if tradeCap != nil {
		limit := tradeCap.MaxWorkers
		decision.TradeCapacity = &limit
	}

	switch {
	case total+req.Workers > cell.TotalCapacity:
		return policy.apply(decision, ViolationTotal, ReasonTotalExceeded), nil
	case tradeCap != nil && trade+req.Workers > tradeCap.MaxWorkers:
		return policy.apply(decision, ViolationTrade, ReasonTradeExceeded), nil
	}
	return decision, nil
}
