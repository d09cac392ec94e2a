package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitegrid/sitegrid/pkg/daterange"
	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/store"
)

// tx starts with the live tables and copies each one before its first
// write. The store's write lock is held for its whole life, which is what
// serialises allocations per cell.
type tx struct {
	state  *state
	now    func() time.Time
	copied struct{ cells, capacities, allocations bool }
}

func (t *tx) ownCells() {
	if !t.copied.cells {
		t.state.cells = cloneMap(t.state.cells)
		t.copied.cells = true
	}
}

func (t *tx) ownCapacities() {
	if !t.copied.capacities {
		t.state.capacities = cloneMap(t.state.capacities)
		t.copied.capacities = true
	}
}

func (t *tx) ownAllocations() {
	if !t.copied.allocations {
		t.state.allocations = cloneMap(t.state.allocations)
		t.copied.allocations = true
	}
}

func (t *tx) LockCell(id uuid.UUID) (*model.GridCell, error) {
	c, ok := t.state.cells[id]
	if !ok {
		return nil, notFound("grid cell", id)
	}
	return &c, nil
}

func (t *tx) TradeExists(id uuid.UUID) (bool, error) {
	_, ok := t.state.trades[id]
	return ok, nil
}

func (t *tx) OverlappingAllocations(cellID uuid.UUID, window daterange.Range) ([]model.Allocation, error) {
	out := make([]model.Allocation, 0)
	for _, a := range t.state.allocations {
		if a.GridCellID == cellID && activeOn(a, window) {
			out = append(out, a)
		}
	}
	sortAllocations(out)
	return out, nil
}

func (t *tx) TradeCapacity(cellID, tradeID uuid.UUID) (*model.TradeCapacity, error) {
	for _, tc := range t.state.capacities {
		if tc.GridCellID == cellID && tc.TradeID == tradeID {
			return &tc, nil
		}
	}
	return nil, nil
}

func (t *tx) CreateAllocation(a *model.Allocation) error {
	if _, ok := t.state.cells[a.GridCellID]; !ok {
		return notFound("grid cell", a.GridCellID)
	}
	if _, ok := t.state.trades[a.TradeID]; !ok {
		return notFound("trade", a.TradeID)
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = t.now()
	stored := *a
	stored.Trade = nil
	t.ownAllocations()
	t.state.allocations[a.ID] = stored
	return nil
}

func (t *tx) DeleteAllocation(id uuid.UUID) (*model.Allocation, error) {
	a, ok := t.state.allocations[id]
	if !ok {
		return nil, notFound("allocation", id)
	}
	t.ownAllocations()
	delete(t.state.allocations, id)
	return &a, nil
}

func (t *tx) DeleteCells(modelID uuid.UUID) (int64, error) {
	t.ownCells()
	t.ownCapacities()
	t.ownAllocations()
	return t.state.deleteCells(modelID), nil
}

func (t *tx) CreateCells(cells []model.GridCell) error {
	type lattice struct {
		model   uuid.UUID
		x, y, z int
	}
	taken := make(map[lattice]bool, len(t.state.cells)+len(cells))
	for _, c := range t.state.cells {
		taken[lattice{c.ModelID, c.XIndex, c.YIndex, c.ZIndex}] = true
	}
	now := t.now()
	for i := range cells {
		c := &cells[i]
		if _, ok := t.state.models[c.ModelID]; !ok {
			return notFound("model", c.ModelID)
		}
		k := lattice{c.ModelID, c.XIndex, c.YIndex, c.ZIndex}
		if taken[k] {
			return fmt.Errorf("cell (%d,%d,%d) of model %s: %w", c.XIndex, c.YIndex, c.ZIndex, c.ModelID, store.ErrConflict)
		}
		taken[k] = true
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.CreatedAt = now
		stored := *c
		stored.TradeCapacities, stored.Allocations = nil, nil
		t.ownCells()
		t.state.cells[c.ID] = stored
	}
	return nil
}

func (t *tx) AppendEvent(e *model.SiteEvent) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	if e.Status == "" {
		e.Status = model.OutboxStatusPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t.now()
	}
	// Appending past the live length is invisible to readers until commit.
	t.state.events = append(t.state.events, *e)
	return nil
}
