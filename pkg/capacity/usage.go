package capacity

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sitegrid/sitegrid/pkg/daterange"
	"github.com/sitegrid/sitegrid/pkg/model"
)

// CellUsage is the load of one cell on one day.
type CellUsage struct {
	CellID   uuid.UUID `json:"cell_id"`
	XIndex   int       `json:"x_index"`
	YIndex   int       `json:"y_index"`
	ZIndex   int       `json:"z_index"`
	Capacity int       `json:"capacity"`
	Assigned int       `json:"assigned"`
	Ratio    float64   `json:"ratio"`
}

// ColumnUsage aggregates every cell stacked on one (x, y) footprint.
type ColumnUsage struct {
	XIndex   int     `json:"x"`
	YIndex   int     `json:"y"`
	Capacity int     `json:"capacity"`
	Assigned int     `json:"assigned"`
	Ratio    float64 `json:"usage"`
}

func ratio(assigned, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(assigned) / float64(capacity)
}

// CellLoad returns the per-cell load on day, in the order of cells.
func CellLoad(cells []model.GridCell, allocations []model.Allocation, day time.Time) []CellUsage {
	window := daterange.Single(day)
	assigned := make(map[uuid.UUID]int, len(cells))
	for i := range allocations {
		a := &allocations[i]
		if Overlaps(a, window) {
			assigned[a.GridCellID] += a.Workers()
		}
	}

	out := make([]CellUsage, 0, len(cells))
	for _, c := range cells {
		n := assigned[c.ID]
		out = append(out, CellUsage{
			CellID:   c.ID,
			XIndex:   c.XIndex,
			YIndex:   c.YIndex,
			ZIndex:   c.ZIndex,
			Capacity: c.TotalCapacity,
			Assigned: n,
			Ratio:    ratio(n, c.TotalCapacity),
		})
	}
	return out
}

// UsageByXY collapses the z axis: capacity and load of all cells sharing an
// (x, y) index are summed. Allocations on cells not in cells are ignored.
func UsageByXY(cells []model.GridCell, allocations []model.Allocation, day time.Time) []ColumnUsage {
	type key struct{ x, y int }
	columns := make(map[key]*ColumnUsage)
	for _, u := range CellLoad(cells, allocations, day) {
		k := key{u.XIndex, u.YIndex}
		col, ok := columns[k]
		if !ok {
			col = &ColumnUsage{XIndex: u.XIndex, YIndex: u.YIndex}
			columns[k] = col
		}
		col.Capacity += u.Capacity
		col.Assigned += u.Assigned
	}

	out := make([]ColumnUsage, 0, len(columns))
	for _, col := range columns {
		col.Ratio = ratio(col.Assigned, col.Capacity)
		out = append(out, *col)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].XIndex != out[j].XIndex {
			return out[i].XIndex < out[j].XIndex
		}
		return out[i].YIndex < out[j].YIndex
	})
	return out
}
