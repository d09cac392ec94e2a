package capacity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitegrid/sitegrid/pkg/model"
)

func TestUsageByXY(t *testing.T) {
	low := model.GridCell{ID: uuid.New(), XIndex: 0, YIndex: 0, ZIndex: 0, TotalCapacity: 4}
	high := model.GridCell{ID: uuid.New(), XIndex: 0, YIndex: 0, ZIndex: 1, TotalCapacity: 6}
	side := model.GridCell{ID: uuid.New(), XIndex: 1, YIndex: 0, ZIndex: 0, TotalCapacity: 0}
	cells := []model.GridCell{side, low, high}

	day := mustDay(t, "2025-02-01")
	allocs := []model.Allocation{
		{GridCellID: low.ID, WorkDate: model.Date(day), NumWorkers: intPtr(3)},
		{GridCellID: high.ID, WorkDate: model.Date(day)},
		{GridCellID: high.ID, WorkDate: model.Date(mustDay(t, "2025-02-02")), NumWorkers: intPtr(5)},
		{GridCellID: uuid.New(), WorkDate: model.Date(day), NumWorkers: intPtr(50)},
	}

	usage := UsageByXY(cells, allocs, day)
	require.Len(t, usage, 2)

	assert.Equal(t, ColumnUsage{XIndex: 0, YIndex: 0, Capacity: 10, Assigned: 4, Ratio: 0.4}, usage[0])
	assert.Equal(t, ColumnUsage{XIndex: 1, YIndex: 0, Capacity: 0, Assigned: 0, Ratio: 0}, usage[1])
}

func TestCellLoadKeepsCellOrder(t *testing.T) {
	a := model.GridCell{ID: uuid.New(), TotalCapacity: 2}
	b := model.GridCell{ID: uuid.New(), XIndex: 1, TotalCapacity: 2}
	day := mustDay(t, "2025-02-01")

	load := CellLoad([]model.GridCell{b, a}, []model.Allocation{{GridCellID: a.ID, WorkDate: model.Date(day)}}, day)
	require.Len(t, load, 2)
	assert.Equal(t, b.ID, load[0].CellID)
	assert.Equal(t, 0, load[0].Assigned)
	assert.Equal(t, 1, load[1].Assigned)
	assert.InDelta(t, 0.5, load[1].Ratio, 1e-9)
}
