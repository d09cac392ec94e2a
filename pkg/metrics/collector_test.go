package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/store"
	"github.com/sitegrid/sitegrid/pkg/store/memory"
)

func TestUtilizationCollector(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	p := &model.Project{Name: "Depot"}
	require.NoError(t, s.CreateProject(ctx, p))
	m := &model.SiteModel{ProjectID: p.ID, Name: "Hall"}
	require.NoError(t, s.CreateModel(ctx, m))
	tr := &model.Trade{Name: "Carpentry"}
	require.NoError(t, s.CreateTrade(ctx, tr))

	cells := []model.GridCell{
		{ModelID: m.ID, XIndex: 0, TotalCapacity: 2},
		{ModelID: m.ID, XIndex: 1, TotalCapacity: 2},
	}
	today := time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)
	three := 3
	require.NoError(t, s.Transaction(ctx, func(tx store.Tx) error {
		if err := tx.CreateCells(cells); err != nil {
			return err
		}
		return tx.CreateAllocation(&model.Allocation{
			GridCellID: cells[0].ID,
			TradeID:    tr.ID,
			WorkDate:   model.Date(today),
			NumWorkers: &three,
		})
	}))

	reg := prometheus.NewRegistry()
	c := NewUtilizationCollector(s, zap.NewNop(), time.Minute, reg)
	c.now = func() time.Time { return today.Add(9 * time.Hour) }

	require.NoError(t, c.Collect(ctx))

	id := m.ID.String()
	assert.InDelta(t, 0.75, testutil.ToFloat64(c.utilization.WithLabelValues(id)), 1e-9)
	assert.Equal(t, 3.0, testutil.ToFloat64(c.assignedWorkers.WithLabelValues(id)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.overCapacity.WithLabelValues(id)))
}
