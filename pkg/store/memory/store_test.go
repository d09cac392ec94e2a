package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitegrid/sitegrid/pkg/daterange"
	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/store"
)

type seeded struct {
	store *Store
	model *model.SiteModel
	cell  model.GridCell
	trade *model.Trade
}

func seed(t *testing.T) *seeded {
	t.Helper()
	ctx := context.Background()
	s := NewStore()

	p := &model.Project{Name: "Tower A"}
	require.NoError(t, s.CreateProject(ctx, p))
	m := &model.SiteModel{ProjectID: p.ID, Name: "Level 1"}
	require.NoError(t, s.CreateModel(ctx, m))
	tr := &model.Trade{Name: "Electrical"}
	require.NoError(t, s.CreateTrade(ctx, tr))

	cells := []model.GridCell{
		{ModelID: m.ID, XIndex: 1, TotalCapacity: 5},
		{ModelID: m.ID, XIndex: 0, TotalCapacity: 5},
	}
	require.NoError(t, s.Transaction(ctx, func(tx store.Tx) error {
		return tx.CreateCells(cells)
	}))
	listed, err := s.ListCells(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, 0, listed[0].XIndex)

	return &seeded{store: s, model: m, cell: listed[0], trade: tr}
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := daterange.ParseDay(s)
	require.NoError(t, err)
	return d
}

func TestDuplicateTradeConflicts(t *testing.T) {
	f := seed(t)
	err := f.store.CreateTrade(context.Background(), &model.Trade{Name: "Electrical"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestUpsertTradeCapacityNeverDuplicates(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	first := &model.TradeCapacity{GridCellID: f.cell.ID, TradeID: f.trade.ID, MaxWorkers: 2}
	require.NoError(t, f.store.UpsertTradeCapacity(ctx, first))
	second := &model.TradeCapacity{GridCellID: f.cell.ID, TradeID: f.trade.ID, MaxWorkers: 4}
	require.NoError(t, f.store.UpsertTradeCapacity(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	caps, err := f.store.ListTradeCapacities(ctx, f.cell.ID)
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Equal(t, 4, caps[0].MaxWorkers)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.store.Transaction(ctx, func(tx store.Tx) error {
		n, err := tx.DeleteCells(f.model.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	cells, err := f.store.ListCells(ctx, f.model.ID)
	require.NoError(t, err)
	assert.Len(t, cells, 2)
}

func TestTransactionCommitsOnlyOnSuccess(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	require.NoError(t, f.store.UpsertTradeCapacity(ctx, &model.TradeCapacity{GridCellID: f.cell.ID, TradeID: f.trade.ID, MaxWorkers: 2}))

	write := func(tx store.Tx) error {
		if err := tx.CreateAllocation(&model.Allocation{
			GridCellID: f.cell.ID,
			TradeID:    f.trade.ID,
			WorkDate:   model.Date(day(t, "2025-03-01")),
		}); err != nil {
			return err
		}
		return tx.AppendEvent(&model.SiteEvent{EventType: "allocation.created", Payload: model.JSONB{}})
	}

	err := f.store.Transaction(ctx, func(tx store.Tx) error {
		require.NoError(t, write(tx))
		return errors.New("abort")
	})
	require.Error(t, err)
	allocs, err := f.store.ListAllocationsOn(ctx, day(t, "2025-03-01"))
	require.NoError(t, err)
	assert.Empty(t, allocs)
	pending, err := f.store.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, f.store.Transaction(ctx, write))
	allocs, err = f.store.ListAllocationsOn(ctx, day(t, "2025-03-01"))
	require.NoError(t, err)
	assert.Len(t, allocs, 1)
	pending, err = f.store.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	caps, err := f.store.ListTradeCapacities(ctx, f.cell.ID)
	require.NoError(t, err)
	assert.Len(t, caps, 1)
}

func TestOverlappingAllocationsSingleDayDefault(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	workers := 3

	require.NoError(t, f.store.Transaction(ctx, func(tx store.Tx) error {
		return tx.CreateAllocation(&model.Allocation{
			GridCellID: f.cell.ID,
			TradeID:    f.trade.ID,
			WorkDate:   model.Date(day(t, "2025-01-01")),
			NumWorkers: &workers,
		})
	}))

	require.NoError(t, f.store.Transaction(ctx, func(tx store.Tx) error {
		same, err := tx.OverlappingAllocations(f.cell.ID, daterange.Single(day(t, "2025-01-01")))
		require.NoError(t, err)
		assert.Len(t, same, 1)

		next, err := tx.OverlappingAllocations(f.cell.ID, daterange.Single(day(t, "2025-01-02")))
		require.NoError(t, err)
		assert.Empty(t, next)
		return nil
	}))

	onDay, err := f.store.ListAllocationsOn(ctx, day(t, "2025-01-01"))
	require.NoError(t, err)
	assert.Len(t, onDay, 1)
	inModel, err := f.store.ListModelAllocationsOn(ctx, f.model.ID, day(t, "2025-01-01"))
	require.NoError(t, err)
	assert.Len(t, inModel, 1)
}

func TestDeleteModelCascades(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	require.NoError(t, f.store.UpsertTradeCapacity(ctx, &model.TradeCapacity{GridCellID: f.cell.ID, TradeID: f.trade.ID, MaxWorkers: 1}))
	require.NoError(t, f.store.Transaction(ctx, func(tx store.Tx) error {
		return tx.CreateAllocation(&model.Allocation{GridCellID: f.cell.ID, TradeID: f.trade.ID, WorkDate: model.Date(day(t, "2025-03-01"))})
	}))

	require.NoError(t, f.store.DeleteModel(ctx, f.model.ID))

	_, err := f.store.GetCell(ctx, f.cell.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	allocs, err := f.store.ListAllocationsOn(ctx, day(t, "2025-03-01"))
	require.NoError(t, err)
	assert.Empty(t, allocs)
	assert.Empty(t, f.store.state.capacities)
}

func TestCreateCellsRejectsDuplicateLattice(t *testing.T) {
	f := seed(t)
	err := f.store.Transaction(context.Background(), func(tx store.Tx) error {
		return tx.CreateCells([]model.GridCell{{ModelID: f.model.ID, XIndex: 0}})
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestOutboxLifecycle(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	require.NoError(t, f.store.Transaction(ctx, func(tx store.Tx) error {
		if err := tx.AppendEvent(model.NewSiteEvent(model.EventGridGenerated, model.JSONB{"cells": 2})); err != nil {
			return err
		}
		return tx.AppendEvent(model.NewSiteEvent(model.EventAllocationCreated, model.JSONB{}))
	}))

	pending, err := f.store.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, model.EventGridGenerated, pending[0].EventType)

	require.NoError(t, f.store.MarkPublished(ctx, pending[0].EventID, time.Now()))
	require.NoError(t, f.store.MarkFailed(ctx, pending[1].EventID))

	pending, err = f.store.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.ErrorIs(t, f.store.MarkFailed(ctx, uuid.New()), store.ErrNotFound)
}
