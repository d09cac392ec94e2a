package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/capacity"
	"github.com/sitegrid/sitegrid/pkg/eventbus"
	"github.com/sitegrid/sitegrid/pkg/geometry"
	"github.com/sitegrid/sitegrid/pkg/grid"
	"github.com/sitegrid/sitegrid/pkg/meshload"
	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/store"
	"github.com/sitegrid/sitegrid/pkg/store/memory"
)

type recordingBus struct {
	mu     sync.Mutex
	events map[string][]eventbus.Event
}

func (b *recordingBus) Publish(_ context.Context, channel string, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.events == nil {
		b.events = map[string][]eventbus.Event{}
	}
	b.events[channel] = append(b.events[channel], event)
	return nil
}

type fixture struct {
	store   *memory.Store
	planner *Planner
	bus     *recordingBus
	model   *model.SiteModel
	trade   *model.Trade
}

func newFixture(t *testing.T, policy capacity.Policy) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.NewStore()

	p := &model.Project{Name: "North Wing"}
	require.NoError(t, s.CreateProject(ctx, p))
	m := &model.SiteModel{ProjectID: p.ID, Name: "Level 1"}
	m.SetBounds(geometry.BoundingBox{MaxX: 10, MaxY: 10, MaxZ: 10})
	require.NoError(t, s.CreateModel(ctx, m))
	tr := &model.Trade{Name: "Electrical"}
	require.NoError(t, s.CreateTrade(ctx, tr))

	bus := &recordingBus{}
	return &fixture{
		store:   s,
		planner: New(s, zap.NewNop(), Options{Policy: policy, DefaultCapacity: 5, MaxCells: 1000, Bus: bus}),
		bus:     bus,
		model:   m,
		trade:   tr,
	}
}

func (f *fixture) generate(t *testing.T, sx, sy, sz int) []model.GridCell {
	t.Helper()
	res, err := f.planner.GenerateGrid(context.Background(), GridRequest{
		ModelID: f.model.ID, SectionsX: sx, SectionsY: sy, SectionsZ: sz,
	})
	require.NoError(t, err)
	return res.Cells
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func intPtr(v int) *int { return &v }

func TestGenerateGridReplacesCells(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	ctx := context.Background()

	first, err := f.planner.GenerateGrid(ctx, GridRequest{ModelID: f.model.ID, SectionsX: 2, SectionsY: 2, SectionsZ: 2})
	require.NoError(t, err)
	assert.Len(t, first.Cells, 8)
	assert.Zero(t, first.Removed)
	assert.False(t, first.ShapeAware)
	assert.Equal(t, 5, first.Cells[0].TotalCapacity)
	assert.Len(t, first.Cells[0].Footprint, 8)

	second, err := f.planner.GenerateGrid(ctx, GridRequest{
		ModelID: f.model.ID, SectionsX: 1, SectionsY: 1, SectionsZ: 1, DefaultCapacity: intPtr(7),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), second.Removed)

	cells, err := f.store.ListCells(ctx, f.model.ID)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, 7, cells[0].TotalCapacity)
	assert.Equal(t, geometry.BoundingBox{MaxX: 10, MaxY: 10, MaxZ: 10}, cells[0].Bounds())

	pending, err := f.store.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, model.EventGridGenerated, pending[1].EventType)
	assert.Len(t, f.bus.events[eventbus.ChannelGrid], 2)
}

func TestGenerateGridRejectsBadInput(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	ctx := context.Background()

	_, err := f.planner.GenerateGrid(ctx, GridRequest{ModelID: f.model.ID, SectionsX: 0, SectionsY: 1, SectionsZ: 1})
	assert.ErrorIs(t, err, grid.ErrInvalidSections)

	_, err = f.planner.GenerateGrid(ctx, GridRequest{ModelID: f.model.ID, SectionsX: 100, SectionsY: 100, SectionsZ: 1})
	assert.ErrorIs(t, err, grid.ErrTooManyCells)

	_, err = f.planner.GenerateGrid(ctx, GridRequest{ModelID: f.model.ID, SectionsX: 1, SectionsY: 1, SectionsZ: 1, DefaultCapacity: intPtr(-1)})
	assert.ErrorIs(t, err, capacity.ErrNegativeLimit)

	_, err = f.planner.GenerateGrid(ctx, GridRequest{ModelID: uuid.New(), SectionsX: 1, SectionsY: 1, SectionsZ: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGenerateGridConfiguredZeroCapacity(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	f.planner = New(f.store, zap.NewNop(), Options{DefaultCapacity: 0})

	res, err := f.planner.GenerateGrid(context.Background(), GridRequest{
		ModelID: f.model.ID, SectionsX: 1, SectionsY: 1, SectionsZ: 2,
	})
	require.NoError(t, err)
	require.Len(t, res.Cells, 2)
	for _, c := range res.Cells {
		assert.Equal(t, 0, c.TotalCapacity)
	}

	f.planner = New(f.store, zap.NewNop(), Options{DefaultCapacity: -3})
	res, err = f.planner.GenerateGrid(context.Background(), GridRequest{
		ModelID: f.model.ID, SectionsX: 1, SectionsY: 1, SectionsZ: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultCellCapacity, res.Cells[0].TotalCapacity)
}

func TestGenerateGridShapeAware(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	f.model.ModelFilePath = "hall.obj"
	f.model.Format = meshload.FormatOBJ
	require.NoError(t, f.store.DeleteModel(context.Background(), f.model.ID))
	f.model.ID = uuid.Nil
	require.NoError(t, f.store.CreateModel(context.Background(), f.model))

	f.planner.loadGeometry = func(path, format string) (meshload.Geometry, error) {
		assert.Equal(t, "hall.obj", path)
		return meshload.Geometry{Vertices: []geometry.Vertex{{X: 1, Y: 1, Z: 1}, {X: 2, Y: 3, Z: 1}}}, nil
	}
	res, err := f.planner.GenerateGrid(context.Background(), GridRequest{
		ModelID: f.model.ID, SectionsX: 2, SectionsY: 2, SectionsZ: 2, ShapeAware: true,
	})
	require.NoError(t, err)
	assert.True(t, res.ShapeAware)
	require.Len(t, res.Cells, 1)
	assert.Equal(t, [3]int{0, 0, 0}, [3]int{res.Cells[0].XIndex, res.Cells[0].YIndex, res.Cells[0].ZIndex})
}

func TestGenerateGridFallsBackOnParseError(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	f.model.ModelFilePath = "broken.stl"
	require.NoError(t, f.store.DeleteModel(context.Background(), f.model.ID))
	f.model.ID = uuid.Nil
	require.NoError(t, f.store.CreateModel(context.Background(), f.model))

	f.planner.loadGeometry = func(path, format string) (meshload.Geometry, error) {
		return meshload.Geometry{}, &meshload.ParseError{Path: path, Format: "stl", Err: errors.New("truncated")}
	}
	res, err := f.planner.GenerateGrid(context.Background(), GridRequest{
		ModelID: f.model.ID, SectionsX: 2, SectionsY: 2, SectionsZ: 2, ShapeAware: true,
	})
	require.NoError(t, err)
	assert.False(t, res.ShapeAware)
	assert.Len(t, res.Cells, 8)
}

func TestAllocateHardCap(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	ctx := context.Background()
	cell := f.generate(t, 1, 1, 1)[0]

	res, err := f.planner.Allocate(ctx, AllocationRequest{
		GridCellID: cell.ID, TradeID: f.trade.ID, WorkDate: day(t, "2025-03-01"), NumWorkers: intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, capacity.Allowed, res.Decision.Outcome)
	require.NotNil(t, res.Allocation)
	assert.Equal(t, 3, res.Allocation.Workers())

	res, err = f.planner.Allocate(ctx, AllocationRequest{
		GridCellID: cell.ID, TradeID: f.trade.ID, WorkDate: day(t, "2025-03-01"), NumWorkers: intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, capacity.Rejected, res.Decision.Outcome)
	assert.Equal(t, capacity.ViolationTotal, res.Decision.Violation)
	assert.Equal(t, 3, res.Decision.TotalAssigned)
	assert.Nil(t, res.Allocation)

	allocs, err := f.store.ListAllocationsOn(ctx, day(t, "2025-03-01"))
	require.NoError(t, err)
	assert.Len(t, allocs, 1)

	// the first allocation has no end date, so the next day is free
	res, err = f.planner.Allocate(ctx, AllocationRequest{
		GridCellID: cell.ID, TradeID: f.trade.ID, WorkDate: day(t, "2025-03-02"), NumWorkers: intPtr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, capacity.Allowed, res.Decision.Outcome)
}

func TestAllocateTradeLimit(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	ctx := context.Background()
	cell := f.generate(t, 1, 1, 1)[0]
	require.NoError(t, f.store.UpsertTradeCapacity(ctx, &model.TradeCapacity{
		GridCellID: cell.ID, TradeID: f.trade.ID, MaxWorkers: 2,
	}))

	res, err := f.planner.Allocate(ctx, AllocationRequest{
		GridCellID: cell.ID, TradeID: f.trade.ID, WorkDate: day(t, "2025-03-01"), NumWorkers: intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, capacity.Rejected, res.Decision.Outcome)
	assert.Equal(t, capacity.ViolationTrade, res.Decision.Violation)
	require.NotNil(t, res.Decision.TradeCapacity)
	assert.Equal(t, 2, *res.Decision.TradeCapacity)
}

func TestAllocateAdvisoryStoresWithWarning(t *testing.T) {
	f := newFixture(t, capacity.PolicyAdvisory)
	ctx := context.Background()
	cell := f.generate(t, 1, 1, 1)[0]

	res, err := f.planner.Allocate(ctx, AllocationRequest{
		GridCellID: cell.ID, TradeID: f.trade.ID, WorkDate: day(t, "2025-03-01"), NumWorkers: intPtr(9),
	})
	require.NoError(t, err)
	assert.Equal(t, capacity.AllowedWithWarning, res.Decision.Outcome)
	assert.Equal(t, "Warning: Total capacity exceeded", res.Decision.Reason)
	require.NotNil(t, res.Allocation)

	pending, err := f.store.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, model.EventAllocationCreated, pending[len(pending)-1].EventType)
	assert.Len(t, f.bus.events[eventbus.ChannelAllocation], 1)
}

func TestAllocateUnknownCellOrTrade(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	ctx := context.Background()
	cell := f.generate(t, 1, 1, 1)[0]

	res, err := f.planner.Allocate(ctx, AllocationRequest{
		GridCellID: uuid.New(), TradeID: f.trade.ID, WorkDate: day(t, "2025-03-01"),
	})
	assert.ErrorIs(t, err, capacity.ErrCellNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NotNil(t, res)
	assert.Equal(t, capacity.Rejected, res.Decision.Outcome)
	assert.Equal(t, capacity.ReasonCellNotFound, res.Decision.Reason)

	_, err = f.planner.Allocate(ctx, AllocationRequest{
		GridCellID: cell.ID, TradeID: uuid.New(), WorkDate: day(t, "2025-03-01"),
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NotErrorIs(t, err, capacity.ErrCellNotFound)
}

func TestAllocateValidatesInput(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	cell := f.generate(t, 1, 1, 1)[0]
	end := day(t, "2025-02-01")

	_, err := f.planner.Allocate(context.Background(), AllocationRequest{
		GridCellID: cell.ID, TradeID: f.trade.ID, WorkDate: day(t, "2025-03-01"), EndDate: &end,
	})
	assert.ErrorIs(t, err, capacity.ErrInvalidWindow)

	_, err = f.planner.Allocate(context.Background(), AllocationRequest{
		GridCellID: cell.ID, TradeID: f.trade.ID, WorkDate: day(t, "2025-03-01"), NumWorkers: intPtr(0),
	})
	assert.ErrorIs(t, err, capacity.ErrInvalidWorkers)
}

func TestCheckDoesNotStore(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	ctx := context.Background()
	cell := f.generate(t, 1, 1, 1)[0]

	res, err := f.planner.Check(ctx, AllocationRequest{
		GridCellID: cell.ID, TradeID: f.trade.ID, WorkDate: day(t, "2025-03-01"), NumWorkers: intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, capacity.Allowed, res.Decision.Outcome)
	assert.Nil(t, res.Allocation)

	allocs, err := f.store.ListAllocationsOn(ctx, day(t, "2025-03-01"))
	require.NoError(t, err)
	assert.Empty(t, allocs)
}

func TestConcurrentAllocationsRespectCapacity(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	ctx := context.Background()
	cell := f.generate(t, 1, 1, 1)[0]

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.planner.Allocate(ctx, AllocationRequest{
				GridCellID: cell.ID, TradeID: f.trade.ID, WorkDate: day(t, "2025-03-01"),
			})
			if err != nil || res.Allocation == nil {
				return
			}
			mu.Lock()
			allowed++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, allowed)
	allocs, err := f.store.ListAllocationsOn(ctx, day(t, "2025-03-01"))
	require.NoError(t, err)
	assert.Len(t, allocs, 5)
}

func TestDeleteAllocation(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	ctx := context.Background()
	cell := f.generate(t, 1, 1, 1)[0]

	res, err := f.planner.Allocate(ctx, AllocationRequest{
		GridCellID: cell.ID, TradeID: f.trade.ID, WorkDate: day(t, "2025-03-01"),
	})
	require.NoError(t, err)

	require.NoError(t, f.planner.DeleteAllocation(ctx, res.Allocation.ID))
	assert.ErrorIs(t, f.planner.DeleteAllocation(ctx, res.Allocation.ID), store.ErrNotFound)

	pending, err := f.store.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, model.EventAllocationDeleted, pending[len(pending)-1].EventType)
}

func TestUsage(t *testing.T) {
	f := newFixture(t, capacity.PolicyHardCap)
	ctx := context.Background()
	cells := f.generate(t, 2, 1, 2)

	_, err := f.planner.Allocate(ctx, AllocationRequest{
		GridCellID: cells[0].ID, TradeID: f.trade.ID, WorkDate: day(t, "2025-03-01"), NumWorkers: intPtr(4),
	})
	require.NoError(t, err)

	usage, err := f.planner.Usage(ctx, f.model.ID, day(t, "2025-03-01"))
	require.NoError(t, err)
	require.Len(t, usage, 2)
	assert.Equal(t, 0, usage[0].XIndex)
	assert.Equal(t, 10, usage[0].Capacity)
	assert.Equal(t, 4, usage[0].Assigned)
	assert.InDelta(t, 0.4, usage[0].Ratio, 1e-9)
	assert.Zero(t, usage[1].Assigned)

	_, err = f.planner.Usage(ctx, uuid.New(), day(t, "2025-03-01"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}
