// Package planner coordinates the store, the grid generator and the capacity
// evaluator for the operations exposed over HTTP.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/capacity"
	"github.com/sitegrid/sitegrid/pkg/daterange"
	"github.com/sitegrid/sitegrid/pkg/eventbus"
	"github.com/sitegrid/sitegrid/pkg/geometry"
	"github.com/sitegrid/sitegrid/pkg/grid"
	"github.com/sitegrid/sitegrid/pkg/meshload"
	"github.com/sitegrid/sitegrid/pkg/metrics"
	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/store"
)

const (
	modeBoundingBox = "bounding_box"
	modeShapeAware  = "shape_aware"
)

// DefaultCellCapacity replaces a negative Options.DefaultCapacity. Zero is
// a valid configured capacity.
const DefaultCellCapacity = 10

type Options struct {
	Policy          capacity.Policy
	DefaultCapacity int
	MaxCells        int64
	// Bus receives live notifications after commit; nil disables them.
	Bus eventbus.Publisher
}

type Planner struct {
	store        store.SiteStore
	logger       *zap.Logger
	opts         Options
	loadGeometry func(path, format string) (meshload.Geometry, error)
}

func New(s store.SiteStore, logger *zap.Logger, opts Options) *Planner {
	if opts.Policy == "" {
		opts.Policy = capacity.PolicyHardCap
	}
	if opts.DefaultCapacity < 0 {
		opts.DefaultCapacity = DefaultCellCapacity
	}
	return &Planner{
		store:        s,
		logger:       logger,
		opts:         opts,
		loadGeometry: meshload.Load,
	}
}

func (p *Planner) Policy() capacity.Policy {
	return p.opts.Policy
}

type GridRequest struct {
	ModelID         uuid.UUID
	SectionsX       int
	SectionsY       int
	SectionsZ       int
	DefaultCapacity *int
	ShapeAware      bool
}

type GridResult struct {
	Cells      []model.GridCell
	Removed    int64
	ShapeAware bool
}

// GenerateGrid replaces the model's grid. The old cells, their trade limits
// and allocations are removed in the same transaction that inserts the new
// ones.
func (p *Planner) GenerateGrid(ctx context.Context, req GridRequest) (*GridResult, error) {
	if err := grid.ValidateSections(req.SectionsX, req.SectionsY, req.SectionsZ); err != nil {
		return nil, err
	}
	if p.opts.MaxCells > 0 {
		if n := grid.CellCount(req.SectionsX, req.SectionsY, req.SectionsZ); n > p.opts.MaxCells {
			return nil, fmt.Errorf("%w: %d cells requested, limit %d", grid.ErrTooManyCells, n, p.opts.MaxCells)
		}
	}
	defaultCapacity := p.opts.DefaultCapacity
	if req.DefaultCapacity != nil {
		if *req.DefaultCapacity < 0 {
			return nil, fmt.Errorf("%w: default capacity %d", capacity.ErrNegativeLimit, *req.DefaultCapacity)
		}
		defaultCapacity = *req.DefaultCapacity
	}

	m, err := p.store.GetModel(ctx, req.ModelID)
	if err != nil {
		return nil, err
	}

	var vertices []geometry.Vertex
	if req.ShapeAware {
		vertices = p.shapeVertices(m)
	}
	shapeAware := len(vertices) > 0
	mode := modeBoundingBox
	if shapeAware {
		mode = modeShapeAware
	}

	specs, err := grid.Generate(m.Bounds(), req.SectionsX, req.SectionsY, req.SectionsZ, defaultCapacity, vertices)
	if err != nil {
		metrics.GridGenerations.WithLabelValues(mode, "error").Inc()
		return nil, err
	}

	cells := make([]model.GridCell, len(specs))
	for i, spec := range specs {
		cells[i] = model.GridCell{
			ID:            uuid.New(),
			ModelID:       m.ID,
			XIndex:        spec.XIndex,
			YIndex:        spec.YIndex,
			ZIndex:        spec.ZIndex,
			Footprint:     pq.Float64Array(spec.Footprint.Coords()),
			TotalCapacity: spec.TotalCapacity,
		}
		cells[i].SetBounds(spec.Bounds)
	}

	var removed int64
	err = p.store.Transaction(ctx, func(tx store.Tx) error {
		n, err := tx.DeleteCells(m.ID)
		if err != nil {
			return err
		}
		removed = n
		if err := tx.CreateCells(cells); err != nil {
			return err
		}
		return tx.AppendEvent(model.NewSiteEvent(model.EventGridGenerated, model.JSONB{
			"model_id":   m.ID.String(),
			"cells":      len(cells),
			"removed":    removed,
			"sections":   []int{req.SectionsX, req.SectionsY, req.SectionsZ},
			"shape_mode": mode,
		}))
	})
	if err != nil {
		metrics.GridGenerations.WithLabelValues(mode, "error").Inc()
		return nil, fmt.Errorf("store grid for model %s: %w", m.ID, err)
	}

	metrics.GridGenerations.WithLabelValues(mode, "success").Inc()
	metrics.GridCellsGenerated.Observe(float64(len(cells)))
	p.logger.Info("grid generated",
		zap.String("model_id", m.ID.String()),
		zap.Int("cells", len(cells)),
		zap.Int64("removed", removed),
		zap.String("mode", mode),
	)

	p.publish(ctx, eventbus.ChannelGrid, model.EventGridGenerated, eventbus.GridEvent{
		ModelID:   m.ID.String(),
		Cells:     len(cells),
		Removed:   removed,
		Sections:  [3]int{req.SectionsX, req.SectionsY, req.SectionsZ},
		ShapeMode: mode,
	})

	return &GridResult{Cells: cells, Removed: removed, ShapeAware: shapeAware}, nil
}

// shapeVertices returns nil when the model has no file or the file cannot
// be decoded, which selects bounding-box generation.
func (p *Planner) shapeVertices(m *model.SiteModel) []geometry.Vertex {
	if m.ModelFilePath == "" {
		p.logger.Warn("shape-aware grid requested for model without file, using bounding box",
			zap.String("model_id", m.ID.String()))
		return nil
	}
	geo, err := p.loadGeometry(m.ModelFilePath, m.Format)
	if err != nil {
		p.logger.Warn("model geometry unreadable, using bounding box",
			zap.String("model_id", m.ID.String()),
			zap.String("path", m.ModelFilePath),
			zap.Error(err),
		)
		return nil
	}
	return geo.Vertices
}

type AllocationRequest struct {
	GridCellID  uuid.UUID
	TradeID     uuid.UUID
	WorkDate    time.Time
	EndDate     *time.Time
	NumWorkers  *int
	Description string
	CreatedBy   *uuid.UUID
}

func (r AllocationRequest) window() daterange.Range {
	return daterange.New(r.WorkDate, r.EndDate)
}

type AllocationResult struct {
	Decision capacity.Decision
	// Allocation is nil for rejected requests and dry runs.
	Allocation *model.Allocation
}

// Allocate evaluates req and stores it unless the decision is Rejected. The
// cell stays locked from the load query to the insert.
func (p *Planner) Allocate(ctx context.Context, req AllocationRequest) (*AllocationResult, error) {
	return p.evaluate(ctx, req, false)
}

// Check evaluates req without storing anything.
func (p *Planner) Check(ctx context.Context, req AllocationRequest) (*AllocationResult, error) {
	return p.evaluate(ctx, req, true)
}

func (p *Planner) evaluate(ctx context.Context, req AllocationRequest, dryRun bool) (*AllocationResult, error) {
	started := time.Now()
	defer func() {
		metrics.AllocationEvalDuration.Observe(time.Since(started).Seconds())
	}()

	creq := capacity.NewRequest(req.TradeID, req.window(), req.NumWorkers)
	if err := creq.Validate(); err != nil {
		return nil, err
	}

	result := &AllocationResult{}
	err := p.store.Transaction(ctx, func(tx store.Tx) error {
		cell, err := tx.LockCell(req.GridCellID)
		if errors.Is(err, store.ErrNotFound) {
			result.Decision, _ = capacity.Evaluate(nil, creq, nil, nil, p.opts.Policy)
			return fmt.Errorf("%w: %w", capacity.ErrCellNotFound, err)
		}
		if err != nil {
			return err
		}

		ok, err := tx.TradeExists(req.TradeID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("trade %s: %w", req.TradeID, store.ErrNotFound)
		}

		existing, err := tx.OverlappingAllocations(cell.ID, creq.Window)
		if err != nil {
			return err
		}
		tradeCap, err := tx.TradeCapacity(cell.ID, req.TradeID)
		if err != nil {
			return err
		}

		decision, err := capacity.Evaluate(cell, creq, existing, tradeCap, p.opts.Policy)
		if err != nil {
			return err
		}
		result.Decision = decision
		if dryRun || !decision.Permitted() {
			return nil
		}

		a := &model.Allocation{
			ID:          uuid.New(),
			GridCellID:  cell.ID,
			TradeID:     req.TradeID,
			WorkDate:    model.Date(creq.Window.Start),
			EndDate:     model.DatePtr(req.EndDate),
			NumWorkers:  req.NumWorkers,
			Description: req.Description,
			CreatedBy:   req.CreatedBy,
		}
		if err := tx.CreateAllocation(a); err != nil {
			return err
		}
		result.Allocation = a
		return tx.AppendEvent(model.NewSiteEvent(model.EventAllocationCreated, allocationPayload(a, decision.Outcome)))
	})

	p.recordDecision(result.Decision)
	if err != nil {
		return result, err
	}

	if result.Allocation != nil {
		p.logger.Info("allocation created",
			zap.String("allocation_id", result.Allocation.ID.String()),
			zap.String("gridcell_id", req.GridCellID.String()),
			zap.String("outcome", string(result.Decision.Outcome)),
		)
		p.publish(ctx, eventbus.ChannelAllocation, model.EventAllocationCreated, allocationEvent(result.Allocation, result.Decision.Outcome))
	}
	return result, nil
}

func (p *Planner) recordDecision(d capacity.Decision) {
	if d.Outcome == "" {
		return
	}
	violation := string(d.Violation)
	if violation == "" {
		violation = "none"
	}
	metrics.CapacityDecisions.WithLabelValues(string(d.Outcome), violation).Inc()
}

func (p *Planner) DeleteAllocation(ctx context.Context, id uuid.UUID) error {
	var deleted *model.Allocation
	err := p.store.Transaction(ctx, func(tx store.Tx) error {
		a, err := tx.DeleteAllocation(id)
		if err != nil {
			return err
		}
		deleted = a
		return tx.AppendEvent(model.NewSiteEvent(model.EventAllocationDeleted, allocationPayload(a, "")))
	})
	if err != nil {
		return err
	}
	p.publish(ctx, eventbus.ChannelAllocation, model.EventAllocationDeleted, allocationEvent(deleted, ""))
	return nil
}

// Usage aggregates the model's load on day per XY column.
func (p *Planner) Usage(ctx context.Context, modelID uuid.UUID, day time.Time) ([]capacity.ColumnUsage, error) {
	if _, err := p.store.GetModel(ctx, modelID); err != nil {
		return nil, err
	}
	cells, err := p.store.ListCells(ctx, modelID)
	if err != nil {
		return nil, err
	}
	allocations, err := p.store.ListModelAllocationsOn(ctx, modelID, day)
	if err != nil {
		return nil, err
	}
	return capacity.UsageByXY(cells, allocations, day), nil
}

func (p *Planner) publish(ctx context.Context, channel, eventType string, payload interface{}) {
	if p.opts.Bus == nil {
		return
	}
	event, err := eventbus.NewEvent(eventType, payload)
	if err != nil {
		p.logger.Warn("failed to encode live event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := p.opts.Bus.Publish(ctx, channel, event); err != nil {
		p.logger.Warn("failed to publish live event", zap.String("type", eventType), zap.Error(err))
	}
}

func allocationEvent(a *model.Allocation, outcome capacity.Outcome) eventbus.AllocationEvent {
	return eventbus.AllocationEvent{
		AllocationID: a.ID.String(),
		GridCellID:   a.GridCellID.String(),
		TradeID:      a.TradeID.String(),
		WorkDate:     a.Start().Format(daterange.Layout),
		EndDate:      a.End().Format(daterange.Layout),
		Workers:      a.Workers(),
		Outcome:      string(outcome),
	}
}

func allocationPayload(a *model.Allocation, outcome capacity.Outcome) model.JSONB {
	payload := model.JSONB{
		"allocation_id": a.ID.String(),
		"gridcell_id":   a.GridCellID.String(),
		"trade_id":      a.TradeID.String(),
		"work_date":     a.Start().Format(daterange.Layout),
		"end_date":      a.End().Format(daterange.Layout),
		"num_workers":   a.Workers(),
	}
	if outcome != "" {
		payload["outcome"] = string(outcome)
	}
	return payload
}
