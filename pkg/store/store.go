package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sitegrid/sitegrid/pkg/daterange"
	"github.com/sitegrid/sitegrid/pkg/model"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// SiteStore defines the persistence backends (PostgreSQL, in-memory) for
// projects, models, grids, trades and allocations.
type SiteStore interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	// DeleteProject cascades to the project's models and their grids
	DeleteProject(ctx context.Context, id uuid.UUID) error

	CreateModel(ctx context.Context, m *model.SiteModel) error
	GetModel(ctx context.Context, id uuid.UUID) (*model.SiteModel, error)
	// ListModels returns every model when projectID is nil
	ListModels(ctx context.Context, projectID *uuid.UUID) ([]model.SiteModel, error)
	DeleteModel(ctx context.Context, id uuid.UUID) error

	GetCell(ctx context.Context, id uuid.UUID) (*model.GridCell, error)
	// ListCells returns a model's cells ordered by x, y, z index
	ListCells(ctx context.Context, modelID uuid.UUID) ([]model.GridCell, error)
	UpdateCellCapacity(ctx context.Context, id uuid.UUID, totalCapacity int) (*model.GridCell, error)

	// CreateTrade fails with ErrConflict when the name is taken
	CreateTrade(ctx context.Context, t *model.Trade) error
	ListTrades(ctx context.Context) ([]model.Trade, error)

	// UpsertTradeCapacity updates MaxWorkers of the existing (cell, trade)
	// row if there is one, and fills tc with the stored row.
	UpsertTradeCapacity(ctx context.Context, tc *model.TradeCapacity) error
	ListTradeCapacities(ctx context.Context, cellID uuid.UUID) ([]model.TradeCapacity, error)

	// ListAllocationsOn returns allocations active on day
	ListAllocationsOn(ctx context.Context, day time.Time) ([]model.Allocation, error)
	ListModelAllocationsOn(ctx context.Context, modelID uuid.UUID, day time.Time) ([]model.Allocation, error)

	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// Transaction runs fn in a single unit of work. Changes made through tx
	// become visible to other callers only when fn returns nil.
	Transaction(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// Tx is the unit of work handed to Transaction callbacks. It is bound to the
// context passed to Transaction.
type Tx interface {
	// LockCell loads the cell and holds it against concurrent allocation
	// writers until the transaction ends.
	LockCell(id uuid.UUID) (*model.GridCell, error)
	TradeExists(id uuid.UUID) (bool, error)
	// OverlappingAllocations returns the cell's allocations sharing at least
	// one day with window. A missing end date means the work date only.
	OverlappingAllocations(cellID uuid.UUID, window daterange.Range) ([]model.Allocation, error)
	// TradeCapacity returns nil, nil when no limit is recorded
	TradeCapacity(cellID, tradeID uuid.UUID) (*model.TradeCapacity, error)
	CreateAllocation(a *model.Allocation) error
	DeleteAllocation(id uuid.UUID) (*model.Allocation, error)

	// DeleteCells removes a model's cells along with their trade capacities
	// and allocations.
	DeleteCells(modelID uuid.UUID) (int64, error)
	CreateCells(cells []model.GridCell) error

	AppendEvent(e *model.SiteEvent) error
}
