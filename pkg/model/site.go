package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/sitegrid/sitegrid/pkg/geometry"
)

type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string    `gorm:"not null"`
	Description string
	StartDate   *datatypes.Date
	EndDate     *datatypes.Date
	Models      []SiteModel `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SiteModel is a registered building model whose bounds are computed once
// at registration.
type SiteModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProjectID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Project       *Project  `gorm:"foreignKey:ProjectID"`
	Name          string    `gorm:"not null"`
	Format        string    `gorm:"type:varchar(16)"`
	ModelFilePath string
	MinX          float64    `gorm:"not null;default:0"`
	MaxX          float64    `gorm:"not null;default:100"`
	MinY          float64    `gorm:"not null;default:0"`
	MaxY          float64    `gorm:"not null;default:20"`
	MinZ          float64    `gorm:"not null;default:0"`
	MaxZ          float64    `gorm:"not null;default:20"`
	GridCells     []GridCell `gorm:"foreignKey:ModelID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (SiteModel) TableName() string {
	return "models"
}

func (m *SiteModel) Bounds() geometry.BoundingBox {
	return geometry.BoundingBox{MinX: m.MinX, MaxX: m.MaxX, MinY: m.MinY, MaxY: m.MaxY, MinZ: m.MinZ, MaxZ: m.MaxZ}
}

func (m *SiteModel) SetBounds(b geometry.BoundingBox) {
	m.MinX, m.MaxX = b.MinX, b.MaxX
	m.MinY, m.MaxY = b.MinY, b.MaxY
	m.MinZ, m.MaxZ = b.MinZ, b.MaxZ
}

// GridCell is one lattice cell of a model. (ModelID, XIndex, YIndex, ZIndex)
// is unique.
type GridCell struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ModelID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cell_lattice"`
	XIndex          int             `gorm:"not null;uniqueIndex:idx_cell_lattice"`
	YIndex          int             `gorm:"not null;uniqueIndex:idx_cell_lattice"`
	ZIndex          int             `gorm:"not null;uniqueIndex:idx_cell_lattice"`
	MinX            float64         `gorm:"not null"`
	MaxX            float64         `gorm:"not null"`
	MinY            float64         `gorm:"not null"`
	MaxY            float64         `gorm:"not null"`
	MinZ            float64         `gorm:"not null"`
	MaxZ            float64         `gorm:"not null"`
	Footprint       pq.Float64Array `gorm:"type:double precision[]"`
	TotalCapacity   int             `gorm:"not null"`
	TradeCapacities []TradeCapacity `gorm:"foreignKey:GridCellID;constraint:OnDelete:CASCADE"`
	Allocations     []Allocation    `gorm:"foreignKey:GridCellID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time
}

func (c *GridCell) Bounds() geometry.BoundingBox {
	return geometry.BoundingBox{MinX: c.MinX, MaxX: c.MaxX, MinY: c.MinY, MaxY: c.MaxY, MinZ: c.MinZ, MaxZ: c.MaxZ}
}

func (c *GridCell) SetBounds(b geometry.BoundingBox) {
	c.MinX, c.MaxX = b.MinX, b.MaxX
	c.MinY, c.MaxY = b.MinY, b.MaxY
	c.MinZ, c.MaxZ = b.MinZ, b.MaxZ
}

// FootprintWKT falls back to the XY bounds when the stored ring is missing.
func (c *GridCell) FootprintWKT() string {
	fp, err := geometry.FootprintFromCoords(c.Footprint)
	if err != nil {
		fp = c.Bounds().Footprint()
	}
	return fp.WKT()
}

type Trade struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

// TradeCapacity limits how many workers of one trade may occupy a cell at
// once. At most one row exists per (cell, trade).
type TradeCapacity struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	GridCellID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cell_trade"`
	TradeID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cell_trade"`
	Trade      *Trade    `gorm:"foreignKey:TradeID;constraint:OnDelete:CASCADE"`
	MaxWorkers int       `gorm:"not null"`
	UpdatedAt  time.Time
}

type Allocation struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	GridCellID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_alloc_cell_dates"`
	TradeID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Trade       *Trade          `gorm:"foreignKey:TradeID;constraint:OnDelete:CASCADE"`
	WorkDate    datatypes.Date  `gorm:"not null;index:idx_alloc_cell_dates"`
	EndDate     *datatypes.Date `gorm:"index:idx_alloc_cell_dates"`
	NumWorkers  *int
	Description string
	CreatedBy   *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
}

// Workers treats an absent head count as one worker.
func (a *Allocation) Workers() int {
	if a.NumWorkers == nil {
		return 1
	}
	return *a.NumWorkers
}

func (a *Allocation) Start() time.Time {
	return time.Time(a.WorkDate)
}

// End is the last day of the allocation; a missing end date means the
// allocation covers its work date only. It is not open-ended: such an
// allocation never counts toward any later day, here or in the SQL overlap
// predicate of the postgres store.
func (a *Allocation) End() time.Time {
	if a.EndDate == nil {
		return time.Time(a.WorkDate)
	}
	return time.Time(*a.EndDate)
}

func Date(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func DatePtr(t *time.Time) *datatypes.Date {
	if t == nil {
		return nil
	}
	d := Date(*t)
	return &d
}

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleTradeManager Role = "trade_manager"
	RoleViewer       Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTradeManager, RoleViewer:
		return true
	default:
		return false
	}
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         Role      `gorm:"type:varchar(32);not null"`
	CreatedAt    time.Time
}
