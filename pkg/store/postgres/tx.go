package postgres

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sitegrid/sitegrid/pkg/daterange"
	"github.com/sitegrid/sitegrid/pkg/model"
)

// tx wraps the *gorm.DB of an open transaction.
type tx struct {
	db *gorm.DB
}

// LockCell takes a row lock (SELECT ... FOR UPDATE) on the cell, which
// serialises concurrent allocation writers for that cell.
func (t *tx) LockCell(id uuid.UUID) (*model.GridCell, error) {
	var c model.GridCell
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "grid cell "+id.String())
	}
	return &c, nil
}

func (t *tx) TradeExists(id uuid.UUID) (bool, error) {
	var n int64
	if err := t.db.Model(&model.Trade{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, translate(err, "trade lookup")
	}
	return n > 0, nil
}

func (t *tx) OverlappingAllocations(cellID uuid.UUID, window daterange.Range) ([]model.Allocation, error) {
	var allocs []model.Allocation
	err := t.db.
		Where("grid_cell_id = ?", cellID).
		Where(activeOnDay, model.Date(window.End), model.Date(window.Start)).
		Order("work_date ASC").
		Find(&allocs).Error
	return allocs, translate(err, "overlapping allocations")
}

func (t *tx) TradeCapacity(cellID, tradeID uuid.UUID) (*model.TradeCapacity, error) {
	var tc model.TradeCapacity
	err := t.db.Where("grid_cell_id = ? AND trade_id = ?", cellID, tradeID).First(&tc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "trade capacity")
	}
	return &tc, nil
}

func (t *tx) CreateAllocation(a *model.Allocation) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return translate(t.db.Omit(clause.Associations).Create(a).Error, "create allocation")
}

func (t *tx) DeleteAllocation(id uuid.UUID) (*model.Allocation, error) {
	var a model.Allocation
	if err := t.db.Clauses(clause.Returning{}).Where("id = ?", id).Delete(&a).Error; err != nil {
		return nil, translate(err, "delete allocation")
	}
	if a.ID == uuid.Nil {
		return nil, translate(gorm.ErrRecordNotFound, "allocation "+id.String())
	}
	return &a, nil
}

func (t *tx) DeleteCells(modelID uuid.UUID) (int64, error) {
	cells := t.db.Model(&model.GridCell{}).Select("id").Where("model_id = ?", modelID)
	if err := t.db.Where("grid_cell_id IN (?)", cells).Delete(&model.Allocation{}).Error; err != nil {
		return 0, translate(err, "delete cell allocations")
	}
	if err := t.db.Where("grid_cell_id IN (?)", cells).Delete(&model.TradeCapacity{}).Error; err != nil {
		return 0, translate(err, "delete cell trade capacities")
	}
	res := t.db.Where("model_id = ?", modelID).Delete(&model.GridCell{})
	return res.RowsAffected, translate(res.Error, "delete cells")
}

func (t *tx) CreateCells(cells []model.GridCell) error {
	if len(cells) == 0 {
		return nil
	}
	for i := range cells {
		if cells[i].ID == uuid.Nil {
			cells[i].ID = uuid.New()
		}
	}
	return translate(t.db.Omit(clause.Associations).CreateInBatches(cells, 500).Error, "create cells")
}

func (t *tx) AppendEvent(e *model.SiteEvent) error {
	return translate(t.db.Create(e).Error, "append site event")
}
