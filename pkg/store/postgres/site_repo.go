package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sitegrid/sitegrid/pkg/model"
)

const activeOnDay = "work_date <= ? AND COALESCE(end_date, work_date) >= ?"

func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error, "create project")
}

func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, "project "+id.String())
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&projects).Error
	return projects, translate(err, "list projects")
}

func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var modelIDs []uuid.UUID
		if err := db.Model(&model.SiteModel{}).Where("project_id = ?", id).Pluck("id", &modelIDs).Error; err != nil {
			return translate(err, "list project models")
		}
		t := &tx{db: db}
		for _, mid := range modelIDs {
			if _, err := t.DeleteCells(mid); err != nil {
				return err
			}
		}
		if err := db.Where("project_id = ?", id).Delete(&model.SiteModel{}).Error; err != nil {
			return translate(err, "delete project models")
		}
		res := db.Delete(&model.Project{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error, "delete project")
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "project "+id.String())
		}
		return nil
	})
}

func (s *Store) CreateModel(ctx context.Context, m *model.SiteModel) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error, "create model")
}

func (s *Store) GetModel(ctx context.Context, id uuid.UUID) (*model.SiteModel, error) {
	var m model.SiteModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, "model "+id.String())
	}
	return &m, nil
}

func (s *Store) ListModels(ctx context.Context, projectID *uuid.UUID) ([]model.SiteModel, error) {
	var models []model.SiteModel
	query := s.db.WithContext(ctx).Model(&model.SiteModel{})
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}
	err := query.Order("created_at ASC").Find(&models).Error
	return models, translate(err, "list models")
}

func (s *Store) DeleteModel(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if _, err := (&tx{db: db}).DeleteCells(id); err != nil {
			return err
		}
		res := db.Delete(&model.SiteModel{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error, "delete model")
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "model "+id.String())
		}
		return nil
	})
}

func (s *Store) GetCell(ctx context.Context, id uuid.UUID) (*model.GridCell, error) {
	var c model.GridCell
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err, "grid cell "+id.String())
	}
	return &c, nil
}

func (s *Store) ListCells(ctx context.Context, modelID uuid.UUID) ([]model.GridCell, error) {
	var cells []model.GridCell
	err := s.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("x_index ASC, y_index ASC, z_index ASC").
		Find(&cells).Error
	return cells, translate(err, "list cells")
}

func (s *Store) UpdateCellCapacity(ctx context.Context, id uuid.UUID, totalCapacity int) (*model.GridCell, error) {
	res := s.db.WithContext(ctx).
		Model(&model.GridCell{}).
		Where("id = ?", id).
		Update("total_capacity", totalCapacity)
	if res.Error != nil {
		return nil, translate(res.Error, "update cell capacity")
	}
	if res.RowsAffected == 0 {
		return nil, translate(gorm.ErrRecordNotFound, "grid cell "+id.String())
	}
	return s.GetCell(ctx, id)
}

func (s *Store) CreateTrade(ctx context.Context, t *model.Trade) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return translate(s.db.WithContext(ctx).Create(t).Error, "trade "+t.Name)
}

func (s *Store) ListTrades(ctx context.Context) ([]model.Trade, error) {
	var trades []model.Trade
	err := s.db.WithContext(ctx).Order("name ASC").Find(&trades).Error
	return trades, translate(err, "list trades")
}

func (s *Store) UpsertTradeCapacity(ctx context.Context, tc *model.TradeCapacity) error {
	if tc.ID == uuid.Nil {
		tc.ID = uuid.New()
	}
	tc.UpdatedAt = time.Now()
	db := s.db.WithContext(ctx)
	err := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "grid_cell_id"}, {Name: "trade_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"max_workers", "updated_at"}),
	}).Create(tc).Error
	if err != nil {
		return translate(err, "upsert trade capacity")
	}
	var stored model.TradeCapacity
	if err := db.Where("grid_cell_id = ? AND trade_id = ?", tc.GridCellID, tc.TradeID).First(&stored).Error; err != nil {
		return translate(err, "reload trade capacity")
	}
	*tc = stored
	return nil
}

func (s *Store) ListTradeCapacities(ctx context.Context, cellID uuid.UUID) ([]model.TradeCapacity, error) {
	if _, err := s.GetCell(ctx, cellID); err != nil {
		return nil, err
	}
	var caps []model.TradeCapacity
	err := s.db.WithContext(ctx).
		Where("grid_cell_id = ?", cellID).
		Order("trade_id ASC").
		Find(&caps).Error
	return caps, translate(err, "list trade capacities")
}

func (s *Store) ListAllocationsOn(ctx context.Context, day time.Time) ([]model.Allocation, error) {
	d := model.Date(day)
	var allocs []model.Allocation
	err := s.db.WithContext(ctx).
		Where(activeOnDay, d, d).
		Order("work_date ASC, created_at ASC").
		Find(&allocs).Error
	return allocs, translate(err, "list allocations")
}

func (s *Store) ListModelAllocationsOn(ctx context.Context, modelID uuid.UUID, day time.Time) ([]model.Allocation, error) {
	d := model.Date(day)
	var allocs []model.Allocation
	err := s.db.WithContext(ctx).
		Select("allocations.*").
		Joins("JOIN grid_cells ON grid_cells.id = allocations.grid_cell_id").
		Where("grid_cells.model_id = ?", modelID).
		Where("allocations.work_date <= ? AND COALESCE(allocations.end_date, allocations.work_date) >= ?", d, d).
		Order("allocations.work_date ASC, allocations.created_at ASC").
		Find(&allocs).Error
	return allocs, translate(err, "list model allocations")
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return translate(s.db.WithContext(ctx).Create(u).Error, "user "+u.Username)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user "+id.String())
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		return nil, translate(err, "user "+username)
	}
	return &u, nil
}
