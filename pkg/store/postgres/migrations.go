package postgres

import (
	"github.com/sitegrid/sitegrid/pkg/model"
)

func (s *Store) AutoMigrate() error {
	// gen_random_uuid() on PostgreSQL < 13
	if err := s.db.Exec("CREATE EXTENSION IF NOT EXISTS pgcrypto").Error; err != nil {
		return err
	}

	err := s.db.AutoMigrate(
		&model.Project{},
		&model.SiteModel{},
		&model.Trade{},
		&model.GridCell{},
		&model.TradeCapacity{},
		&model.Allocation{},
		&model.User{},
		&model.SiteEvent{},
	)
	if err != nil {
		return err
	}

	return s.createIndexes()
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_alloc_effective_end
		ON allocations (grid_cell_id, (COALESCE(end_date, work_date)))`,
	`CREATE INDEX IF NOT EXISTS idx_alloc_work_date
		ON allocations (work_date)`,
	`CREATE INDEX IF NOT EXISTS idx_site_events_pending
		ON site_events (created_at) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_cells_model_column
		ON grid_cells (model_id, x_index, y_index)`,
}

func (s *Store) createIndexes() error {
	for _, stmt := range indexes {
		if err := s.db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
