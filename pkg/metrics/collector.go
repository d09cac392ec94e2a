package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/capacity"
	"github.com/sitegrid/sitegrid/pkg/store"
)

// UtilizationCollector periodically exports how full every model's grid is
// on the current day.
type UtilizationCollector struct {
	store    store.SiteStore
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time

	utilization     *prometheus.GaugeVec
	assignedWorkers *prometheus.GaugeVec
	overCapacity    *prometheus.GaugeVec
	lastRun         prometheus.Gauge
}

func NewUtilizationCollector(s store.SiteStore, logger *zap.Logger, interval time.Duration, reg prometheus.Registerer) *UtilizationCollector {
	if interval <= 0 {
		interval = time.Minute
	}
	c := &UtilizationCollector{
		store:    s,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		utilization: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sitegrid_cell_utilization_ratio",
				Help: "Assigned workers over total cell capacity for today, per model.",
			},
			[]string{"model_id"},
		),
		assignedWorkers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sitegrid_assigned_workers",
				Help: "Workers allocated for today, per model.",
			},
			[]string{"model_id"},
		),
		overCapacity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sitegrid_cells_over_capacity",
				Help: "Cells whose allocations for today exceed their total capacity.",
			},
			[]string{"model_id"},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitegrid_utilization_last_run_timestamp_seconds",
				Help: "Unix time of the last successful utilization pass.",
			},
		),
	}

	reg.MustRegister(c.utilization, c.assignedWorkers, c.overCapacity, c.lastRun)
	return c
}

func (c *UtilizationCollector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *UtilizationCollector) collect(ctx context.Context) {
	if err := c.Collect(ctx); err != nil {
		c.logger.Warn("utilization pass failed", zap.Error(err))
	}
}

// Collect runs a single pass over all models.
func (c *UtilizationCollector) Collect(ctx context.Context) error {
	day := c.now()
	models, err := c.store.ListModels(ctx, nil)
	if err != nil {
		return err
	}

	c.utilization.Reset()
	c.assignedWorkers.Reset()
	c.overCapacity.Reset()

	for _, m := range models {
		cells, err := c.store.ListCells(ctx, m.ID)
		if err != nil {
			return err
		}
		allocs, err := c.store.ListModelAllocationsOn(ctx, m.ID, day)
		if err != nil {
			return err
		}

		var assigned, total, over int
		for _, u := range capacity.CellLoad(cells, allocs, day) {
			assigned += u.Assigned
			total += u.Capacity
			if u.Assigned > u.Capacity {
				over++
			}
		}

		id := m.ID.String()
		ratio := 0.0
		if total > 0 {
			ratio = float64(assigned) / float64(total)
		}
		c.utilization.WithLabelValues(id).Set(ratio)
		c.assignedWorkers.WithLabelValues(id).Set(float64(assigned))
		c.overCapacity.WithLabelValues(id).Set(float64(over))
	}

	c.lastRun.Set(float64(c.now().Unix()))
	c.logger.Debug("utilization pass complete", zap.Int("models", len(models)))
	return nil
}
