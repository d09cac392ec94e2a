// Package memory provides an in-memory SiteStore. All writers are serialised
// behind one lock. A transaction copies a table the first time it writes to
// it and its copies replace the live tables only on commit, so an allocation
// costs a copy of the allocations table, not of the whole store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sitegrid/sitegrid/pkg/daterange"
	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/store"
)

type state struct {
	projects    map[uuid.UUID]model.Project
	models      map[uuid.UUID]model.SiteModel
	cells       map[uuid.UUID]model.GridCell
	trades      map[uuid.UUID]model.Trade
	capacities  map[uuid.UUID]model.TradeCapacity
	allocations map[uuid.UUID]model.Allocation
	users       map[uuid.UUID]model.User
	events      []model.SiteEvent
}

func newState() state {
	return state{
		projects:    map[uuid.UUID]model.Project{},
		models:      map[uuid.UUID]model.SiteModel{},
		cells:       map[uuid.UUID]model.GridCell{},
		trades:      map[uuid.UUID]model.Trade{},
		capacities:  map[uuid.UUID]model.TradeCapacity{},
		allocations: map[uuid.UUID]model.Allocation{},
		users:       map[uuid.UUID]model.User{},
	}
}

func cloneMap[V any](in map[uuid.UUID]V) map[uuid.UUID]V {
	out := make(map[uuid.UUID]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type Store struct {
	mu    sync.RWMutex
	state state
	now   func() time.Time
}

var _ store.SiteStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{state: newState(), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Close() error { return nil }

func notFound(kind string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
}

func (s *Store) CreateProject(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	stored := *p
	stored.Models = nil
	s.state.projects[p.ID] = stored
	return nil
}

func (s *Store) GetProject(_ context.Context, id uuid.UUID) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.projects[id]
	if !ok {
		return nil, notFound("project", id)
	}
	return &p, nil
}

func (s *Store) ListProjects(_ context.Context) ([]model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Project, 0, len(s.state.projects))
	for _, p := range s.state.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteProject(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.projects[id]; !ok {
		return notFound("project", id)
	}
	for mid, m := range s.state.models {
		if m.ProjectID == id {
			s.state.deleteModel(mid)
		}
	}
	delete(s.state.projects, id)
	return nil
}

func (s *Store) CreateModel(_ context.Context, m *model.SiteModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.projects[m.ProjectID]; !ok {
		return notFound("project", m.ProjectID)
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := s.now()
	m.CreatedAt, m.UpdatedAt = now, now
	stored := *m
	stored.Project, stored.GridCells = nil, nil
	s.state.models[m.ID] = stored
	return nil
}

func (s *Store) GetModel(_ context.Context, id uuid.UUID) (*model.SiteModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.models[id]
	if !ok {
		return nil, notFound("model", id)
	}
	return &m, nil
}

func (s *Store) ListModels(_ context.Context, projectID *uuid.UUID) ([]model.SiteModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SiteModel, 0, len(s.state.models))
	for _, m := range s.state.models {
		if projectID != nil && m.ProjectID != *projectID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteModel(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.models[id]; !ok {
		return notFound("model", id)
	}
	s.state.deleteModel(id)
	return nil
}

func (st *state) deleteModel(id uuid.UUID) {
	st.deleteCells(id)
	delete(st.models, id)
}

func (st *state) deleteCells(modelID uuid.UUID) int64 {
	var n int64
	for cid, c := range st.cells {
		if c.ModelID != modelID {
			continue
		}
		for tid, tc := range st.capacities {
			if tc.GridCellID == cid {
				delete(st.capacities, tid)
			}
		}
		for aid, a := range st.allocations {
			if a.GridCellID == cid {
				delete(st.allocations, aid)
			}
		}
		delete(st.cells, cid)
		n++
	}
	return n
}

func (s *Store) GetCell(_ context.Context, id uuid.UUID) (*model.GridCell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.cells[id]
	if !ok {
		return nil, notFound("grid cell", id)
	}
	return &c, nil
}

func (s *Store) ListCells(_ context.Context, modelID uuid.UUID) ([]model.GridCell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.GridCell, 0)
	for _, c := range s.state.cells {
		if c.ModelID == modelID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.XIndex != b.XIndex {
			return a.XIndex < b.XIndex
		}
		if a.YIndex != b.YIndex {
			return a.YIndex < b.YIndex
		}
		return a.ZIndex < b.ZIndex
	})
	return out, nil
}

func (s *Store) UpdateCellCapacity(_ context.Context, id uuid.UUID, totalCapacity int) (*model.GridCell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.cells[id]
	if !ok {
		return nil, notFound("grid cell", id)
	}
	c.TotalCapacity = totalCapacity
	s.state.cells[id] = c
	return &c, nil
}

func (s *Store) CreateTrade(_ context.Context, t *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.trades {
		if existing.Name == t.Name {
			return fmt.Errorf("trade %q: %w", t.Name, store.ErrConflict)
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = s.now()
	s.state.trades[t.ID] = *t
	return nil
}

func (s *Store) ListTrades(_ context.Context) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Trade, 0, len(s.state.trades))
	for _, t := range s.state.trades {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpsertTradeCapacity(_ context.Context, tc *model.TradeCapacity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.cells[tc.GridCellID]; !ok {
		return notFound("grid cell", tc.GridCellID)
	}
	if _, ok := s.state.trades[tc.TradeID]; !ok {
		return notFound("trade", tc.TradeID)
	}
	tc.UpdatedAt = s.now()
	tc.Trade = nil
	for id, existing := range s.state.capacities {
		if existing.GridCellID == tc.GridCellID && existing.TradeID == tc.TradeID {
			tc.ID = id
			s.state.capacities[id] = *tc
			return nil
		}
	}
	if tc.ID == uuid.Nil {
		tc.ID = uuid.New()
	}
	s.state.capacities[tc.ID] = *tc
	return nil
}

func (s *Store) ListTradeCapacities(_ context.Context, cellID uuid.UUID) ([]model.TradeCapacity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.state.cells[cellID]; !ok {
		return nil, notFound("grid cell", cellID)
	}
	out := make([]model.TradeCapacity, 0)
	for _, tc := range s.state.capacities {
		if tc.GridCellID == cellID {
			out = append(out, tc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeID.String() < out[j].TradeID.String() })
	return out, nil
}

func activeOn(a model.Allocation, window daterange.Range) bool {
	end := a.End()
	return daterange.New(a.Start(), &end).Overlaps(window)
}

func sortAllocations(out []model.Allocation) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start().Equal(out[j].Start()) {
			return out[i].Start().Before(out[j].Start())
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}

func (s *Store) ListAllocationsOn(_ context.Context, day time.Time) ([]model.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	window := daterange.Single(day)
	out := make([]model.Allocation, 0)
	for _, a := range s.state.allocations {
		if activeOn(a, window) {
			out = append(out, a)
		}
	}
	sortAllocations(out)
	return out, nil
}

func (s *Store) ListModelAllocationsOn(_ context.Context, modelID uuid.UUID, day time.Time) ([]model.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	window := daterange.Single(day)
	out := make([]model.Allocation, 0)
	for _, a := range s.state.allocations {
		c, ok := s.state.cells[a.GridCellID]
		if ok && c.ModelID == modelID && activeOn(a, window) {
			out = append(out, a)
		}
	}
	sortAllocations(out)
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.users {
		if existing.Username == u.Username {
			return fmt.Errorf("user %q: %w", u.Username, store.ErrConflict)
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = s.now()
	s.state.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.state.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
}

func (s *Store) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state
	if err := fn(&tx{state: &work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}
