package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sitegrid/sitegrid/pkg/model"
)

// ListPending returns pending events in the order they were appended.
func (s *Store) ListPending(_ context.Context, limit int) ([]model.SiteEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SiteEvent, 0)
	for _, e := range s.state.events {
		if e.Status != model.OutboxStatusPending {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkPublished(_ context.Context, eventID uuid.UUID, publishedAt time.Time) error {
	return s.setEventStatus(eventID, model.OutboxStatusPublished, &publishedAt)
}

func (s *Store) MarkFailed(_ context.Context, eventID uuid.UUID) error {
	return s.setEventStatus(eventID, model.OutboxStatusFailed, nil)
}

func (s *Store) setEventStatus(eventID uuid.UUID, status string, publishedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.events {
		if s.state.events[i].EventID == eventID {
			s.state.events[i].Status = status
			s.state.events[i].PublishedAt = publishedAt
			return nil
		}
	}
	return notFound("site event", eventID)
}
