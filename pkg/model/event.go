package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	OutboxStatusPending   = "pending"
	OutboxStatusPublished = "published"
	OutboxStatusFailed    = "failed"
)

const (
	EventGridGenerated     = "grid.generated"
	EventAllocationCreated = "allocation.created"
	EventAllocationDeleted = "allocation.deleted"
)

// SiteEvent is an outbox row written in the same transaction as the change
// it describes.
type SiteEvent struct {
	EventID     uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	EventType   string    `gorm:"not null"`
	Payload     JSONB     `gorm:"type:jsonb;not null"`
	Status      string    `gorm:"not null;default:'pending';index"`
	CreatedAt   time.Time `gorm:"autoCreateTime;not null"`
	PublishedAt *time.Time
}

func (SiteEvent) TableName() string {
	return "site_events"
}

func NewSiteEvent(eventType string, payload JSONB) *SiteEvent {
	return &SiteEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Status:    OutboxStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}
