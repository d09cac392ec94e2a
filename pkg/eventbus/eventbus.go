package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Event struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type GridEvent struct {
	ModelID   string `json:"model_id"`
	Cells     int    `json:"cells"`
	Removed   int64  `json:"removed"`
	Sections  [3]int `json:"sections"`
	ShapeMode string `json:"shape_mode"`
}

type AllocationEvent struct {
	AllocationID string `json:"allocation_id"`
	GridCellID   string `json:"gridcell_id"`
	TradeID      string `json:"trade_id"`
	WorkDate     string `json:"work_date"`
	EndDate      string `json:"end_date"`
	Workers      int    `json:"num_workers"`
	Outcome      string `json:"outcome,omitempty"`
}

const (
	ChannelGrid       = "sg:events:grid"
	ChannelAllocation = "sg:events:allocation"
)

// Publisher is the part of Bus used by producers; a nil Publisher disables
// live notifications.
type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

type Bus struct {
	client redis.UniversalClient
}

func NewBus(client redis.UniversalClient) *Bus {
	return &Bus{client: client}
}

func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}, nil
}

func (b *Bus) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, payload).Err()
}

func (b *Bus) Subscribe(ctx context.Context, channels ...string) <-chan *Event {
	sub := b.client.Subscribe(ctx, channels...)
	ch := make(chan *Event, 100)

	go func() {
		defer close(ch)
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			ch <- &event
		}
	}()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return ch
}
