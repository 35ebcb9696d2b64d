package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cinelist/internal/shared"
)

// postgres rejects NOTIFY payloads of 8000 bytes or more
const maxNotifyPayload = 7999

var ErrPayloadTooLarge = errors.New("realtime: event payload exceeds NOTIFY limit")

// Publisher emits change events after a write has committed.
type Publisher interface {
	Publish(ctx context.Context, ev shared.ChangeEvent) error
}

// PGPublisher publishes through pg_notify so every API instance listening
// on the channel sees the event.
type PGPublisher struct {
	db      *gorm.DB
	channel string
}

func NewPGPublisher(db *gorm.DB, channel string) *PGPublisher {
	return &PGPublisher{db: db, channel: channel}
}

func (p *PGPublisher) Publish(ctx context.Context, ev shared.ChangeEvent) error {
	if ev.CommitTimestamp.IsZero() {
		ev.CommitTimestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if len(payload) > maxNotifyPayload {
		return ErrPayloadTooLarge
	}
	return p.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", p.channel, string(payload)).Error
}

// HubPublisher dispatches straight into a local hub. Used when the API
// runs as a single instance and in tests.
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(_ context.Context, ev shared.ChangeEvent) error {
	if ev.CommitTimestamp.IsZero() {
		ev.CommitTimestamp = time.Now().UTC()
	}
	p.hub.Dispatch(ev)
	return nil
}

// NewEvent builds an event whose record is the JSON encoding of row.
func NewEvent(table string, typ shared.ChangeType, row any, audience ...string) (shared.ChangeEvent, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return shared.ChangeEvent{}, fmt.Errorf("marshal %s row: %w", table, err)
	}
	ev := shared.ChangeEvent{
		Table:           table,
		Type:            typ,
		Audience:        audience,
		CommitTimestamp: time.Now().UTC(),
	}
	if typ == shared.ChangeDelete {
		ev.OldRecord = raw
	} else {
		ev.Record = raw
	}
	return ev, nil
}
