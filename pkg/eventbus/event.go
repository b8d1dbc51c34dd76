// Package eventbus publishes integration events for other services and
// delivers them to subscribers at least once.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	AccountCreated = "AccountCreated"
	AccountUpdated = "AccountUpdated"
)

type Event struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent stamps a new id and time on payload
func NewEvent(name string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		OccurredAt: time.Now().UTC(),
		Payload:    data,
	}, nil
}

// Decode unmarshals the payload into v
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

type AccountCreatedPayload struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
}

type AccountUpdatedPayload struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Name        string `json:"name,omitempty"`
	Website     string `json:"website,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Handler processes one delivery. Returning an error leaves the event
// pending so it is delivered again.
type Handler func(ctx context.Context, event Event) error

// Nop drops events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
