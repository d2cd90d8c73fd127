package events

import (
	"encoding/json"
	"time"
)

// Product change actions, used as the last subject token.
const (
	ProductCreated = "created"
	ProductUpdated = "updated"
	ProductRemoved = "removed"
)

// DefaultSubjectPrefix is used when ProductChangedEvent.Prefix is empty.
const DefaultSubjectPrefix = "catalog.products"

// ProductChangedEvent is published after a product mutation was persisted.
type ProductChangedEvent struct {
	Prefix     string    `json:"-"`
	Action     string    `json:"action"`
	ProductID  int       `json:"product_id"`
	Code       string    `json:"code"`
	Title      string    `json:"title"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e ProductChangedEvent) Subject() string {
	prefix := e.Prefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + e.Action
}

func (e ProductChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
