// Package notify announces event writes on a message bus.
package notify

import (
	"context"

	"github.com/alfredjeanlab/eventdesk/internal/model"
)

// Subject constants
const (
	TopicEventCreated = "eventdesk.event.created"
	TopicEventUpdated = "eventdesk.event.updated"
	TopicEventDeleted = "eventdesk.event.deleted"

	// TopicAll matches every eventdesk subject.
	TopicAll = "eventdesk.>"
)

// Payload types

type EventCreated struct {
	Event *model.Event `json:"event"`
}

type EventUpdated struct {
	Event *model.Event `json:"event"`
}

type EventDeleted struct {
	EventID string `json:"event_id"`
}

// Publisher is the interface for emitting notifications.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}

// Subscriber receives notifications from the bus.
type Subscriber interface {
	// Subscribe delivers raw payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan Message, func(), error)
	Close() error
}

// Message is a payload received on a subject.
type Message struct {
	Topic string
	Data  []byte
}
