package realtime

import (
	"context"
	"encoding/json"
	"time"
)

const (
	KindHello = "hello"
	// KindHeartbeat never reaches consumers as an event; the SSE writer renders it as a comment.
	KindHeartbeat = "heartbeat"
)

type Event struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
	At   time.Time       `json:"at"`
}

// Envelope is what travels between processes. Origin identifies the publishing hub.
type Envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// Relay carries events between hubs in different processes.
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
	// Listen blocks delivering envelopes to fn until ctx ends or the transport fails.
	Listen(ctx context.Context, fn func(Envelope)) error
	Close() error
}
