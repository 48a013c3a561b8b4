package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

type Options struct {
	Heartbeat    time.Duration
	Buffer       int
	RelayTimeout time.Duration
	// Outbox bounds events queued for the relay; when full, new events skip the relay.
	Outbox int
	// Origin defaults to a random id; hubs sharing a relay must differ.
	Origin string
	// Gauge, if set, receives the local subscriber count after every change.
	Gauge SubscriberGauge
}

type SubscriberGauge interface {
	SetSubscribers(n int)
}

func (o Options) withDefaults() Options {
	if o.Heartbeat <= 0 {
		o.Heartbeat = 25 * time.Second
	}
	if o.Buffer < 1 {
		o.Buffer = 32
	}
	if o.RelayTimeout <= 0 {
		o.RelayTimeout = 2 * time.Second
	}
	if o.Outbox < 1 {
		o.Outbox = 256
	}
	if o.Origin == "" {
		o.Origin = uuid.NewString()
	}
	return o
}

type Subscriber struct {
	ID  uuid.UUID
	out chan Event
	// stop detaches the context watcher.
	stop func() bool
}

// Events is closed when the subscriber is removed.
func (s *Subscriber) Events() <-chan Event { return s.out }

// Hub fans events out to local subscribers and, if a relay is set, to other processes.
type Hub struct {
	log   *logger.Logger
	opts  Options
	relay Relay

	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	hbStop chan struct{}
	closed bool

	// outbox feeds the relay forwarder started by Run. done is closed by Close.
	outbox    chan Envelope
	done      chan struct{}
	forwarder sync.WaitGroup
	startFwd  sync.Once
}

func NewHub(log *logger.Logger, relay Relay, opts Options) *Hub {
	opts = opts.withDefaults()
	h := &Hub{
		log:   log.With("component", "RealtimeHub", "origin", opts.Origin),
		opts:  opts,
		relay: relay,
		subs:  make(map[*Subscriber]struct{}),
		done:  make(chan struct{}),
	}
	if relay != nil {
		h.outbox = make(chan Envelope, opts.Outbox)
	}
	return h
}

func (h *Hub) Origin() string { return h.opts.Origin }

// Subscribe registers a subscriber whose first event is hello. It is removed when ctx ends.
func (h *Hub) Subscribe(ctx context.Context) *Subscriber {
	s := &Subscriber{ID: uuid.New(), out: make(chan Event, h.opts.Buffer)}
	s.out <- Event{Kind: KindHello, Data: json.RawMessage(`{"ok":true}`), At: time.Now().UTC()}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(s.out)
		return s
	}
	h.subs[s] = struct{}{}
	if len(h.subs) == 1 {
		h.startHeartbeatLocked()
	}
	s.stop = context.AfterFunc(ctx, func() { h.Unsubscribe(s) })
	n := len(h.subs)
	h.reportLocked()
	h.mu.Unlock()

	h.log.Debug("subscriber connected", "subscriber_id", s.ID, "subscribers", n)
	return s
}

// Unsubscribe is idempotent.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	h.mu.Lock()
	removed := h.removeLocked(s)
	n := len(h.subs)
	h.mu.Unlock()
	if removed {
		h.log.Debug("subscriber disconnected", "subscriber_id", s.ID, "subscribers", n)
	}
}

func (h *Hub) removeLocked(s *Subscriber) bool {
	if _, ok := h.subs[s]; !ok {
		return false
	}
	delete(h.subs, s)
	close(s.out)
	if s.stop != nil {
		s.stop()
	}
	if len(h.subs) == 0 {
		h.stopHeartbeatLocked()
	}
	h.reportLocked()
	return true
}

func (h *Hub) reportLocked() {
	if h.opts.Gauge != nil {
		h.opts.Gauge.SetSubscribers(len(h.subs))
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers locally and queues the event for the relay. It never waits on the relay:
// a full outbox skips the relay for this event, and relay failures are only logged.
func (h *Hub) Publish(_ context.Context, kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("dropping unserializable event", "kind", kind, "error", err)
		return
	}
	ev := Event{Kind: kind, Data: data, At: time.Now().UTC()}
	h.deliver(ev)

	if h.outbox == nil {
		return
	}
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.outbox <- Envelope{Origin: h.opts.Origin, Event: ev}:
	default:
		h.log.Warn("relay outbox full; delivered locally only", "kind", kind, "capacity", cap(h.outbox))
	}
}

// forward drains the outbox into the relay, one event at a time and in publish order.
// On stop it flushes what is queued within a single RelayTimeout.
func (h *Hub) forward(ctx context.Context) {
	defer h.forwarder.Done()
	send := func(sctx context.Context, env Envelope) {
		rctx, cancel := context.WithTimeout(sctx, h.opts.RelayTimeout)
		defer cancel()
		if err := h.relay.Publish(rctx, env); err != nil {
			h.log.Warn("relay publish failed; delivered locally only", "kind", env.Event.Kind, "error", err)
		}
	}
	for {
		select {
		case env := <-h.outbox:
			send(ctx, env)
		case <-ctx.Done():
			h.flush()
			return
		case <-h.done:
			h.flush()
			return
		}
	}
}

func (h *Hub) flush() {
	fctx, cancel := context.WithTimeout(context.Background(), h.opts.RelayTimeout)
	defer cancel()
	for {
		select {
		case env := <-h.outbox:
			if err := h.relay.Publish(fctx, env); err != nil {
				h.log.Warn("relay flush stopped", "pending", len(h.outbox), "error", err)
				return
			}
		default:
			return
		}
		if fctx.Err() != nil {
			return
		}
	}
}

// deliver never blocks. A subscriber that cannot keep up is disconnected; it will
// reconnect and start again from hello.
func (h *Hub) deliver(ev Event) {
	var slow []*Subscriber
	h.mu.RLock()
	for s := range h.subs {
		select {
		case s.out <- ev:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, s := range slow {
		if h.removeLocked(s) {
			h.log.Warn("dropping slow subscriber", "subscriber_id", s.ID, "kind", ev.Kind)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) startHeartbeatLocked() {
	if h.hbStop != nil {
		return
	}
	stop := make(chan struct{})
	h.hbStop = stop
	go func() {
		t := time.NewTicker(h.opts.Heartbeat)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				h.deliver(Event{Kind: KindHeartbeat, At: time.Now().UTC()})
			}
		}
	}()
}

func (h *Hub) stopHeartbeatLocked() {
	if h.hbStop == nil {
		return
	}
	close(h.hbStop)
	h.hbStop = nil
}

// Run forwards queued events to the relay and listens on it until ctx ends. While the
// listener is down the hub keeps serving local subscribers; reconnects back off exponentially.
func (h *Hub) Run(ctx context.Context) error {
	if h.relay == nil {
		<-ctx.Done()
		return nil
	}
	select {
	case <-h.done:
		return nil
	default:
	}
	h.startFwd.Do(func() {
		h.forwarder.Add(1)
		go h.forward(ctx)
	})
	wait := backoff.NewExponentialBackOff()
	wait.InitialInterval = 500 * time.Millisecond
	wait.MaxInterval = 30 * time.Second
	wait.Reset()

	for {
		started := time.Now()
		err := h.relay.Listen(ctx, h.receive)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) > wait.MaxInterval {
			wait.Reset()
		}
		delay := wait.NextBackOff()
		h.log.Warn("relay listener stopped; retrying", "error", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// receive fans remote events out locally. Own echoes are ignored and nothing is re-forwarded.
func (h *Hub) receive(env Envelope) {
	if env.Origin == h.opts.Origin || env.Event.Kind == "" || env.Event.Kind == KindHeartbeat {
		return
	}
	h.deliver(env.Event)
}

// Close disconnects every subscriber and releases the relay.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for s := range h.subs {
		h.removeLocked(s)
	}
	h.stopHeartbeatLocked()
	close(h.done)
	h.mu.Unlock()

	h.forwarder.Wait()
	if h.relay != nil {
		return h.relay.Close()
	}
	return nil
}
