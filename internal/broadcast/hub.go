// Package broadcast fans the latest aggregate screener state out to
// connected observers. Delivery is best-effort with overwrite
// semantics: each observer holds a single-slot mailbox, so a slow
// observer only ever misses intermediate states, never accumulates a
// queue.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/erictidmore/stock-screener/internal/newswatch"
	"github.com/erictidmore/stock-screener/internal/screener"
)

// Message types on the observer channel.
const (
	TypeSnapshot     = "snapshot"
	TypeBreakingNews = "breaking_news"
)

// Message is the wire schema pushed to every observer.
type Message struct {
	Type           string                   `json:"type"`
	ScanID         uint64                   `json:"scan_id"`
	GeneratedAt    time.Time                `json:"generated_at"`
	SchedulerState string                   `json:"scheduler_state,omitempty"`
	RawCandidates  []screener.Candidate     `json:"raw_candidates"`
	Outcomes       []screener.FilterOutcome `json:"outcomes"`
	FinalWatchlist []string                 `json:"final_watchlist"`
	Headline       *newswatch.Event         `json:"headline,omitempty"`
	LogLines       []string                 `json:"log_lines,omitempty"`
}

// Observer receives state pushes through a single-slot mailbox.
type Observer struct {
	id     string
	mu     sync.Mutex
	latest *Message
	notify chan struct{}
}

// ID returns the observer's connection identifier.
func (o *Observer) ID() string { return o.id }

func (o *Observer) offer(m Message) {
	o.mu.Lock()
	o.latest = &m
	o.mu.Unlock()
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// Next blocks until a state push or context cancellation and returns
// the newest message; anything it replaced was dropped as stale.
func (o *Observer) Next(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-o.notify:
	}
	o.mu.Lock()
	m := *o.latest
	o.mu.Unlock()
	return m, nil
}

// Hub owns the observer set and the broadcast cadence.
type Hub struct {
	source func() Message
	tick   time.Duration
	logger zerolog.Logger

	mu        sync.RWMutex
	observers map[string]*Observer
	latest    *Message
}

// NewHub constructs a hub. source assembles the current aggregate
// state and is invoked on every tick and event push.
func NewHub(source func() Message, tick time.Duration, logger zerolog.Logger) *Hub {
	if tick <= 0 {
		tick = time.Second
	}
	return &Hub{
		source:    source,
		tick:      tick,
		logger:    logger.With().Str("component", "broadcast").Logger(),
		observers: make(map[string]*Observer),
	}
}

// Run pushes the current state on the fixed cadence until ctx is
// cancelled. Event-driven pushes happen independently via Publish.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if h.ObserverCount() > 0 {
				h.Publish(h.source())
			}
		}
	}
}

// Publish fans a message out to all observers and remembers it for
// late joiners. Never blocks on any observer.
func (h *Hub) Publish(m Message) {
	h.mu.Lock()
	h.latest = &m
	observers := make([]*Observer, 0, len(h.observers))
	for _, o := range h.observers {
		observers = append(observers, o)
	}
	h.mu.Unlock()

	for _, o := range observers {
		o.offer(m)
	}
}

// PublishSnapshot pushes the aggregate state immediately after a scan.
func (h *Hub) PublishSnapshot() {
	h.Publish(h.source())
}

// PublishEvent pushes a breaking-news event with the current state
// attached. Safe to call from the monitor's poll loop: it never
// blocks.
func (h *Hub) PublishEvent(ev newswatch.Event) {
	m := h.source()
	m.Type = TypeBreakingNews
	m.Headline = &ev
	h.Publish(m)
}

// Attach registers a new observer. The latest known state is offered
// immediately so the observer does not wait for the next tick.
func (h *Hub) Attach() *Observer {
	o := &Observer{id: uuid.NewString(), notify: make(chan struct{}, 1)}

	h.mu.Lock()
	h.observers[o.id] = o
	latest := h.latest
	n := len(h.observers)
	h.mu.Unlock()

	if latest != nil {
		o.offer(*latest)
	} else {
		o.offer(h.source())
	}

	h.logger.Debug().Str("observer", o.id).Int("observers", n).Msg("observer attached")
	return o
}

// Detach drops an observer; other observers are unaffected.
func (h *Hub) Detach(o *Observer) {
	h.mu.Lock()
	delete(h.observers, o.id)
	n := len(h.observers)
	h.mu.Unlock()
	h.logger.Debug().Str("observer", o.id).Int("observers", n).Msg("observer detached")
}

// ObserverCount reports the number of connected observers.
func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Latest returns the last published message, if any.
func (h *Hub) Latest() *Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}
