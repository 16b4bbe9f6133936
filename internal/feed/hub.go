// Package feed fans billable change events out to each owner's connected
// dashboard sessions over websockets. Events for one user never reach
// another user's sessions.
package feed

import (
	"sync"

	"app/internal/model"

	"github.com/rs/zerolog"
)

// Hub tracks live sessions keyed by user and routes published changes to
// every session of the owning user. All session bookkeeping happens on the
// Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	events     chan userEvent

	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{}

	logger zerolog.Logger
}

type userEvent struct {
	userID string
	change model.BillableChange
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan userEvent, 64),
		sessions:   make(map[string]map[*Client]struct{}),
		logger:     logger.With().Str("component", "feed").Logger(),
	}
}

// Run processes registrations and event delivery until the hub's channels
// are abandoned. Call it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.sessions[c.userID] == nil {
				h.sessions[c.userID] = make(map[*Client]struct{})
			}
			h.sessions[c.userID][c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug().Str("user_id", c.userID).Msg("session registered")

		case c := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.sessions[c.userID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.send)
					if len(set) == 0 {
						delete(h.sessions, c.userID)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug().Str("user_id", c.userID).Msg("session unregistered")

		case ev := <-h.events:
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev userEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.sessions[ev.userID] {
		c.view.ApplyChange(ev.change)
		select {
		case c.send <- outMessage{Type: "change", Change: &ev.change}:
		default:
			h.logger.Warn().Str("user_id", ev.userID).Msg("dropping change for slow session")
		}
	}
}

// Publish queues a change event for every live session of userID. It never
// blocks the caller: with no sessions connected the event is still consumed
// by the Run loop and falls through deliver as a no-op.
func (h *Hub) Publish(userID string, change model.BillableChange) {
	select {
	case h.events <- userEvent{userID: userID, change: change}:
	default:
		h.logger.Warn().Str("user_id", userID).Msg("event queue full, dropping change")
	}
}
