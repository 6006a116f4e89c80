// Package sse implements a typed publish/subscribe broker. Events reach
// in-process observers over channels and HTTP clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/sowilo/internal/connections"
)

// Event types.
const (
	TypeConnectionsUpdated = "connections.updated"
	TypeNavigate           = "note.navigate"
	TypeNoteCreated        = "note.created"
	TypeNoteUpdated        = "note.updated"
	TypeNoteRenamed        = "note.renamed"
	TypeNoteDeleted        = "note.deleted"
	TypeGraphUpdated       = "graph.updated"
	TypeEntityUpdated      = "entity.updated"
)

// Event represents an event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ConnectionsPayload is the data of a connections.updated event.
type ConnectionsPayload struct {
	NoteID      string                  `json:"noteId"`
	Connections connections.Connections `json:"connections"`
}

// NavigatePayload is the data of a note.navigate event.
type NavigatePayload struct {
	NoteID string `json:"noteId"`
}

// NotePayload is the data of note.* change events.
type NotePayload struct {
	ID string `json:"id"`
}

// EntityPayload is the data of an entity.updated event.
type EntityPayload struct {
	Key        string         `json:"key"`
	Attributes map[string]any `json:"attributes"`
}

// Subscription is an in-process observer registration.
type Subscription struct {
	C     <-chan Event
	ch    chan Event
	types map[string]struct{}
}

func (s *Subscription) wants(t string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

type publishReq struct {
	event        Event
	graphChanged bool
}

// Broker manages observers and SSE clients and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients, observers, graph throttle timestamp). Public methods communicate with
// this loop through channels, so no mutexes are required.
type Broker struct {
	graphMin  time.Duration
	onPublish func(eventType string)

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	observeCh     chan *Subscription
	unobserveCh   chan *Subscription
	publishCh     chan publishReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithPublishHook is called from the event loop for every broadcast event.
func WithPublishHook(fn func(eventType string)) Option {
	return func(b *Broker) { b.onPublish = fn }
}

// NewBroker creates a new broker with the given graph throttle interval.
func NewBroker(graphThrottle time.Duration, opts ...Option) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}

	b := &Broker{
		graphMin:      graphThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		observeCh:     make(chan *Subscription),
		unobserveCh:   make(chan *Subscription),
		publishCh:     make(chan publishReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	observers := make(map[*Subscription]struct{})
	var lastGraph time.Time

	broadcast := func(event Event) {
		if b.onPublish != nil {
			b.onPublish(event.Type)
		}
		for sub := range observers {
			if !sub.wants(event.Type) {
				continue
			}
			select {
			case sub.ch <- event:
			default:
				// Observer buffer full; skip to avoid blocking broker loop.
			}
		}

		if len(clients) == 0 {
			return
		}
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			for sub := range observers {
				close(sub.ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case sub := <-b.observeCh:
			observers[sub] = struct{}{}

		case sub := <-b.unobserveCh:
			if _, ok := observers[sub]; ok {
				delete(observers, sub)
				close(sub.ch)
			}

		case req := <-b.publishCh:
			broadcast(req.event)
			if !req.graphChanged {
				continue
			}
			now := time.Now()
			if now.Sub(lastGraph) >= b.graphMin {
				lastGraph = now
				broadcast(Event{Type: TypeGraphUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client and observer channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new SSE client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// Observe registers an in-process observer for the given event types, or
// for every event when none are given. Delivery is asynchronous; events
// are dropped for an observer whose buffer is full.
func (b *Broker) Observe(types ...string) *Subscription {
	ch := make(chan Event, 64)
	sub := &Subscription{C: ch, ch: ch, types: make(map[string]struct{}, len(types))}
	for _, t := range types {
		sub.types[t] = struct{}{}
	}
	if b.closed.Load() {
		close(ch)
		return sub
	}
	select {
	case b.observeCh <- sub:
	case <-b.stopped:
		close(ch)
	}
	return sub
}

// Unobserve removes an observer and closes its channel.
func (b *Broker) Unobserve(sub *Subscription) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unobserveCh <- sub:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected SSE clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

func (b *Broker) send(req publishReq) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- req:
	case <-b.stopped:
	}
}

// Publish sends an event to all observers and clients.
func (b *Broker) Publish(event Event) {
	b.send(publishReq{event: event})
}

// PublishNoteEvent publishes a note.<kind> event and a throttled graph.updated.
func (b *Broker) PublishNoteEvent(kind, id string) {
	b.send(publishReq{
		event:        Event{Type: "note." + kind, Data: NotePayload{ID: id}},
		graphChanged: true,
	})
}

// PublishConnections publishes freshly extracted connections for a note.
func (b *Broker) PublishConnections(noteID string, c connections.Connections) {
	b.send(publishReq{
		event:        Event{Type: TypeConnectionsUpdated, Data: ConnectionsPayload{NoteID: noteID, Connections: c}},
		graphChanged: true,
	})
}

// Navigate publishes a request to open noteID.
func (b *Broker) Navigate(noteID string) {
	b.Publish(Event{Type: TypeNavigate, Data: NavigatePayload{NoteID: noteID}})
}

var _ connections.Publisher = (*Broker)(nil)

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
