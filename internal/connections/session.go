package connections

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/sowilo/internal/checksum"
)

// Publisher receives extraction results once they are emitted.
type Publisher interface {
	PublishConnections(noteID string, c Connections)
}

type cacheEntry struct {
	sum   string
	conns Connections
}

// Session caches the latest Connections per note and emits them to a
// Publisher. Extraction happens synchronously inside Update; emission is
// deferred to the Run loop, and a note updated several times before the loop
// drains is emitted once with its final state.
type Session struct {
	pub       Publisher
	logger    *slog.Logger
	onExtract func(time.Duration)

	mu      sync.Mutex
	seq     uint64
	latest  map[string]uint64 // sequence of the newest Update per note
	cache   map[string]cacheEntry
	pending map[string]Connections
	order   []string

	wake chan struct{}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithExtractObserver registers a callback receiving each extraction's duration.
func WithExtractObserver(fn func(time.Duration)) SessionOption {
	return func(s *Session) { s.onExtract = fn }
}

// NewSession creates a session publishing to pub.
func NewSession(pub Publisher, logger *slog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		pub:     pub,
		logger:  logger,
		latest:  make(map[string]uint64),
		cache:   make(map[string]cacheEntry),
		pending: make(map[string]Connections),
		wake:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update recomputes the note's connections if content differs from the last
// call for that note. changed is false when the cached result was reused, or
// when a newer Update for the same note started while this one was
// extracting; a superseded result is returned but neither cached nor emitted.
func (s *Session) Update(noteID string, content []byte) (c Connections, changed bool) {
	sum := checksum.Sum(content)

	s.mu.Lock()
	s.seq++
	mine := s.seq
	s.latest[noteID] = mine
	if e, ok := s.cache[noteID]; ok && e.sum == sum {
		s.mu.Unlock()
		return e.conns, false
	}
	s.mu.Unlock()

	start := time.Now()
	c = ExtractContent(content, s.logger)
	if s.onExtract != nil {
		s.onExtract(time.Since(start))
	}

	s.mu.Lock()
	if s.latest[noteID] != mine {
		s.mu.Unlock()
		return c, false
	}
	s.cache[noteID] = cacheEntry{sum: sum, conns: c}
	if _, queued := s.pending[noteID]; !queued {
		s.order = append(s.order, noteID)
	}
	s.pending[noteID] = c
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return c, true
}

// Get returns the cached connections for a note.
func (s *Session) Get(noteID string) (Connections, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache[noteID]
	return e.conns, ok
}

// Forget drops the cached and pending state for a note.
func (s *Session) Forget(noteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, noteID)
	delete(s.cache, noteID)
	if _, ok := s.pending[noteID]; ok {
		delete(s.pending, noteID)
		for i, id := range s.order {
			if id == noteID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// Run emits pending results until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
			s.flush()
		}
	}
}

func (s *Session) flush() {
	s.mu.Lock()
	order, pending := s.order, s.pending
	s.order = nil
	s.pending = make(map[string]Connections)
	s.mu.Unlock()

	for _, id := range order {
		if s.pub != nil {
			s.pub.PublishConnections(id, pending[id])
		}
	}
}
