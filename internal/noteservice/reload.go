package noteservice

import (
	"context"
	"log/slog"

	"github.com/starford/sowilo/internal/checksum"
	"github.com/starford/sowilo/internal/persist"
	"github.com/starford/sowilo/internal/sse"
	"github.com/starford/sowilo/internal/storage"
)

// SelfWriter reports whether a blob was produced by this process.
type SelfWriter interface {
	Wrote(key, sum string) bool
}

type reloader struct {
	store storage.Provider
	own   SelfWriter
}

// WithReload enables Reload: blobs in store not written by own are loaded
// back into memory.
func WithReload(store storage.Provider, own SelfWriter) Option {
	return func(s *Service) { s.reload = &reloader{store: store, own: own} }
}

// Reload is the data-dir watcher callback. It reloads a persisted blob that
// changed outside this process.
func (s *Service) Reload(ctx context.Context, key string) {
	if s.reload == nil {
		return
	}
	data, ok := persist.Load(s.reload.store, key, s.logger)
	if !ok {
		return
	}
	if s.reload.own != nil && s.reload.own.Wrote(key, checksum.Sum(data)) {
		return
	}

	switch key {
	case storage.KeyNotes:
		if err := s.ws.Replace(data); err != nil {
			s.logger.Warn("noteservice: reload notes failed", slog.String("error", err.Error()))
			return
		}
		for _, id := range s.cachedNotes() {
			s.session.Forget(id)
		}
		if err := s.Rebuild(ctx); err != nil {
			s.logger.Warn("noteservice: reload rebuild failed", slog.String("error", err.Error()))
			return
		}
		if s.events != nil {
			s.events.Publish(sse.Event{Type: sse.TypeGraphUpdated})
		}
	case storage.KeyEntityAttributes:
		if err := s.attrs.UnmarshalJSON(data); err != nil {
			s.logger.Warn("noteservice: reload attributes failed", slog.String("error", err.Error()))
			return
		}
	default:
		return
	}
	s.logger.Info("noteservice: reloaded", slog.String("key", key))
}

// cachedNotes lists ids the index knows about, so stale cache entries of
// notes removed by an external edit are dropped.
func (s *Service) cachedNotes() []string {
	sums, err := s.db.AllChecksums()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}
	return ids
}
