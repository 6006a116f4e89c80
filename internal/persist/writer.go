package persist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/sowilo/internal/checksum"
	"github.com/starford/sowilo/internal/storage"
)

// Writer encodes values as JSON into a storage provider and remembers the
// checksum of the last blob it wrote per key.
type Writer struct {
	store   storage.Provider
	onError func(key string, err error)
	onSave  func(key string)

	mu   sync.Mutex
	sums map[string]string
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithErrorHook is called after every failed write.
func WithErrorHook(fn func(key string, err error)) WriterOption {
	return func(w *Writer) { w.onError = fn }
}

// WithSaveHook is called after every successful write.
func WithSaveHook(fn func(key string)) WriterOption {
	return func(w *Writer) { w.onSave = fn }
}

// NewWriter creates a Writer over store.
func NewWriter(store storage.Provider, opts ...WriterOption) *Writer {
	w := &Writer{store: store, sums: make(map[string]string)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SaveJSON marshals v and writes it under key.
func (w *Writer) SaveJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		w.fail(key, err)
		return fmt.Errorf("persist: encode %s: %w", key, err)
	}
	if err := w.store.Write(key, data); err != nil {
		w.fail(key, err)
		return fmt.Errorf("persist: write %s: %w", key, err)
	}
	w.mu.Lock()
	w.sums[key] = checksum.Sum(data)
	w.mu.Unlock()
	if w.onSave != nil {
		w.onSave(key)
	}
	return nil
}

func (w *Writer) fail(key string, err error) {
	if w.onError != nil {
		w.onError(key, err)
	}
}

// Wrote reports whether sum matches the last blob this writer stored under key.
func (w *Writer) Wrote(key, sum string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sums[key] == sum
}

// Load reads key. found is false when the blob is missing or unreadable.
func Load(store storage.Provider, key string, logger *slog.Logger) (data []byte, found bool) {
	data, err := store.Read(key)
	if err != nil {
		if logger != nil {
			logger.Info("persist: nothing loaded", slog.String("key", key), slog.String("reason", err.Error()))
		}
		return nil, false
	}
	return data, true
}

// Debounced returns a Debouncer that saves v under key through w.
func (w *Writer) Debounced(key string, v any, delay time.Duration, logger *slog.Logger) *Debouncer {
	return NewDebouncer(key, delay, func() error { return w.SaveJSON(key, v) }, logger)
}
