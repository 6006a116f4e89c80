package connections

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type published struct {
	noteID string
	conns  Connections
}

type recordingPublisher struct {
	mu  sync.Mutex
	got []published
}

func (p *recordingPublisher) PublishConnections(noteID string, c Connections) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, published{noteID: noteID, conns: c})
}

func (p *recordingPublisher) snapshot() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.got...)
}

func tagDoc(tag string) []byte {
	return []byte(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"tag","attrs":{"tag":"` + tag + `"}}]}]}`)
}

func TestSession_UpdateReusesCacheForSameContent(t *testing.T) {
	var extractions int
	s := NewSession(nil, nil, WithExtractObserver(func(time.Duration) { extractions++ }))

	c, changed := s.Update("n1", tagDoc("a"))
	if !changed || !slices.Equal(c.Tags, []string{"a"}) {
		t.Fatalf("first update = %v changed = %v", c.Tags, changed)
	}

	c, changed = s.Update("n1", tagDoc("a"))
	if changed {
		t.Error("same content should reuse the cache")
	}
	if !slices.Equal(c.Tags, []string{"a"}) {
		t.Errorf("cached tags = %v", c.Tags)
	}
	if extractions != 1 {
		t.Errorf("extractions = %d, want 1", extractions)
	}

	if _, changed = s.Update("n1", tagDoc("b")); !changed {
		t.Error("new content should re-extract")
	}
	if extractions != 2 {
		t.Errorf("extractions = %d, want 2", extractions)
	}
}

func TestSession_CoalescesPendingEmissions(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewSession(pub, nil)

	s.Update("n1", tagDoc("a"))
	s.Update("n2", tagDoc("x"))
	s.Update("n1", tagDoc("b"))
	s.flush()

	got := pub.snapshot()
	if len(got) != 2 {
		t.Fatalf("emitted %d, want 2", len(got))
	}
	if got[0].noteID != "n1" || !slices.Equal(got[0].conns.Tags, []string{"b"}) {
		t.Errorf("first = %+v, want n1 with final tags", got[0])
	}
	if got[1].noteID != "n2" {
		t.Errorf("second = %q, want n2", got[1].noteID)
	}
}

func TestSession_OlderUpdateFinishingLastIsDropped(t *testing.T) {
	pub := &recordingPublisher{}
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	s := NewSession(pub, nil, WithExtractObserver(func(time.Duration) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
	}))

	type result struct {
		conns   Connections
		changed bool
	}
	older := make(chan result, 1)
	go func() {
		c, changed := s.Update("n1", tagDoc("old"))
		older <- result{c, changed}
	}()

	<-entered
	if _, changed := s.Update("n1", tagDoc("new")); !changed {
		t.Fatal("newer update should be applied")
	}
	close(release)
	r := <-older

	if r.changed {
		t.Error("superseded update reported changed")
	}
	if !slices.Equal(r.conns.Tags, []string{"old"}) {
		t.Errorf("superseded result = %v, want its own extraction", r.conns.Tags)
	}
	cached, _ := s.Get("n1")
	if !slices.Equal(cached.Tags, []string{"new"}) {
		t.Errorf("cached = %v, want new", cached.Tags)
	}

	s.flush()
	got := pub.snapshot()
	if len(got) != 1 || !slices.Equal(got[0].conns.Tags, []string{"new"}) {
		t.Errorf("emitted = %+v, want only the new result", got)
	}
}

func TestSession_ForgetDropsPendingAndCache(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewSession(pub, nil)

	s.Update("n1", tagDoc("a"))
	s.Update("n2", tagDoc("b"))
	s.Forget("n1")
	s.flush()

	if _, ok := s.Get("n1"); ok {
		t.Error("forgotten note still cached")
	}
	got := pub.snapshot()
	if len(got) != 1 || got[0].noteID != "n2" {
		t.Errorf("emitted = %+v, want only n2", got)
	}
}

func TestSession_RunEmitsAfterUpdate(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewSession(pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	c, _ := s.Update("n1", tagDoc("a"))
	if !slices.Equal(c.Tags, []string{"a"}) {
		t.Errorf("extraction should be available before emission, got %v", c.Tags)
	}

	deadline := time.Now().Add(time.Second)
	for len(pub.snapshot()) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("connections were not emitted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSession_MalformedContentYieldsEmpty(t *testing.T) {
	s := NewSession(nil, nil)
	c, changed := s.Update("n1", []byte("not json"))
	if !changed {
		t.Error("first update should report changed")
	}
	if len(c.Tags)+len(c.Links)+len(c.Entities) != 0 {
		t.Errorf("got %+v, want empty", c)
	}
}
