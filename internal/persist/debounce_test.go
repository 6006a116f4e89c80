package persist

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_Coalesces(t *testing.T) {
	var saves atomic.Int32
	d := NewDebouncer("test", 30*time.Millisecond, func() error {
		saves.Add(1)
		return nil
	}, nil)

	for i := 0; i < 10; i++ {
		d.Schedule()
		time.Sleep(2 * time.Millisecond)
	}

	deadline := time.Now().Add(time.Second)
	for saves.Load() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("debounced save did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(60 * time.Millisecond)
	if n := saves.Load(); n != 1 {
		t.Errorf("saves = %d, want 1", n)
	}
	if d.Pending() {
		t.Error("still pending after save")
	}
}

func TestDebouncer_FlushSavesImmediately(t *testing.T) {
	var saves atomic.Int32
	d := NewDebouncer("test", time.Hour, func() error {
		saves.Add(1)
		return nil
	}, nil)

	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := saves.Load(); n != 0 {
		t.Errorf("saves = %d with nothing dirty, want 0", n)
	}

	d.Schedule()
	if !d.Pending() {
		t.Error("Schedule did not mark pending")
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := saves.Load(); n != 1 {
		t.Errorf("saves = %d, want 1", n)
	}
	if d.Pending() {
		t.Error("still pending after flush")
	}
}

func TestDebouncer_SaveErrorReturnedFromFlush(t *testing.T) {
	boom := errors.New("disk full")
	d := NewDebouncer("test", time.Hour, func() error { return boom }, nil)
	d.Schedule()
	if err := d.Flush(); !errors.Is(err, boom) {
		t.Errorf("Flush = %v, want %v", err, boom)
	}
}

func TestNewDebouncer_DefaultDelay(t *testing.T) {
	d := NewDebouncer("test", 0, func() error { return nil }, nil)
	if d.delay != DefaultDelay {
		t.Errorf("delay = %v, want %v", d.delay, DefaultDelay)
	}
}
