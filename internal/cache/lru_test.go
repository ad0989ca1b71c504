package cache

import (
	"log/slog"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRU[core.Month, string](4, time.Hour)
	aug := core.Month{Year: 2025, Month: time.August}

	if _, ok := c.Get(aug); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.Set(aug, "august")
	got, ok := c.Get(aug)
	if !ok || got != "august" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	c.Set(aug, "replaced")
	if got, _ := c.Get(aug); got != "replaced" {
		t.Fatalf("Set must overwrite, got %q", got)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}
}

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRU[int, int](2, time.Hour)
	c.Set(1, 1)
	c.Set(2, 2)

	// Touch 1 so 2 becomes the eviction target.
	c.Get(1)
	c.Set(3, 3)

	if _, ok := c.Get(2); ok {
		t.Fatalf("expected 2 evicted")
	}
	if _, ok := c.Get(1); !ok {
		t.Fatalf("expected 1 kept")
	}
	if _, ok := c.Get(3); !ok {
		t.Fatalf("expected 3 kept")
	}
}

func TestLRUTTL(t *testing.T) {
	c := NewLRU[int, int](4, time.Millisecond)
	c.Set(1, 1)
	time.Sleep(3 * time.Millisecond)

	if _, ok := c.Get(1); ok {
		t.Fatalf("expected expiry")
	}
	c.Set(2, 2)
	time.Sleep(3 * time.Millisecond)
	if got := c.CleanExpired(); got != 1 {
		t.Fatalf("CleanExpired = %d", got)
	}
	if c.Len() != 0 {
		t.Fatalf("Len after cleanup = %d", c.Len())
	}
}

func TestLRUDelete(t *testing.T) {
	c := NewLRU[int, int](4, time.Hour)
	c.Set(1, 1)
	c.Delete(1)
	if _, ok := c.Get(1); ok {
		t.Fatalf("expected delete")
	}
	c.Delete(99) // absent key is fine
}

func TestManagerCleanup(t *testing.T) {
	m := NewManager(log.New(log.Config{Level: slog.LevelError}))
	c := NewLRU[int, int](4, time.Millisecond)
	m.Register(c)

	c.Set(1, 1)
	m.StartCleanup(5 * time.Millisecond)

	deadline := time.After(2 * time.Second)
	for c.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("cleanup never dropped the expired entry")
		case <-time.After(time.Millisecond):
		}
	}
	m.Stop()
	m.Stop() // idempotent
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(log.New(log.Config{Level: slog.LevelError}))
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Stop blocked without StartCleanup")
	}
}
