package infra

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"analysis-gateway/middleware/ratelimit/domain"
)

var t0 = time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)

func newMemory(t *testing.T, max int, d time.Duration, opts ...MemoryWindowOption) *MemoryWindowStore {
	t.Helper()
	s, err := NewMemoryWindowStore(domain.Window{MaxRequests: max, Duration: d}, opts...)
	if err != nil {
		t.Fatalf("NewMemoryWindowStore: %v", err)
	}
	return s
}

func TestNewMemoryWindowStore_RejectsInvalidWindow(t *testing.T) {
	if _, err := NewMemoryWindowStore(domain.Window{MaxRequests: 0, Duration: time.Minute}); err != domain.ErrInvalidWindow {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if _, err := NewMemoryWindowStore(domain.Window{MaxRequests: 1}); err != domain.ErrInvalidWindow {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestMemoryWindowStore_QuotaThenReject(t *testing.T) {
	s := newMemory(t, 30, time.Minute)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		dec, err := s.Admit(ctx, "c", t0.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("admit: %v", err)
		}
		if !dec.Allowed {
			t.Fatalf("request %d: expected allowed", i+1)
		}
		if dec.Remaining != 30-(i+1) {
			t.Fatalf("request %d: expected remaining %d, got %d", i+1, 30-(i+1), dec.Remaining)
		}
	}

	dec, _ := s.Admit(ctx, "c", t0.Add(30*time.Second))
	if dec.Allowed {
		t.Fatalf("expected 31st request to be rejected")
	}
	if !dec.Reset.Equal(t0.Add(time.Minute)) {
		t.Fatalf("expected reset at oldest+window, got %s", dec.Reset)
	}
	if dec.RetryAfter != 30*time.Second {
		t.Fatalf("expected RetryAfter=30s, got %s", dec.RetryAfter)
	}
}

func TestMemoryWindowStore_EntryExactlyDurationOldIsPruned(t *testing.T) {
	s := newMemory(t, 1, time.Minute)
	ctx := context.Background()

	if dec, _ := s.Admit(ctx, "c", t0); !dec.Allowed {
		t.Fatalf("expected first allowed")
	}
	if dec, _ := s.Admit(ctx, "c", t0.Add(time.Minute-time.Nanosecond)); dec.Allowed {
		t.Fatalf("expected rejection just inside the window")
	}
	if dec, _ := s.Admit(ctx, "c", t0.Add(time.Minute)); !dec.Allowed {
		t.Fatalf("expected admission once the entry is exactly one window old")
	}
}

func TestMemoryWindowStore_RejectionDoesNotMutate(t *testing.T) {
	s := newMemory(t, 2, time.Minute)
	ctx := context.Background()

	s.Admit(ctx, "c", t0)
	s.Admit(ctx, "c", t0.Add(10*time.Second))

	// rejeições repetidas não podem empurrar a janela para frente
	for i := 0; i < 5; i++ {
		if dec, _ := s.Admit(ctx, "c", t0.Add(time.Duration(20+i)*time.Second)); dec.Allowed {
			t.Fatalf("expected rejection %d", i)
		}
	}

	if dec, _ := s.Admit(ctx, "c", t0.Add(time.Minute)); !dec.Allowed {
		t.Fatalf("expected one slot freed by the first entry")
	}
	if dec, _ := s.Admit(ctx, "c", t0.Add(time.Minute+time.Second)); dec.Allowed {
		t.Fatalf("expected second entry to still occupy the window")
	}
}

func TestMemoryWindowStore_KeysAreIndependent(t *testing.T) {
	s := newMemory(t, 1, time.Minute)
	ctx := context.Background()

	if dec, _ := s.Admit(ctx, "a", t0); !dec.Allowed {
		t.Fatalf("expected a allowed")
	}
	if dec, _ := s.Admit(ctx, "a", t0); dec.Allowed {
		t.Fatalf("expected a rejected")
	}
	if dec, _ := s.Admit(ctx, "b", t0); !dec.Allowed {
		t.Fatalf("expected b allowed regardless of a")
	}
}

func TestMemoryWindowStore_CleanupRemovesOnlyStaleKeys(t *testing.T) {
	s := newMemory(t, 5, time.Minute, WithShards(4))
	ctx := context.Background()

	s.Admit(ctx, "old", t0)
	s.Admit(ctx, "fresh", t0.Add(30*time.Second))

	if removed := s.Cleanup(t0.Add(time.Minute)); removed != 1 {
		t.Fatalf("expected 1 key removed, got %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 key left, got %d", s.Len())
	}

	// "fresh" mantém a contagem depois da limpeza
	for i := 0; i < 4; i++ {
		s.Admit(ctx, "fresh", t0.Add(61*time.Second))
	}
	if dec, _ := s.Admit(ctx, "fresh", t0.Add(62*time.Second)); dec.Allowed {
		t.Fatalf("expected fresh window to be preserved by cleanup")
	}
}

func TestMemoryWindowStore_JanitorSweeps(t *testing.T) {
	s := newMemory(t, 1, time.Millisecond, WithCleanupEvery(5*time.Millisecond))
	s.Admit(context.Background(), "c", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	swept := make(chan int, 16)
	s.StartJanitor(ctx, func(removed int) { swept <- removed })

	deadline := time.After(time.Second)
	for {
		select {
		case n := <-swept:
			if n == 1 {
				if s.Len() != 0 {
					t.Fatalf("expected empty store, got %d keys", s.Len())
				}
				return
			}
		case <-deadline:
			t.Fatalf("janitor never removed the stale key")
		}
	}
}

func TestMemoryWindowStore_ConcurrentAdmitsNeverExceedMax(t *testing.T) {
	s := newMemory(t, 30, time.Minute)
	ctx := context.Background()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := s.Admit(ctx, "hot", t0)
			if err != nil {
				t.Errorf("admit: %v", err)
				return
			}
			if dec.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 30 {
		t.Fatalf("expected exactly 30 admissions, got %d", got)
	}
}

func TestMemoryWindowStore_ManyKeysAcrossShards(t *testing.T) {
	s := newMemory(t, 1, time.Minute, WithShards(8))
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if dec, _ := s.Admit(ctx, domain.Key(fmt.Sprintf("k%d", i)), t0); !dec.Allowed {
			t.Fatalf("expected k%d allowed", i)
		}
	}
	if s.Len() != 100 {
		t.Fatalf("expected 100 keys, got %d", s.Len())
	}
}
