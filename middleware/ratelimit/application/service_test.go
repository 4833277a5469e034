package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"analysis-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	dec   domain.Decision
	err   error
	calls int
	at    time.Time
}

func (s *fakeStore) Admit(_ context.Context, _ domain.Key, now time.Time) (domain.Decision, error) {
	s.calls++
	s.at = now
	return s.dec, s.err
}

func (s *fakeStore) Window() domain.Window {
	return domain.Window{MaxRequests: 30, Duration: time.Minute}
}

func TestService_Decide_AllowsWhenNoStore(t *testing.T) {
	svc := Service{}
	dec := svc.Decide(context.Background(), "k")
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec.RetryAfter != 0 {
		t.Fatalf("expected RetryAfter=0 when allowed, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_UsesInjectedClock(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{dec: domain.Decision{Allowed: true, Limit: 30, Remaining: 29}}
	svc := Service{Store: store, Now: func() time.Time { return now }}

	dec := svc.Decide(context.Background(), "k")
	if !dec.Allowed || dec.Remaining != 29 {
		t.Fatalf("unexpected decision %+v", dec)
	}
	if !store.at.Equal(now) {
		t.Fatalf("expected store to receive injected now, got %s", store.at)
	}
}

func TestService_Decide_RejectedKeepsRetryAfter(t *testing.T) {
	store := &fakeStore{dec: domain.Decision{Allowed: false, RetryAfter: 42 * time.Second}}
	svc := Service{Store: store}

	dec := svc.Decide(context.Background(), "k")
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 42*time.Second {
		t.Fatalf("expected RetryAfter=42s, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_RejectedRetryAfterHasFloorOfOneSecond(t *testing.T) {
	store := &fakeStore{dec: domain.Decision{Allowed: false, RetryAfter: 200 * time.Millisecond}}
	svc := Service{Store: store}

	dec := svc.Decide(context.Background(), "k")
	if dec.RetryAfter != time.Second {
		t.Fatalf("expected RetryAfter floor of 1s, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_FailsOpenOnStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("redis down")}
	svc := Service{Store: store, Logger: zaptest.NewLogger(t)}

	dec := svc.Decide(context.Background(), "k")
	if !dec.Allowed {
		t.Fatalf("expected fail-open decision, got %+v", dec)
	}
	if store.calls != 1 {
		t.Fatalf("expected one Admit call, got %d", store.calls)
	}
}
