package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestVerifySucceedsOnceLive(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clock := newFakeClock()
	v := NewVerifier(clock)

	res, err := v.Verify(context.Background(), srv.URL+"/n-001/")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Verified {
		t.Fatal("result not verified")
	}
	if res.URL != srv.URL+"/n-001/" {
		t.Errorf("url = %q", res.URL)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("probed %d times, want 3", got)
	}
	// Two failed probes means two 10s waits.
	sleeps := clock.recorded()
	if len(sleeps) != 2 || sleeps[0] != 10*time.Second {
		t.Errorf("sleeps = %v, want two 10s intervals", sleeps)
	}
}

func TestVerifyDeadlineReturnsUnconfirmedURL(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	clock := newFakeClock()
	v := NewVerifier(clock)

	res, err := v.Verify(context.Background(), srv.URL+"/n-002/")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Verified {
		t.Fatal("result verified, want unconfirmed")
	}
	if res.URL != srv.URL+"/n-002/" {
		t.Errorf("timeout must still return the computed URL, got %q", res.URL)
	}
	// Fixed 10s interval against a 300s deadline: probes at 0s..290s.
	if got := hits.Load(); got != 30 {
		t.Errorf("probed %d times, want 30", got)
	}
}

func TestVerifyTransportErrorIsRetryable(t *testing.T) {
	clock := newFakeClock()
	v := NewVerifier(clock)
	v.HTTP = &http.Client{Timeout: 100 * time.Millisecond}

	res, err := v.Verify(context.Background(), "http://127.0.0.1:1/unreachable/")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Verified {
		t.Fatal("unreachable URL reported verified")
	}
}
