package server

import (
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(Limit{Requests: 3, Period: 3 * time.Second}, clock.Now)

	for i := 0; i < 3; i++ {
		if ok, _ := l.allow("10.0.0.1"); !ok {
			t.Fatalf("request %d denied within burst", i)
		}
	}

	ok, wait := l.allow("10.0.0.1")
	if ok {
		t.Fatal("request beyond burst allowed")
	}
	if wait <= 0 || wait > time.Second {
		t.Errorf("wait = %v, want (0, 1s]", wait)
	}

	if ok, _ := l.allow("10.0.0.2"); !ok {
		t.Error("buckets are not per client")
	}

	clock.Advance(1100 * time.Millisecond)
	if ok, _ := l.allow("10.0.0.1"); !ok {
		t.Error("bucket did not refill")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	var l *limiter
	for i := 0; i < 100; i++ {
		if ok, _ := l.allow("x"); !ok {
			t.Fatal("nil limiter denied a request")
		}
	}
}

func TestLimiter_Prune(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(Limit{Requests: 2, Period: time.Second}, clock.Now)

	l.allow("a")
	l.allow("b")
	clock.Advance(2 * time.Second)
	l.prune()

	l.mu.Lock()
	n := len(l.buckets)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("buckets after prune = %d, want 0", n)
	}
}

func TestLimiter_DeniedRequestsAreNotCharged(t *testing.T) {
	tests := []struct {
		name    string
		limit   Limit
		denials int
		want    time.Duration
	}{
		{"one per minute", Limit{Requests: 1, Period: time.Minute}, 5, time.Minute},
		{"five per minute", Limit{Requests: 5, Period: time.Minute}, 3, 12 * time.Second},
		{"default period", Limit{Requests: 2}, 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			l := newLimiter(tt.limit, clock.Now)
			for i := 0; i < tt.limit.Requests; i++ {
				l.allow("c")
			}
			for i := 0; i < tt.denials; i++ {
				ok, wait := l.allow("c")
				if ok {
					t.Fatalf("denial %d allowed", i)
				}
				if wait < tt.want-time.Millisecond || wait > tt.want+time.Millisecond {
					t.Errorf("denial %d wait = %v, want %v", i, wait, tt.want)
				}
			}
			clock.Advance(tt.want + time.Millisecond)
			if ok, _ := l.allow("c"); !ok {
				t.Error("request denied after the advertised wait")
			}
		})
	}
}
