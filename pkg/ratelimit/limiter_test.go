package ratelimit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// fakeClock lets tests advance the limiter's notion of time
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(rate int64) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := NewLimiter(rate)
	l.now = clock.now
	l.last = clock.t
	return l, clock
}

func TestNewLimiter(t *testing.T) {
	t.Run("Unlimited", func(t *testing.T) {
		for _, rate := range []int64{0, -100} {
			if l := NewLimiter(rate); l != nil {
				t.Errorf("NewLimiter(%d) = %v, want nil", rate, l)
			}
		}
	})

	t.Run("SmallRateUsesMinimumBurst", func(t *testing.T) {
		l := NewLimiter(1000)
		if l.burst != minBurst {
			t.Errorf("burst = %d, want %d", l.burst, minBurst)
		}
		if l.Rate() != 1000 {
			t.Errorf("Rate() = %d, want 1000", l.Rate())
		}
	})

	t.Run("LargeRateBurstsOneSecond", func(t *testing.T) {
		l := NewLimiter(100 << 20)
		if l.burst != 100<<20 {
			t.Errorf("burst = %d, want %d", l.burst, 100<<20)
		}
	})

	t.Run("NilRate", func(t *testing.T) {
		var l *Limiter
		if l.Rate() != 0 {
			t.Errorf("nil Rate() = %d, want 0", l.Rate())
		}
	})
}

func TestReserve(t *testing.T) {
	l, clock := newTestLimiter(minBurst)

	if wait := l.reserve(minBurst); wait != 0 {
		t.Fatalf("first reserve waited %v, want full bucket", wait)
	}

	wait := l.reserve(minBurst / 2)
	if wait < 400*time.Millisecond || wait > 600*time.Millisecond {
		t.Errorf("wait = %v, want about 500ms", wait)
	}

	clock.t = clock.t.Add(500 * time.Millisecond)
	if wait := l.reserve(minBurst / 2); wait != 0 {
		t.Errorf("reserve after refill waited %v", wait)
	}

	// Refill never exceeds the burst
	clock.t = clock.t.Add(time.Hour)
	l.reserve(0)
	if l.tokens != l.burst {
		t.Errorf("tokens = %d, want %d", l.tokens, l.burst)
	}
}

func TestRefund(t *testing.T) {
	l, _ := newTestLimiter(minBurst)
	l.reserve(minBurst)

	l.refund(100)
	if l.tokens != 100 {
		t.Errorf("tokens = %d, want 100", l.tokens)
	}

	l.refund(10 * minBurst)
	if l.tokens != l.burst {
		t.Errorf("tokens = %d, want capped at %d", l.tokens, l.burst)
	}
}

func TestWaitNCancelled(t *testing.T) {
	l, _ := newTestLimiter(1)
	l.reserve(l.burst)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.WaitN(ctx, 1024); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitN() error = %v, want context.Canceled", err)
	}
}

func TestWrap(t *testing.T) {
	ctx := context.Background()

	t.Run("NilLimiter", func(t *testing.T) {
		src := io.NopCloser(strings.NewReader("abc"))
		if got := Wrap(ctx, src, nil); got != src {
			t.Error("Wrap() with nil limiter should return the source")
		}
	})

	t.Run("ReadsEverything", func(t *testing.T) {
		data := bytes.Repeat([]byte("x"), 3*minBurst+5)
		rc := Wrap(ctx, io.NopCloser(bytes.NewReader(data)), NewLimiter(1<<30))
		defer rc.Close()

		got, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("read %d bytes, want %d", len(got), len(data))
		}
	})

	t.Run("Throttles", func(t *testing.T) {
		// The first burst is free, the second waits about a quarter second
		data := make([]byte, minBurst+minBurst/4)
		rc := Wrap(ctx, io.NopCloser(bytes.NewReader(data)), NewLimiter(minBurst))

		start := time.Now()
		if _, err := io.ReadAll(rc); err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
			t.Errorf("read finished in %v, expected throttling", elapsed)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		l := NewLimiter(1)
		l.reserve(l.burst)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		rc := Wrap(cctx, io.NopCloser(strings.NewReader("abc")), l)
		if _, err := rc.Read(make([]byte, 3)); !errors.Is(err, context.Canceled) {
			t.Errorf("Read() error = %v, want context.Canceled", err)
		}
	})
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"1024", 1024, false},
		{"512K", 512 << 10, false},
		{"10M", 10 << 20, false},
		{"10mb", 10 << 20, false},
		{"1G/s", 1 << 30, false},
		{"1.5M", 3 << 19, false},
		{"fast", 0, true},
		{"-1M", 0, true},
		{"M", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseRate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRate(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
