// Package ratelimit throttles file reads to a shared bytes-per-second budget.
package ratelimit

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// minBurst keeps small limits from degrading into many tiny reads
const minBurst = 64 * 1024

// Limiter is a token bucket shared by every reader it wraps
type Limiter struct {
	rate  int64
	burst int64

	mu     sync.Mutex
	tokens int64
	last   time.Time
	now    func() time.Time
}

// NewLimiter returns nil when bytesPerSecond is not positive, meaning no limit
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	burst := max(bytesPerSecond, minBurst)
	l := &Limiter{
		rate:   bytesPerSecond,
		burst:  burst,
		tokens: burst,
		now:    time.Now,
	}
	l.last = l.now()
	return l
}

// Rate returns the configured limit in bytes per second
func (l *Limiter) Rate() int64 {
	if l == nil {
		return 0
	}
	return l.rate
}

// WaitN blocks until n bytes may be read or ctx is done.
// n is capped at the burst size.
func (l *Limiter) WaitN(ctx context.Context, n int64) error {
	n = min(n, l.burst)
	for {
		wait := l.reserve(n)
		if wait == 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes n tokens and returns 0, or returns how long to wait before retrying
func (l *Limiter) reserve(n int64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if elapsed := now.Sub(l.last); elapsed > 0 {
		l.tokens = min(l.burst, l.tokens+int64(elapsed.Seconds()*float64(l.rate)))
		l.last = now
	}

	if l.tokens >= n {
		l.tokens -= n
		return 0
	}

	wait := time.Duration(float64(n-l.tokens) / float64(l.rate) * float64(time.Second))
	return max(wait, time.Millisecond)
}

// refund returns tokens that were reserved but not read
func (l *Limiter) refund(n int64) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	l.tokens = min(l.burst, l.tokens+n)
	l.mu.Unlock()
}

type reader struct {
	ctx     context.Context
	src     io.ReadCloser
	limiter *Limiter
}

// Wrap throttles rc through the limiter. A nil limiter returns rc unchanged.
func Wrap(ctx context.Context, rc io.ReadCloser, l *Limiter) io.ReadCloser {
	if l == nil {
		return rc
	}
	return &reader{ctx: ctx, src: rc, limiter: l}
}

func (r *reader) Read(p []byte) (int, error) {
	want := min(int64(len(p)), r.limiter.burst)
	if err := r.limiter.WaitN(r.ctx, want); err != nil {
		return 0, err
	}

	n, err := r.src.Read(p[:want])
	r.limiter.refund(want - int64(n))
	return n, err
}

func (r *reader) Close() error {
	return r.src.Close()
}

// ParseRate parses a rate such as "512K", "10M" or "1G" into bytes per second.
// Suffixes are binary multiples. An empty string or "0" means unlimited.
func ParseRate(rate string) (int64, error) {
	s := strings.TrimSpace(strings.ToUpper(rate))
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/S"), "B")
	if s == "" {
		return 0, nil
	}

	multiplier := int64(1)
	switch s[len(s)-1] {
	case 'K':
		multiplier = 1 << 10
	case 'M':
		multiplier = 1 << 20
	case 'G':
		multiplier = 1 << 30
	}
	if multiplier > 1 {
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid rate %q", rate)
	}
	return int64(value * float64(multiplier)), nil
}
