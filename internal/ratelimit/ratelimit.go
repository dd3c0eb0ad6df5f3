package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Profile is a named pair of minimum spacings between archive requests.
// Download spacing applies to artifact transfers, scan spacing to the
// lighter metadata queries (issue list pagination, page resolution).
type Profile struct {
	Name     string
	Download time.Duration
	Scan     time.Duration
}

// The archive enforces a burst limit of 20 requests per minute and a crawl
// limit of 20 requests per 10 seconds. "safe" stays far inside both;
// "standard" stays inside the burst limit.
var profiles = map[string]Profile{
	"safe":     {Name: "safe", Download: 15 * time.Second, Scan: 3 * time.Second},
	"standard": {Name: "standard", Download: 4 * time.Second, Scan: 2 * time.Second},
}

// ProfileByName looks up a speed profile.
func ProfileByName(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown speed profile %q", name)
	}
	return p, nil
}

// Limiter enforces the minimum spacing between sequential requests. It is
// constructed once per run and passed to every call site; it is not safe
// for concurrent callers (the run loop is strictly sequential).
type Limiter struct {
	profile Profile
	last    time.Time
	sleep   func(context.Context, time.Duration) error
}

// New builds a limiter for the given profile.
func New(profile Profile) *Limiter {
	return &Limiter{profile: profile, sleep: sleepContext}
}

// Profile returns the limiter's profile.
func (l *Limiter) Profile() Profile {
	return l.profile
}

// Wait blocks until the download spacing has elapsed since the previous
// Wait or WaitScan returned. The first call returns immediately.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.pause(ctx, l.profile.Download)
}

// WaitScan blocks using the lighter scan spacing.
func (l *Limiter) WaitScan(ctx context.Context) error {
	return l.pause(ctx, l.profile.Scan)
}

func (l *Limiter) pause(ctx context.Context, interval time.Duration) error {
	if !l.last.IsZero() {
		remaining := interval - time.Since(l.last)
		if remaining > 0 {
			if err := l.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}
	l.last = time.Now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
