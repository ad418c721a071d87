// Package ratelimit implements the local daily message quota used in builtin
// provider mode.
package ratelimit

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultDailyLimit is the number of free messages per calendar day.
const DefaultDailyLimit = 10

// Daily counts messages per calendar day and resets at local midnight. All
// methods are safe for concurrent use.
type Daily struct {
	mu       sync.Mutex
	limit    int
	used     int
	day      time.Time
	now      func() time.Time
	location *time.Location
	path     string
}

// Option configures a Daily limiter.
type Option func(*Daily)

// WithLimit sets the daily limit. Non-positive values keep the default.
func WithLimit(limit int) Option {
	return func(d *Daily) {
		if limit > 0 {
			d.limit = limit
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Daily) { d.now = now }
}

// WithLocation sets the time zone whose midnight resets the counter.
func WithLocation(location *time.Location) Option {
	return func(d *Daily) { d.location = location }
}

// WithStateFile persists the counter to path so it survives restarts. A
// missing or unreadable file starts from zero.
func WithStateFile(path string) Option {
	return func(d *Daily) { d.path = path }
}

// NewDaily creates a limiter with DefaultDailyLimit.
func NewDaily(opts ...Option) *Daily {
	d := &Daily{
		limit:    DefaultDailyLimit,
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.day = d.startOfDay(d.now())
	d.load()
	return d
}

// CanSend reports whether a message may be sent today.
func (d *Daily) CanSend() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetIfNeeded()
	return d.used < d.limit
}

// RecordUsage counts one message.
func (d *Daily) RecordUsage() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetIfNeeded()
	d.used++
	d.save()
}

// TryAcquire checks and records under a single lock. It returns false, and
// records nothing, when the limit is reached.
func (d *Daily) TryAcquire() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetIfNeeded()
	if d.used >= d.limit {
		return false
	}
	d.used++
	d.save()
	return true
}

// Remaining returns the messages left today.
func (d *Daily) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetIfNeeded()
	return max(0, d.limit-d.used)
}

func (d *Daily) Limit() int {
	return d.limit
}

// ResetAt returns the next local midnight.
func (d *Daily) ResetAt() time.Time {
	return d.startOfDay(d.now()).AddDate(0, 0, 1)
}

// ResetDescription describes when the quota resets relative to now, such as
// "in 5h 12m".
func (d *Daily) ResetDescription() string {
	until := d.ResetAt().Sub(d.now())
	if until < time.Minute {
		return "in less than a minute"
	}
	hours := int(until / time.Hour)
	minutes := int((until % time.Hour) / time.Minute)
	if hours == 0 {
		return fmt.Sprintf("in %dm", minutes)
	}
	return fmt.Sprintf("in %dh %dm", hours, minutes)
}

// StatusText is the user-facing usage line.
func (d *Daily) StatusText() string {
	if remaining := d.Remaining(); remaining > 0 {
		return fmt.Sprintf("%d/%d messages left today", remaining, d.limit)
	}
	return fmt.Sprintf("Daily free quota used up, resets %s", d.ResetDescription())
}

func (d *Daily) startOfDay(t time.Time) time.Time {
	t = t.In(d.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, d.location)
}

// resetIfNeeded must be called with mu held.
func (d *Daily) resetIfNeeded() {
	today := d.startOfDay(d.now())
	if d.day.Before(today) {
		d.day = today
		d.used = 0
		d.save()
	}
}

type state struct {
	Day  string `json:"day"`
	Used int    `json:"used"`
}

const dayLayout = "2006-01-02"

func (d *Daily) load() {
	if d.path == "" {
		return
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("ratelimit: failed to read state", "path", d.path, "error", err)
		}
		return
	}

	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		slog.Warn("ratelimit: ignoring corrupt state", "path", d.path, "error", err)
		return
	}
	day, err := time.ParseInLocation(dayLayout, s.Day, d.location)
	if err != nil || !day.Equal(d.day) {
		return
	}
	d.used = s.Used
}

// save must be called with mu held.
func (d *Daily) save() {
	if d.path == "" {
		return
	}
	data, err := json.Marshal(state{Day: d.day.Format(dayLayout), Used: d.used})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o750); err != nil {
		slog.Warn("ratelimit: failed to create state dir", "path", d.path, "error", err)
		return
	}
	if err := os.WriteFile(d.path, data, 0o600); err != nil {
		slog.Warn("ratelimit: failed to write state", "path", d.path, "error", err)
	}
}
