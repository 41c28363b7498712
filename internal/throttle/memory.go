package throttle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type entry struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
}

// Memory is an in-process Limiter
type Memory struct {
	policy  Policy
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
	cron    *cron.Cron
}

// NewMemory creates an in-memory limiter
func NewMemory(policy Policy) *Memory {
	return &Memory{
		policy:  policy.normalized(),
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allowed implements Limiter
func (m *Memory) Allowed(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[Key(key)]
	if !ok {
		return true, nil
	}
	return !m.now().Before(e.lockedUntil), nil
}

// Failure implements Limiter
func (m *Memory) Failure(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := Key(key)
	e, ok := m.entries[k]
	if !ok || now.Sub(e.windowStart) >= m.policy.Window {
		e = &entry{windowStart: now}
		m.entries[k] = e
	}

	e.failures++
	if e.failures >= m.policy.MaxAttempts {
		e.lockedUntil = now.Add(m.policy.Lockout)
		// A new window starts once the lock ends
		e.failures = 0
		e.windowStart = e.lockedUntil
		slog.Warn("Login locked after repeated failures", "lockout", m.policy.Lockout)
	}
	return nil
}

// Reset implements Limiter
func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, Key(key))
	return nil
}

// Sweep drops entries that are neither locked nor inside a counting window.
// Returns the number of entries removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if now.Before(e.lockedUntil) {
			continue
		}
		if now.Sub(e.windowStart) < m.policy.Window && e.failures > 0 {
			continue
		}
		delete(m.entries, k)
		removed++
	}
	return removed
}

// Len returns the number of tracked keys
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// StartSweeper runs Sweep on the given cron schedule (e.g. "@every 1m")
func (m *Memory) StartSweeper(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if n := m.Sweep(); n > 0 {
			slog.Debug("Swept expired login throttle entries", "removed", n)
		}
	}); err != nil {
		return err
	}
	c.Start()

	m.mu.Lock()
	m.cron = c
	m.mu.Unlock()
	return nil
}

// Stop halts the sweeper and waits for a running sweep to finish
func (m *Memory) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
