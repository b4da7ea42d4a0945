package application

import (
	"strings"
	"sync"
	"time"
)

// conflictCache stores recently computed conflict reports and availability
// rosters so repeated picker queries do not re-run the detector while the
// assignment set remains unchanged. Any assignment write invalidates it.
type conflictCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	reports    map[string]reportEntry
	rosters    map[string]rosterEntry
}

type reportEntry struct {
	reports   []ConflictReport
	expiresAt time.Time
}

type rosterEntry struct {
	attendants []Attendant
	expiresAt  time.Time
}

func newConflictCache(ttl time.Duration, maxEntries int, now func() time.Time) *conflictCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &conflictCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		reports:    make(map[string]reportEntry),
		rosters:    make(map[string]rosterEntry),
	}
}

func (c *conflictCache) GetReports(key string) ([]ConflictReport, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.reports[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.reports, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneReports(entry.reports), true
}

func (c *conflictCache) StoreReports(key string, reports []ConflictReport) {
	if c == nil {
		return
	}
	cloned := cloneReports(reports)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.reports) >= c.maxEntries {
		c.evictReportLocked()
	}
	c.reports[key] = reportEntry{reports: cloned, expiresAt: expiry}
}

func (c *conflictCache) GetRoster(key string) ([]Attendant, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.rosters[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.rosters, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneAttendants(entry.attendants), true
}

func (c *conflictCache) StoreRoster(key string, attendants []Attendant) {
	if c == nil {
		return
	}
	cloned := cloneAttendants(attendants)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.rosters) >= c.maxEntries {
		c.evictRosterLocked()
	}
	c.rosters[key] = rosterEntry{attendants: cloned, expiresAt: expiry}
}

func (c *conflictCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.reports = make(map[string]reportEntry)
	c.rosters = make(map[string]rosterEntry)
	c.mu.Unlock()
}

func (c *conflictCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.reports {
		if now.After(entry.expiresAt) {
			delete(c.reports, key)
		}
	}
	for key, entry := range c.rosters {
		if now.After(entry.expiresAt) {
			delete(c.rosters, key)
		}
	}
}

func (c *conflictCache) evictReportLocked() {
	for key := range c.reports {
		delete(c.reports, key)
		return
	}
}

func (c *conflictCache) evictRosterLocked() {
	for key := range c.rosters {
		delete(c.rosters, key)
		return
	}
}

func cloneReports(reports []ConflictReport) []ConflictReport {
	if len(reports) == 0 {
		return nil
	}
	out := make([]ConflictReport, len(reports))
	copy(out, reports)
	return out
}

func cloneAttendants(attendants []Attendant) []Attendant {
	if len(attendants) == 0 {
		return nil
	}
	out := make([]Attendant, len(attendants))
	copy(out, attendants)
	return out
}

func conflictReportKey(attendantID, eventID string) string {
	return strings.Join([]string{"reports", attendantID, eventID}, "|")
}

func availabilityKey(eventID string) string {
	return strings.Join([]string{"roster", eventID}, "|")
}
