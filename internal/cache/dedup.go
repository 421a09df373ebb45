package cache

import (
	"sync"
	"time"
)

type record struct {
	campaignID string
	notifiedAt time.Time
}

// Dedup remembers, per project alias, the last campaign a notification was
// committed for. Only the polling loop writes; /stats reads concurrently.
type Dedup struct {
	mu      sync.RWMutex
	records map[string]record
}

func NewDedup() *Dedup {
	return &Dedup{
		records: make(map[string]record),
	}
}

// LastNotified returns the campaign id recorded for alias.
func (d *Dedup) LastNotified(alias string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, exists := d.records[alias]
	return r.campaignID, exists
}

func (d *Dedup) Record(alias, campaignID string, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.records[alias] = record{campaignID: campaignID, notifiedAt: at}
}

// Retain drops records for aliases that are no longer tracked and returns how
// many were removed.
func (d *Dedup) Retain(aliases []string) int {
	keep := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		keep[a] = struct{}{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for alias := range d.records {
		if _, ok := keep[alias]; !ok {
			delete(d.records, alias)
			removed++
		}
	}
	return removed
}

func (d *Dedup) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

func (d *Dedup) Stats() map[string]interface{} {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var latest time.Time
	for _, r := range d.records {
		if r.notifiedAt.After(latest) {
			latest = r.notifiedAt
		}
	}

	stats := map[string]interface{}{
		"tracked_aliases": len(d.records),
	}
	if !latest.IsZero() {
		stats["last_notified_at"] = latest.UTC().Format(time.RFC3339)
	}
	return stats
}
