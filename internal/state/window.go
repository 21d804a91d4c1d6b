package state

import (
	"sync"
	"time"
)

type windowKey struct {
	guildID string
	userID  string
}

type windowShard struct {
	mu      sync.Mutex
	windows map[windowKey][]time.Time
}

// WindowCounter is a sliding-window event counter keyed by (guild, user).
// Entries older than the window are discarded before every count is read,
// so a count never includes expired events.
type WindowCounter struct {
	window time.Duration
	shards [shardCount]windowShard
}

func NewWindowCounter(window time.Duration) *WindowCounter {
	wc := &WindowCounter{window: window}
	for i := range wc.shards {
		wc.shards[i].windows = make(map[windowKey][]time.Time)
	}
	return wc
}

// SetWindow adjusts the window size. Existing entries are re-evaluated
// against the new window on the next read.
func (wc *WindowCounter) SetWindow(window time.Duration) {
	for i := range wc.shards {
		wc.shards[i].mu.Lock()
	}
	wc.window = window
	for i := range wc.shards {
		wc.shards[i].mu.Unlock()
	}
}

// Record appends now to the key's window and returns the count of entries
// still inside the window. An unseen key starts empty.
func (wc *WindowCounter) Record(guildID, userID string) int {
	return wc.RecordAt(guildID, userID, time.Now())
}

// RecordAt is Record with an explicit timestamp. Insertion order must be
// monotonic per key; the platform delivers per-tenant events in order.
func (wc *WindowCounter) RecordAt(guildID, userID string, now time.Time) int {
	s := &wc.shards[shardFor(guildID)]
	s.mu.Lock()
	defer s.mu.Unlock()

	key := windowKey{guildID, userID}
	entries := append(s.windows[key], now)
	entries = pruneBefore(entries, now.Add(-wc.window))
	s.windows[key] = entries
	return len(entries)
}

// Count returns the in-window count without recording a new entry.
func (wc *WindowCounter) Count(guildID, userID string) int {
	return wc.CountAt(guildID, userID, time.Now())
}

func (wc *WindowCounter) CountAt(guildID, userID string, now time.Time) int {
	s := &wc.shards[shardFor(guildID)]
	s.mu.Lock()
	defer s.mu.Unlock()

	key := windowKey{guildID, userID}
	entries := pruneBefore(s.windows[key], now.Add(-wc.window))
	if len(entries) == 0 {
		delete(s.windows, key)
	} else {
		s.windows[key] = entries
	}
	return len(entries)
}

// Sweep drops every entry older than maxAge and removes empty keys.
// Runs periodically, independent of event arrival.
func (wc *WindowCounter) Sweep(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	for i := range wc.shards {
		s := &wc.shards[i]
		s.mu.Lock()
		for key, entries := range s.windows {
			entries = pruneBefore(entries, cutoff)
			if len(entries) == 0 {
				delete(s.windows, key)
			} else {
				s.windows[key] = entries
			}
		}
		s.mu.Unlock()
	}
}

// Reset clears every window for a guild.
func (wc *WindowCounter) Reset(guildID string) {
	s := &wc.shards[shardFor(guildID)]
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.windows {
		if key.guildID == guildID {
			delete(s.windows, key)
		}
	}
}

// pruneBefore drops leading entries older than cutoff. Entries are in
// insertion order, so the first surviving index covers the rest.
func pruneBefore(entries []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(entries) && entries[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return entries
	}
	return append(entries[:0], entries[i:]...)
}
