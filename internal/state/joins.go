package state

import (
	"sync"
	"time"
)

// JoinRetention is how long join records are kept. The raid detector uses
// it to judge post-join behavior, the lockdown path to decide who gets
// force-removed, and the sweep to expire records.
const JoinRetention = 24 * time.Hour

type joinShard struct {
	mu    sync.Mutex
	joins map[string]map[string]time.Time
}

// JoinTracker remembers when each account joined a guild. The raid detector
// reads burst counts from it and the lockdown path reads the membership to
// force-remove accounts that arrived during the tracked window.
type JoinTracker struct {
	shards [shardCount]joinShard
}

func NewJoinTracker() *JoinTracker {
	jt := &JoinTracker{}
	for i := range jt.shards {
		jt.shards[i].joins = make(map[string]map[string]time.Time)
	}
	return jt
}

func (jt *JoinTracker) RecordJoin(guildID, userID string, at time.Time) {
	s := &jt.shards[shardFor(guildID)]
	s.mu.Lock()
	defer s.mu.Unlock()

	guild := s.joins[guildID]
	if guild == nil {
		guild = make(map[string]time.Time)
		s.joins[guildID] = guild
	}
	guild[userID] = at
}

// RecentCount returns how many accounts joined within the window ending now.
func (jt *JoinTracker) RecentCount(guildID string, window time.Duration, now time.Time) int {
	s := &jt.shards[shardFor(guildID)]
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	count := 0
	for _, t := range s.joins[guildID] {
		if !t.Before(cutoff) {
			count++
		}
	}
	return count
}

// RecentMembers returns the accounts that joined within the window.
func (jt *JoinTracker) RecentMembers(guildID string, window time.Duration, now time.Time) []string {
	s := &jt.shards[shardFor(guildID)]
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	var members []string
	for userID, t := range s.joins[guildID] {
		if !t.Before(cutoff) {
			members = append(members, userID)
		}
	}
	return members
}

// IsRecentJoin reports whether the account joined within the window.
func (jt *JoinTracker) IsRecentJoin(guildID, userID string, window time.Duration, now time.Time) bool {
	s := &jt.shards[shardFor(guildID)]
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.joins[guildID][userID]
	return ok && !t.Before(now.Add(-window))
}

// Sweep removes join records older than maxAge. Returns the guilds whose
// records emptied out entirely so callers can drop dependent state.
func (jt *JoinTracker) Sweep(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)
	var emptied []string
	for i := range jt.shards {
		s := &jt.shards[i]
		s.mu.Lock()
		for guildID, guild := range s.joins {
			for userID, t := range guild {
				if t.Before(cutoff) {
					delete(guild, userID)
				}
			}
			if len(guild) == 0 {
				delete(s.joins, guildID)
				emptied = append(emptied, guildID)
			}
		}
		s.mu.Unlock()
	}
	return emptied
}
