package state

import "sync"

type suspectShard struct {
	mu       sync.RWMutex
	suspects map[string]map[string]struct{}
}

// SuspectSet holds accounts flagged as likely raiders, per guild. Membership
// outlives lockdown: a flagged account stays flagged until swept or cleared.
type SuspectSet struct {
	shards [shardCount]suspectShard
}

func NewSuspectSet() *SuspectSet {
	ss := &SuspectSet{}
	for i := range ss.shards {
		ss.shards[i].suspects = make(map[string]map[string]struct{})
	}
	return ss
}

func (ss *SuspectSet) Add(guildID, userID string) {
	s := &ss.shards[shardFor(guildID)]
	s.mu.Lock()
	defer s.mu.Unlock()

	guild := s.suspects[guildID]
	if guild == nil {
		guild = make(map[string]struct{})
		s.suspects[guildID] = guild
	}
	guild[userID] = struct{}{}
}

func (ss *SuspectSet) Contains(guildID, userID string) bool {
	s := &ss.shards[shardFor(guildID)]
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.suspects[guildID][userID]
	return ok
}

func (ss *SuspectSet) Remove(guildID, userID string) {
	s := &ss.shards[shardFor(guildID)]
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.suspects[guildID], userID)
}

// Clear drops every suspect for the guild.
func (ss *SuspectSet) Clear(guildID string) {
	s := &ss.shards[shardFor(guildID)]
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.suspects, guildID)
}
