package models

import "time"

// ModerationLogEntry records an action taken (or attempted) against a subject.
// Entries are append-only.
type ModerationLogEntry struct {
	ID        int64
	GuildID   string
	UserID    string
	Action    string
	Reason    string
	ActorID   string
	Timestamp time.Time
}

// DamageReport signals that a tenant's structure has fallen below the
// survivable floor and restoration should be attempted. Emitted by the nuke
// response path, consumed by the engine independently of the executor.
type DamageReport struct {
	GuildID      string
	ChannelCount int
	RoleCount    int
	Reason       string
	ReportedAt   time.Time
}
