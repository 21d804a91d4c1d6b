package platform

import (
	"context"
	"time"
)

// Discord audit log action types consumed by the correlator.
const (
	AuditChannelDelete    = 12
	AuditRoleDelete       = 32
	AuditMemberRoleUpdate = 25
)

// AuditEntry is one entry from the platform's audit feed.
type AuditEntry struct {
	ID         string
	ActionType int
	ActorID    string
	TargetID   string
	ActorIsBot bool
	Reason     string
}

// RoleSpec mirrors the attributes captured in a backup snapshot.
type RoleSpec struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Permissions int64  `json:"permissions"`
	Color       int    `json:"color"`
	Hoist       bool   `json:"hoist"`
	Position    int    `json:"position"`
	Managed     bool   `json:"managed"`
	Mentionable bool   `json:"mentionable"`
}

type OverwriteSpec struct {
	TargetID string `json:"target"`
	Type     int    `json:"type"`
	Allow    int64  `json:"allow"`
	Deny     int64  `json:"deny"`
}

type ChannelSpec struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       int             `json:"type"`
	Position   int             `json:"position"`
	Overwrites []OverwriteSpec `json:"overwrites"`
}

type GuildSettings struct {
	Name                 string   `json:"name"`
	Icon                 string   `json:"icon"`
	AFKChannelID         string   `json:"afk_channel"`
	SystemChannelID      string   `json:"system_channel"`
	VerificationLevel    int      `json:"verification_level"`
	DefaultNotifications int      `json:"default_notifications"`
	Features             []string `json:"features"`
}

// GuildSummary is a read-only view of a guild's structural configuration.
type GuildSummary struct {
	Roles    []RoleSpec
	Channels []ChannelSpec
	Settings GuildSettings
}

// Client is the surface of the platform this engine acts through. Every
// method is independently fallible; implementations map refusals onto the
// error taxonomy in errors.go.
type Client interface {
	// Remedial actions
	BanMember(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	KickMember(ctx context.Context, guildID, userID, reason string) error
	TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error
	MemberRoleIDs(ctx context.Context, guildID, userID string) ([]string, error)
	RoleByName(ctx context.Context, guildID, name string) (string, error)
	SetRolePermissions(ctx context.Context, guildID, roleID string, permissions int64, reason string) error

	// Messaging
	SendChannelMessage(ctx context.Context, channelID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendDirectMessage(ctx context.Context, userID, content string) error
	BroadcastToGuild(ctx context.Context, guildID, content string) error

	// Audit feed
	AuditLog(ctx context.Context, guildID string, actionType, limit int) ([]AuditEntry, error)

	// Guild structure
	GuildSummary(ctx context.Context, guildID string) (*GuildSummary, error)
	SetVerificationLevel(ctx context.Context, guildID string, level int) error
	GuildInvites(ctx context.Context, guildID string) ([]string, error)
	DeleteInvite(ctx context.Context, code, reason string) error
	CreateRole(ctx context.Context, guildID string, role RoleSpec) (string, error)
	ReorderRoles(ctx context.Context, guildID string, positions map[string]int) error
	CreateChannel(ctx context.Context, guildID string, channel ChannelSpec) (string, error)
}
