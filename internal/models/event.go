package models

import "time"

type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventMessage
	EventMemberJoin
	EventChannelDelete
	EventRoleDelete
	EventPermissionGrant
)

// Event is a single tenant-scoped occurrence as delivered by the platform.
// Events are immutable after construction; detectors only read them.
type Event struct {
	GuildID   string
	UserID    string
	Kind      EventKind
	Timestamp time.Time

	// Message payload
	MessageID    string
	Content      string
	ChannelID    string
	MentionCount int

	// Structural-change payload
	EntityID   string
	EntityName string

	// Member-join payload
	AccountCreatedAt time.Time
	HasAvatar        bool
	DefaultAvatar    bool
	RoleCount        int

	// Permission-grant payload: the granted role carries administrator
	AdminGranted bool
}

func (e *Event) IsStructural() bool {
	return e.Kind == EventChannelDelete || e.Kind == EventRoleDelete
}

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventMemberJoin:
		return "member_join"
	case EventChannelDelete:
		return "channel_delete"
	case EventRoleDelete:
		return "role_delete"
	case EventPermissionGrant:
		return "permission_grant"
	default:
		return "unknown"
	}
}
