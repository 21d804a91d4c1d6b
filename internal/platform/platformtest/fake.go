// Package platformtest provides a configurable in-memory platform.Client
// for tests.
package platformtest

import (
	"context"
	"sync"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/platform"
)

// Call records one method invocation with its salient arguments.
type Call struct {
	Method string
	Args   []string
}

// Fake implements platform.Client. Every method is a no-op success unless
// its function hook is set; all calls are recorded.
type Fake struct {
	mu    sync.Mutex
	calls []Call

	BanFunc       func(guildID, userID string) error
	KickFunc      func(guildID, userID string) error
	TimeoutFunc   func(guildID, userID string) error
	RoleByNameFn  func(guildID, name string) (string, error)
	MemberRolesFn func(guildID, userID string) ([]string, error)
	AuditFunc     func(guildID string, actionType int) ([]platform.AuditEntry, error)
	SummaryFunc   func(guildID string) (*platform.GuildSummary, error)
	CreateRoleFn  func(guildID string, role platform.RoleSpec) (string, error)
	SendChannelFn func(channelID, content string) error
}

func (f *Fake) record(method string, args ...string) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
	f.mu.Unlock()
}

// Calls returns the recorded invocations of one method, or all of them
// when method is empty.
func (f *Fake) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if method == "" {
		return append([]Call(nil), f.calls...)
	}
	var out []Call
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) CallCount(method string) int {
	return len(f.Calls(method))
}

func (f *Fake) BanMember(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	f.record("BanMember", guildID, userID, reason)
	if f.BanFunc != nil {
		return f.BanFunc(guildID, userID)
	}
	return nil
}

func (f *Fake) KickMember(ctx context.Context, guildID, userID, reason string) error {
	f.record("KickMember", guildID, userID, reason)
	if f.KickFunc != nil {
		return f.KickFunc(guildID, userID)
	}
	return nil
}

func (f *Fake) TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	f.record("TimeoutMember", guildID, userID, reason)
	if f.TimeoutFunc != nil {
		return f.TimeoutFunc(guildID, userID)
	}
	return nil
}

func (f *Fake) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	f.record("AddMemberRole", guildID, userID, roleID)
	return nil
}

func (f *Fake) RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	f.record("RemoveMemberRole", guildID, userID, roleID)
	return nil
}

func (f *Fake) MemberRoleIDs(ctx context.Context, guildID, userID string) ([]string, error) {
	f.record("MemberRoleIDs", guildID, userID)
	if f.MemberRolesFn != nil {
		return f.MemberRolesFn(guildID, userID)
	}
	return nil, nil
}

func (f *Fake) RoleByName(ctx context.Context, guildID, name string) (string, error) {
	f.record("RoleByName", guildID, name)
	if f.RoleByNameFn != nil {
		return f.RoleByNameFn(guildID, name)
	}
	return "role-" + name, nil
}

func (f *Fake) SetRolePermissions(ctx context.Context, guildID, roleID string, permissions int64, reason string) error {
	f.record("SetRolePermissions", guildID, roleID)
	return nil
}

func (f *Fake) SendChannelMessage(ctx context.Context, channelID, content string) error {
	f.record("SendChannelMessage", channelID, content)
	if f.SendChannelFn != nil {
		return f.SendChannelFn(channelID, content)
	}
	return nil
}

func (f *Fake) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.record("DeleteMessage", channelID, messageID)
	return nil
}

func (f *Fake) SendDirectMessage(ctx context.Context, userID, content string) error {
	f.record("SendDirectMessage", userID, content)
	return nil
}

func (f *Fake) BroadcastToGuild(ctx context.Context, guildID, content string) error {
	f.record("BroadcastToGuild", guildID, content)
	return nil
}

func (f *Fake) AuditLog(ctx context.Context, guildID string, actionType, limit int) ([]platform.AuditEntry, error) {
	f.record("AuditLog", guildID)
	if f.AuditFunc != nil {
		return f.AuditFunc(guildID, actionType)
	}
	return nil, nil
}

func (f *Fake) GuildSummary(ctx context.Context, guildID string) (*platform.GuildSummary, error) {
	f.record("GuildSummary", guildID)
	if f.SummaryFunc != nil {
		return f.SummaryFunc(guildID)
	}
	return &platform.GuildSummary{}, nil
}

func (f *Fake) SetVerificationLevel(ctx context.Context, guildID string, level int) error {
	f.record("SetVerificationLevel", guildID)
	return nil
}

func (f *Fake) GuildInvites(ctx context.Context, guildID string) ([]string, error) {
	f.record("GuildInvites", guildID)
	return nil, nil
}

func (f *Fake) DeleteInvite(ctx context.Context, code, reason string) error {
	f.record("DeleteInvite", code)
	return nil
}

func (f *Fake) CreateRole(ctx context.Context, guildID string, role platform.RoleSpec) (string, error) {
	f.record("CreateRole", guildID, role.Name)
	if f.CreateRoleFn != nil {
		return f.CreateRoleFn(guildID, role)
	}
	return "new-" + role.ID, nil
}

func (f *Fake) ReorderRoles(ctx context.Context, guildID string, positions map[string]int) error {
	f.record("ReorderRoles", guildID)
	return nil
}

func (f *Fake) CreateChannel(ctx context.Context, guildID string, channel platform.ChannelSpec) (string, error) {
	f.record("CreateChannel", guildID, channel.Name)
	return "new-" + channel.ID, nil
}
