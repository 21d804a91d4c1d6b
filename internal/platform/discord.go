package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DiscordClient implements Client on top of a discordgo session.
type DiscordClient struct {
	session *discordgo.Session
}

func NewDiscordClient(session *discordgo.Session) *DiscordClient {
	return &DiscordClient{session: session}
}

func (c *DiscordClient) BanMember(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	err := c.session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays, discordgo.WithContext(ctx))
	return MapError(err)
}

func (c *DiscordClient) KickMember(ctx context.Context, guildID, userID, reason string) error {
	err := c.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
	return MapError(err)
}

func (c *DiscordClient) TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	err := c.session.GuildMemberTimeout(guildID, userID, &until,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return MapError(err)
}

func (c *DiscordClient) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return MapError(c.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (c *DiscordClient) RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return MapError(c.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (c *DiscordClient) MemberRoleIDs(ctx context.Context, guildID, userID string) ([]string, error) {
	member, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, MapError(err)
	}
	return member.Roles, nil
}

func (c *DiscordClient) RoleByName(ctx context.Context, guildID, name string) (string, error) {
	roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", MapError(err)
	}
	for _, role := range roles {
		if role.Name == name {
			return role.ID, nil
		}
	}
	return "", fmt.Errorf("%w: role %q in guild %s", ErrNotFound, name, guildID)
}

func (c *DiscordClient) SetRolePermissions(ctx context.Context, guildID, roleID string, permissions int64, reason string) error {
	_, err := c.session.GuildRoleEdit(guildID, roleID, &discordgo.RoleParams{Permissions: &permissions},
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return MapError(err)
}

func (c *DiscordClient) SendChannelMessage(ctx context.Context, channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return MapError(err)
}

func (c *DiscordClient) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return MapError(c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (c *DiscordClient) SendDirectMessage(ctx context.Context, userID, content string) error {
	dm, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return MapError(err)
	}
	_, err = c.session.ChannelMessageSend(dm.ID, content, discordgo.WithContext(ctx))
	return MapError(err)
}

// BroadcastToGuild sends to the system channel, falling back to the first
// text channel that accepts the message.
func (c *DiscordClient) BroadcastToGuild(ctx context.Context, guildID, content string) error {
	guild, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return MapError(err)
	}

	if guild.SystemChannelID != "" {
		if err := c.SendChannelMessage(ctx, guild.SystemChannelID, content); err == nil {
			return nil
		}
	}

	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return MapError(err)
	}
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if err := c.SendChannelMessage(ctx, ch.ID, content); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: no writable channel in guild %s", ErrPermissionDenied, guildID)
}

func (c *DiscordClient) AuditLog(ctx context.Context, guildID string, actionType, limit int) ([]AuditEntry, error) {
	log, err := c.session.GuildAuditLog(guildID, "", "", actionType, limit, discordgo.WithContext(ctx))
	if err != nil {
		if IsForbidden(MapError(err)) {
			return nil, fmt.Errorf("%w: guild %s", ErrAuditUnavailable, guildID)
		}
		return nil, MapError(err)
	}

	bots := make(map[string]bool, len(log.Users))
	for _, user := range log.Users {
		bots[user.ID] = user.Bot
	}

	entries := make([]AuditEntry, 0, len(log.AuditLogEntries))
	for _, e := range log.AuditLogEntries {
		entry := AuditEntry{
			ID:         e.ID,
			ActorID:    e.UserID,
			TargetID:   e.TargetID,
			ActorIsBot: bots[e.UserID],
			Reason:     e.Reason,
		}
		if e.ActionType != nil {
			entry.ActionType = int(*e.ActionType)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *DiscordClient) GuildSummary(ctx context.Context, guildID string) (*GuildSummary, error) {
	guild, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, MapError(err)
	}

	roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, MapError(err)
	}
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, MapError(err)
	}

	summary := &GuildSummary{
		Settings: GuildSettings{
			Name:                 guild.Name,
			Icon:                 guild.Icon,
			AFKChannelID:         guild.AfkChannelID,
			SystemChannelID:      guild.SystemChannelID,
			VerificationLevel:    int(guild.VerificationLevel),
			DefaultNotifications: int(guild.DefaultMessageNotifications),
		},
	}
	for _, f := range guild.Features {
		summary.Settings.Features = append(summary.Settings.Features, string(f))
	}

	for _, role := range roles {
		summary.Roles = append(summary.Roles, RoleSpec{
			ID:          role.ID,
			Name:        role.Name,
			Permissions: role.Permissions,
			Color:       role.Color,
			Hoist:       role.Hoist,
			Position:    role.Position,
			Managed:     role.Managed,
			Mentionable: role.Mentionable,
		})
	}

	for _, ch := range channels {
		spec := ChannelSpec{
			ID:       ch.ID,
			Name:     ch.Name,
			Type:     int(ch.Type),
			Position: ch.Position,
		}
		for _, ow := range ch.PermissionOverwrites {
			spec.Overwrites = append(spec.Overwrites, OverwriteSpec{
				TargetID: ow.ID,
				Type:     int(ow.Type),
				Allow:    ow.Allow,
				Deny:     ow.Deny,
			})
		}
		summary.Channels = append(summary.Channels, spec)
	}

	return summary, nil
}

func (c *DiscordClient) SetVerificationLevel(ctx context.Context, guildID string, level int) error {
	lvl := discordgo.VerificationLevel(level)
	_, err := c.session.GuildEdit(guildID, &discordgo.GuildParams{VerificationLevel: &lvl},
		discordgo.WithContext(ctx))
	return MapError(err)
}

func (c *DiscordClient) GuildInvites(ctx context.Context, guildID string) ([]string, error) {
	invites, err := c.session.GuildInvites(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, MapError(err)
	}
	codes := make([]string, 0, len(invites))
	for _, inv := range invites {
		codes = append(codes, inv.Code)
	}
	return codes, nil
}

func (c *DiscordClient) DeleteInvite(ctx context.Context, code, reason string) error {
	_, err := c.session.InviteDelete(code, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return MapError(err)
}

func (c *DiscordClient) CreateRole(ctx context.Context, guildID string, role RoleSpec) (string, error) {
	created, err := c.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        role.Name,
		Permissions: &role.Permissions,
		Color:       &role.Color,
		Hoist:       &role.Hoist,
		Mentionable: &role.Mentionable,
	}, discordgo.WithContext(ctx), discordgo.WithAuditLogReason("Restored from backup"))
	if err != nil {
		return "", MapError(err)
	}
	return created.ID, nil
}

func (c *DiscordClient) ReorderRoles(ctx context.Context, guildID string, positions map[string]int) error {
	reorder := make([]*discordgo.Role, 0, len(positions))
	for id, pos := range positions {
		reorder = append(reorder, &discordgo.Role{ID: id, Position: pos})
	}
	_, err := c.session.GuildRoleReorder(guildID, reorder, discordgo.WithContext(ctx))
	return MapError(err)
}

func (c *DiscordClient) CreateChannel(ctx context.Context, guildID string, channel ChannelSpec) (string, error) {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(channel.Overwrites))
	for _, ow := range channel.Overwrites {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    ow.TargetID,
			Type:  discordgo.PermissionOverwriteType(ow.Type),
			Allow: ow.Allow,
			Deny:  ow.Deny,
		})
	}
	created, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 channel.Name,
		Type:                 discordgo.ChannelType(channel.Type),
		Position:             channel.Position,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", MapError(err)
	}
	return created.ID, nil
}
