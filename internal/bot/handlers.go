package bot

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/zapricaa/ai-defender-bot/internal/logging"
	"github.com/zapricaa/ai-defender-bot/internal/models"
)

func (s *Session) registerHandlers() {
	// Any gateway payload counts as liveness, handled events or not.
	s.discord.AddHandler(func(sess *discordgo.Session, e *discordgo.Event) {
		s.beat()
	})
	s.discord.AddHandler(s.onReady)
	s.discord.AddHandler(s.onGuildCreate)
	s.discord.AddHandler(s.onGuildDelete)
	s.discord.AddHandler(s.onMessageCreate)
	s.discord.AddHandler(s.onMemberAdd)
	s.discord.AddHandler(s.onChannelDelete)
	s.discord.AddHandler(s.onRoleDelete)
	s.discord.AddHandler(s.onMemberUpdate)
}

func (s *Session) beat() {
	if s.activity != nil {
		s.activity()
	}
}

func (s *Session) dispatch(event *models.Event) {
	if s.engine == nil {
		return
	}
	s.engine.Dispatch(event)
}

func (s *Session) onReady(sess *discordgo.Session, r *discordgo.Ready) {
	logging.Info("Gateway ready, %d guilds in initial payload", len(r.Guilds))
}

func (s *Session) onGuildCreate(sess *discordgo.Session, g *discordgo.GuildCreate) {
	logging.Info("Guild available: %s (ID %s)", g.Name, g.ID)
	if s.engine != nil {
		s.engine.TrackGuild(g.ID)
	}
}

func (s *Session) onGuildDelete(sess *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		return
	}
	logging.Info("Removed from guild %s", g.ID)
	if s.engine != nil {
		s.engine.ForgetGuild(g.ID)
	}
}

func (s *Session) onMessageCreate(sess *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil || m.Author.Bot || m.Author.ID == s.SelfID() {
		return
	}

	s.dispatch(&models.Event{
		Kind:         models.EventMessage,
		GuildID:      m.GuildID,
		UserID:       m.Author.ID,
		Timestamp:    messageTime(m.Timestamp),
		MessageID:    m.ID,
		Content:      m.Content,
		ChannelID:    m.ChannelID,
		MentionCount: len(m.Mentions),
	})
}

func (s *Session) onMemberAdd(sess *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}

	created, err := discordgo.SnowflakeTimestamp(m.User.ID)
	if err != nil {
		created = time.Now()
	}

	s.dispatch(&models.Event{
		Kind:             models.EventMemberJoin,
		GuildID:          m.GuildID,
		UserID:           m.User.ID,
		Timestamp:        time.Now(),
		AccountCreatedAt: created,
		HasAvatar:        m.User.Avatar != "",
		DefaultAvatar:    m.User.Avatar == "",
		RoleCount:        len(m.Roles) + 1, // base role is implicit
	})
}

func (s *Session) onChannelDelete(sess *discordgo.Session, c *discordgo.ChannelDelete) {
	if c.GuildID == "" {
		return
	}

	s.dispatch(&models.Event{
		Kind:       models.EventChannelDelete,
		GuildID:    c.GuildID,
		Timestamp:  time.Now(),
		EntityID:   c.ID,
		EntityName: c.Name,
	})
}

func (s *Session) onRoleDelete(sess *discordgo.Session, r *discordgo.GuildRoleDelete) {
	s.dispatch(&models.Event{
		Kind:      models.EventRoleDelete,
		GuildID:   r.GuildID,
		Timestamp: time.Now(),
		EntityID:  r.RoleID,
	})
}

// onMemberUpdate watches for administrator grants. BeforeUpdate comes from
// the state cache; without it a pre-existing admin role cannot be told
// apart from a fresh grant, so the update is ignored.
func (s *Session) onMemberUpdate(sess *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	if m.User == nil || m.BeforeUpdate == nil {
		return
	}

	before := make(map[string]struct{}, len(m.BeforeUpdate.Roles))
	for _, id := range m.BeforeUpdate.Roles {
		before[id] = struct{}{}
	}

	for _, id := range m.Roles {
		if _, had := before[id]; had {
			continue
		}
		role, err := sess.State.Role(m.GuildID, id)
		if err != nil {
			continue
		}
		if role.Permissions&discordgo.PermissionAdministrator == 0 {
			continue
		}

		s.dispatch(&models.Event{
			Kind:         models.EventPermissionGrant,
			GuildID:      m.GuildID,
			UserID:       m.User.ID,
			Timestamp:    time.Now(),
			EntityID:     id,
			EntityName:   role.Name,
			AdminGranted: true,
		})
		return
	}
}

func messageTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
