package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/zapricaa/ai-defender-bot/internal/engine"
	"github.com/zapricaa/ai-defender-bot/internal/logging"
)

// Session owns the gateway connection and translates its events into the
// engine's event model.
type Session struct {
	discord  *discordgo.Session
	engine   *engine.Engine
	activity func()
}

func New(token string) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentGuildModeration |
		discordgo.IntentMessageContent

	// Handlers must run on the read loop, one at a time: the engine relies
	// on per-guild arrival order, which concurrent handler goroutines would
	// scramble. Dispatch never blocks, so the read loop cannot stall here.
	dg.SyncEvents = true

	s := &Session{discord: dg}
	s.registerHandlers()
	return s, nil
}

// AttachEngine must be called before Connect; events arriving without an
// engine would be dropped.
func (s *Session) AttachEngine(eng *engine.Engine) {
	s.engine = eng
}

// OnActivity registers a callback invoked on every gateway event, used as
// a liveness signal. Must be called before Connect.
func (s *Session) OnActivity(fn func()) {
	s.activity = fn
}

// Discord exposes the underlying session for the platform client.
func (s *Session) Discord() *discordgo.Session {
	return s.discord
}

func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}
	if s.discord.State.User != nil {
		logging.Info("Connected as %s (ID %s)", s.discord.State.User.Username, s.discord.State.User.ID)
	}
	return nil
}

// SelfID is valid after Connect.
func (s *Session) SelfID() string {
	if s.discord.State.User == nil {
		return ""
	}
	return s.discord.State.User.ID
}

func (s *Session) Close() error {
	if s.discord != nil {
		return s.discord.Close()
	}
	return nil
}
