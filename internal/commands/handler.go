package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/zapricaa/ai-defender-bot/internal/backup"
	"github.com/zapricaa/ai-defender-bot/internal/database"
	"github.com/zapricaa/ai-defender-bot/internal/lockdown"
	"github.com/zapricaa/ai-defender-bot/internal/logging"
	"github.com/zapricaa/ai-defender-bot/internal/watchdog"
)

// Handler routes slash-command interactions to their implementations.
type Handler struct {
	machine *lockdown.Machine
	store   *backup.Store
	db      *database.Database
	dog     *watchdog.Watchdog
}

func NewHandler(machine *lockdown.Machine, store *backup.Store, db *database.Database, dog *watchdog.Watchdog) *Handler {
	return &Handler{machine: machine, store: store, db: db, dog: dog}
}

// Register attaches the interaction handler and registers the command set
// with the platform. Call after the gateway connection is open.
func (h *Handler) Register(session *discordgo.Session) error {
	session.AddHandler(h.handleInteraction)

	defs := Definitions()
	for _, cmd := range defs {
		if _, err := session.ApplicationCommandCreate(session.State.User.ID, "", cmd); err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
	}
	logging.Info("Registered %d application commands", len(defs))
	return nil
}

func (h *Handler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()

	var err error
	switch data.Name {
	case "ping":
		err = handlePing(s, i)
	case "defender":
		if len(data.Options) == 0 {
			return
		}
		switch data.Options[0].Name {
		case "status":
			err = h.handleStatus(s, i)
		case "unlock":
			err = h.handleUnlock(s, i)
		case "backup":
			err = h.handleBackup(s, i)
		}
	default:
		return
	}

	if err != nil {
		logging.Error("[CMD] /%s failed in guild %s: %v", data.Name, i.GuildID, err)
	}
}

func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}
