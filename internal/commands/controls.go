package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

func (h *Handler) handleUnlock(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.machine.Lift(i.GuildID) {
		return respondText(s, i, "No lockdown is active on this server.")
	}
	return respondText(s, i, "🔓 Lockdown lifted. Verification level restored.")
}

func (h *Handler) handleBackup(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	// Capturing a large guild can outlive the 3s interaction deadline, so
	// the response is deferred.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var content string
	if _, err := h.store.Snapshot(ctx, i.GuildID); err != nil {
		content = fmt.Sprintf("❌ Backup failed: %v", err)
	} else {
		content = "💾 Backup stored."
	}

	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	return err
}
