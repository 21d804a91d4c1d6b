package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/zapricaa/ai-defender-bot/internal/lockdown"
)

func (h *Handler) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	st := h.machine.Current(i.GuildID)
	lockdownValue := "🟢 Normal"
	if st.Mode == lockdown.ModeLocked {
		lockdownValue = fmt.Sprintf("🔴 Locked since <t:%d:R> (%s)", st.ActivatedAt.Unix(), st.Reason)
	}

	backups, err := h.db.BackupCount(i.GuildID)
	backupValue := "unavailable"
	if err == nil {
		backupValue = fmt.Sprintf("%d stored", backups)
	}

	memValue := "unavailable"
	if vm, err := mem.VirtualMemory(); err == nil {
		memValue = fmt.Sprintf("%.1f%% used", vm.UsedPercent)
	}

	healthValue := "🟢 All components healthy"
	if h.dog != nil {
		for name, healthy := range h.dog.Status() {
			if !healthy {
				healthValue = fmt.Sprintf("🔴 %s unhealthy", name)
				break
			}
		}
	}

	embed := &discordgo.MessageEmbed{
		Title: "🛡️ Protection Status",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Lockdown", Value: lockdownValue},
			{Name: "Health", Value: healthValue},
			{Name: "Backups", Value: backupValue, Inline: true},
			{Name: "Host Memory", Value: memValue, Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
}

func handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return respondText(s, i, fmt.Sprintf("🏓 Pong! Gateway latency: `%dms`",
		s.HeartbeatLatency().Milliseconds()))
}
