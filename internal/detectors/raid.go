package detectors

import (
	"strings"
	"sync"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/config"
	"github.com/zapricaa/ai-defender-bot/internal/lockdown"
	"github.com/zapricaa/ai-defender-bot/internal/models"
	"github.com/zapricaa/ai-defender-bot/internal/state"
)

// recentJoinAge is how long after joining an account's messages are still
// screened for raid behavior, and how long join/suspect records live. It
// matches the tracker's own retention so the lockdown kick sweep and the
// message screen agree on who counts as recent.
const recentJoinAge = state.JoinRetention

// RaidDetector spots coordinated account influx: join bursts, freshly
// created or faceless accounts, and spam-patterned messages from recent
// joiners. It drives the lockdown machine and keeps the per-guild suspect
// set; any event from a suspect earns the configured remedial action.
type RaidDetector struct {
	joins    *state.JoinTracker
	suspects *state.SuspectSet
	machine  *lockdown.Machine

	mu  sync.Mutex
	cfg config.AntiRaidConfig
}

func NewRaidDetector(cfg config.AntiRaidConfig, joins *state.JoinTracker, suspects *state.SuspectSet, machine *lockdown.Machine) *RaidDetector {
	return &RaidDetector{
		joins:    joins,
		suspects: suspects,
		machine:  machine,
		cfg:      cfg,
	}
}

func (d *RaidDetector) Reconfigure(cfg config.AntiRaidConfig) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	d.machine.Reconfigure(cfg.VerificationLevel)
}

// ProcessJoin evaluates a member-join event. While locked, every join is
// suspicious immediately. Otherwise the join is tracked, a burst activates
// lockdown, and a heuristically suspicious account is flagged on its own.
func (d *RaidDetector) ProcessJoin(event *models.Event) *models.Verdict {
	d.mu.Lock()
	cfg := d.cfg
	d.mu.Unlock()

	if d.machine.IsLocked(event.GuildID) {
		d.suspects.Add(event.GuildID, event.UserID)
		return d.suspectVerdict(event, cfg, "Join during lockdown")
	}

	d.joins.RecordJoin(event.GuildID, event.UserID, event.Timestamp)

	if d.joins.RecentCount(event.GuildID, cfg.TimeWindow(), event.Timestamp) >= cfg.JoinThreshold {
		d.machine.Activate(event.GuildID, "Mass join detected")
		return nil
	}

	if suspiciousAccount(event) {
		d.suspects.Add(event.GuildID, event.UserID)
		return d.suspectVerdict(event, cfg, "Suspicious account traits")
	}

	return nil
}

// ProcessMessage screens messages against the suspect set, and screens
// recent joiners' messages for spam-like raid behavior.
func (d *RaidDetector) ProcessMessage(event *models.Event) *models.Verdict {
	d.mu.Lock()
	cfg := d.cfg
	d.mu.Unlock()

	if d.suspects.Contains(event.GuildID, event.UserID) {
		return d.suspectVerdict(event, cfg, "Messaging while suspected")
	}

	if d.joins.IsRecentJoin(event.GuildID, event.UserID, recentJoinAge, event.Timestamp) &&
		spamBehavior(event) {
		d.suspects.Add(event.GuildID, event.UserID)
		return d.suspectVerdict(event, cfg, "Spam behavior after joining")
	}

	return nil
}

// Sweep prunes join records older than 24 hours; guilds whose records
// emptied out also lose their suspect sets.
func (d *RaidDetector) Sweep() {
	for _, guildID := range d.joins.Sweep(recentJoinAge) {
		d.suspects.Clear(guildID)
	}
}

func (d *RaidDetector) suspectVerdict(event *models.Event, cfg config.AntiRaidConfig, reason string) *models.Verdict {
	return models.NewVerdict(event.GuildID, event.UserID, DetectorRaid, reason,
		raidAction(cfg), models.SeverityHigh)
}

// suspiciousAccount is the heuristic screen applied to joining accounts:
// younger than a day, no avatar at all, or a default avatar with nothing
// but the base role.
func suspiciousAccount(event *models.Event) bool {
	if event.Timestamp.Sub(event.AccountCreatedAt) < 24*time.Hour {
		return true
	}
	if !event.HasAvatar {
		return true
	}
	if event.DefaultAvatar && event.RoleCount <= 1 {
		return true
	}
	return false
}

// spamBehavior flags spam-patterned raid messages: mention floods, low
// character diversity in long messages, or invite-style links.
func spamBehavior(event *models.Event) bool {
	if event.MentionCount > 3 {
		return true
	}

	content := event.Content
	if runes := []rune(content); len(runes) > 50 {
		distinct := make(map[rune]struct{}, len(runes))
		for _, r := range runes {
			distinct[r] = struct{}{}
		}
		if float64(len(distinct))/float64(len(runes)) < 0.5 {
			return true
		}
	}

	lower := strings.ToLower(content)
	if strings.Contains(lower, "http") {
		for _, domain := range []string{"discord.gg", "invite", "nitro"} {
			if strings.Contains(lower, domain) {
				return true
			}
		}
	}

	return false
}

func raidAction(cfg config.AntiRaidConfig) models.RemedialAction {
	switch cfg.Action {
	case "ban":
		return models.BanAction{DeleteMessageDays: 1}
	case "timeout":
		return models.TimeoutAction{Until: time.Now().Add(12 * time.Hour)}
	case "warn":
		return models.WarnAction{Notice: "Your account has been flagged by raid protection. " +
			"Please contact the moderators if this is in error."}
	default:
		return models.KickAction{}
	}
}
