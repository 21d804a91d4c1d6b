package detectors

import (
	"fmt"
	"sync"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/config"
	"github.com/zapricaa/ai-defender-bot/internal/models"
	"github.com/zapricaa/ai-defender-bot/internal/state"
)

// warnCooldown is the grace period after a subject's first warning.
// Violations inside it stay warned; violations beyond it are punished.
const warnCooldown = 300 * time.Second

type subjectKey struct {
	guildID string
	userID  string
}

// SpamDetector flags message flooding: rate over a sliding window, mention
// floods, and (as a disabled extension point) duplicated content.
type SpamDetector struct {
	windows *state.WindowCounter

	mu        sync.Mutex
	cfg       config.AntiSpamConfig
	lastWarn  map[subjectKey]time.Time
	offenders map[subjectKey]int
}

func NewSpamDetector(cfg config.AntiSpamConfig) *SpamDetector {
	return &SpamDetector{
		windows:   state.NewWindowCounter(cfg.TimeWindow()),
		cfg:       cfg,
		lastWarn:  make(map[subjectKey]time.Time),
		offenders: make(map[subjectKey]int),
	}
}

// Reconfigure applies reloaded thresholds to future evaluations.
func (d *SpamDetector) Reconfigure(cfg config.AntiSpamConfig) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	d.windows.SetWindow(cfg.TimeWindow())
}

// ProcessMessage evaluates one message event and returns a verdict when any
// check fires, nil otherwise.
func (d *SpamDetector) ProcessMessage(event *models.Event) *models.Verdict {
	d.mu.Lock()
	cfg := d.cfg
	d.mu.Unlock()

	count := d.windows.RecordAt(event.GuildID, event.UserID, event.Timestamp)

	var reason string
	switch {
	case count >= cfg.MessageThreshold:
		reason = "Excessive message frequency"
	case d.checkDuplicateContent(event):
		reason = "Repeated message content"
	case event.MentionCount >= cfg.MentionThreshold:
		reason = "Mention spam"
	default:
		return nil
	}

	return d.escalate(event, cfg, reason)
}

// checkDuplicateContent reports whether the message repeats recent content.
// There is no similarity metric wired yet, so it always reports no match.
func (d *SpamDetector) checkDuplicateContent(event *models.Event) bool {
	return false
}

// escalate applies the two-tier policy: a subject's first violation earns a
// warning and starts the cooldown; a violation arriving after the cooldown
// has run out earns the configured punishment. Violations inside the
// cooldown are covered by the standing warning.
func (d *SpamDetector) escalate(event *models.Event, cfg config.AntiSpamConfig, reason string) *models.Verdict {
	key := subjectKey{event.GuildID, event.UserID}

	d.mu.Lock()
	warnedAt, warned := d.lastWarn[key]
	if !warned {
		d.lastWarn[key] = event.Timestamp
		d.mu.Unlock()

		v := models.NewVerdict(event.GuildID, event.UserID, DetectorSpam, reason,
			models.WarnAction{Notice: fmt.Sprintf(
				"<@%s>, your message was flagged as potential spam (%s). Please refrain from this behavior.",
				event.UserID, reason)},
			models.SeverityLow)
		v.ChannelID = event.ChannelID
		return v
	}

	if event.Timestamp.Sub(warnedAt) < warnCooldown {
		d.mu.Unlock()
		return nil
	}

	d.offenders[key]++
	d.mu.Unlock()

	v := models.NewVerdict(event.GuildID, event.UserID, DetectorSpam, reason,
		punishmentAction(cfg), models.SeverityMedium)
	v.ChannelID = event.ChannelID
	return v
}

// RepeatOffenses returns how many punished violations the subject has.
func (d *SpamDetector) RepeatOffenses(guildID, userID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offenders[subjectKey{guildID, userID}]
}

// Sweep prunes stale message windows and expired warning records.
func (d *SpamDetector) Sweep() {
	d.mu.Lock()
	cfg := d.cfg
	for key, t := range d.lastWarn {
		if time.Since(t) > 24*time.Hour {
			delete(d.lastWarn, key)
		}
	}
	d.mu.Unlock()

	d.windows.Sweep(2 * cfg.TimeWindow())
}

func punishmentAction(cfg config.AntiSpamConfig) models.RemedialAction {
	switch cfg.Punishment {
	case "kick":
		return models.KickAction{}
	case "ban":
		return models.BanAction{DeleteMessageDays: 1}
	default:
		return models.MuteAction{Duration: cfg.Duration()}
	}
}
