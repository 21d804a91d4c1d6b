package detectors

import (
	"context"
	"sync"

	"github.com/zapricaa/ai-defender-bot/internal/config"
	"github.com/zapricaa/ai-defender-bot/internal/correlator"
	"github.com/zapricaa/ai-defender-bot/internal/metrics"
	"github.com/zapricaa/ai-defender-bot/internal/models"
)

// NukeDetector watches for mass channel/role destruction and administrator
// permission escalations. Deletions are attributed through the audit
// correlator; an unattributable deletion never produces a verdict.
type NukeDetector struct {
	correlator *correlator.AuditCorrelator

	mu             sync.Mutex
	cfg            config.AntiNukeConfig
	channelDeletes map[subjectKey]int
	roleDeletes    map[subjectKey]int
	escalations    map[subjectKey]int
}

func NewNukeDetector(cfg config.AntiNukeConfig, ac *correlator.AuditCorrelator) *NukeDetector {
	return &NukeDetector{
		correlator:     ac,
		cfg:            cfg,
		channelDeletes: make(map[subjectKey]int),
		roleDeletes:    make(map[subjectKey]int),
		escalations:    make(map[subjectKey]int),
	}
}

func (d *NukeDetector) Reconfigure(cfg config.AntiNukeConfig) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
}

// ProcessDeletion attributes a channel or role deletion and issues a
// nuke-attempt verdict once the actor's count exceeds the threshold.
func (d *NukeDetector) ProcessDeletion(ctx context.Context, event *models.Event) *models.Verdict {
	actorID := d.correlator.ResolveActor(ctx, event)
	if actorID == "" {
		metrics.VerdictsSuppressed.Inc()
		return nil
	}

	key := subjectKey{event.GuildID, actorID}

	d.mu.Lock()
	var count, max int
	var reason string
	if event.Kind == models.EventChannelDelete {
		d.channelDeletes[key]++
		count, max = d.channelDeletes[key], d.cfg.MaxChannelDeletes
		reason = "Mass channel deletion"
	} else {
		d.roleDeletes[key]++
		count, max = d.roleDeletes[key], d.cfg.MaxRoleDeletes
		reason = "Mass role deletion"
	}
	combined := d.channelDeletes[key] + d.roleDeletes[key]
	banAt := d.cfg.BanThreshold
	d.mu.Unlock()

	// Threshold is "exceeds": with max=3 the third deletion stays silent
	// and the fourth fires. An actor splitting destruction across channels
	// and roles is caught by the combined ban threshold instead.
	if count > max {
		return d.nukeVerdict(event.GuildID, actorID, reason)
	}
	if banAt > 0 && combined >= banAt {
		return d.nukeVerdict(event.GuildID, actorID, "Mass destruction")
	}
	return nil
}

// ProcessPermissionGrant tolerates a single administrator grant per actor
// (legitimate promotions happen); any further grant is an escalation.
func (d *NukeDetector) ProcessPermissionGrant(ctx context.Context, event *models.Event) *models.Verdict {
	if !event.AdminGranted {
		return nil
	}

	actorID := d.correlator.ResolveActor(ctx, event)
	if actorID == "" {
		metrics.VerdictsSuppressed.Inc()
		return nil
	}

	key := subjectKey{event.GuildID, actorID}

	d.mu.Lock()
	d.escalations[key]++
	count := d.escalations[key]
	d.mu.Unlock()

	if count <= 1 {
		return nil
	}

	return d.nukeVerdict(event.GuildID, actorID, "Admin permission escalation")
}

func (d *NukeDetector) nukeVerdict(guildID, actorID, reason string) *models.Verdict {
	v := models.NewVerdict(guildID, actorID, DetectorNuke, reason,
		models.BanAction{DeleteMessageDays: 1}, models.SeverityCritical)
	v.StripRoles = true
	v.DamageCheck = true
	return v
}

// ResetActor clears an actor's counters, used when a guild's state is
// cleared after the bot rejoins or an actor is pardoned.
func (d *NukeDetector) ResetActor(guildID, actorID string) {
	key := subjectKey{guildID, actorID}
	d.mu.Lock()
	delete(d.channelDeletes, key)
	delete(d.roleDeletes, key)
	delete(d.escalations, key)
	d.mu.Unlock()
}
