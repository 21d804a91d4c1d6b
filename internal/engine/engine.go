// Package engine routes platform events through the detectors and carries
// their verdicts to the response executor. Ordering is per tenant: each
// guild gets its own mailbox goroutine, so events from one guild are
// processed in arrival order while guilds never block each other.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/backup"
	"github.com/zapricaa/ai-defender-bot/internal/classifier"
	"github.com/zapricaa/ai-defender-bot/internal/config"
	"github.com/zapricaa/ai-defender-bot/internal/detectors"
	"github.com/zapricaa/ai-defender-bot/internal/logging"
	"github.com/zapricaa/ai-defender-bot/internal/metrics"
	"github.com/zapricaa/ai-defender-bot/internal/models"
)

const (
	mailboxSize  = 256
	processLimit = 10 * time.Second
	sweepEvery   = time.Hour
	stateMaxAge  = 24 * time.Hour
)

// Responder consumes verdicts. Satisfied by response.Executor.
type Responder interface {
	Submit(verdict *models.Verdict)
}

type Engine struct {
	spam    *detectors.SpamDetector
	nuke    *detectors.NukeDetector
	raid    *detectors.RaidDetector
	monitor *classifier.Monitor

	responder Responder
	store     *backup.Store
	damage    <-chan models.DamageReport

	mu        sync.Mutex
	mailboxes map[string]chan *models.Event
	guilds    map[string]struct{}

	backupInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(spam *detectors.SpamDetector, nuke *detectors.NukeDetector, raid *detectors.RaidDetector,
	monitor *classifier.Monitor, responder Responder, store *backup.Store,
	damage <-chan models.DamageReport, backupInterval time.Duration) *Engine {

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		spam:           spam,
		nuke:           nuke,
		raid:           raid,
		monitor:        monitor,
		responder:      responder,
		store:          store,
		damage:         damage,
		mailboxes:      make(map[string]chan *models.Event),
		guilds:         make(map[string]struct{}),
		backupInterval: backupInterval,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start launches the damage consumer and the maintenance tickers.
func (e *Engine) Start() {
	e.wg.Add(2)
	go e.damageLoop()
	go e.maintenanceLoop()
}

// Dispatch delivers one event to its tenant's mailbox, creating the
// mailbox on first sight. A full mailbox drops the event; losing one
// event is preferable to stalling every tenant behind a slow one.
func (e *Engine) Dispatch(event *models.Event) {
	metrics.EventsProcessed.WithLabelValues(event.Kind.String()).Inc()

	e.mu.Lock()
	box, ok := e.mailboxes[event.GuildID]
	if !ok {
		box = make(chan *models.Event, mailboxSize)
		e.mailboxes[event.GuildID] = box
		e.wg.Add(1)
		go e.tenantLoop(event.GuildID, box)
	}
	e.mu.Unlock()

	select {
	case box <- event:
	default:
		logging.Error("[ENGINE] Mailbox full for guild %s, dropping %s event", event.GuildID, event.Kind)
	}
}

func (e *Engine) tenantLoop(guildID string, box <-chan *models.Event) {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case event := <-box:
			e.process(event)
		}
	}
}

// process runs the detector chain for one event. A panicking detector is
// contained to the event that triggered it.
func (e *Engine) process(event *models.Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Critical("[ENGINE] Detector panic on %s event in guild %s: %v",
				event.Kind, event.GuildID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(e.ctx, processLimit)
	defer cancel()

	start := time.Now()
	verdict := e.detect(ctx, event)
	elapsed := time.Since(start)
	metrics.DetectionDuration.Observe(float64(elapsed.Microseconds()))

	if verdict == nil {
		return
	}
	verdict.DetectUS = elapsed.Microseconds()
	metrics.VerdictsIssued.WithLabelValues(verdict.Detector, verdict.Action.Name()).Inc()
	logging.Info("[ENGINE] %s verdict: %s against %s in guild %s (%s)",
		verdict.Detector, verdict.Action.Name(), verdict.UserID, verdict.GuildID, verdict.Reason)
	e.responder.Submit(verdict)
}

// detect routes by event kind. For messages the raid screen runs before
// the spam counters, and the content classifier only sees messages the
// behavioral detectors passed.
func (e *Engine) detect(ctx context.Context, event *models.Event) *models.Verdict {
	switch event.Kind {
	case models.EventMessage:
		if v := e.raid.ProcessMessage(event); v != nil {
			return v
		}
		if v := e.spam.ProcessMessage(event); v != nil {
			return v
		}
		return e.monitor.Inspect(ctx, event)

	case models.EventMemberJoin:
		return e.raid.ProcessJoin(event)

	case models.EventChannelDelete, models.EventRoleDelete:
		return e.nuke.ProcessDeletion(ctx, event)

	case models.EventPermissionGrant:
		return e.nuke.ProcessPermissionGrant(ctx, event)

	default:
		return nil
	}
}

// damageLoop restores guilds the executor reports as gutted. Restoration
// runs here, off the executor's workers, so a long rebuild never delays
// pending remedial actions.
func (e *Engine) damageLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case report := <-e.damage:
			logging.Critical("[ENGINE] Guild %s gutted (%d channels, %d roles left): %s",
				report.GuildID, report.ChannelCount, report.RoleCount, report.Reason)

			ctx, cancel := context.WithTimeout(e.ctx, 5*time.Minute)
			if err := e.store.Restore(ctx, report.GuildID); err != nil {
				logging.Error("[ENGINE] Restore of guild %s failed: %v", report.GuildID, err)
			} else {
				logging.Info("[ENGINE] Guild %s restored from latest snapshot", report.GuildID)
			}
			cancel()
		}
	}
}

func (e *Engine) maintenanceLoop() {
	defer e.wg.Done()

	sweep := time.NewTicker(sweepEvery)
	defer sweep.Stop()
	snapshot := time.NewTicker(e.backupInterval)
	defer snapshot.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-sweep.C:
			e.spam.Sweep()
			e.raid.Sweep()
			logging.Debug("[ENGINE] Swept detector state older than %s", stateMaxAge)
		case <-snapshot.C:
			ctx, cancel := context.WithTimeout(e.ctx, 5*time.Minute)
			e.store.SnapshotAll(ctx, e.KnownGuilds())
			cancel()
		}
	}
}

// TrackGuild registers a guild for the periodic snapshot sweep.
func (e *Engine) TrackGuild(guildID string) {
	e.mu.Lock()
	e.guilds[guildID] = struct{}{}
	e.mu.Unlock()
}

func (e *Engine) ForgetGuild(guildID string) {
	e.mu.Lock()
	delete(e.guilds, guildID)
	e.mu.Unlock()
}

func (e *Engine) KnownGuilds() []string {
	e.mu.Lock()
	ids := make([]string, 0, len(e.guilds))
	for id := range e.guilds {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Reconfigure pushes a reloaded configuration into every detector.
func (e *Engine) Reconfigure(cfg *config.Config) {
	e.spam.Reconfigure(cfg.AntiSpam)
	e.nuke.Reconfigure(cfg.AntiNuke)
	e.raid.Reconfigure(cfg.AntiRaid)
	e.monitor.SetThreshold(cfg.Detector.Threshold)
	logging.Info("[ENGINE] Detector configuration reloaded")
}

func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}
