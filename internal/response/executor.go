package response

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/database"
	"github.com/zapricaa/ai-defender-bot/internal/logging"
	"github.com/zapricaa/ai-defender-bot/internal/metrics"
	"github.com/zapricaa/ai-defender-bot/internal/models"
	"github.com/zapricaa/ai-defender-bot/internal/platform"
)

const (
	maxAttempts  = 3
	retryBackoff = time.Second
	mutedRole    = "Muted"
)

// Executor consumes verdicts and applies their remedial action against the
// platform. Work runs on a small pool so slow platform calls never block
// event processing; a ModerationLogEntry is recorded for every verdict
// whether or not the platform call succeeded.
type Executor struct {
	client platform.Client
	db     *database.Database
	damage chan<- models.DamageReport
	queue  chan *models.Verdict
	wg     sync.WaitGroup
	cancel context.CancelFunc

	selfMu sync.RWMutex
	selfID string

	timerMu sync.Mutex
	timers  map[string]*time.Timer
}

func NewExecutor(client platform.Client, db *database.Database, selfID string, damage chan<- models.DamageReport, workers int) *Executor {
	if workers < 1 {
		workers = 4
	}
	ctx, cancel := context.WithCancel(context.Background())

	e := &Executor{
		client: client,
		db:     db,
		selfID: selfID,
		damage: damage,
		queue:  make(chan *models.Verdict, 1024),
		cancel: cancel,
		timers: make(map[string]*time.Timer),
	}

	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.worker(ctx)
	}
	return e
}

// SetSelfID records the engine's own platform identity, stamped onto
// moderation log entries as the acting moderator. Known only after the
// gateway connects, by which time the workers are already consuming.
func (e *Executor) SetSelfID(id string) {
	e.selfMu.Lock()
	e.selfID = id
	e.selfMu.Unlock()
}

func (e *Executor) actorID() string {
	e.selfMu.RLock()
	defer e.selfMu.RUnlock()
	return e.selfID
}

// Submit hands a verdict to the pool. A full queue drops the verdict with
// an error log rather than blocking the caller's event path.
func (e *Executor) Submit(verdict *models.Verdict) {
	select {
	case e.queue <- verdict:
	default:
		logging.Error("[RESPONSE] Queue full, dropping verdict %s for %s in guild %s",
			verdict.ID, verdict.UserID, verdict.GuildID)
	}
}

func (e *Executor) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case verdict := <-e.queue:
			e.Apply(ctx, verdict)
		}
	}
}

// Apply executes one verdict end to end. Permission refusals are logged as
// warnings and never propagate; the engine keeps operating in guilds where
// it lacks rights.
func (e *Executor) Apply(ctx context.Context, v *models.Verdict) {
	if v.StripRoles {
		e.stripRoles(ctx, v)
	}
	if v.DeleteMessageID != "" && v.ChannelID != "" {
		if err := e.client.DeleteMessage(ctx, v.ChannelID, v.DeleteMessageID); err != nil {
			logging.Warn("[RESPONSE] Failed to delete message %s in guild %s: %v",
				v.DeleteMessageID, v.GuildID, err)
		}
	}

	err := e.execute(ctx, v)
	outcome := "success"
	switch {
	case err == nil:
	case platform.IsForbidden(err):
		outcome = "forbidden"
		logging.Warn("[RESPONSE] Missing permissions to %s %s in guild %s: %v",
			v.Action.Name(), v.UserID, v.GuildID, err)
	case platform.IsNotFound(err):
		outcome = "not_found"
		logging.Warn("[RESPONSE] Target gone while applying %s to %s in guild %s: %v",
			v.Action.Name(), v.UserID, v.GuildID, err)
	default:
		outcome = "error"
		logging.Error("[RESPONSE] Failed to %s %s in guild %s: %v",
			v.Action.Name(), v.UserID, v.GuildID, err)
	}
	metrics.ResponsesExecuted.WithLabelValues(v.Action.Name(), outcome).Inc()

	// The log entry is written regardless of the platform outcome.
	entry := &models.ModerationLogEntry{
		GuildID:   v.GuildID,
		UserID:    v.UserID,
		Action:    v.Detector + "_" + v.Action.Name(),
		Reason:    v.Reason,
		ActorID:   e.actorID(),
		Timestamp: time.Now(),
	}
	if err := e.db.AppendModerationLog(entry); err != nil {
		logging.Error("[RESPONSE] Failed to write moderation log: %v", err)
	}

	if v.DamageCheck {
		e.checkDamage(ctx, v)
	}
}

// execute dispatches on the action variant, retrying transient failures a
// bounded number of times with backoff.
func (e *Executor) execute(ctx context.Context, v *models.Verdict) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff << (attempt - 1)):
			}
		}

		err = e.executeOnce(ctx, v)
		if err == nil || !platform.IsTransient(err) {
			return err
		}
	}
	return err
}

func (e *Executor) executeOnce(ctx context.Context, v *models.Verdict) error {
	switch action := v.Action.(type) {
	case models.WarnAction:
		if v.ChannelID != "" {
			return e.client.SendChannelMessage(ctx, v.ChannelID, action.Notice)
		}
		return e.client.SendDirectMessage(ctx, v.UserID, action.Notice)

	case models.MuteAction:
		roleID, err := e.client.RoleByName(ctx, v.GuildID, mutedRole)
		if err != nil {
			return err
		}
		if err := e.client.AddMemberRole(ctx, v.GuildID, v.UserID, roleID); err != nil {
			return err
		}
		if action.Duration > 0 {
			e.scheduleUnmute(v.GuildID, v.UserID, roleID, action.Duration)
		}
		return nil

	case models.KickAction:
		return e.client.KickMember(ctx, v.GuildID, v.UserID, v.Reason)

	case models.BanAction:
		return e.client.BanMember(ctx, v.GuildID, v.UserID, v.Reason, action.DeleteMessageDays)

	case models.TimeoutAction:
		return e.client.TimeoutMember(ctx, v.GuildID, v.UserID, action.Until, v.Reason)

	default:
		return fmt.Errorf("unhandled remedial action %T", v.Action)
	}
}

// stripRoles zeroes the permissions of every non-base role the subject
// holds. Per-role failures are skipped; the loop always finishes.
func (e *Executor) stripRoles(ctx context.Context, v *models.Verdict) {
	roleIDs, err := e.client.MemberRoleIDs(ctx, v.GuildID, v.UserID)
	if err != nil {
		logging.Warn("[RESPONSE] Cannot read roles of %s in guild %s: %v", v.UserID, v.GuildID, err)
		return
	}

	for _, roleID := range roleIDs {
		// The base role shares the guild's ID and is never touched.
		if roleID == v.GuildID {
			continue
		}
		if err := e.client.SetRolePermissions(ctx, v.GuildID, roleID, 0, "Anti-nuke protection"); err != nil {
			logging.Warn("[RESPONSE] Failed to strip role %s in guild %s: %v", roleID, v.GuildID, err)
			continue
		}
	}
}

// checkDamage measures the guild's surviving structure and reports it when
// it has fallen below the survivable floor. The report is consumed by the
// engine, which decides on restoration independently of this executor.
func (e *Executor) checkDamage(ctx context.Context, v *models.Verdict) {
	summary, err := e.client.GuildSummary(ctx, v.GuildID)
	if err != nil {
		logging.Warn("[RESPONSE] Cannot assess damage in guild %s: %v", v.GuildID, err)
		return
	}

	if len(summary.Channels) >= 3 && len(summary.Roles) >= 3 {
		return
	}

	report := models.DamageReport{
		GuildID:      v.GuildID,
		ChannelCount: len(summary.Channels),
		RoleCount:    len(summary.Roles),
		Reason:       v.Reason,
		ReportedAt:   time.Now(),
	}
	select {
	case e.damage <- report:
	default:
		logging.Error("[RESPONSE] Damage channel full, report for guild %s dropped", v.GuildID)
	}
}

func (e *Executor) scheduleUnmute(guildID, userID, roleID string, after time.Duration) {
	key := guildID + ":" + userID

	e.timerMu.Lock()
	if old, ok := e.timers[key]; ok {
		old.Stop()
	}
	e.timers[key] = time.AfterFunc(after, func() {
		e.timerMu.Lock()
		delete(e.timers, key)
		e.timerMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.client.RemoveMemberRole(ctx, guildID, userID, roleID); err != nil {
			logging.Warn("[RESPONSE] Failed to unmute %s in guild %s: %v", userID, guildID, err)
		}
	})
	e.timerMu.Unlock()
}

// CancelTimers stops pending unmute timers for a guild, used when the
// guild becomes unavailable.
func (e *Executor) CancelTimers(guildID string) {
	prefix := guildID + ":"
	e.timerMu.Lock()
	defer e.timerMu.Unlock()
	for key, timer := range e.timers {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			timer.Stop()
			delete(e.timers, key)
		}
	}
}

// Close drains nothing: pending verdicts in the queue are abandoned, and
// every timer is cancelled.
func (e *Executor) Close() {
	e.cancel()
	e.wg.Wait()

	e.timerMu.Lock()
	for key, timer := range e.timers {
		timer.Stop()
		delete(e.timers, key)
	}
	e.timerMu.Unlock()
}
