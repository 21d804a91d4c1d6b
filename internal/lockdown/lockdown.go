package lockdown

import (
	"context"
	"sync"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/logging"
	"github.com/zapricaa/ai-defender-bot/internal/metrics"
	"github.com/zapricaa/ai-defender-bot/internal/platform"
	"github.com/zapricaa/ai-defender-bot/internal/state"
)

type Mode uint8

const (
	ModeNormal Mode = iota
	ModeLocked
)

// Cooldown is how long a lockdown holds before auto-reverting.
const Cooldown = 3600 * time.Second

// State is one guild's lockdown record. Exactly one exists per guild.
type State struct {
	Mode                 Mode
	ActivatedAt          time.Time
	OriginalVerification int
	Reason               string

	timer *time.Timer
}

// Machine is the per-guild NORMAL/LOCKED gate. Transitions are event-driven
// except the auto-revert, which runs on a cancellable timer so a manual
// lift or shutdown never leaves an orphaned background task.
type Machine struct {
	client platform.Client
	joins  *state.JoinTracker

	mu     sync.Mutex
	states map[string]*State

	verificationLevel int
	cooldown          time.Duration
}

func NewMachine(client platform.Client, joins *state.JoinTracker, verificationLevel int) *Machine {
	return &Machine{
		client:            client,
		joins:             joins,
		states:            make(map[string]*State),
		verificationLevel: verificationLevel,
		cooldown:          Cooldown,
	}
}

// SetCooldown overrides the auto-revert delay. Test hook.
func (m *Machine) SetCooldown(d time.Duration) {
	m.mu.Lock()
	m.cooldown = d
	m.mu.Unlock()
}

func (m *Machine) Reconfigure(verificationLevel int) {
	m.mu.Lock()
	m.verificationLevel = verificationLevel
	m.mu.Unlock()
}

func (m *Machine) IsLocked(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[guildID]
	return st != nil && st.Mode == ModeLocked
}

// Current returns a copy of the guild's state.
func (m *Machine) Current(guildID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st := m.states[guildID]; st != nil {
		return *st
	}
	return State{Mode: ModeNormal}
}

// Activate transitions NORMAL->LOCKED. Re-activation while locked is a
// no-op. The state flips synchronously; the platform-side enforcement
// (verification bump, invite revocation, pending-member removal, notice)
// runs on its own goroutine so the event path never waits on the network.
func (m *Machine) Activate(guildID, reason string) bool {
	m.mu.Lock()
	st := m.states[guildID]
	if st != nil && st.Mode == ModeLocked {
		m.mu.Unlock()
		return false
	}

	st = &State{
		Mode:        ModeLocked,
		ActivatedAt: time.Now(),
		Reason:      reason,
	}
	st.timer = time.AfterFunc(m.cooldown, func() { m.revert(guildID, "cooldown elapsed") })
	m.states[guildID] = st
	targetLevel := m.verificationLevel
	m.mu.Unlock()

	metrics.LockdownsActive.Inc()
	logging.Info("[LOCKDOWN] Activating lockdown in guild %s: %s", guildID, reason)

	go m.enforce(guildID, reason, targetLevel)
	return true
}

// enforce applies the lockdown measures. Every step is best-effort: a
// failure in one never stops the rest.
func (m *Machine) enforce(guildID, reason string, targetLevel int) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	summary, err := m.client.GuildSummary(ctx, guildID)
	if err != nil {
		logging.Error("[LOCKDOWN] Failed to read guild %s before lockdown: %v", guildID, err)
	} else {
		m.mu.Lock()
		if st := m.states[guildID]; st != nil {
			st.OriginalVerification = summary.Settings.VerificationLevel
		}
		m.mu.Unlock()

		if summary.Settings.VerificationLevel < targetLevel {
			if err := m.client.SetVerificationLevel(ctx, guildID, targetLevel); err != nil {
				logging.Warn("[LOCKDOWN] Failed to raise verification in guild %s: %v", guildID, err)
			}
		}
	}

	// Revoke outstanding invites, one by one; skip failures.
	invites, err := m.client.GuildInvites(ctx, guildID)
	if err != nil {
		logging.Warn("[LOCKDOWN] Failed to list invites in guild %s: %v", guildID, err)
	}
	for _, code := range invites {
		if err := m.client.DeleteInvite(ctx, code, "Raid protection lockdown"); err != nil {
			continue
		}
	}

	// Force-remove every account still inside the tracked join window,
	// not just the burst that tripped the detector; they can rejoin once
	// verification is back to normal.
	for _, userID := range m.joins.RecentMembers(guildID, state.JoinRetention, time.Now()) {
		if err := m.client.KickMember(ctx, guildID, userID, "Pending verification during raid protection"); err != nil {
			continue
		}
	}

	notice := "🚨 **RAID PROTECTION ACTIVATED** 🚨\n\n" +
		"Reason: " + reason + "\n" +
		"Security measures have been enabled:\n" +
		"- New joins require verification\n" +
		"- All invites have been disabled\n" +
		"- Recent unverified members were removed\n\n" +
		"Normal operations will resume shortly."
	if err := m.client.BroadcastToGuild(ctx, guildID, notice); err != nil {
		logging.Warn("[LOCKDOWN] Failed to send lockdown notice to guild %s: %v", guildID, err)
	}
}

// Lift manually ends a lockdown, cancelling the scheduled revert.
func (m *Machine) Lift(guildID string) bool {
	return m.revert(guildID, "manual override")
}

func (m *Machine) revert(guildID, cause string) bool {
	m.mu.Lock()
	st := m.states[guildID]
	if st == nil || st.Mode != ModeLocked {
		m.mu.Unlock()
		return false
	}
	if st.timer != nil {
		st.timer.Stop()
	}
	original := st.OriginalVerification
	st.Mode = ModeNormal
	st.timer = nil
	m.mu.Unlock()

	metrics.LockdownsActive.Dec()
	logging.Info("[LOCKDOWN] Lifting lockdown in guild %s (%s)", guildID, cause)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := m.client.SetVerificationLevel(ctx, guildID, original); err != nil {
			logging.Error("[LOCKDOWN] Failed to restore verification in guild %s: %v", guildID, err)
		}
		notice := "🔓 **Lockdown lifted**: Raid protection measures have been relaxed. " +
			"Server is now operating normally."
		if err := m.client.BroadcastToGuild(ctx, guildID, notice); err != nil {
			logging.Warn("[LOCKDOWN] Failed to send lift notice to guild %s: %v", guildID, err)
		}
	}()
	return true
}

// Close cancels every pending revert timer. States stay LOCKED in memory;
// the process is going away and the platform side reverts on next start.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.states {
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
	}
}
