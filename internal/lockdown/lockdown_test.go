package lockdown

import (
	"testing"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/platform"
	"github.com/zapricaa/ai-defender-bot/internal/platform/platformtest"
	"github.com/zapricaa/ai-defender-bot/internal/state"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestActivateTransitionsAndEnforces(t *testing.T) {
	client := &platformtest.Fake{
		SummaryFunc: func(guildID string) (*platform.GuildSummary, error) {
			return &platform.GuildSummary{
				Settings: platform.GuildSettings{VerificationLevel: 0},
			}, nil
		},
	}
	joins := state.NewJoinTracker()
	joins.RecordJoin("g1", "recent-joiner", time.Now())

	m := NewMachine(client, joins, 2)
	defer m.Close()

	if !m.Activate("g1", "Mass join detected") {
		t.Fatal("activation should succeed")
	}
	if !m.IsLocked("g1") {
		t.Fatal("state must flip synchronously")
	}

	// Enforcement runs off the event path.
	waitFor(t, func() bool { return client.CallCount("SetVerificationLevel") == 1 },
		"verification level never raised")
	waitFor(t, func() bool { return client.CallCount("KickMember") == 1 },
		"recent joiner never removed")
	waitFor(t, func() bool { return client.CallCount("BroadcastToGuild") == 1 },
		"lockdown notice never sent")

	kicks := client.Calls("KickMember")
	if kicks[0].Args[1] != "recent-joiner" {
		t.Fatalf("kicked wrong member: %v", kicks[0].Args)
	}
}

func TestEnforceKicksJoinersOutsideBurstWindow(t *testing.T) {
	client := &platformtest.Fake{
		SummaryFunc: func(guildID string) (*platform.GuildSummary, error) {
			return &platform.GuildSummary{}, nil
		},
	}
	joins := state.NewJoinTracker()
	// Joined an hour before the raid tripped detection: still inside the
	// tracked window, so still removed. Only day-old records are exempt.
	joins.RecordJoin("g1", "early-arrival", time.Now().Add(-time.Hour))
	joins.RecordJoin("g1", "settled-member", time.Now().Add(-25*time.Hour))

	m := NewMachine(client, joins, 2)
	defer m.Close()

	m.Activate("g1", "Mass join detected")
	waitFor(t, func() bool { return client.CallCount("KickMember") >= 1 },
		"hour-old joiner never removed")
	waitFor(t, func() bool { return client.CallCount("BroadcastToGuild") == 1 },
		"enforcement never finished")

	kicks := client.Calls("KickMember")
	if len(kicks) != 1 {
		t.Fatalf("expected only the hour-old joiner removed, got %d kicks", len(kicks))
	}
	if kicks[0].Args[1] != "early-arrival" {
		t.Fatalf("kicked wrong member: %v", kicks[0].Args)
	}
}

func TestActivateWhileLockedIsNoop(t *testing.T) {
	client := &platformtest.Fake{}
	m := NewMachine(client, state.NewJoinTracker(), 1)
	defer m.Close()

	if !m.Activate("g1", "first") {
		t.Fatal("first activation should succeed")
	}
	if m.Activate("g1", "second") {
		t.Fatal("re-activation while locked must be a no-op")
	}

	st := m.Current("g1")
	if st.Reason != "first" {
		t.Fatalf("re-activation must not replace state, reason is %q", st.Reason)
	}
}

func TestAutoRevertRestoresVerification(t *testing.T) {
	client := &platformtest.Fake{
		SummaryFunc: func(guildID string) (*platform.GuildSummary, error) {
			return &platform.GuildSummary{
				Settings: platform.GuildSettings{VerificationLevel: 3},
			}, nil
		},
	}
	m := NewMachine(client, state.NewJoinTracker(), 4)
	defer m.Close()
	m.SetCooldown(30 * time.Millisecond)

	m.Activate("g1", "test")
	waitFor(t, func() bool { return !m.IsLocked("g1") }, "lockdown never auto-reverted")

	// Raise on enforce, restore on revert.
	waitFor(t, func() bool { return client.CallCount("SetVerificationLevel") == 2 },
		"verification level never restored")
}

func TestManualLiftCancelsRevertTimer(t *testing.T) {
	client := &platformtest.Fake{}
	m := NewMachine(client, state.NewJoinTracker(), 1)
	defer m.Close()

	m.Activate("g1", "test")
	if !m.Lift("g1") {
		t.Fatal("lift of an active lockdown should succeed")
	}
	if m.IsLocked("g1") {
		t.Fatal("guild should be unlocked")
	}
	if m.Lift("g1") {
		t.Fatal("second lift should report nothing to do")
	}

	waitFor(t, func() bool { return client.CallCount("BroadcastToGuild") >= 1 },
		"lift notice never sent")
}

func TestLiftWithoutLockdown(t *testing.T) {
	m := NewMachine(&platformtest.Fake{}, state.NewJoinTracker(), 1)
	defer m.Close()

	if m.Lift("g1") {
		t.Fatal("lift with no lockdown should return false")
	}
}
