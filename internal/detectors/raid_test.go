package detectors

import (
	"testing"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/config"
	"github.com/zapricaa/ai-defender-bot/internal/lockdown"
	"github.com/zapricaa/ai-defender-bot/internal/models"
	"github.com/zapricaa/ai-defender-bot/internal/platform/platformtest"
	"github.com/zapricaa/ai-defender-bot/internal/state"
)

func raidConfig() config.AntiRaidConfig {
	return config.AntiRaidConfig{
		JoinThreshold:     10,
		TimeWindowSec:     60,
		VerificationLevel: 1,
		Action:            "kick",
	}
}

func newRaidDetector(client *platformtest.Fake) (*RaidDetector, *lockdown.Machine) {
	joins := state.NewJoinTracker()
	machine := lockdown.NewMachine(client, joins, 1)
	d := NewRaidDetector(raidConfig(), joins, state.NewSuspectSet(), machine)
	return d, machine
}

func join(guildID, userID string, at time.Time) *models.Event {
	return &models.Event{
		Kind:      models.EventMemberJoin,
		GuildID:   guildID,
		UserID:    userID,
		Timestamp: at,
		// An established account: old, custom avatar, extra roles.
		AccountCreatedAt: at.Add(-365 * 24 * time.Hour),
		HasAvatar:        true,
		RoleCount:        3,
	}
}

func TestRaidJoinBurstActivatesLockdown(t *testing.T) {
	client := &platformtest.Fake{}
	d, machine := newRaidDetector(client)
	defer machine.Close()
	base := time.Now()

	for i := 0; i < 9; i++ {
		d.ProcessJoin(join("g1", joinID(i), base.Add(time.Duration(i)*time.Second)))
		if machine.IsLocked("g1") {
			t.Fatalf("lockdown before threshold at join %d", i+1)
		}
	}

	d.ProcessJoin(join("g1", "u9", base.Add(9*time.Second)))
	if !machine.IsLocked("g1") {
		t.Fatal("tenth join in window should activate lockdown")
	}
}

func TestRaidJoinDuringLockdownIsSuspect(t *testing.T) {
	client := &platformtest.Fake{}
	d, machine := newRaidDetector(client)
	defer machine.Close()

	machine.Activate("g1", "test")

	v := d.ProcessJoin(join("g1", "latecomer", time.Now()))
	if v == nil {
		t.Fatal("join during lockdown should produce a verdict")
	}
	if _, ok := v.Action.(models.KickAction); !ok {
		t.Fatalf("configured action is kick, got %s", v.Action.Name())
	}

	// Once suspected, any message earns the action too.
	msg := &models.Event{Kind: models.EventMessage, GuildID: "g1", UserID: "latecomer", Timestamp: time.Now()}
	if v := d.ProcessMessage(msg); v == nil {
		t.Fatal("message from suspect should produce a verdict")
	}
}

func TestRaidYoungAccountFlagged(t *testing.T) {
	client := &platformtest.Fake{}
	d, machine := newRaidDetector(client)
	defer machine.Close()
	now := time.Now()

	ev := join("g1", "fresh", now)
	ev.AccountCreatedAt = now.Add(-time.Hour)

	v := d.ProcessJoin(ev)
	if v == nil {
		t.Fatal("hour-old account should be flagged")
	}
	if v.Reason != "Suspicious account traits" {
		t.Fatalf("unexpected reason %q", v.Reason)
	}
}

func TestRaidEstablishedAccountPasses(t *testing.T) {
	client := &platformtest.Fake{}
	d, machine := newRaidDetector(client)
	defer machine.Close()

	if v := d.ProcessJoin(join("g1", "regular", time.Now())); v != nil {
		t.Fatalf("established account flagged: %s", v.Reason)
	}
}

func TestRaidRecentJoinerSpamBehavior(t *testing.T) {
	client := &platformtest.Fake{}
	d, machine := newRaidDetector(client)
	defer machine.Close()
	now := time.Now()

	d.ProcessJoin(join("g1", "newbie", now))

	msg := &models.Event{
		Kind:      models.EventMessage,
		GuildID:   "g1",
		UserID:    "newbie",
		Timestamp: now.Add(time.Minute),
		Content:   "free nitro here http://discord.gg/xyz",
	}
	v := d.ProcessMessage(msg)
	if v == nil {
		t.Fatal("invite-link spam from a recent joiner should be flagged")
	}
	if v.Reason != "Spam behavior after joining" {
		t.Fatalf("unexpected reason %q", v.Reason)
	}
}

func TestRaidNormalMessageFromRecentJoinerPasses(t *testing.T) {
	client := &platformtest.Fake{}
	d, machine := newRaidDetector(client)
	defer machine.Close()
	now := time.Now()

	d.ProcessJoin(join("g1", "newbie", now))

	msg := &models.Event{
		Kind:      models.EventMessage,
		GuildID:   "g1",
		UserID:    "newbie",
		Timestamp: now.Add(time.Minute),
		Content:   "hey everyone, glad to be here",
	}
	if v := d.ProcessMessage(msg); v != nil {
		t.Fatalf("normal message flagged: %s", v.Reason)
	}
}

func TestSpamBehaviorLowDiversity(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "aa"
	}
	ev := &models.Event{Content: long}
	if !spamBehavior(ev) {
		t.Fatal("long low-diversity message should be spam-patterned")
	}

	if spamBehavior(&models.Event{Content: "short message"}) {
		t.Fatal("short message should pass")
	}
}

func TestSpamBehaviorCountsCharactersNotBytes(t *testing.T) {
	// 30 characters but 90 bytes: under the 50-character gate, so the
	// diversity screen must not apply.
	short := ""
	for i := 0; i < 30; i++ {
		short += "あ"
	}
	if spamBehavior(&models.Event{Content: short}) {
		t.Fatal("30-character message should be under the length gate")
	}

	// 60 repeated characters is low diversity whatever the byte width.
	long := ""
	for i := 0; i < 30; i++ {
		long += "ああ"
	}
	if !spamBehavior(&models.Event{Content: long}) {
		t.Fatal("long low-diversity multibyte message should be spam-patterned")
	}
}

func joinID(i int) string {
	return string(rune('a' + i))
}
