package response

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/database"
	"github.com/zapricaa/ai-defender-bot/internal/models"
	"github.com/zapricaa/ai-defender-bot/internal/platform"
	"github.com/zapricaa/ai-defender-bot/internal/platform/platformtest"
)

func testDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newExecutor(t *testing.T, client *platformtest.Fake) (*Executor, *database.Database, chan models.DamageReport) {
	t.Helper()
	db := testDB(t)
	damage := make(chan models.DamageReport, 4)
	e := NewExecutor(client, db, "self", damage, 1)
	t.Cleanup(e.Close)
	return e, db, damage
}

func banVerdict() *models.Verdict {
	return models.NewVerdict("g1", "u1", "anti_nuke", "Mass channel deletion",
		models.BanAction{DeleteMessageDays: 1}, models.SeverityCritical)
}

func TestApplyBanWritesModerationLog(t *testing.T) {
	client := &platformtest.Fake{}
	e, db, _ := newExecutor(t, client)

	e.Apply(context.Background(), banVerdict())

	if client.CallCount("BanMember") != 1 {
		t.Fatal("ban never issued")
	}

	logs, err := db.ModerationLogs("g1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	if logs[0].Action != "anti_nuke_ban" {
		t.Fatalf("unexpected action %q", logs[0].Action)
	}
	if logs[0].ActorID != "self" {
		t.Fatalf("unexpected actor %q", logs[0].ActorID)
	}
}

func TestApplyForbiddenStillLogs(t *testing.T) {
	client := &platformtest.Fake{
		BanFunc: func(guildID, userID string) error { return platform.ErrPermissionDenied },
	}
	e, db, _ := newExecutor(t, client)

	e.Apply(context.Background(), banVerdict())

	// The platform refused, but the record of the attempt survives.
	logs, err := db.ModerationLogs("g1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected the refused action logged, got %d entries", len(logs))
	}
}

func TestApplyStripRolesSkipsBaseRole(t *testing.T) {
	client := &platformtest.Fake{}
	// Subject holds the base role plus two others.
	client.MemberRolesFn = func(guildID, userID string) ([]string, error) {
		return []string{"g1", "r-a", "r-b"}, nil
	}
	e, _, _ := newExecutor(t, client)

	v := banVerdict()
	v.StripRoles = true
	e.Apply(context.Background(), v)

	strips := client.Calls("SetRolePermissions")
	if len(strips) != 2 {
		t.Fatalf("expected 2 roles stripped, got %d", len(strips))
	}
	for _, call := range strips {
		if call.Args[1] == "g1" {
			t.Fatal("base role must never be stripped")
		}
	}
}

func TestApplyDamageCheckReportsGuttedGuild(t *testing.T) {
	client := &platformtest.Fake{
		SummaryFunc: func(guildID string) (*platform.GuildSummary, error) {
			return &platform.GuildSummary{
				Channels: []platform.ChannelSpec{{ID: "c1"}},
				Roles:    []platform.RoleSpec{{ID: "g1"}, {ID: "r1"}},
			}, nil
		},
	}
	e, _, damage := newExecutor(t, client)

	v := banVerdict()
	v.DamageCheck = true
	e.Apply(context.Background(), v)

	select {
	case report := <-damage:
		if report.GuildID != "g1" || report.ChannelCount != 1 || report.RoleCount != 2 {
			t.Fatalf("unexpected report %+v", report)
		}
	default:
		t.Fatal("gutted guild should be reported")
	}
}

func TestApplyDamageCheckHealthyGuildNotReported(t *testing.T) {
	client := &platformtest.Fake{
		SummaryFunc: func(guildID string) (*platform.GuildSummary, error) {
			return &platform.GuildSummary{
				Channels: make([]platform.ChannelSpec, 10),
				Roles:    make([]platform.RoleSpec, 5),
			}, nil
		},
	}
	e, _, damage := newExecutor(t, client)

	v := banVerdict()
	v.DamageCheck = true
	e.Apply(context.Background(), v)

	select {
	case report := <-damage:
		t.Fatalf("healthy guild reported: %+v", report)
	default:
	}
}

func TestApplyWarnPrefersChannel(t *testing.T) {
	client := &platformtest.Fake{}
	e, _, _ := newExecutor(t, client)

	v := models.NewVerdict("g1", "u1", "anti_spam", "Mention spam",
		models.WarnAction{Notice: "stop"}, models.SeverityLow)
	v.ChannelID = "c1"
	e.Apply(context.Background(), v)

	if client.CallCount("SendChannelMessage") != 1 {
		t.Fatal("warning with a channel should go to the channel")
	}
	if client.CallCount("SendDirectMessage") != 0 {
		t.Fatal("no DM expected when a channel is known")
	}
}

func TestApplyMuteAssignsRoleAndSchedulesUnmute(t *testing.T) {
	client := &platformtest.Fake{}
	e, _, _ := newExecutor(t, client)

	v := models.NewVerdict("g1", "u1", "anti_spam", "Excessive message frequency",
		models.MuteAction{Duration: 20 * time.Millisecond}, models.SeverityMedium)
	e.Apply(context.Background(), v)

	if client.CallCount("AddMemberRole") != 1 {
		t.Fatal("muted role never assigned")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if client.CallCount("RemoveMemberRole") == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("unmute never ran")
}

func TestSetSelfIDSafeWhileWorkersRunning(t *testing.T) {
	client := &platformtest.Fake{}
	db := testDB(t)
	damage := make(chan models.DamageReport, 4)

	// Startup order in main: workers consume before the gateway identity
	// is known, so the identity write must be safe against a concurrent
	// log-entry read.
	e := NewExecutor(client, db, "", damage, 2)
	t.Cleanup(e.Close)

	for i := 0; i < 8; i++ {
		e.Submit(banVerdict())
	}
	e.SetSelfID("self")
	e.Submit(banVerdict())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		logs, _ := db.ModerationLogs("g1", 20)
		if len(logs) == 9 {
			if e.actorID() != "self" {
				t.Fatalf("unexpected actor %q", e.actorID())
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("submitted verdicts never executed")
}

func TestSubmitRunsThroughWorkerPool(t *testing.T) {
	client := &platformtest.Fake{}
	e, db, _ := newExecutor(t, client)

	e.Submit(banVerdict())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		logs, _ := db.ModerationLogs("g1", 10)
		if len(logs) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("submitted verdict never executed")
}
