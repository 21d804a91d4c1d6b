package detectors

import (
	"testing"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/config"
	"github.com/zapricaa/ai-defender-bot/internal/models"
)

func spamConfig() config.AntiSpamConfig {
	return config.AntiSpamConfig{
		MessageThreshold: 5,
		TimeWindowSec:    10,
		MentionThreshold: 5,
		Punishment:       "mute",
		DurationSec:      300,
	}
}

func message(guildID, userID string, at time.Time) *models.Event {
	return &models.Event{
		Kind:      models.EventMessage,
		GuildID:   guildID,
		UserID:    userID,
		Timestamp: at,
		Content:   "hello",
		ChannelID: "c1",
	}
}

func TestSpamFloodWarnsOnFirstViolation(t *testing.T) {
	d := NewSpamDetector(spamConfig())
	base := time.Now()

	var v *models.Verdict
	for i := 0; i < 5; i++ {
		v = d.ProcessMessage(message("g1", "u1", base.Add(time.Duration(i)*time.Second)))
		if i < 4 && v != nil {
			t.Fatalf("message %d below threshold should pass, got %v", i+1, v.Reason)
		}
	}

	if v == nil {
		t.Fatal("fifth message in 10s should trigger")
	}
	if _, ok := v.Action.(models.WarnAction); !ok {
		t.Fatalf("first violation should warn, got %s", v.Action.Name())
	}
	if v.Detector != DetectorSpam {
		t.Fatalf("unexpected detector %q", v.Detector)
	}
}

func TestSpamViolationInsideCooldownStaysWarned(t *testing.T) {
	d := NewSpamDetector(spamConfig())
	base := time.Now()

	for i := 0; i < 5; i++ {
		d.ProcessMessage(message("g1", "u1", base.Add(time.Duration(i)*time.Second)))
	}

	// Another burst a minute later, well inside the 300s cooldown.
	later := base.Add(time.Minute)
	var v *models.Verdict
	for i := 0; i < 5; i++ {
		v = d.ProcessMessage(message("g1", "u1", later.Add(time.Duration(i)*time.Second)))
	}
	if v != nil {
		t.Fatalf("violation inside cooldown should produce no verdict, got %s", v.Action.Name())
	}
}

func TestSpamViolationAfterCooldownPunishes(t *testing.T) {
	d := NewSpamDetector(spamConfig())
	base := time.Now()

	for i := 0; i < 5; i++ {
		d.ProcessMessage(message("g1", "u1", base.Add(time.Duration(i)*time.Second)))
	}

	later := base.Add(10 * time.Minute)
	var v *models.Verdict
	for i := 0; i < 5; i++ {
		v = d.ProcessMessage(message("g1", "u1", later.Add(time.Duration(i)*time.Second)))
	}

	if v == nil {
		t.Fatal("violation after cooldown should punish")
	}
	mute, ok := v.Action.(models.MuteAction)
	if !ok {
		t.Fatalf("expected mute, got %s", v.Action.Name())
	}
	if mute.Duration != 300*time.Second {
		t.Fatalf("expected 300s mute, got %v", mute.Duration)
	}
	if d.RepeatOffenses("g1", "u1") != 1 {
		t.Fatalf("expected 1 recorded offense, got %d", d.RepeatOffenses("g1", "u1"))
	}
}

func TestSpamMentionFlood(t *testing.T) {
	d := NewSpamDetector(spamConfig())

	ev := message("g1", "u1", time.Now())
	ev.MentionCount = 5
	v := d.ProcessMessage(ev)

	if v == nil {
		t.Fatal("5 mentions should trigger")
	}
	if v.Reason != "Mention spam" {
		t.Fatalf("unexpected reason %q", v.Reason)
	}
}

func TestSpamSubjectsAreIndependent(t *testing.T) {
	d := NewSpamDetector(spamConfig())
	base := time.Now()

	for i := 0; i < 5; i++ {
		d.ProcessMessage(message("g1", "u1", base.Add(time.Duration(i)*time.Second)))
	}

	// A different user in the same guild starts clean.
	if v := d.ProcessMessage(message("g1", "u2", base)); v != nil {
		t.Fatalf("unrelated user flagged: %s", v.Reason)
	}
	// Same user in another guild starts clean too.
	if v := d.ProcessMessage(message("g2", "u1", base)); v != nil {
		t.Fatalf("unrelated guild flagged: %s", v.Reason)
	}
}

func TestSpamSlowSenderNeverTriggers(t *testing.T) {
	d := NewSpamDetector(spamConfig())
	base := time.Now()

	// One message every 11 seconds never accumulates 5 in a 10s window.
	for i := 0; i < 20; i++ {
		if v := d.ProcessMessage(message("g1", "u1", base.Add(time.Duration(i)*11*time.Second))); v != nil {
			t.Fatalf("slow sender flagged at message %d: %s", i+1, v.Reason)
		}
	}
}

func TestSpamReconfigureThreshold(t *testing.T) {
	d := NewSpamDetector(spamConfig())

	cfg := spamConfig()
	cfg.MessageThreshold = 2
	d.Reconfigure(cfg)

	base := time.Now()
	d.ProcessMessage(message("g1", "u1", base))
	v := d.ProcessMessage(message("g1", "u1", base.Add(time.Second)))
	if v == nil {
		t.Fatal("lowered threshold should trigger on second message")
	}
}
