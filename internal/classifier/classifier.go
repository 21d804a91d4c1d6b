// Package classifier defines the content-scoring collaborator. The engine
// treats the scorer as a black box: anything returning a confidence in
// [0,1] can be plugged in.
package classifier

import (
	"context"
	"sync"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/database"
	"github.com/zapricaa/ai-defender-bot/internal/logging"
	"github.com/zapricaa/ai-defender-bot/internal/models"
)

// Scorer rates a message's content. Higher means more likely abusive.
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// NoopScorer always returns zero. It ships as the default so the engine
// runs without an external model attached.
type NoopScorer struct{}

func (NoopScorer) Score(ctx context.Context, text string) (float64, error) {
	return 0, nil
}

const repeatOffenderLimit = 3

// Monitor consults the scorer for each message and records flagged ones.
// An author repeatedly crossing the threshold is escalated to a mute; the
// offense count lives in the suspicious_messages table, so it survives
// restarts and is shared with anything else reading that table.
type Monitor struct {
	scorer Scorer
	db     *database.Database

	mu        sync.Mutex
	threshold float64
}

func NewMonitor(scorer Scorer, db *database.Database, threshold float64) *Monitor {
	return &Monitor{
		scorer:    scorer,
		db:        db,
		threshold: threshold,
	}
}

// Inspect scores one message. A nil verdict means the content passed, or
// that the scorer failed; scoring errors never block the event path.
func (m *Monitor) Inspect(ctx context.Context, event *models.Event) *models.Verdict {
	score, err := m.scorer.Score(ctx, event.Content)
	if err != nil {
		logging.Warn("[CLASSIFIER] Scoring failed for message in guild %s: %v", event.GuildID, err)
		return nil
	}

	m.mu.Lock()
	threshold := m.threshold
	m.mu.Unlock()
	if score < threshold {
		return nil
	}

	if err := m.db.LogSuspiciousMessage(event.MessageID, event.GuildID, event.ChannelID,
		event.UserID, event.Content, score, time.Now().Unix()); err != nil {
		logging.Error("[CLASSIFIER] Failed to record suspicious message: %v", err)
	}

	count, err := m.db.SuspiciousCount(event.GuildID, event.UserID)
	if err != nil {
		logging.Error("[CLASSIFIER] Failed to count offenses of %s in guild %s: %v",
			event.UserID, event.GuildID, err)
		count = 1
	}

	logging.Info("[CLASSIFIER] Flagged message from %s in guild %s (score %.2f, offense %d)",
		event.UserID, event.GuildID, score, count)

	var action models.RemedialAction
	if count > repeatOffenderLimit {
		action = models.MuteAction{Duration: time.Hour}
	} else {
		action = models.WarnAction{Notice: "Your message was flagged by content screening."}
	}

	v := models.NewVerdict(event.GuildID, event.UserID, "content_screen",
		"Message flagged by content classifier", action, models.SeverityMedium)
	v.ChannelID = event.ChannelID
	v.DeleteMessageID = event.MessageID
	return v
}

// SetThreshold applies a configuration reload.
func (m *Monitor) SetThreshold(t float64) {
	m.mu.Lock()
	m.threshold = t
	m.mu.Unlock()
}
