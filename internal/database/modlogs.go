package database

import (
	"fmt"

	"github.com/zapricaa/ai-defender-bot/internal/models"
)

// AppendModerationLog records an action taken against a subject. The table
// is append-only; entries are written whether or not the platform call
// behind them succeeded.
func (d *Database) AppendModerationLog(entry *models.ModerationLogEntry) error {
	_, err := d.db.Exec(
		`INSERT INTO moderation_logs (server_id, user_id, action, reason, moderator_id, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.GuildID, entry.UserID, entry.Action, entry.Reason, entry.ActorID, entry.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append moderation log: %w", err)
	}
	return nil
}

// ModerationLogs returns the most recent entries for a guild, newest first.
func (d *Database) ModerationLogs(serverID string, limit int) ([]models.ModerationLogEntry, error) {
	rows, err := d.db.Query(
		`SELECT log_id, server_id, user_id, action, reason, moderator_id, timestamp
		 FROM moderation_logs WHERE server_id = ?
		 ORDER BY timestamp DESC LIMIT ?`,
		serverID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query moderation logs: %w", err)
	}
	defer rows.Close()

	var entries []models.ModerationLogEntry
	for rows.Next() {
		var e models.ModerationLogEntry
		var ts int64
		if err := rows.Scan(&e.ID, &e.GuildID, &e.UserID, &e.Action, &e.Reason, &e.ActorID, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = timeFromUnix(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LogSuspiciousMessage stores a message flagged by the content classifier.
func (d *Database) LogSuspiciousMessage(messageID, serverID, channelID, userID, content string, score float64, timestamp int64) error {
	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO suspicious_messages
		 (message_id, server_id, channel_id, user_id, content, score, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		messageID, serverID, channelID, userID, content, score, timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to log suspicious message: %w", err)
	}
	return nil
}

// SuspiciousCount returns how many flagged messages a subject has in a guild.
func (d *Database) SuspiciousCount(serverID, userID string) (int, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM suspicious_messages WHERE server_id = ? AND user_id = ?`,
		serverID, userID,
	).Scan(&n)
	return n, err
}
