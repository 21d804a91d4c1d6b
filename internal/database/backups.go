package database

import (
	"database/sql"
	"errors"
	"fmt"
)

// BackupRow is one serialized snapshot of a guild's structural config.
// Rows are append-only; restore reads the one with the greatest timestamp.
type BackupRow struct {
	ID        int64
	ServerID  string
	Roles     []byte
	Channels  []byte
	Settings  []byte
	Timestamp int64
}

var ErrNoBackup = errors.New("database: no backup for guild")

// SaveBackup appends a snapshot row. Existing rows are never overwritten.
func (d *Database) SaveBackup(serverID string, roles, channels, settings []byte, timestamp int64) error {
	_, err := d.db.Exec(
		`INSERT INTO server_backups (server_id, roles, channels, settings, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		serverID, roles, channels, settings, timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save backup for guild %s: %w", serverID, err)
	}
	return nil
}

// LatestBackup returns the most recent snapshot for the guild.
func (d *Database) LatestBackup(serverID string) (*BackupRow, error) {
	row := d.db.QueryRow(
		`SELECT id, server_id, roles, channels, settings, timestamp
		 FROM server_backups WHERE server_id = ?
		 ORDER BY timestamp DESC LIMIT 1`,
		serverID,
	)

	var b BackupRow
	err := row.Scan(&b.ID, &b.ServerID, &b.Roles, &b.Channels, &b.Settings, &b.Timestamp)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNoBackup, serverID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load backup for guild %s: %w", serverID, err)
	}
	return &b, nil
}

// BackupCount returns how many snapshots exist for the guild.
func (d *Database) BackupCount(serverID string) (int, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM server_backups WHERE server_id = ?`, serverID,
	).Scan(&n)
	return n, err
}
