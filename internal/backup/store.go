package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/database"
	"github.com/zapricaa/ai-defender-bot/internal/logging"
	"github.com/zapricaa/ai-defender-bot/internal/metrics"
	"github.com/zapricaa/ai-defender-bot/internal/platform"
)

// Snapshot is a point-in-time capture of a guild's structural
// configuration: roles, channels with their permission overwrites, and
// guild settings. History is append-only; restore always picks the most
// recent snapshot.
type Snapshot struct {
	GuildID  string
	Roles    map[string]platform.RoleSpec
	Channels map[string]platform.ChannelSpec
	Settings platform.GuildSettings
	TakenAt  time.Time
}

// Store captures and restores guild snapshots through the platform client,
// persisting them in the database.
type Store struct {
	client platform.Client
	db     *database.Database
}

func NewStore(client platform.Client, db *database.Database) *Store {
	return &Store{client: client, db: db}
}

// Snapshot captures the guild's current structure and appends it to the
// backup history.
func (s *Store) Snapshot(ctx context.Context, guildID string) (*Snapshot, error) {
	summary, err := s.client.GuildSummary(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to capture guild %s: %w", guildID, err)
	}

	snap := &Snapshot{
		GuildID:  guildID,
		Roles:    make(map[string]platform.RoleSpec, len(summary.Roles)),
		Channels: make(map[string]platform.ChannelSpec, len(summary.Channels)),
		Settings: summary.Settings,
		TakenAt:  time.Now(),
	}
	for _, role := range summary.Roles {
		snap.Roles[role.ID] = role
	}
	for _, ch := range summary.Channels {
		snap.Channels[ch.ID] = ch
	}

	roles, err := json.Marshal(snap.Roles)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize roles: %w", err)
	}
	channels, err := json.Marshal(snap.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize channels: %w", err)
	}
	settings, err := json.Marshal(snap.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize settings: %w", err)
	}

	if err := s.db.SaveBackup(guildID, roles, channels, settings, snap.TakenAt.Unix()); err != nil {
		return nil, err
	}

	metrics.SnapshotsTaken.Inc()
	return snap, nil
}

// SnapshotAll captures every given guild. A failing guild is logged and
// skipped; it never aborts the sweep for the others.
func (s *Store) SnapshotAll(ctx context.Context, guildIDs []string) {
	for _, guildID := range guildIDs {
		if _, err := s.Snapshot(ctx, guildID); err != nil {
			logging.Error("Failed to backup guild %s: %v", guildID, err)
		}
	}
}

// Latest loads the most recent snapshot for the guild.
func (s *Store) Latest(guildID string) (*Snapshot, error) {
	row, err := s.db.LatestBackup(guildID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		GuildID: guildID,
		TakenAt: time.Unix(row.Timestamp, 0),
	}
	if err := json.Unmarshal(row.Roles, &snap.Roles); err != nil {
		return nil, fmt.Errorf("failed to decode roles for guild %s: %w", guildID, err)
	}
	if err := json.Unmarshal(row.Channels, &snap.Channels); err != nil {
		return nil, fmt.Errorf("failed to decode channels for guild %s: %w", guildID, err)
	}
	if err := json.Unmarshal(row.Settings, &snap.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings for guild %s: %w", guildID, err)
	}
	return snap, nil
}

// Restore rebuilds the guild from its most recent snapshot: roles missing
// live are created, all roles are reordered to snapshot positions, missing
// channels are recreated, and the verification level is re-applied.
// Failure is reported to the caller; it is never auto-retried.
func (s *Store) Restore(ctx context.Context, guildID string) error {
	snap, err := s.Latest(guildID)
	if err != nil {
		metrics.RestoresAttempted.WithLabelValues("failure").Inc()
		return err
	}

	summary, err := s.client.GuildSummary(ctx, guildID)
	if err != nil {
		metrics.RestoresAttempted.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to reach guild %s: %w", guildID, err)
	}

	logging.Info("Restoring guild %s from backup taken at %s", guildID, snap.TakenAt.Format(time.RFC3339))

	s.restoreRoles(ctx, guildID, snap, summary)
	s.restoreChannels(ctx, guildID, snap, summary)

	if summary.Settings.VerificationLevel != snap.Settings.VerificationLevel {
		if err := s.client.SetVerificationLevel(ctx, guildID, snap.Settings.VerificationLevel); err != nil {
			logging.Warn("Failed to restore verification level for guild %s: %v", guildID, err)
		}
	}

	metrics.RestoresAttempted.WithLabelValues("success").Inc()
	return nil
}

// restoreRoles creates any role present in the snapshot but absent live,
// then reorders all roles to match snapshot positions, highest first.
// Managed roles belong to integrations and cannot be recreated.
func (s *Store) restoreRoles(ctx context.Context, guildID string, snap *Snapshot, summary *platform.GuildSummary) {
	live := make(map[string]bool, len(summary.Roles))
	for _, role := range summary.Roles {
		live[role.ID] = true
	}

	created := make(map[string]string)
	for id, role := range snap.Roles {
		if live[id] || role.Managed {
			continue
		}
		newID, err := s.client.CreateRole(ctx, guildID, role)
		if err != nil {
			logging.Warn("Failed to recreate role %q in guild %s: %v", role.Name, guildID, err)
			continue
		}
		created[id] = newID
	}

	ordered := make([]platform.RoleSpec, 0, len(snap.Roles))
	for _, role := range snap.Roles {
		ordered = append(ordered, role)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Position > ordered[j].Position })

	positions := make(map[string]int, len(ordered))
	for _, role := range ordered {
		id := role.ID
		if newID, ok := created[id]; ok {
			id = newID
		} else if !live[id] {
			continue
		}
		positions[id] = role.Position
	}
	if len(positions) == 0 {
		return
	}
	if err := s.client.ReorderRoles(ctx, guildID, positions); err != nil {
		logging.Warn("Failed to reorder roles in guild %s: %v", guildID, err)
	}
}

func (s *Store) restoreChannels(ctx context.Context, guildID string, snap *Snapshot, summary *platform.GuildSummary) {
	live := make(map[string]bool, len(summary.Channels))
	for _, ch := range summary.Channels {
		live[ch.ID] = true
	}

	for id, ch := range snap.Channels {
		if live[id] {
			continue
		}
		if _, err := s.client.CreateChannel(ctx, guildID, ch); err != nil {
			logging.Warn("Failed to recreate channel %q in guild %s: %v", ch.Name, guildID, err)
		}
	}
}
