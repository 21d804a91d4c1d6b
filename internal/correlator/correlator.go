package correlator

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/logging"
	"github.com/zapricaa/ai-defender-bot/internal/models"
	"github.com/zapricaa/ai-defender-bot/internal/platform"
)

const cacheTTL = 5 * time.Second

type cacheEntry struct {
	actorID   string
	targetID  string
	timestamp time.Time
}

// AuditCorrelator resolves the account responsible for a structural change
// by querying the platform's audit feed. Results are cached briefly so a
// burst of deletions by one actor costs a single audit fetch.
type AuditCorrelator struct {
	client platform.Client

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

func New(client platform.Client) *AuditCorrelator {
	return &AuditCorrelator{
		client:  client,
		entries: make(map[string]*cacheEntry),
	}
}

// ResolveActor returns the actor behind the event, or "" when the actor
// cannot be determined. Callers must treat "" as "cannot issue a verdict":
// an unattributable change never leads to punishment.
func (ac *AuditCorrelator) ResolveActor(ctx context.Context, event *models.Event) string {
	actionType := auditActionFor(event.Kind)
	if actionType == 0 {
		return ""
	}

	if actorID, ok := ac.cached(event.GuildID, actionType, event.EntityID); ok {
		return actorID
	}

	entries, err := ac.client.AuditLog(ctx, event.GuildID, actionType, 5)
	if err != nil {
		if errors.Is(err, platform.ErrAuditUnavailable) {
			logging.Warn("[CORRELATOR] No audit log access in guild %s", event.GuildID)
		} else {
			logging.Warn("[CORRELATOR] Audit fetch failed for guild %s: %v", event.GuildID, err)
		}
		return ""
	}

	actorID := matchActor(entries, event.EntityID)
	if actorID != "" {
		ac.store(event.GuildID, actionType, event.EntityID, actorID)
	}
	return actorID
}

// matchActor picks the most-recent entry for the target, falling back to
// the most-recent entry of the action type when the target is unknown.
// Entries attributed to bot accounts are skipped entirely.
func matchActor(entries []platform.AuditEntry, targetID string) string {
	for i := range entries {
		entry := &entries[i]
		if entry.ActorIsBot {
			continue
		}
		if targetID != "" && entry.TargetID != targetID {
			continue
		}
		return entry.ActorID
	}
	if targetID == "" {
		return ""
	}
	for i := range entries {
		if !entries[i].ActorIsBot {
			return entries[i].ActorID
		}
	}
	return ""
}

func (ac *AuditCorrelator) cached(guildID string, actionType int, targetID string) (string, bool) {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	key := cacheKey(guildID, actionType)
	entry, ok := ac.entries[key]
	if !ok || time.Since(entry.timestamp) >= cacheTTL {
		return "", false
	}
	if targetID != "" && entry.targetID != targetID {
		return "", false
	}
	return entry.actorID, true
}

func (ac *AuditCorrelator) store(guildID string, actionType int, targetID, actorID string) {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	ac.entries[cacheKey(guildID, actionType)] = &cacheEntry{
		actorID:   actorID,
		targetID:  targetID,
		timestamp: time.Now(),
	}

	for k, v := range ac.entries {
		if time.Since(v.timestamp) > cacheTTL {
			delete(ac.entries, k)
		}
	}
}

func cacheKey(guildID string, actionType int) string {
	return guildID + ":" + strconv.Itoa(actionType)
}

func auditActionFor(kind models.EventKind) int {
	switch kind {
	case models.EventChannelDelete:
		return platform.AuditChannelDelete
	case models.EventRoleDelete:
		return platform.AuditRoleDelete
	case models.EventPermissionGrant:
		return platform.AuditMemberRoleUpdate
	default:
		return 0
	}
}
