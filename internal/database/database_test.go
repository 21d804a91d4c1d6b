package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/models"
)

func open(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBackupsAreAppendOnly(t *testing.T) {
	db := open(t)

	for ts := int64(1); ts <= 3; ts++ {
		if err := db.SaveBackup("g1", []byte(`{}`), []byte(`{}`), []byte(`{}`), ts); err != nil {
			t.Fatal(err)
		}
	}

	n, err := db.BackupCount("g1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}

	latest, err := db.LatestBackup("g1")
	if err != nil {
		t.Fatal(err)
	}
	if latest.Timestamp != 3 {
		t.Fatalf("expected newest row, got timestamp %d", latest.Timestamp)
	}
}

func TestLatestBackupMissingGuild(t *testing.T) {
	db := open(t)

	_, err := db.LatestBackup("nope")
	if !errors.Is(err, ErrNoBackup) {
		t.Fatalf("expected ErrNoBackup, got %v", err)
	}
}

func TestModerationLogsNewestFirst(t *testing.T) {
	db := open(t)
	base := time.Now()

	for i := 0; i < 3; i++ {
		err := db.AppendModerationLog(&models.ModerationLogEntry{
			GuildID:   "g1",
			UserID:    "u1",
			Action:    "anti_spam_warn",
			Reason:    "test",
			ActorID:   "bot",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	logs, err := db.ModerationLogs("g1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("limit ignored, got %d", len(logs))
	}
	if !logs[0].Timestamp.After(logs[1].Timestamp) {
		t.Fatal("expected newest first")
	}
}

func TestSuspiciousMessagesDeduplicateByID(t *testing.T) {
	db := open(t)

	for i := 0; i < 2; i++ {
		if err := db.LogSuspiciousMessage("m1", "g1", "c1", "u1", "spam", 0.9, time.Now().Unix()); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.LogSuspiciousMessage("m2", "g1", "c1", "u1", "spam", 0.9, time.Now().Unix()); err != nil {
		t.Fatal(err)
	}

	n, err := db.SuspiciousCount("g1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected re-delivered message deduplicated, got %d", n)
	}
}
