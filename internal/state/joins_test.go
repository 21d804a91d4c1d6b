package state

import (
	"testing"
	"time"
)

func TestJoinTrackerRecentCount(t *testing.T) {
	jt := NewJoinTracker()
	base := time.Now()

	jt.RecordJoin("g1", "old", base.Add(-2*time.Minute))
	jt.RecordJoin("g1", "a", base.Add(-30*time.Second))
	jt.RecordJoin("g1", "b", base.Add(-10*time.Second))

	if got := jt.RecentCount("g1", time.Minute, base); got != 2 {
		t.Fatalf("expected 2 recent joins, got %d", got)
	}
}

func TestJoinTrackerRecentMembers(t *testing.T) {
	jt := NewJoinTracker()
	base := time.Now()

	jt.RecordJoin("g1", "a", base)
	jt.RecordJoin("g1", "b", base.Add(-2*time.Hour))

	members := jt.RecentMembers("g1", time.Minute, base)
	if len(members) != 1 || members[0] != "a" {
		t.Fatalf("expected [a], got %v", members)
	}
}

func TestJoinTrackerRejoinRefreshesTimestamp(t *testing.T) {
	jt := NewJoinTracker()
	base := time.Now()

	jt.RecordJoin("g1", "a", base.Add(-2*time.Hour))
	if jt.IsRecentJoin("g1", "a", time.Hour, base) {
		t.Fatal("stale join should not be recent")
	}

	jt.RecordJoin("g1", "a", base)
	if !jt.IsRecentJoin("g1", "a", time.Hour, base) {
		t.Fatal("fresh join should be recent")
	}
}

func TestJoinTrackerSweepReportsEmptiedGuilds(t *testing.T) {
	jt := NewJoinTracker()
	now := time.Now()

	jt.RecordJoin("stale", "a", now.Add(-48*time.Hour))
	jt.RecordJoin("live", "b", now)

	emptied := jt.Sweep(24 * time.Hour)
	if len(emptied) != 1 || emptied[0] != "stale" {
		t.Fatalf("expected [stale], got %v", emptied)
	}
	if jt.RecentCount("live", time.Hour, now) != 1 {
		t.Fatal("live guild lost its records")
	}
}

func TestSuspectSet(t *testing.T) {
	ss := NewSuspectSet()

	ss.Add("g1", "u1")
	if !ss.Contains("g1", "u1") {
		t.Fatal("expected u1 to be suspected")
	}
	if ss.Contains("g2", "u1") {
		t.Fatal("suspicion must not cross guilds")
	}

	ss.Remove("g1", "u1")
	if ss.Contains("g1", "u1") {
		t.Fatal("expected u1 removed")
	}

	ss.Add("g1", "a")
	ss.Add("g1", "b")
	ss.Clear("g1")
	if ss.Contains("g1", "a") || ss.Contains("g1", "b") {
		t.Fatal("expected guild cleared")
	}
}
