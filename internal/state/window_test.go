package state

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestWindowCounterNeverCountsExpired(t *testing.T) {
	wc := NewWindowCounter(10 * time.Second)
	base := time.Now()

	for i := 0; i < 4; i++ {
		wc.RecordAt("g1", "u1", base.Add(time.Duration(i)*time.Second))
	}
	if got := wc.CountAt("g1", "u1", base.Add(3*time.Second)); got != 4 {
		t.Fatalf("expected 4 in-window entries, got %d", got)
	}

	// 11 seconds later the first entry has aged out.
	if got := wc.CountAt("g1", "u1", base.Add(11*time.Second)); got != 3 {
		t.Fatalf("expected 3 after expiry, got %d", got)
	}

	// Far in the future everything is gone.
	if got := wc.CountAt("g1", "u1", base.Add(time.Hour)); got != 0 {
		t.Fatalf("expected empty window, got %d", got)
	}
}

func TestWindowCounterRecordReturnsRunningCount(t *testing.T) {
	wc := NewWindowCounter(10 * time.Second)
	base := time.Now()

	for i := 1; i <= 5; i++ {
		got := wc.RecordAt("g1", "u1", base.Add(time.Duration(i)*time.Millisecond))
		if got != i {
			t.Fatalf("record %d: expected count %d, got %d", i, i, got)
		}
	}
}

func TestWindowCounterKeysAreIndependent(t *testing.T) {
	wc := NewWindowCounter(10 * time.Second)
	now := time.Now()

	wc.RecordAt("g1", "u1", now)
	wc.RecordAt("g1", "u2", now)
	wc.RecordAt("g2", "u1", now)

	if got := wc.CountAt("g1", "u1", now); got != 1 {
		t.Fatalf("expected 1 for g1/u1, got %d", got)
	}
	if got := wc.CountAt("g2", "u1", now); got != 1 {
		t.Fatalf("expected 1 for g2/u1, got %d", got)
	}
}

func TestWindowCounterReset(t *testing.T) {
	wc := NewWindowCounter(time.Minute)
	now := time.Now()

	wc.RecordAt("g1", "u1", now)
	wc.RecordAt("g2", "u1", now)
	wc.Reset("g1")

	if got := wc.CountAt("g1", "u1", now); got != 0 {
		t.Fatalf("expected g1 cleared, got %d", got)
	}
	if got := wc.CountAt("g2", "u1", now); got != 1 {
		t.Fatalf("expected g2 untouched, got %d", got)
	}
}

func TestWindowCounterConcurrentRecords(t *testing.T) {
	wc := NewWindowCounter(time.Minute)
	now := time.Now()

	const writers = 16
	const perWriter = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			guildID := fmt.Sprintf("g%d", n%4)
			for j := 0; j < perWriter; j++ {
				wc.RecordAt(guildID, "u1", now)
			}
		}(i)
	}
	wg.Wait()

	// 16 writers spread over 4 guilds: each guild took 4*50 records.
	for n := 0; n < 4; n++ {
		guildID := fmt.Sprintf("g%d", n)
		if got := wc.CountAt(guildID, "u1", now); got != 4*perWriter {
			t.Fatalf("%s: expected %d records, got %d", guildID, 4*perWriter, got)
		}
	}
}

func TestWindowCounterShrinkWindowAppliesToReads(t *testing.T) {
	wc := NewWindowCounter(time.Minute)
	base := time.Now()

	wc.RecordAt("g1", "u1", base)
	wc.RecordAt("g1", "u1", base.Add(30*time.Second))

	wc.SetWindow(10 * time.Second)
	if got := wc.CountAt("g1", "u1", base.Add(31*time.Second)); got != 1 {
		t.Fatalf("expected 1 under shrunk window, got %d", got)
	}
}
