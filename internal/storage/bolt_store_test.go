package storage

import (
	"testing"
	"time"

	"github.com/samvad-hq/dispatchkit/internal/domain"
)

func TestBoltStoreMarksAndExpiresOutcomes(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		OutcomeTTL:      1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(dir+"/outcomes.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	outcome := domain.Outcome{ProbeID: "p1", StatusCode: 200, Path: []string{"SUCCESSFUL"}, Healthy: true}

	seen, err := store.SeenOutcome(outcome)
	if err != nil || seen {
		t.Fatalf("expected unseen outcome, seen=%v err=%v", seen, err)
	}

	if err := store.MarkOutcome(outcome); err != nil {
		t.Fatalf("MarkOutcome: %v", err)
	}

	seen, err = store.SeenOutcome(outcome)
	if err != nil || !seen {
		t.Fatalf("expected outcome marked as seen, got seen=%v err=%v", seen, err)
	}

	changed := outcome
	changed.StatusCode = 503
	if seen, _ := store.SeenOutcome(changed); seen {
		t.Fatalf("expected a different fingerprint to be unseen")
	}

	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	seen, err = store.SeenOutcome(outcome)
	if err != nil {
		t.Fatalf("SeenOutcome after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestBoltStoreKeepsLatestOutcome(t *testing.T) {
	storeRaw, err := openBolt(t.TempDir()+"/outcomes.db", Options{OutcomeTTL: time.Hour, CleanupInterval: time.Hour})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer storeRaw.Close()

	if _, found, err := storeRaw.LastOutcome("p1"); err != nil || found {
		t.Fatalf("expected no latest outcome, found=%v err=%v", found, err)
	}

	first := domain.Outcome{ProbeID: "p1", StatusCode: 200, Healthy: true}
	second := domain.Outcome{ProbeID: "p1", StatusCode: 500, Error: "boom", Path: []string{"SERVER_ERROR"}}
	for _, o := range []domain.Outcome{first, second} {
		if err := storeRaw.MarkOutcome(o); err != nil {
			t.Fatalf("MarkOutcome: %v", err)
		}
	}

	got, found, err := storeRaw.LastOutcome("p1")
	if err != nil || !found {
		t.Fatalf("expected latest outcome, found=%v err=%v", found, err)
	}
	if got.StatusCode != 500 || got.Error != "boom" || len(got.Path) != 1 {
		t.Fatalf("unexpected latest outcome: %+v", got)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkOutcome(domain.Outcome{ProbeID: "x"}); err != nil {
		t.Fatalf("noop store MarkOutcome: %v", err)
	}
	if seen, _ := store.SeenOutcome(domain.Outcome{ProbeID: "x"}); seen {
		t.Fatalf("noop store should never report outcomes as seen")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported storage type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing bbolt path")
	}
}
