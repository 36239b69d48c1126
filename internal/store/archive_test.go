package store

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/dealsignal/harness/internal/costs"
	"github.com/dealsignal/harness/internal/pricing"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	return NewArchive(db)
}

func testRun(t *testing.T, runID string, tokens ...int) costs.RunCosts {
	t.Helper()
	pricing.ResetForTest()
	t.Cleanup(pricing.ResetForTest)
	t.Setenv("DEALSIGNAL_PRICING_FILE", "")

	var entries []costs.Entry
	for i, n := range tokens {
		e, err := costs.Price("gpt-4o-mini", n, n/2, int64(50*(i+1)))
		if err != nil {
			t.Fatalf("price call: %v", err)
		}
		entries = append(entries, e)
	}
	rc, err := costs.Aggregate(entries, runID)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	return rc
}

func TestSaveAndGetRun(t *testing.T) {
	a := openTestArchive(t)
	rc := testRun(t, "exp-042", 1200, 3400, 560)

	uid, err := a.SaveRun(rc)
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	if uid == "" {
		t.Fatal("expected archive UID")
	}

	byUID, err := a.GetRun(uid)
	if err != nil {
		t.Fatalf("get by uid: %v", err)
	}
	byRunID, err := a.GetRun("exp-042")
	if err != nil {
		t.Fatalf("get by run_id: %v", err)
	}

	for _, got := range []costs.RunCosts{byUID, byRunID} {
		if got.RunID != rc.RunID || got.Model != rc.Model {
			t.Errorf("identity changed: %q/%q", got.RunID, got.Model)
		}
		if len(got.Entries) != len(rc.Entries) {
			t.Fatalf("entry count = %d, want %d", len(got.Entries), len(rc.Entries))
		}
		for i := range got.Entries {
			if got.Entries[i] != rc.Entries[i] {
				t.Errorf("entry %d changed:\n got %+v\nwant %+v", i, got.Entries[i], rc.Entries[i])
			}
		}
		if math.Abs(got.TotalCost-rc.TotalCost) > 1e-9 {
			t.Errorf("total cost = %v, want %v", got.TotalCost, rc.TotalCost)
		}
		if got.StartedAt != rc.StartedAt || got.CompletedAt != rc.CompletedAt {
			t.Errorf("timing changed: %q..%q", got.StartedAt, got.CompletedAt)
		}
	}
}

func TestGetRunNotFound(t *testing.T) {
	a := openTestArchive(t)
	if _, err := a.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSaveRunRejectsEmpty(t *testing.T) {
	a := openTestArchive(t)
	if _, err := a.SaveRun(costs.RunCosts{RunID: "empty"}); !errors.Is(err, costs.ErrNoEntries) {
		t.Fatalf("expected ErrNoEntries, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	a := openTestArchive(t)

	first := testRun(t, "exp-a", 100)
	second := testRun(t, "exp-b", 200, 300)
	if _, err := a.SaveRun(first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if _, err := a.SaveRun(second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	runs, err := a.ListRuns(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("run count = %d, want 2", len(runs))
	}
	ids := map[string]bool{runs[0].RunID: true, runs[1].RunID: true}
	if !ids["exp-a"] || !ids["exp-b"] {
		t.Errorf("unexpected run ids: %+v", runs)
	}
	for _, r := range runs {
		if r.Questions == 0 {
			t.Errorf("run %s should report its question count", r.RunID)
		}
	}
}

func TestStats(t *testing.T) {
	a := openTestArchive(t)
	rc1 := testRun(t, "exp-1", 1000)
	rc2 := testRun(t, "exp-2", 2000, 3000)
	if _, err := a.SaveRun(rc1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := a.SaveRun(rc2); err != nil {
		t.Fatalf("save: %v", err)
	}

	stats, err := a.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Runs != 2 {
		t.Errorf("runs = %d, want 2", stats.Runs)
	}
	wantCost := rc1.TotalCost + rc2.TotalCost
	if math.Abs(stats.TotalCost-wantCost) > 1e-9 {
		t.Errorf("total cost = %v, want %v", stats.TotalCost, wantCost)
	}
	wantTokens := int64(rc1.TotalTokens + rc2.TotalTokens)
	if stats.TotalTokens != wantTokens {
		t.Errorf("total tokens = %d, want %d", stats.TotalTokens, wantTokens)
	}
}

func TestNewArchiveLoadsExistingCount(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "archive.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a := NewArchive(db)
	if _, err := a.SaveRun(testRun(t, "exp-persist", 500)); err != nil {
		t.Fatalf("save: %v", err)
	}

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	a2 := NewArchive(db2)
	stats, err := a2.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Runs != 1 {
		t.Errorf("runs after reopen = %d, want 1", stats.Runs)
	}
}
