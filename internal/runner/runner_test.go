package runner

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dealsignal/harness/internal/costs"
	"github.com/dealsignal/harness/internal/llm"
	"github.com/dealsignal/harness/internal/pricing"
	"github.com/dealsignal/harness/internal/store"
)

// fakeClient returns canned responses and records the prompts it saw.
type fakeClient struct {
	prompts []string
	systems []string
	cached  bool
	fail    bool
}

func (f *fakeClient) Complete(ctx context.Context, prompt, system string) (*llm.Response, error) {
	if f.fail {
		return nil, fmt.Errorf("provider unavailable")
	}
	f.prompts = append(f.prompts, prompt)
	f.systems = append(f.systems, system)
	return &llm.Response{
		Content:      "answer to: " + prompt,
		Model:        "gpt-4o-mini",
		InputTokens:  1000,
		OutputTokens: 500,
		LatencyMs:    100,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		Cached:       f.cached,
	}, nil
}

func setupPricing(t *testing.T) {
	t.Helper()
	pricing.ResetForTest()
	t.Cleanup(pricing.ResetForTest)
	t.Setenv("DEALSIGNAL_PRICING_FILE", "")
}

func TestRunProducesAnswersAndCosts(t *testing.T) {
	setupPricing(t)
	client := &fakeClient{}
	r := New(client, nil)

	outDir := t.TempDir()
	res, err := r.Run(context.Background(), Spec{
		RunID: "exp-run",
		Questions: []Question{
			{ID: "q1", Prompt: "What is revenue?"},
			{ID: "q2", Prompt: "What is leverage?"},
			{ID: "q3", Prompt: "Who are the lenders?"},
		},
		System: "Answer only from the documents.",
		OutDir: outDir,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(res.Answers) != 3 {
		t.Fatalf("answers = %d, want 3", len(res.Answers))
	}
	if res.Costs == nil {
		t.Fatal("expected a cost report")
	}
	if len(res.Costs.Entries) != 3 {
		t.Errorf("entries = %d, want 3", len(res.Costs.Entries))
	}
	if res.Costs.TotalInputTokens != 3000 || res.Costs.TotalOutputTokens != 1500 {
		t.Errorf("token totals = %d/%d", res.Costs.TotalInputTokens, res.Costs.TotalOutputTokens)
	}
	// 3 calls at 1000 in / 500 out on gpt-4o-mini: 3*(0.00015+0.0003)
	if math.Abs(res.Costs.TotalCost-0.00135) > 1e-9 {
		t.Errorf("total cost = %v, want 0.00135", res.Costs.TotalCost)
	}

	for _, path := range []string{res.AnswersPath, res.CostsPath} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected artifact %s: %v", path, err)
		}
	}

	loaded, err := costs.Load(res.CostsPath)
	if err != nil {
		t.Fatalf("load costs.json: %v", err)
	}
	if loaded.RunID != "exp-run" || len(loaded.Entries) != 3 {
		t.Errorf("persisted report = %q with %d entries", loaded.RunID, len(loaded.Entries))
	}
}

func TestRunAppendsDocumentToSystem(t *testing.T) {
	setupPricing(t)
	client := &fakeClient{}
	r := New(client, nil)

	_, err := r.Run(context.Background(), Spec{
		Questions: []Question{{ID: "q1", Prompt: "p"}},
		System:    "Base instructions.",
		Document:  "ACME CREDIT AGREEMENT ...",
		OutDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(client.systems) != 1 {
		t.Fatalf("calls = %d", len(client.systems))
	}
	sys := client.systems[0]
	if sys == "Base instructions." {
		t.Error("document was not appended to the system prompt")
	}
	if !strings.Contains(sys, "ACME CREDIT AGREEMENT") {
		t.Errorf("system prompt missing document text: %q", sys)
	}
}

func TestRunAllCachedSkipsCostReport(t *testing.T) {
	setupPricing(t)
	client := &fakeClient{cached: true}
	r := New(client, nil)

	res, err := r.Run(context.Background(), Spec{
		RunID:     "exp-cached",
		Questions: []Question{{ID: "q1", Prompt: "p"}},
		OutDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Costs != nil {
		t.Error("expected no cost report when every call was cached")
	}
	if res.CostsPath != "" {
		t.Errorf("costs path = %q, want empty", res.CostsPath)
	}
	if len(res.Answers) != 1 || !res.Answers[0].Cached {
		t.Errorf("answers = %+v", res.Answers)
	}
}

func TestRunArchives(t *testing.T) {
	setupPricing(t)
	db, err := store.Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	archive := store.NewArchive(db)
	r := New(&fakeClient{}, archive)

	res, err := r.Run(context.Background(), Spec{
		RunID:     "exp-archived",
		Questions: []Question{{ID: "q1", Prompt: "p"}},
		OutDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ArchiveUID == "" {
		t.Fatal("expected archive UID")
	}
	stored, err := archive.GetRun(res.ArchiveUID)
	if err != nil {
		t.Fatalf("get archived run: %v", err)
	}
	if stored.RunID != "exp-archived" {
		t.Errorf("archived run id = %q", stored.RunID)
	}
}

func TestRunPropagatesClientError(t *testing.T) {
	setupPricing(t)
	r := New(&fakeClient{fail: true}, nil)
	_, err := r.Run(context.Background(), Spec{
		Questions: []Question{{ID: "q1", Prompt: "p"}},
		OutDir:    t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error from failing client")
	}
}

func TestLoadQuestions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.json")
	content := `[{"id":"q1","prompt":"What is revenue?"},{"id":"q2","prompt":"What is EBITDA?"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	questions, err := LoadQuestions(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 2 || questions[1].ID != "q2" {
		t.Errorf("questions = %+v", questions)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`[{"id":"","prompt":"x"}]`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadQuestions(bad); err == nil {
		t.Error("expected error for question missing id")
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadQuestions(empty); err == nil {
		t.Error("expected error for empty question set")
	}
}
