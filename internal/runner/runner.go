// Package runner drives one Deal Signal experiment: ask every question,
// price every call, aggregate, persist.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dealsignal/harness/internal/costs"
	"github.com/dealsignal/harness/internal/llm"
	"github.com/dealsignal/harness/internal/store"
	"github.com/dealsignal/harness/internal/util"
)

// Question is one item of an experiment's question set.
type Question struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// Spec describes one experiment run.
type Spec struct {
	RunID     string
	Questions []Question

	// System is the system prompt; document context, when present, is
	// appended to it so every question sees the same material.
	System   string
	Document string

	OutDir string
}

// Answer records what the model said to one question.
type Answer struct {
	QuestionID   string `json:"question_id"`
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	LatencyMs    int64  `json:"latency_ms"`
	Timestamp    string `json:"timestamp"`
	Cached       bool   `json:"cached,omitempty"`
}

// Result is everything one run produced.
type Result struct {
	RunID   string
	Answers []Answer

	// Costs is nil when every response came from the cache: there were no
	// billable calls, so there is nothing to aggregate.
	Costs *costs.RunCosts

	AnswersPath string
	CostsPath   string
	ArchiveUID  string
}

// Runner executes experiment runs against one LLM client.
type Runner struct {
	client  llm.Client
	archive *store.Archive // optional
}

// New creates a Runner. archive may be nil to skip SQLite archiving.
func New(client llm.Client, archive *store.Archive) *Runner {
	return &Runner{client: client, archive: archive}
}

// LoadQuestions reads a question set from a JSON file of [{id, prompt}].
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question set %q: %w", path, err)
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("failed to parse question set %q: %w", path, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("question set %q is empty", path)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.Prompt) == "" {
			return nil, fmt.Errorf("question %d in %q is missing id or prompt", i, path)
		}
	}
	return questions, nil
}

// Run executes the experiment serially, one LLM call per question, and
// persists answers, the cost report, and (when configured) the archive row.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Result, error) {
	if len(spec.Questions) == 0 {
		return nil, fmt.Errorf("run needs at least one question")
	}
	if spec.RunID == "" {
		spec.RunID = uuid.New().String()
	}
	if spec.OutDir == "" {
		spec.OutDir = "."
	}
	if err := os.MkdirAll(spec.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %q: %w", spec.OutDir, err)
	}

	system := spec.System
	if spec.Document != "" {
		system = strings.TrimSpace(system + "\n\nDocuments:\n\n" + spec.Document)
	}

	result := &Result{RunID: spec.RunID}
	var entries []costs.Entry

	log.Printf("🚀 [Runner] Run %s: %d questions", spec.RunID, len(spec.Questions))
	for i, q := range spec.Questions {
		resp, err := r.client.Complete(ctx, q.Prompt, system)
		if err != nil {
			return nil, fmt.Errorf("question %s (%d/%d) failed: %w", q.ID, i+1, len(spec.Questions), err)
		}

		result.Answers = append(result.Answers, Answer{
			QuestionID:   q.ID,
			Content:      resp.Content,
			Model:        resp.Model,
			InputTokens:  resp.InputTokens,
			OutputTokens: resp.OutputTokens,
			LatencyMs:    resp.LatencyMs,
			Timestamp:    resp.Timestamp,
			Cached:       resp.Cached,
		})

		if resp.Cached {
			log.Printf("💾 [Runner] %s: cache hit, no cost entry", q.ID)
			continue
		}

		entry, err := costs.Price(resp.Model, resp.InputTokens, resp.OutputTokens, resp.LatencyMs)
		if err != nil {
			return nil, fmt.Errorf("failed to price question %s: %w", q.ID, err)
		}
		entries = append(entries, entry)
		log.Printf("✅ [Runner] %s: %d+%d tokens, %dms — %s",
			q.ID, resp.InputTokens, resp.OutputTokens, resp.LatencyMs,
			util.TruncateLog(strings.ReplaceAll(resp.Content, "\n", " "), 120))
	}

	result.AnswersPath = filepath.Join(spec.OutDir, "answers.json")
	if err := saveAnswers(result.Answers, result.AnswersPath); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		log.Printf("💾 [Runner] Run %s: every response came from cache; no cost report", spec.RunID)
		return result, nil
	}

	rc, err := costs.Aggregate(entries, spec.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate run %s: %w", spec.RunID, err)
	}
	result.Costs = &rc

	result.CostsPath = filepath.Join(spec.OutDir, "costs.json")
	if err := rc.Save(result.CostsPath); err != nil {
		return nil, err
	}

	if r.archive != nil {
		uid, err := r.archive.SaveRun(rc)
		if err != nil {
			return nil, err
		}
		result.ArchiveUID = uid
	}

	return result, nil
}

func saveAnswers(answers []Answer, path string) error {
	data, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write answers to %q: %w", path, err)
	}
	return nil
}
