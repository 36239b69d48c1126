// Package eval carries the Deal Signal scoring rubric: per-question scores
// against ground truth and their run-level aggregates.
//
// Scoring itself needs human judgment (or a secondary LLM pass); this
// package only defines the record shapes, the blank score template, and the
// aggregation over finished scores.
package eval

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// FailureMode classifies why an answer missed.
type FailureMode string

const (
	FailureExtraction    FailureMode = "extraction_error"  // wrong data pulled from document
	FailureCalculation   FailureMode = "calculation_error" // right inputs, wrong math
	FailureReasoning     FailureMode = "reasoning_error"   // right facts, wrong conclusion
	FailureOmission      FailureMode = "omission"          // didn't look in the right place
	FailureHallucination FailureMode = "hallucination"     // invented facts
	FailureContamination FailureMode = "contamination"     // used training knowledge, not documents
	FailureRelevance     FailureMode = "relevance_error"   // right fact, wrong emphasis
	FailureConfidence    FailureMode = "confidence_error"  // wrong calibration
)

// ErrNoScores is returned when aggregating an empty score list.
var ErrNoScores = errors.New("no scores to aggregate")

// Score is the evaluation of a single question-answer pair.
// Citation levels: 0 = none, 1 = document only, 2 = document+page+quote.
type Score struct {
	QuestionID string `json:"question_id"`

	Found      bool    `json:"found"`
	Accurate   bool    `json:"accurate"`
	Complete   float64 `json:"complete"` // share of known facts, 0.0-1.0
	Cited      int     `json:"cited"`
	Relevant   int     `json:"relevant"`   // 1-5
	Actionable int     `json:"actionable"` // 1-5

	StatedConfidence *string `json:"stated_confidence,omitempty"` // HIGH/MEDIUM/LOW from the response
	ActualDifficulty *string `json:"actual_difficulty,omitempty"` // from ground truth

	FailureMode  *FailureMode `json:"failure_mode,omitempty"`
	FailureNotes *string      `json:"failure_notes,omitempty"`

	Scorer   string `json:"scorer,omitempty"`
	ScoredAt string `json:"scored_at,omitempty"`
}

// Result aggregates the scores of one experiment run.
type Result struct {
	RunID  string  `json:"run_id"`
	Scores []Score `json:"scores"`

	AccuracyRate      float64 `json:"accuracy_rate"`
	CompletionRate    float64 `json:"completion_rate"`
	CitationRate      float64 `json:"citation_rate"`      // share with full citations (cited=2)
	HallucinationRate float64 `json:"hallucination_rate"` // share with the hallucination failure mode
}

// ScoreResponse builds the template score for a response, pending judgment.
// Only Found is derived (non-blank response); the quality fields default to
// unverified / middle-of-scale values for the scorer to overwrite.
func ScoreResponse(questionID, response, scorer string) Score {
	return Score{
		QuestionID: questionID,
		Found:      strings.TrimSpace(response) != "",
		Accurate:   false,
		Complete:   0.0,
		Cited:      0,
		Relevant:   3,
		Actionable: 3,
		Scorer:     scorer,
		ScoredAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// AggregateScores folds per-question scores into run-level rates.
func AggregateScores(scores []Score, runID string) (Result, error) {
	if len(scores) == 0 {
		return Result{}, ErrNoScores
	}

	var accurate, fullCite, hallucinated int
	var completeSum float64
	for _, s := range scores {
		if s.Accurate {
			accurate++
		}
		if s.Cited == 2 {
			fullCite++
		}
		if s.FailureMode != nil && *s.FailureMode == FailureHallucination {
			hallucinated++
		}
		completeSum += s.Complete
	}

	n := float64(len(scores))
	return Result{
		RunID:             runID,
		Scores:            scores,
		AccuracyRate:      float64(accurate) / n,
		CompletionRate:    completeSum / n,
		CitationRate:      float64(fullCite) / n,
		HallucinationRate: float64(hallucinated) / n,
	}, nil
}

// Save writes the evaluation result as JSON.
func (r Result) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode eval result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write eval result to %q: %w", path, err)
	}
	return nil
}

// Load reads an evaluation result written by Save.
func Load(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read eval result %q: %w", path, err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("failed to parse eval result %q: %w", path, err)
	}
	return r, nil
}
