// Package costs prices individual LLM calls and aggregates them into
// run-level totals for the Deal Signal experiment reports.
package costs

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dealsignal/harness/internal/pricing"
)

const tokensPerPriceUnit = 1_000_000

var (
	// ErrNoEntries is returned when aggregating an empty entry list.
	// Averages over zero calls have no sensible value, so this is a hard
	// failure rather than a zero-valued result.
	ErrNoEntries = errors.New("no cost entries to aggregate")

	// ErrNegativeTokens is returned when a token count is below zero.
	ErrNegativeTokens = errors.New("token counts must be non-negative")
)

// Entry is the priced record of a single LLM call. Immutable once built.
type Entry struct {
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	InputCost    float64 `json:"input_cost"`
	OutputCost   float64 `json:"output_cost"`
	TotalCost    float64 `json:"total_cost"`
	LatencyMs    int64   `json:"latency_ms"`
	Timestamp    string  `json:"timestamp"`

	// Priced is false when the model was missing from the pricing table.
	// Such entries cost $0; the flag keeps that distinguishable from a
	// genuinely free model.
	Priced bool `json:"priced"`
}

// RunCosts aggregates the entries of one experiment run.
type RunCosts struct {
	RunID   string
	Entries []Entry

	TotalInputTokens  int
	TotalOutputTokens int
	TotalTokens       int
	TotalCost         float64
	TotalLatencyMs    int64

	AvgLatencyMs    float64
	CostPerQuestion float64

	// Model is taken from the first entry. Runs are expected to use a
	// single model; mixed runs report only the first.
	Model       string
	StartedAt   string
	CompletedAt string
}

var (
	unpricedMu     sync.Mutex
	unpricedWarned = map[string]struct{}{}
)

// Price builds the cost entry for one completed LLM call.
//
// Costs are tokens/1M x the per-million rate from the pricing table. A model
// absent from the table yields a $0 entry with Priced=false and a one-time
// warning; experiments against unpriced models still run, they just report
// no spend.
func Price(model string, inputTokens, outputTokens int, latencyMs int64) (Entry, error) {
	if inputTokens < 0 || outputTokens < 0 {
		return Entry{}, fmt.Errorf("%w: input=%d output=%d", ErrNegativeTokens, inputTokens, outputTokens)
	}

	rate, priced := pricing.Lookup(model)
	if !priced {
		warnUnpriced(model)
	}

	inputCost := float64(inputTokens) / tokensPerPriceUnit * rate.InputPerMTok
	outputCost := float64(outputTokens) / tokensPerPriceUnit * rate.OutputPerMTok

	return Entry{
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    inputCost + outputCost,
		LatencyMs:    latencyMs,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		Priced:       priced,
	}, nil
}

func warnUnpriced(model string) {
	unpricedMu.Lock()
	defer unpricedMu.Unlock()
	if _, seen := unpricedWarned[model]; seen {
		return
	}
	unpricedWarned[model] = struct{}{}
	log.Printf("⚠️ [Costs] Model %q is not in the pricing table; its calls will be reported at $0", model)
}

// Aggregate folds entries into run-level totals.
//
// Entry order is trusted as call order: StartedAt and CompletedAt come from
// the first and last element as given, without sorting by timestamp.
func Aggregate(entries []Entry, runID string) (RunCosts, error) {
	if len(entries) == 0 {
		return RunCosts{}, ErrNoEntries
	}

	rc := RunCosts{
		RunID:       runID,
		Entries:     entries,
		Model:       entries[0].Model,
		StartedAt:   entries[0].Timestamp,
		CompletedAt: entries[len(entries)-1].Timestamp,
	}

	for _, e := range entries {
		rc.TotalInputTokens += e.InputTokens
		rc.TotalOutputTokens += e.OutputTokens
		rc.TotalCost += e.TotalCost
		rc.TotalLatencyMs += e.LatencyMs
	}
	rc.TotalTokens = rc.TotalInputTokens + rc.TotalOutputTokens

	n := float64(len(entries))
	rc.AvgLatencyMs = float64(rc.TotalLatencyMs) / n
	rc.CostPerQuestion = rc.TotalCost / n

	return rc, nil
}
