package costs

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrMalformedReport is returned when a report file is missing required fields.
var ErrMalformedReport = errors.New("malformed cost report")

// Report is the durable JSON form of a RunCosts. Summary fields carry
// display rounding; the entries list keeps full precision, so the summary
// can always be re-derived by re-aggregating.
type Report struct {
	RunID    string         `json:"run_id"`
	Model    string         `json:"model"`
	Totals   ReportTotals   `json:"totals"`
	Averages ReportAverages `json:"averages"`
	Timing   ReportTiming   `json:"timing"`
	Entries  []Entry        `json:"entries"`
}

type ReportTotals struct {
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	TotalCostUSD   float64 `json:"total_cost_usd"`
	TotalLatencyMs int64   `json:"total_latency_ms"`
}

type ReportAverages struct {
	LatencyMs          float64 `json:"latency_ms"`
	CostPerQuestionUSD float64 `json:"cost_per_question_usd"`
}

type ReportTiming struct {
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
}

// Report renders the durable form, applying display rounding to the
// summary sections.
func (rc RunCosts) Report() Report {
	return Report{
		RunID: rc.RunID,
		Model: rc.Model,
		Totals: ReportTotals{
			InputTokens:    rc.TotalInputTokens,
			OutputTokens:   rc.TotalOutputTokens,
			TotalTokens:    rc.TotalTokens,
			TotalCostUSD:   roundTo(rc.TotalCost, 4),
			TotalLatencyMs: rc.TotalLatencyMs,
		},
		Averages: ReportAverages{
			LatencyMs:          roundTo(rc.AvgLatencyMs, 2),
			CostPerQuestionUSD: roundTo(rc.CostPerQuestion, 6),
		},
		Timing: ReportTiming{
			StartedAt:   rc.StartedAt,
			CompletedAt: rc.CompletedAt,
		},
		Entries: rc.Entries,
	}
}

// Save writes the durable JSON form to path. The write is all-or-nothing:
// a temp file in the same directory is renamed over the destination, so a
// failed write never leaves a truncated report behind.
func (rc RunCosts) Save(path string) error {
	data, err := json.MarshalIndent(rc.Report(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cost report: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".costs-*.json")
	if err != nil {
		return fmt.Errorf("failed to create cost report in %q: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cost report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cost report: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cost report to %q: %w", path, err)
	}
	return nil
}

// Load reads a report written by Save. Summary fields are taken as stored
// (rounded); the entries list is full precision.
func Load(path string) (RunCosts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunCosts{}, fmt.Errorf("failed to read cost report %q: %w", path, err)
	}

	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return RunCosts{}, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	if err := rep.validate(); err != nil {
		return RunCosts{}, err
	}

	return RunCosts{
		RunID:             rep.RunID,
		Entries:           rep.Entries,
		TotalInputTokens:  rep.Totals.InputTokens,
		TotalOutputTokens: rep.Totals.OutputTokens,
		TotalTokens:       rep.Totals.TotalTokens,
		TotalCost:         rep.Totals.TotalCostUSD,
		TotalLatencyMs:    rep.Totals.TotalLatencyMs,
		AvgLatencyMs:      rep.Averages.LatencyMs,
		CostPerQuestion:   rep.Averages.CostPerQuestionUSD,
		Model:             rep.Model,
		StartedAt:         rep.Timing.StartedAt,
		CompletedAt:       rep.Timing.CompletedAt,
	}, nil
}

func (r Report) validate() error {
	switch {
	case strings.TrimSpace(r.RunID) == "":
		return fmt.Errorf("%w: missing run_id", ErrMalformedReport)
	case len(r.Entries) == 0:
		return fmt.Errorf("%w: missing entries", ErrMalformedReport)
	case r.Timing.StartedAt == "" || r.Timing.CompletedAt == "":
		return fmt.Errorf("%w: missing timing", ErrMalformedReport)
	}
	return nil
}

// Summary renders the fixed human-readable cost table.
func (rc RunCosts) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Cost Summary: %s\n\n", rc.RunID)
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Model | %s |\n", rc.Model)
	fmt.Fprintf(&b, "| Total Tokens | %s |\n", groupThousands(rc.TotalTokens))
	fmt.Fprintf(&b, "| Input Tokens | %s |\n", groupThousands(rc.TotalInputTokens))
	fmt.Fprintf(&b, "| Output Tokens | %s |\n", groupThousands(rc.TotalOutputTokens))
	fmt.Fprintf(&b, "| Total Cost | $%.4f |\n", rc.TotalCost)
	fmt.Fprintf(&b, "| Cost/Question | $%.6f |\n", rc.CostPerQuestion)
	fmt.Fprintf(&b, "| Avg Latency | %.0fms |\n", rc.AvgLatencyMs)
	fmt.Fprintf(&b, "| Total Time | %.1fs |", float64(rc.TotalLatencyMs)/1000)
	return b.String()
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
