package store

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealsignal/harness/internal/costs"
)

// MaxRecentRuns limits the in-memory recent-run cache.
const MaxRecentRuns = 50

// ErrRunNotFound is returned when neither the archive UID nor the run_id
// matches a stored run.
var ErrRunNotFound = errors.New("run not found in archive")

// RunSummary is the list view of an archived run.
type RunSummary struct {
	ID          string  `json:"id"`
	RunID       string  `json:"run_id"`
	Model       string  `json:"model"`
	Questions   int     `json:"questions"`
	TotalTokens int     `json:"total_tokens"`
	TotalCost   float64 `json:"total_cost"`
	CreatedAt   int64   `json:"created_at"`
}

// ArchiveStats aggregates over everything archived.
type ArchiveStats struct {
	Runs        int64   `json:"runs"`
	TotalCost   float64 `json:"total_cost"`
	TotalTokens int64   `json:"total_tokens"`
}

// Archive stores finished runs. Writes go to SQLite; a small in-memory
// cache keeps the latest runs cheap to list.
type Archive struct {
	db *gorm.DB

	recentMu   sync.RWMutex
	recentRuns []RunSummary

	runCount atomic.Int64
}

// NewArchive creates an Archive over an opened database.
func NewArchive(db *gorm.DB) *Archive {
	a := &Archive{
		db:         db,
		recentRuns: make([]RunSummary, 0, MaxRecentRuns),
	}
	a.loadStatsFromDB()
	return a
}

func (a *Archive) loadStatsFromDB() {
	var count int64
	if err := a.db.Model(&Run{}).Count(&count).Error; err != nil {
		log.Printf("[Archive] Failed to load run count: %v", err)
		return
	}
	a.runCount.Store(count)
}

// SaveRun archives an aggregated run and returns its archive UID.
// The run and its entries are written in one transaction.
func (a *Archive) SaveRun(rc costs.RunCosts) (string, error) {
	if len(rc.Entries) == 0 {
		return "", fmt.Errorf("refusing to archive run %q: %w", rc.RunID, costs.ErrNoEntries)
	}

	uid := uuid.New().String()
	run := Run{
		ID:                uid,
		RunID:             rc.RunID,
		Model:             rc.Model,
		TotalInputTokens:  rc.TotalInputTokens,
		TotalOutputTokens: rc.TotalOutputTokens,
		TotalTokens:       rc.TotalTokens,
		TotalCost:         rc.TotalCost,
		TotalLatencyMs:    rc.TotalLatencyMs,
		AvgLatencyMs:      rc.AvgLatencyMs,
		CostPerQuestion:   rc.CostPerQuestion,
		StartedAt:         rc.StartedAt,
		CompletedAt:       rc.CompletedAt,
		CreatedAt:         time.Now().UnixMilli(),
	}

	entries := make([]RunEntry, 0, len(rc.Entries))
	for i, e := range rc.Entries {
		entries = append(entries, RunEntry{
			RunUID:       uid,
			Seq:          i,
			Model:        e.Model,
			InputTokens:  e.InputTokens,
			OutputTokens: e.OutputTokens,
			TotalTokens:  e.TotalTokens,
			InputCost:    e.InputCost,
			OutputCost:   e.OutputCost,
			TotalCost:    e.TotalCost,
			LatencyMs:    e.LatencyMs,
			Timestamp:    e.Timestamp,
			Priced:       e.Priced,
		})
	}

	err := a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		return tx.Create(&entries).Error
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive run %q: %w", rc.RunID, err)
	}

	a.runCount.Add(1)
	a.cacheRecent(summarize(run))
	return uid, nil
}

func (a *Archive) cacheRecent(s RunSummary) {
	a.recentMu.Lock()
	defer a.recentMu.Unlock()
	a.recentRuns = append([]RunSummary{s}, a.recentRuns...)
	if len(a.recentRuns) > MaxRecentRuns {
		a.recentRuns = a.recentRuns[:MaxRecentRuns]
	}
}

// GetRun reassembles a run by archive UID or by its run_id.
func (a *Archive) GetRun(id string) (costs.RunCosts, error) {
	var run Run
	err := a.db.Where("id = ? OR run_id = ?", id, id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return costs.RunCosts{}, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	if err != nil {
		return costs.RunCosts{}, fmt.Errorf("failed to load run %q: %w", id, err)
	}

	var rows []RunEntry
	if err := a.db.Where("run_uid = ?", run.ID).Order("seq ASC").Find(&rows).Error; err != nil {
		return costs.RunCosts{}, fmt.Errorf("failed to load entries for run %q: %w", id, err)
	}

	entries := make([]costs.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, costs.Entry{
			Model:        r.Model,
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
			TotalTokens:  r.TotalTokens,
			InputCost:    r.InputCost,
			OutputCost:   r.OutputCost,
			TotalCost:    r.TotalCost,
			LatencyMs:    r.LatencyMs,
			Timestamp:    r.Timestamp,
			Priced:       r.Priced,
		})
	}

	return costs.RunCosts{
		RunID:             run.RunID,
		Entries:           entries,
		TotalInputTokens:  run.TotalInputTokens,
		TotalOutputTokens: run.TotalOutputTokens,
		TotalTokens:       run.TotalTokens,
		TotalCost:         run.TotalCost,
		TotalLatencyMs:    run.TotalLatencyMs,
		AvgLatencyMs:      run.AvgLatencyMs,
		CostPerQuestion:   run.CostPerQuestion,
		Model:             run.Model,
		StartedAt:         run.StartedAt,
		CompletedAt:       run.CompletedAt,
	}, nil
}

// ListRuns returns the newest runs first.
func (a *Archive) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = MaxRecentRuns
	}

	var runs []Run
	if err := a.db.Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		log.Printf("[Archive] Failed to list runs from DB, serving memory cache: %v", err)
		a.recentMu.RLock()
		defer a.recentMu.RUnlock()
		if limit > len(a.recentRuns) {
			limit = len(a.recentRuns)
		}
		return append([]RunSummary(nil), a.recentRuns[:limit]...), nil
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		s := summarize(run)
		var n int64
		if err := a.db.Model(&RunEntry{}).Where("run_uid = ?", run.ID).Count(&n).Error; err == nil {
			s.Questions = int(n)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// Stats aggregates cost and token totals over the whole archive.
func (a *Archive) Stats() (ArchiveStats, error) {
	stats := ArchiveStats{Runs: a.runCount.Load()}

	row := a.db.Model(&Run{}).
		Select("COALESCE(SUM(total_cost), 0), COALESCE(SUM(total_tokens), 0)").
		Row()
	if err := row.Scan(&stats.TotalCost, &stats.TotalTokens); err != nil {
		return ArchiveStats{}, fmt.Errorf("failed to aggregate archive stats: %w", err)
	}
	return stats, nil
}

func summarize(run Run) RunSummary {
	return RunSummary{
		ID:          run.ID,
		RunID:       run.RunID,
		Model:       run.Model,
		TotalTokens: run.TotalTokens,
		TotalCost:   run.TotalCost,
		CreatedAt:   run.CreatedAt,
	}
}
