package store

// Run is the archived summary row for one experiment run.
type Run struct {
	ID    string `gorm:"primaryKey" json:"id"`
	RunID string `gorm:"index" json:"run_id"`
	Model string `gorm:"index" json:"model"`

	TotalInputTokens  int     `json:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens"`
	TotalTokens       int     `json:"total_tokens"`
	TotalCost         float64 `json:"total_cost"`
	TotalLatencyMs    int64   `json:"total_latency_ms"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
	CostPerQuestion   float64 `json:"cost_per_question"`

	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`

	// CreatedAt is when the run was archived, unix milliseconds.
	CreatedAt int64 `gorm:"index" json:"created_at"`
}

// RunEntry is one archived cost entry. Seq preserves call order, which the
// aggregator depends on for run timing.
type RunEntry struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	RunUID string `gorm:"index" json:"run_uid"`
	Seq    int    `json:"seq"`

	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	InputCost    float64 `json:"input_cost"`
	OutputCost   float64 `json:"output_cost"`
	TotalCost    float64 `json:"total_cost"`
	LatencyMs    int64   `json:"latency_ms"`
	Timestamp    string  `json:"timestamp"`
	Priced       bool    `json:"priced"`
}
