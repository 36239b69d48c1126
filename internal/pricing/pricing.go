// Package pricing holds the per-model token price table used to cost LLM calls.
//
// Prices are expressed in USD per one million tokens. The builtin table covers
// the models the Deal Signal experiments run against; a YAML file can override
// or extend it without a rebuild.
package pricing

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Price is the per-million-token rate for one model.
type Price struct {
	InputPerMTok  float64 `yaml:"input_per_mtok" json:"input_per_mtok"`
	OutputPerMTok float64 `yaml:"output_per_mtok" json:"output_per_mtok"`
}

type fileConfig struct {
	Models map[string]Price `yaml:"models"`
}

var (
	stateMu      sync.RWMutex
	initialized  bool
	priceByModel map[string]Price
)

// InitFromEnvAndConfig loads the builtin table and overlays the optional
// pricing file. Safe to call again to pick up file changes.
func InitFromEnvAndConfig() error {
	prices := defaultPrices()
	overlay, err := loadConfigPrices()
	for model, price := range overlay {
		prices[normalizeModelID(model)] = price
	}

	stateMu.Lock()
	defer stateMu.Unlock()

	priceByModel = prices
	initialized = true
	return err
}

func ensureInitialized() {
	stateMu.RLock()
	ok := initialized
	stateMu.RUnlock()
	if ok {
		return
	}
	_ = InitFromEnvAndConfig()
}

// ResetForTest resets in-memory state so tests can force reload.
func ResetForTest() {
	stateMu.Lock()
	defer stateMu.Unlock()
	initialized = false
	priceByModel = nil
}

// Lookup returns the price for a model by exact identifier match.
// The second return is false when the model is not in the table; callers
// decide whether an unpriced model is acceptable.
func Lookup(model string) (Price, bool) {
	ensureInitialized()

	stateMu.RLock()
	defer stateMu.RUnlock()

	price, ok := priceByModel[normalizeModelID(model)]
	return price, ok
}

// Models returns the priced model identifiers in sorted order.
func Models() []string {
	ensureInitialized()

	stateMu.RLock()
	defer stateMu.RUnlock()

	ids := make([]string, 0, len(priceByModel))
	for id := range priceByModel {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Table returns a copy of the full price table, keyed by model identifier.
func Table() map[string]Price {
	ensureInitialized()

	stateMu.RLock()
	defer stateMu.RUnlock()

	table := make(map[string]Price, len(priceByModel))
	for id, price := range priceByModel {
		table[id] = price
	}
	return table
}

func loadConfigPrices() (map[string]Price, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file %q: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file %q: %w", path, err)
	}

	return cfg.Models, nil
}

func resolveConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("DEALSIGNAL_PRICING_FILE")); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	candidates := []string{
		"config/pricing.yaml",
		"./config/pricing.yaml",
	}

	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		candidates = append(candidates,
			filepath.Join(homeDir, ".config", "dealsignal", "pricing.yaml"),
			filepath.Join(homeDir, ".dealsignal", "pricing.yaml"),
		)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

func normalizeModelID(id string) string {
	return strings.TrimSpace(id)
}

// defaultPrices is the builtin table (per 1M tokens, as of Dec 2024).
// Update via the pricing file rather than editing this.
func defaultPrices() map[string]Price {
	return map[string]Price{
		// Anthropic
		"claude-3-5-sonnet-20241022": {InputPerMTok: 3.00, OutputPerMTok: 15.00},
		"claude-3-opus-20240229":     {InputPerMTok: 15.00, OutputPerMTok: 75.00},
		"claude-3-5-haiku-20241022":  {InputPerMTok: 0.80, OutputPerMTok: 4.00},
		// OpenAI
		"gpt-4o":      {InputPerMTok: 2.50, OutputPerMTok: 10.00},
		"gpt-4o-mini": {InputPerMTok: 0.15, OutputPerMTok: 0.60},
		"gpt-4-turbo": {InputPerMTok: 10.00, OutputPerMTok: 30.00},
		// Google
		"gemini-1.5-pro":   {InputPerMTok: 1.25, OutputPerMTok: 5.00},
		"gemini-1.5-flash": {InputPerMTok: 0.075, OutputPerMTok: 0.30},
	}
}
