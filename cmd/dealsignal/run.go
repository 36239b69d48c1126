package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dealsignal/harness/internal/config"
	"github.com/dealsignal/harness/internal/docparse"
	"github.com/dealsignal/harness/internal/llm"
	"github.com/dealsignal/harness/internal/pricing"
	"github.com/dealsignal/harness/internal/runner"
	"github.com/dealsignal/harness/internal/store"
)

var (
	runQuestions   string
	runProvider    string
	runModel       string
	runSystem      string
	runContextDir  string
	runID          string
	runOutDir      string
	runTemperature float32
	runMaxTokens   int
	runBaseURL     string
	runNoArchive   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute an experiment run",
	Long: `Runs every question in the question set against the configured model,
prices each call, and writes answers.json and costs.json into the output
directory. Finished runs are also archived in the local database unless
--no-archive is set.`,
	Example: `  # Run the baseline question set against gpt-4o-mini
  dealsignal run --questions questions.json --provider openai --model gpt-4o-mini

  # Same run with a parsed document as context
  dealsignal run --questions questions.json --provider anthropic \
    --model claude-3-5-sonnet-20241022 --context parsed/acme`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := pricing.InitFromEnvAndConfig(); err != nil {
			log.Printf("⚠️ [Pricing] %v (continuing with builtin table)", err)
		}

		questions, err := runner.LoadQuestions(runQuestions)
		if err != nil {
			return err
		}

		llmCfg := llm.Config{
			Provider:    runProvider,
			Model:       runModel,
			Temperature: runTemperature,
			MaxTokens:   runMaxTokens,
			BaseURL:     runBaseURL,
		}
		client, err := llm.New(llmCfg)
		if err != nil {
			return err
		}
		if cfg.RedisURL != "" {
			opts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("invalid REDIS_URL: %w", err)
			}
			ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
			client = llm.WithCache(client, llmCfg, redis.NewClient(opts), ttl)
			log.Printf("💾 [Cache] Response cache enabled (ttl %s)", ttl)
		}

		var archive *store.Archive
		if !runNoArchive {
			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			archive = store.NewArchive(db)
		}

		document, err := loadContext(cmd.Context(), runContextDir)
		if err != nil {
			return err
		}

		outDir := runOutDir
		if outDir == "" {
			outDir = cfg.OutDir
		}

		res, err := runner.New(client, archive).Run(cmd.Context(), runner.Spec{
			RunID:     runID,
			Questions: questions,
			System:    runSystem,
			Document:  document,
			OutDir:    outDir,
		})
		if err != nil {
			return err
		}

		if res.Costs != nil {
			fmt.Println()
			fmt.Println(res.Costs.Summary())
			fmt.Printf("\nArtifacts: %s, %s\n", res.AnswersPath, res.CostsPath)
		} else {
			fmt.Printf("\nAll responses served from cache. Answers: %s\n", res.AnswersPath)
		}
		return nil
	},
}

// loadContext reads document context from a parsed-document directory or a
// plain text file.
func loadContext(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if doc, err := docparse.LoadDir(path); err == nil {
		return doc.Text, nil
	}
	p, err := docparse.Get("text")
	if err != nil {
		return "", err
	}
	doc, err := p.Parse(ctx, path)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

func init() {
	runCmd.Flags().StringVar(&runQuestions, "questions", "", "path to the question set JSON (required)")
	runCmd.Flags().StringVar(&runProvider, "provider", "openai", "LLM provider (openai, anthropic)")
	runCmd.Flags().StringVar(&runModel, "model", "", "model identifier (required)")
	runCmd.Flags().StringVar(&runSystem, "system", "", "system prompt")
	runCmd.Flags().StringVar(&runContextDir, "context", "", "parsed-document directory or text file to include as context")
	runCmd.Flags().StringVar(&runID, "run-id", "", "run identifier (default: random UUID)")
	runCmd.Flags().StringVar(&runOutDir, "out", "", "output directory (default: DEALSIGNAL_OUT_DIR)")
	runCmd.Flags().Float32Var(&runTemperature, "temperature", 0, "sampling temperature")
	runCmd.Flags().IntVar(&runMaxTokens, "max-tokens", 4096, "maximum output tokens per call")
	runCmd.Flags().StringVar(&runBaseURL, "base-url", "", "override the provider endpoint")
	runCmd.Flags().BoolVar(&runNoArchive, "no-archive", false, "skip archiving the run in the local database")
	_ = runCmd.MarkFlagRequired("questions")
	_ = runCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(runCmd)
}
