package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dealsignal/harness/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "dealsignal",
	Short: "Harness for Deal Signal document-QA experiments",
	Long: `dealsignal runs document question-answering experiments against LLM
providers, prices every call from the model pricing table, and keeps the
aggregated cost reports in a local archive.`,
	SilenceUsage: true,
	Version:      fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.BuildTime),
}
