package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dealsignal/harness/internal/docparse"
)

var (
	parseBackend string
	parseOutDir  string
)

var parseCmd = &cobra.Command{
	Use:   "parse <document>",
	Short: "Extract text from a deal document",
	Long: `Parses a document with the selected backend and writes the normalized
output (text.txt, per-page files, metadata.json) into the output directory
for later use as run context.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := docparse.Get(parseBackend)
		if err != nil {
			return err
		}

		doc, err := p.Parse(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := docparse.Save(doc, parseOutDir); err != nil {
			return err
		}

		fmt.Printf("Parsed %s with %s: %d pages, %d tables -> %s\n",
			args[0], doc.Parser, len(doc.Pages), len(doc.Tables), parseOutDir)
		return nil
	},
}

func init() {
	parseCmd.Flags().StringVar(&parseBackend, "parser", "pdftotext", "parsing backend (pdftotext, text)")
	parseCmd.Flags().StringVar(&parseOutDir, "out", "parsed", "output directory")
	rootCmd.AddCommand(parseCmd)
}
