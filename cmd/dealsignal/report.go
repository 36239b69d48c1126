package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dealsignal/harness/internal/config"
	"github.com/dealsignal/harness/internal/costs"
	"github.com/dealsignal/harness/internal/store"
)

var reportFromDB bool

var reportCmd = &cobra.Command{
	Use:   "report <costs.json | run-id>",
	Short: "Render the cost summary for a run",
	Long: `Prints the human-readable cost table for a run, either from a costs.json
file written by 'dealsignal run' or, with --db, from the local archive by
run identifier.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]

		var rc costs.RunCosts
		switch {
		case reportFromDB:
			cfg := config.Load()
			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			rc, err = store.NewArchive(db).GetRun(target)
			if err != nil {
				return err
			}
		default:
			if _, err := os.Stat(target); err != nil {
				return fmt.Errorf("no such report file %q (use --db to look up a run id)", target)
			}
			var err error
			rc, err = costs.Load(target)
			if err != nil {
				return err
			}
		}

		fmt.Println(rc.Summary())
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportFromDB, "db", false, "treat the argument as a run id in the local archive")
	rootCmd.AddCommand(reportCmd)
}
