package main

import (
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/dealsignal/harness/internal/config"
	"github.com/dealsignal/harness/internal/pricing"
	"github.com/dealsignal/harness/internal/server"
	"github.com/dealsignal/harness/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run archive over HTTP",
	Long:  `Starts the read-only JSON API over the local run archive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := pricing.InitFromEnvAndConfig(); err != nil {
			log.Printf("⚠️ [Pricing] %v (continuing with builtin table)", err)
		}

		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		archive := store.NewArchive(db)

		addr := cfg.Host + ":" + cfg.Port
		log.Printf("🚀 [Server] Deal Signal archive on http://%s", addr)
		log.Printf("📊 [Server] Runs: http://%s/api/runs", addr)

		return http.ListenAndServe(addr, server.NewRouter(archive))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
