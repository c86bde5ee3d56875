package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/tutor/config"
	"github.com/mohammad-safakhou/tutor/internal/server"
)

func serveCMD() *cobra.Command {
	var serveAddr string
	var cfgPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			r, metrics, err := buildRAG(cfg)
			if err != nil {
				return err
			}

			// Load any course documents present at startup; already
			// cataloged titles are skipped.
			if cfg.General.DocsPath != "" {
				courses, chunks, err := r.AddCourseFolder(context.Background(), cfg.General.DocsPath, true)
				if err != nil {
					log.Printf("[SERVE] loading %s skipped: %v", cfg.General.DocsPath, err)
				} else {
					log.Printf("[SERVE] loaded %d courses (%d chunks) from %s", courses, chunks, cfg.General.DocsPath)
				}
			}

			addr := serveAddr
			if addr == "" {
				addr = cfg.Server.Address
			}
			return server.New(r, metrics).Start(addr)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return serve
}
