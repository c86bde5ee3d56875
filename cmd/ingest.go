package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/tutor/config"
)

func ingestCMD() *cobra.Command {
	var path string
	var skipExisting bool
	var cfgPath string
	var ingest = &cobra.Command{
		Use:   "ingest",
		Short: "Index a folder of course documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if path == "" {
				path = cfg.General.DocsPath
			}
			r, _, err := buildRAG(cfg)
			if err != nil {
				return err
			}
			courses, chunks, err := r.AddCourseFolder(context.Background(), path, skipExisting)
			if err != nil {
				return err
			}
			fmt.Printf("added %d courses (%d chunks) from %s\n", courses, chunks, path)
			return nil
		},
	}
	ingest.Flags().StringVar(&path, "path", "", "course folder (default from config)")
	ingest.Flags().BoolVar(&skipExisting, "skip-existing", true, "skip already cataloged course titles")
	ingest.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return ingest
}
