package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/tutor/config"
	"github.com/mohammad-safakhou/tutor/internal/index"
	"github.com/mohammad-safakhou/tutor/internal/provider"
	"github.com/mohammad-safakhou/tutor/internal/rag"
	"github.com/mohammad-safakhou/tutor/internal/session"
	"github.com/mohammad-safakhou/tutor/internal/telemetry"
)

func main() {
	var root = &cobra.Command{Use: "tutor", Short: "Course-materials assistant"}

	root.AddCommand(serveCMD(), ingestCMD(), migrateCMD())
	_ = root.Execute()
}

// buildRAG assembles the orchestrator from configuration: provider, index
// backend, session store and metrics.
func buildRAG(cfg *config.Config) (*rag.RAG, *telemetry.Metrics, error) {
	llm := provider.NewOpenAIClient(cfg.LLM)

	var store index.Store
	switch cfg.Storage.Backend {
	case "postgres":
		db, err := index.OpenPostgres(cfg.Storage.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store = index.NewPostgresStore(db, llm, cfg.Search)
	case "", "memory":
		memStore, err := index.NewMemoryStore(llm, cfg.Search)
		if err != nil {
			return nil, nil, err
		}
		store = memStore
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}

	var sessions session.Store
	switch cfg.Session.Store {
	case "redis":
		sessions = session.NewRedisStore(cfg.Session, cfg.Storage.Redis)
	case "", "inmemory":
		sessions = session.NewInMemoryStore(cfg.Session)
	default:
		return nil, nil, fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
	}

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.New()
	}

	logger := log.New(log.Writer(), "[RAG] ", log.LstdFlags)
	r, err := rag.New(cfg, store, llm, sessions, metrics, logger)
	if err != nil {
		return nil, nil, err
	}
	return r, metrics, nil
}
