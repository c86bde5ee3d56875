package rag

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/tutor/config"
	"github.com/mohammad-safakhou/tutor/internal/agent"
	"github.com/mohammad-safakhou/tutor/internal/chunker"
	"github.com/mohammad-safakhou/tutor/internal/index"
	"github.com/mohammad-safakhou/tutor/internal/provider"
	"github.com/mohammad-safakhou/tutor/internal/session"
	"github.com/mohammad-safakhou/tutor/internal/telemetry"
	"github.com/mohammad-safakhou/tutor/internal/tools"
	"github.com/mohammad-safakhou/tutor/models"
)

var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
}

// RAG wires chunking, the dual-index store, the tool registry, the agent
// loop and session state into the end-to-end ingestion and query paths.
type RAG struct {
	chunker   *chunker.Chunker
	store     index.Store
	sessions  session.Store
	registry  *tools.Registry
	generator *agent.Generator
	metrics   *telemetry.Metrics
	logger    *log.Logger
}

func New(cfg *config.Config, store index.Store, p provider.Provider, sessions session.Store, metrics *telemetry.Metrics, logger *log.Logger) (*RAG, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[RAG] ", log.LstdFlags)
	}
	registry, err := tools.NewRegistry(
		tools.NewSearchTool(store, cfg.Search),
		tools.NewOutlineTool(store),
	)
	if err != nil {
		return nil, fmt.Errorf("building tool registry: %w", err)
	}
	if metrics != nil {
		registry.Observe(func(name string) {
			metrics.ToolExecutions.WithLabelValues(name).Inc()
		})
	}
	return &RAG{
		chunker:   chunker.New(cfg.Chunking),
		store:     store,
		sessions:  sessions,
		registry:  registry,
		generator: agent.NewGenerator(p, cfg.LLM, nil),
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Query answers one question. A missing session id creates a new session,
// surfaced in the returned id. Sources reflect exactly the tool executions
// performed for this call.
func (r *RAG) Query(ctx context.Context, question, sessionID string) (answer string, sources []models.Source, sid string, err error) {
	start := time.Now()
	sid = sessionID
	if sid == "" {
		sid, err = r.sessions.Create(ctx)
		if err != nil {
			return "", nil, "", fmt.Errorf("creating session: %w", err)
		}
	}
	history, err := r.sessions.HistoryText(ctx, sid)
	if err != nil {
		return "", nil, sid, fmt.Errorf("loading history: %w", err)
	}

	answer, sources, err = r.generator.Generate(ctx, question, history, r.registry)
	if err != nil {
		if r.metrics != nil {
			r.metrics.QueryFailures.Inc()
		}
		return "", nil, sid, fmt.Errorf("generating answer: %w", err)
	}

	if err := r.sessions.AddExchange(ctx, sid, question, answer); err != nil {
		r.logger.Printf("session %s: recording exchange failed: %v", sid, err)
	}
	if r.metrics != nil {
		r.metrics.QueriesTotal.Inc()
		r.metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}
	return answer, sources, sid, nil
}

// AddCourseFolder ingests every supported document in path. Already
// cataloged titles are skipped when skipExisting is set, and per-file parse
// errors are logged without aborting the batch.
func (r *RAG) AddCourseFolder(ctx context.Context, path string, skipExisting bool) (coursesAdded, chunksAdded int, err error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, 0, fmt.Errorf("reading course folder: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	existing := map[string]struct{}{}
	if skipExisting {
		existing, err = r.store.ExistingTitles(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("listing existing courses: %w", err)
		}
	}

	for _, name := range names {
		full := filepath.Join(path, name)
		text, err := r.readDocument(full)
		if err != nil {
			r.logger.Printf("skipping %s: %v", name, err)
			continue
		}
		course, chunks, err := r.chunker.ParseDocument(text)
		if err != nil {
			r.logger.Printf("skipping %s: %v", name, err)
			continue
		}
		if skipExisting {
			if _, ok := existing[course.Title]; ok {
				continue
			}
		}
		if err := r.store.AddCourse(ctx, course, chunks); err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("indexing course %q: %w", course.Title, err)
		}
		existing[course.Title] = struct{}{}
		coursesAdded++
		chunksAdded += len(chunks)
		if r.metrics != nil {
			r.metrics.CoursesIngested.Inc()
			r.metrics.ChunksIngested.Add(float64(len(chunks)))
		}
		r.logger.Printf("indexed course %q (%d chunks)", course.Title, len(chunks))
	}
	return coursesAdded, chunksAdded, nil
}

// readDocument loads a course file. HTML files go through readability
// extraction first; when the extracted text has no title header, the page
// title fills in.
func (r *RAG) readDocument(path string) (string, error) {
	if strings.ToLower(filepath.Ext(path)) != ".html" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	article, err := readability.FromReader(f, &url.URL{Path: path})
	if err != nil {
		return "", fmt.Errorf("extracting article: %w", err)
	}
	text := article.TextContent
	if !strings.Contains(text, "Course Title:") && article.Title != "" {
		text = fmt.Sprintf("Course Title: %s\n\n%s", article.Title, text)
	}
	return text, nil
}

// GetCatalogStats summarises the catalog index for the analytics endpoint.
func (r *RAG) GetCatalogStats(ctx context.Context) (models.CatalogStats, error) {
	return r.store.Stats(ctx)
}

// ClearSession drops a session's history.
func (r *RAG) ClearSession(ctx context.Context, id string) error {
	return r.sessions.Clear(ctx, id)
}
