package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/tutor/config"
	"github.com/mohammad-safakhou/tutor/models"
)

// stubStore serves canned catalog and content data.
type stubStore struct {
	results models.SearchResults
	courses map[string]models.Course
}

func (s *stubStore) AddCourse(context.Context, models.Course, []models.Chunk) error { return nil }

func (s *stubStore) ExistingTitles(context.Context) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	for t := range s.courses {
		out[t] = struct{}{}
	}
	return out, nil
}

func (s *stubStore) ResolveCourse(_ context.Context, name string) (string, error) {
	for title := range s.courses {
		if strings.Contains(strings.ToLower(title), strings.ToLower(name)) {
			return title, nil
		}
	}
	return "", models.ErrCourseNotFound
}

func (s *stubStore) GetCourse(_ context.Context, title string) (models.Course, error) {
	c, ok := s.courses[title]
	if !ok {
		return models.Course{}, models.ErrCourseNotFound
	}
	return c, nil
}

func (s *stubStore) Search(_ context.Context, _, courseName string, _ *int, _ int) models.SearchResults {
	if courseName != "" {
		if _, err := s.ResolveCourse(context.Background(), courseName); err != nil {
			return models.EmptyResults(fmt.Errorf("resolving course %q: %w", courseName, err))
		}
	}
	return s.results
}

func (s *stubStore) Stats(context.Context) (models.CatalogStats, error) {
	return models.CatalogStats{}, nil
}

func newStubStore() *stubStore {
	return &stubStore{
		courses: map[string]models.Course{
			"Intro to MCP": {
				Title:      "Intro to MCP",
				Link:       "https://example.com/mcp",
				Instructor: "Ada Lovelace",
				Lessons: []models.Lesson{
					{Number: 1, Title: "Servers", Link: "https://example.com/mcp/1"},
					{Number: 2, Title: "Clients", Link: "https://example.com/mcp/2"},
				},
			},
		},
		results: models.SearchResults{
			Documents: []string{"Course Intro to MCP Lesson 1: servers expose tools"},
			Metadata:  []models.ChunkMeta{{CourseTitle: "Intro to MCP", LessonNum: 1, Index: 0, Score: 0.9}},
		},
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	_, err := NewRegistry(NewSearchTool(store, config.SearchConfig{}), NewSearchTool(store, config.SearchConfig{}))
	if err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	t.Parallel()
	reg, err := NewRegistry(NewSearchTool(newStubStore(), config.SearchConfig{}))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	_, err = reg.Execute(context.Background(), "does_not_exist", nil)
	if !errors.Is(err, ErrToolMissing) {
		t.Fatalf("err = %v, want ErrToolMissing", err)
	}
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	reg, err := NewRegistry(NewSearchTool(store, config.SearchConfig{}), NewOutlineTool(store))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defs := reg.Definitions()
	if len(defs) != 2 {
		t.Fatalf("definitions = %d, want 2", len(defs))
	}
	if defs[0].Name != "search_course_content" || defs[1].Name != "get_course_outline" {
		t.Errorf("order = %s, %s", defs[0].Name, defs[1].Name)
	}
}

func TestExecuteReturnsOwnSourcesOnly(t *testing.T) {
	t.Parallel()
	reg, err := NewRegistry(NewSearchTool(newStubStore(), config.SearchConfig{}))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	first, err := reg.Execute(context.Background(), "search_course_content", map[string]interface{}{"query": "servers"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(first.Sources) != 1 {
		t.Fatalf("first execution = %d sources, want 1", len(first.Sources))
	}
	// The registry keeps no state between executions: a second call carries
	// its own sources, not an accumulation of earlier ones.
	second, err := reg.Execute(context.Background(), "search_course_content", map[string]interface{}{"query": "servers"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(second.Sources) != 1 {
		t.Errorf("second execution = %d sources, want 1", len(second.Sources))
	}
}

func TestSearchToolFormatsResults(t *testing.T) {
	t.Parallel()
	tool := NewSearchTool(newStubStore(), config.SearchConfig{MaxResults: 5})
	res := tool.Execute(context.Background(), map[string]interface{}{"query": "servers"})
	if !strings.HasPrefix(res.Text, "[Intro to MCP - Lesson 1]\n") {
		t.Errorf("text = %q", res.Text)
	}
	if len(res.Sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(res.Sources))
	}
	src := res.Sources[0]
	if src.Label != "Intro to MCP - Lesson 1" {
		t.Errorf("label = %q", src.Label)
	}
	if src.Link != "https://example.com/mcp/1" {
		t.Errorf("link = %q", src.Link)
	}
}

func TestSearchToolUnknownCourse(t *testing.T) {
	t.Parallel()
	tool := NewSearchTool(newStubStore(), config.SearchConfig{})
	res := tool.Execute(context.Background(), map[string]interface{}{
		"query":       "anything",
		"course_name": "Underwater Basket Weaving",
	})
	want := "No course found matching 'Underwater Basket Weaving'"
	if res.Text != want {
		t.Errorf("text = %q, want %q", res.Text, want)
	}
	if len(res.Sources) != 0 {
		t.Errorf("sources = %d, want 0", len(res.Sources))
	}
}

func TestSearchToolEmptyResults(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.results = models.SearchResults{}
	tool := NewSearchTool(store, config.SearchConfig{})
	res := tool.Execute(context.Background(), map[string]interface{}{
		"query":         "anything",
		"course_name":   "MCP",
		"lesson_number": float64(2),
	})
	want := "No relevant content found in course 'MCP' in lesson 2."
	if res.Text != want {
		t.Errorf("text = %q, want %q", res.Text, want)
	}
}

func TestSearchToolMissingQuery(t *testing.T) {
	t.Parallel()
	tool := NewSearchTool(newStubStore(), config.SearchConfig{})
	res := tool.Execute(context.Background(), map[string]interface{}{})
	if !strings.Contains(res.Text, "query is required") {
		t.Errorf("text = %q", res.Text)
	}
}

func TestOutlineTool(t *testing.T) {
	t.Parallel()
	tool := NewOutlineTool(newStubStore())
	res := tool.Execute(context.Background(), map[string]interface{}{"course_title": "MCP"})
	for _, want := range []string{
		"Course: Intro to MCP",
		"Course Link: https://example.com/mcp",
		"Instructor: Ada Lovelace",
		"Lessons (2):",
		"  1. Servers",
		"  2. Clients",
	} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("outline missing %q in %q", want, res.Text)
		}
	}
	if len(res.Sources) != 1 || res.Sources[0].Label != "Intro to MCP" {
		t.Errorf("sources = %+v", res.Sources)
	}
}

func TestOutlineToolUnknownCourse(t *testing.T) {
	t.Parallel()
	tool := NewOutlineTool(newStubStore())
	res := tool.Execute(context.Background(), map[string]interface{}{"course_title": "Nothing"})
	if res.Text != "No course found matching 'Nothing'" {
		t.Errorf("text = %q", res.Text)
	}
}
