package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/tutor/config"
	"github.com/mohammad-safakhou/tutor/internal/index"
	"github.com/mohammad-safakhou/tutor/internal/provider"
	"github.com/mohammad-safakhou/tutor/models"
)

// SearchTool runs scoped semantic search over the content index.
type SearchTool struct {
	store index.Store
	limit int
}

func NewSearchTool(store index.Store, cfg config.SearchConfig) *SearchTool {
	limit := cfg.MaxResults
	if limit <= 0 {
		limit = 5
	}
	return &SearchTool{store: store, limit: limit}
}

func (t *SearchTool) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]interface{}{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP')",
				},
				"lesson_number": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"description": "Specific lesson number to search within",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]interface{}) Result {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return Result{Text: "Search error: query is required"}
	}
	courseName, _ := args["course_name"].(string)
	var lesson *int
	if n, ok := args["lesson_number"].(float64); ok && n > 0 {
		v := int(n)
		lesson = &v
	}

	res := t.store.Search(ctx, query, courseName, lesson, t.limit)
	if res.Err != nil {
		if errors.Is(res.Err, models.ErrCourseNotFound) {
			return Result{Text: fmt.Sprintf("No course found matching '%s'", courseName)}
		}
		return Result{Text: fmt.Sprintf("Search error: %v", res.Err)}
	}
	if res.IsEmpty() {
		msg := "No relevant content found"
		if courseName != "" {
			msg += fmt.Sprintf(" in course '%s'", courseName)
		}
		if lesson != nil {
			msg += fmt.Sprintf(" in lesson %d", *lesson)
		}
		return Result{Text: msg + "."}
	}

	var blocks []string
	var sources []models.Source
	for i, doc := range res.Documents {
		meta := res.Metadata[i]
		label := fmt.Sprintf("%s - Lesson %d", meta.CourseTitle, meta.LessonNum)
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", label, doc))
		sources = append(sources, models.Source{
			Label: label,
			Link:  t.lessonLink(ctx, meta.CourseTitle, meta.LessonNum),
		})
	}
	return Result{Text: strings.Join(blocks, "\n\n"), Sources: sources}
}

// lessonLink looks up the lesson's link from catalog metadata. A miss just
// yields a link-less citation.
func (t *SearchTool) lessonLink(ctx context.Context, title string, lesson int) string {
	course, err := t.store.GetCourse(ctx, title)
	if err != nil {
		return ""
	}
	for _, l := range course.Lessons {
		if l.Number == lesson {
			return l.Link
		}
	}
	return ""
}
