package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/tutor/internal/index"
	"github.com/mohammad-safakhou/tutor/internal/provider"
	"github.com/mohammad-safakhou/tutor/models"
)

// OutlineTool returns the full lesson list for a resolved course. It reads
// only catalog metadata and issues no content search.
type OutlineTool struct {
	store index.Store
}

func NewOutlineTool(store index.Store) *OutlineTool {
	return &OutlineTool{store: store}
}

func (t *OutlineTool) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{
		Name:        "get_course_outline",
		Description: "Get the complete outline of a course: title, link and full lesson list",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"course_title": map[string]interface{}{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP')",
				},
			},
			"required": []string{"course_title"},
		},
	}
}

func (t *OutlineTool) Execute(ctx context.Context, args map[string]interface{}) Result {
	name, _ := args["course_title"].(string)
	if strings.TrimSpace(name) == "" {
		return Result{Text: "Outline error: course_title is required"}
	}
	title, err := t.store.ResolveCourse(ctx, name)
	if err != nil {
		return Result{Text: fmt.Sprintf("No course found matching '%s'", name)}
	}
	course, err := t.store.GetCourse(ctx, title)
	if err != nil {
		return Result{Text: fmt.Sprintf("No course found matching '%s'", name)}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", course.Link)
	}
	if course.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", course.Instructor)
	}
	fmt.Fprintf(&b, "Lessons (%d):\n", len(course.Lessons))
	for _, l := range course.Lessons {
		fmt.Fprintf(&b, "  %d. %s\n", l.Number, l.Title)
	}
	return Result{
		Text:    strings.TrimRight(b.String(), "\n"),
		Sources: []models.Source{{Label: course.Title, Link: course.Link}},
	}
}
