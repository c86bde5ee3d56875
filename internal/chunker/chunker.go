package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mohammad-safakhou/tutor/config"
	"github.com/mohammad-safakhou/tutor/models"
)

// ErrMissingTitle is returned when a course document has no title header.
// The document yields zero chunks but the batch continues.
var ErrMissingTitle = errors.New("course document missing title")

var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Chunker splits structured course documents into a Course plus an ordered
// chunk sequence ready for embedding. Splitting is deterministic: identical
// input always yields an identical chunk sequence.
type Chunker struct {
	chunkSize int
	overlap   int
	lookahead int
}

func New(cfg config.ChunkingConfig) *Chunker {
	return &Chunker{
		chunkSize: cfg.ChunkSize,
		overlap:   cfg.ChunkOverlap,
		lookahead: cfg.Lookahead,
	}
}

// ParseDocument parses a course document with a structured header
// (Course Title / Course Link / Course Instructor lines, then "Lesson N:"
// markers with optional "Lesson Link:" lines) into course metadata and
// overlapping content chunks. Each lesson body is prefixed with
// "Course {title} Lesson {n}: " so every chunk is self-describing once
// embedded.
func (c *Chunker) ParseDocument(raw string) (models.Course, []models.Chunk, error) {
	lines := strings.Split(raw, "\n")

	var course models.Course
	idx := 0
	for ; idx < len(lines); idx++ {
		line := strings.TrimSpace(lines[idx])
		if lessonMarker.MatchString(line) {
			break
		}
		switch {
		case strings.HasPrefix(line, "Course Title:"):
			course.Title = strings.TrimSpace(strings.TrimPrefix(line, "Course Title:"))
		case strings.HasPrefix(line, "Course Link:"):
			course.Link = strings.TrimSpace(strings.TrimPrefix(line, "Course Link:"))
		case strings.HasPrefix(line, "Course Instructor:"):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, "Course Instructor:"))
		}
	}
	if course.Title == "" {
		return models.Course{}, nil, ErrMissingTitle
	}

	type lessonBody struct {
		lesson models.Lesson
		text   string
	}
	var bodies []lessonBody

	var cur *lessonBody
	var buf []string
	flush := func() {
		if cur != nil {
			cur.text = strings.TrimSpace(strings.Join(buf, "\n"))
			bodies = append(bodies, *cur)
		}
		buf = buf[:0]
	}
	for ; idx < len(lines); idx++ {
		line := lines[idx]
		if m := lessonMarker.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			num, _ := strconv.Atoi(m[1])
			cur = &lessonBody{lesson: models.Lesson{Number: num, Title: strings.TrimSpace(m[2])}}
			continue
		}
		if cur != nil && strings.HasPrefix(strings.TrimSpace(line), "Lesson Link:") {
			cur.lesson.Link = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "Lesson Link:"))
			continue
		}
		if cur != nil {
			buf = append(buf, line)
		}
	}
	flush()

	var chunks []models.Chunk
	next := 0
	for _, b := range bodies {
		course.Lessons = append(course.Lessons, b.lesson)
		if b.text == "" {
			continue
		}
		prefixed := fmt.Sprintf("Course %s Lesson %d: %s", course.Title, b.lesson.Number, b.text)
		for _, part := range c.split(prefixed) {
			chunks = append(chunks, models.Chunk{
				Content:     part,
				CourseTitle: course.Title,
				LessonNum:   b.lesson.Number,
				Index:       next,
			})
			next++
		}
	}
	return course, chunks, nil
}

// split cuts text into fixed windows of chunkSize characters with overlap,
// snapping each boundary forward to the nearest sentence terminator within
// the lookahead. A short final remainder is kept.
func (c *Chunker) split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.chunkSize {
		return []string{text}
	}
	var parts []string
	for start := 0; start < len(text); {
		end := start + c.chunkSize
		if end >= len(text) {
			parts = append(parts, strings.TrimSpace(text[start:]))
			break
		}
		end = alignRune(text, c.snapForward(text, end))
		parts = append(parts, strings.TrimSpace(text[start:end]))
		if end >= len(text) {
			break
		}
		next := alignRune(text, end-c.overlap)
		if next <= start {
			next = alignRune(text, start+1)
		}
		start = next
	}
	return parts
}

// alignRune advances i to the next rune boundary so a cut never lands inside
// a multibyte character.
func alignRune(text string, i int) int {
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}

// snapForward advances end to just past the first sentence terminator found
// within the lookahead window, or leaves it unchanged when none is found.
func (c *Chunker) snapForward(text string, end int) int {
	limit := end + c.lookahead
	if limit > len(text) {
		limit = len(text)
	}
	for i := end; i < limit; i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 >= len(text) || text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t' {
				return i + 1
			}
		}
	}
	return end
}
