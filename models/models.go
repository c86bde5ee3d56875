package models

import "errors"

// ErrCourseNotFound is returned when a course name cannot be resolved
// against the catalog index.
var ErrCourseNotFound = errors.New("course not found")

// Lesson is a single lesson entry inside a course outline.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course describes one ingested course document. The title doubles as the
// unique identifier across both indexes.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"course_link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Chunk is a bounded, overlapping slice of lesson text prepared for
// embedding. Chunks are immutable once created.
type Chunk struct {
	Content     string `json:"content"`
	CourseTitle string `json:"course_title"`
	LessonNum   int    `json:"lesson_number"`
	Index       int    `json:"chunk_index"`
}

// ChunkMeta is the metadata stored alongside each content-index entry and
// returned in parallel with search documents.
type ChunkMeta struct {
	CourseTitle string  `json:"course_title"`
	LessonNum   int     `json:"lesson_number"`
	Index       int     `json:"chunk_index"`
	Score       float64 `json:"score"`
}

// SearchResults carries ordered documents with parallel metadata. Err holds
// an underlying index failure converted to a value so it can be rendered as
// text instead of crossing the store boundary as a Go error.
type SearchResults struct {
	Documents []string    `json:"documents"`
	Metadata  []ChunkMeta `json:"metadata"`
	Err       error       `json:"-"`
}

// EmptyResults builds an error-bearing result with no documents.
func EmptyResults(err error) SearchResults {
	return SearchResults{Err: err}
}

// IsEmpty reports whether the result carries no documents and no error.
func (r SearchResults) IsEmpty() bool {
	return r.Err == nil && len(r.Documents) == 0
}

// Source is a citation unit attributed to one tool execution.
type Source struct {
	Label string `json:"text"`
	Link  string `json:"url,omitempty"`
}

// CatalogStats summarises the catalog index for the analytics endpoint.
type CatalogStats struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}
