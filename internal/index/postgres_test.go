package index

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mohammad-safakhou/tutor/config"
	"github.com/mohammad-safakhou/tutor/models"
)

// stubEmbedder returns the same small vector for every text so SQL
// expectations can match the exact vector literal.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func TestPostgresAddCourse(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, stubEmbedder{}, config.SearchConfig{})
	course := models.Course{
		Title:   "Intro to MCP",
		Lessons: []models.Lesson{{Number: 1, Title: "Servers"}},
	}
	chunks := []models.Chunk{
		{Content: "Course Intro to MCP Lesson 1: servers", CourseTitle: "Intro to MCP", LessonNum: 1, Index: 0},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO courses (title, link, instructor, lessons, embedding, created_at)
VALUES ($1,$2,$3,$4,$5::vector,NOW())
ON CONFLICT (title) DO UPDATE SET
  link = EXCLUDED.link,
  instructor = EXCLUDED.instructor,
  lessons = EXCLUDED.lessons,
  embedding = EXCLUDED.embedding;
`)).
		WithArgs(course.Title, "", "", sqlmock.AnyArg(), "[0.1,0.2]").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM course_chunks WHERE course_title=$1`)).
		WithArgs(course.Title).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(regexp.QuoteMeta(`
INSERT INTO course_chunks (course_title, lesson_number, chunk_index, content, embedding)
VALUES ($1,$2,$3,$4,$5::vector);
`)).
		ExpectExec().
		WithArgs(course.Title, 1, 0, chunks[0].Content, "[0.1,0.2]").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := st.AddCourse(context.Background(), course, chunks); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresAddCourseCommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, stubEmbedder{}, config.SearchConfig{})
	course := models.Course{Title: "Intro to MCP"}
	chunks := []models.Chunk{
		{Content: "Course Intro to MCP Lesson 1: servers", CourseTitle: "Intro to MCP", LessonNum: 1, Index: 0},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO courses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM course_chunks").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("INSERT INTO course_chunks").
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("deadlock detected"))

	err = st.AddCourse(context.Background(), course, chunks)
	if err == nil {
		t.Fatal("expected commit failure to surface")
	}
	if !strings.Contains(err.Error(), "deadlock detected") {
		t.Errorf("err = %v, want commit error", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresResolveCourse(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, stubEmbedder{}, config.SearchConfig{})
	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT title, embedding <=> $1::vector AS distance
FROM courses
ORDER BY embedding <=> $1::vector
LIMIT 1
`)).
		WithArgs("[0.1,0.2]").
		WillReturnRows(sqlmock.NewRows([]string{"title", "distance"}).AddRow("Intro to MCP", 0.12))

	got, err := st.ResolveCourse(context.Background(), "MCP")
	if err != nil {
		t.Fatalf("ResolveCourse: %v", err)
	}
	if got != "Intro to MCP" {
		t.Errorf("resolved = %q, want %q", got, "Intro to MCP")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresResolveCourseBelowFloor(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, stubEmbedder{}, config.SearchConfig{MinSimilarity: 0.9})
	mock.ExpectQuery("SELECT title").
		WillReturnRows(sqlmock.NewRows([]string{"title", "distance"}).AddRow("Intro to MCP", 0.8))

	_, err = st.ResolveCourse(context.Background(), "nothing like it")
	if !errors.Is(err, models.ErrCourseNotFound) {
		t.Fatalf("err = %v, want ErrCourseNotFound", err)
	}
}

func TestPostgresSearch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, stubEmbedder{}, config.SearchConfig{})
	rows := sqlmock.NewRows([]string{"content", "course_title", "lesson_number", "chunk_index", "distance"}).
		AddRow("Course Intro to MCP Lesson 1: servers", "Intro to MCP", 1, 0, 0.1).
		AddRow("Course Intro to MCP Lesson 2: clients", "Intro to MCP", 2, 1, 0.3)
	mock.ExpectQuery("SELECT content, course_title").
		WithArgs("[0.1,0.2]", "", -1, 5).
		WillReturnRows(rows)

	res := st.Search(context.Background(), "servers", "", nil, 5)
	if res.Err != nil {
		t.Fatalf("Search: %v", res.Err)
	}
	if len(res.Documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(res.Documents))
	}
	if got := res.Metadata[0].Score; got != 0.9 {
		t.Errorf("score = %v, want 0.9", got)
	}
	if res.Metadata[1].LessonNum != 2 {
		t.Errorf("lesson = %d, want 2", res.Metadata[1].LessonNum)
	}
}

func TestPostgresSearchQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, stubEmbedder{}, config.SearchConfig{})
	mock.ExpectQuery("SELECT content, course_title").
		WillReturnError(errors.New("connection reset"))

	res := st.Search(context.Background(), "servers", "", nil, 5)
	if res.Err == nil {
		t.Fatal("expected error-bearing result")
	}
	if len(res.Documents) != 0 {
		t.Errorf("documents = %d, want 0", len(res.Documents))
	}
}
