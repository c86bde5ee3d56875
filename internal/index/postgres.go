package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/tutor/config"
	"github.com/mohammad-safakhou/tutor/models"
)

// PostgresStore persists both indexes in postgres with pgvector columns.
// Nearest-neighbor queries use the cosine distance operator so search
// scoping happens at the index level, not via in-memory post-filtering.
type PostgresStore struct {
	db     *sql.DB
	embed  Embedder
	minSim float64
}

func NewPostgresStore(db *sql.DB, embedder Embedder, cfg config.SearchConfig) *PostgresStore {
	return &PostgresStore{db: db, embed: embedder, minSim: cfg.MinSimilarity}
}

// OpenPostgres connects and pings using the configured DSN.
func OpenPostgres(cfg config.PostgresConfig) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return db, nil
}

// AddCourse upserts the catalog row and replaces the course's chunks in one
// transaction. The error return is named so the deferred commit's failure is
// what the caller sees.
func (s *PostgresStore) AddCourse(ctx context.Context, course models.Course, chunks []models.Chunk) (err error) {
	texts := make([]string, 0, len(chunks)+1)
	texts = append(texts, course.Title)
	for _, ch := range chunks {
		texts = append(texts, ch.Content)
	}
	vecs, err := s.embed.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding course %q: %w", course.Title, err)
	}
	if len(vecs) != len(texts) {
		return fmt.Errorf("embedding course %q: got %d vectors for %d texts", course.Title, len(vecs), len(texts))
	}
	titleVec, err := encodeVectorLiteral(vecs[0])
	if err != nil {
		return err
	}
	lessons, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("marshal lessons: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO courses (title, link, instructor, lessons, embedding, created_at)
VALUES ($1,$2,$3,$4,$5::vector,NOW())
ON CONFLICT (title) DO UPDATE SET
  link = EXCLUDED.link,
  instructor = EXCLUDED.instructor,
  lessons = EXCLUDED.lessons,
  embedding = EXCLUDED.embedding;
`, course.Title, course.Link, course.Instructor, lessons, titleVec)
	if err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM course_chunks WHERE course_title=$1`, course.Title); err != nil {
		return fmt.Errorf("delete existing chunks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO course_chunks (course_title, lesson_number, chunk_index, content, embedding)
VALUES ($1,$2,$3,$4,$5::vector);
`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, ch := range chunks {
		var lit string
		lit, err = encodeVectorLiteral(vecs[i+1])
		if err != nil {
			return err
		}
		if _, err = stmt.ExecContext(ctx, ch.CourseTitle, ch.LessonNum, ch.Index, ch.Content, lit); err != nil {
			return fmt.Errorf("insert chunk %d: %w", ch.Index, err)
		}
	}
	return nil
}

func (s *PostgresStore) ExistingTitles(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM courses`)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		out[title] = struct{}{}
	}
	return out, rows.Err()
}

func (s *PostgresStore) ResolveCourse(ctx context.Context, name string) (string, error) {
	vecs, err := s.embed.Embed(ctx, []string{name})
	if err != nil {
		return "", fmt.Errorf("embedding course name %q: %w", name, err)
	}
	lit, err := encodeVectorLiteral(vecs[0])
	if err != nil {
		return "", err
	}
	var (
		title    string
		distance float64
	)
	err = s.db.QueryRowContext(ctx, `
SELECT title, embedding <=> $1::vector AS distance
FROM courses
ORDER BY embedding <=> $1::vector
LIMIT 1
`, lit).Scan(&title, &distance)
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.ErrCourseNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolving course: %w", err)
	}
	if s.minSim > 0 && 1-distance < s.minSim {
		return "", models.ErrCourseNotFound
	}
	return title, nil
}

func (s *PostgresStore) GetCourse(ctx context.Context, title string) (models.Course, error) {
	var (
		course  models.Course
		lessons []byte
	)
	err := s.db.QueryRowContext(ctx, `
SELECT title, link, instructor, lessons FROM courses WHERE title=$1
`, title).Scan(&course.Title, &course.Link, &course.Instructor, &lessons)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Course{}, models.ErrCourseNotFound
	}
	if err != nil {
		return models.Course{}, fmt.Errorf("loading course %q: %w", title, err)
	}
	if len(lessons) > 0 {
		if err := json.Unmarshal(lessons, &course.Lessons); err != nil {
			return models.Course{}, fmt.Errorf("unmarshal lessons: %w", err)
		}
	}
	return course, nil
}

func (s *PostgresStore) Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) models.SearchResults {
	if limit <= 0 {
		limit = 5
	}
	courseFilter := ""
	if courseName != "" {
		resolved, err := s.ResolveCourse(ctx, courseName)
		if err != nil {
			return models.EmptyResults(fmt.Errorf("resolving course %q: %w", courseName, err))
		}
		courseFilter = resolved
	}
	vecs, err := s.embed.Embed(ctx, []string{query})
	if err != nil {
		return models.EmptyResults(fmt.Errorf("embedding query: %w", err))
	}
	lit, err := encodeVectorLiteral(vecs[0])
	if err != nil {
		return models.EmptyResults(err)
	}

	lesson := -1
	if lessonNumber != nil {
		lesson = *lessonNumber
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT content, course_title, lesson_number, chunk_index, embedding <=> $1::vector AS distance
FROM course_chunks
WHERE ($2 = '' OR course_title = $2)
  AND ($3 < 0 OR lesson_number = $3)
ORDER BY embedding <=> $1::vector
LIMIT $4
`, lit, courseFilter, lesson, limit)
	if err != nil {
		return models.EmptyResults(fmt.Errorf("querying content index: %w", err))
	}
	defer rows.Close()

	var res models.SearchResults
	for rows.Next() {
		var (
			doc      string
			meta     models.ChunkMeta
			distance float64
		)
		if err := rows.Scan(&doc, &meta.CourseTitle, &meta.LessonNum, &meta.Index, &distance); err != nil {
			return models.EmptyResults(fmt.Errorf("scanning content row: %w", err))
		}
		meta.Score = 1 - distance
		if s.minSim > 0 && meta.Score < s.minSim {
			continue
		}
		res.Documents = append(res.Documents, doc)
		res.Metadata = append(res.Metadata, meta)
	}
	if err := rows.Err(); err != nil {
		return models.EmptyResults(fmt.Errorf("querying content index: %w", err))
	}
	return res
}

func (s *PostgresStore) Stats(ctx context.Context) (models.CatalogStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM courses ORDER BY title`)
	if err != nil {
		return models.CatalogStats{}, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()
	stats := models.CatalogStats{CourseTitles: []string{}}
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return models.CatalogStats{}, err
		}
		stats.CourseTitles = append(stats.CourseTitles, title)
	}
	stats.TotalCourses = len(stats.CourseTitles)
	return stats, rows.Err()
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}
