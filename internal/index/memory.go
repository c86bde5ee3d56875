package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/mohammad-safakhou/tutor/config"
	"github.com/mohammad-safakhou/tutor/models"
)

type catalogEntry struct {
	course models.Course
	vec    []float32
}

type contentEntry struct {
	chunk models.Chunk
	vec   []float32
}

// MemoryStore keeps both indexes in memory: cosine similarity over embedded
// vectors, plus an optional bleve BM25 side fused in with reciprocal-rank
// fusion for hybrid retrieval. Safe for concurrent readers; writes happen
// during ingestion.
type MemoryStore struct {
	embedder Embedder
	hybrid   bool
	minSim   float64

	mu      sync.RWMutex
	catalog map[string]catalogEntry
	content map[string]contentEntry
	keyword bleve.Index
}

type keywordDoc struct {
	Content string `json:"content"`
}

func NewMemoryStore(embedder Embedder, cfg config.SearchConfig) (*MemoryStore, error) {
	kw, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating keyword index: %w", err)
	}
	return &MemoryStore{
		embedder: embedder,
		hybrid:   cfg.Hybrid,
		minSim:   cfg.MinSimilarity,
		catalog:  make(map[string]catalogEntry),
		content:  make(map[string]contentEntry),
		keyword:  kw,
	}, nil
}

func chunkID(title string, index int) string {
	return fmt.Sprintf("%s#%04d", title, index)
}

func (s *MemoryStore) AddCourse(ctx context.Context, course models.Course, chunks []models.Chunk) error {
	texts := make([]string, 0, len(chunks)+1)
	texts = append(texts, course.Title)
	for _, ch := range chunks {
		texts = append(texts, ch.Content)
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding course %q: %w", course.Title, err)
	}
	if len(vecs) != len(texts) {
		return fmt.Errorf("embedding course %q: got %d vectors for %d texts", course.Title, len(vecs), len(texts))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Upsert: drop any previous content entries for this title first.
	for id, e := range s.content {
		if e.chunk.CourseTitle == course.Title {
			delete(s.content, id)
			if err := s.keyword.Delete(id); err != nil {
				return fmt.Errorf("removing stale chunk %s: %w", id, err)
			}
		}
	}
	s.catalog[course.Title] = catalogEntry{course: course, vec: vecs[0]}
	for i, ch := range chunks {
		id := chunkID(ch.CourseTitle, ch.Index)
		s.content[id] = contentEntry{chunk: ch, vec: vecs[i+1]}
		if err := s.keyword.Index(id, keywordDoc{Content: ch.Content}); err != nil {
			return fmt.Errorf("indexing chunk %s: %w", id, err)
		}
	}
	return nil
}

func (s *MemoryStore) ExistingTitles(ctx context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.catalog))
	for title := range s.catalog {
		out[title] = struct{}{}
	}
	return out, nil
}

func (s *MemoryStore) ResolveCourse(ctx context.Context, name string) (string, error) {
	vecs, err := s.embedder.Embed(ctx, []string{name})
	if err != nil {
		return "", fmt.Errorf("embedding course name %q: %w", name, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	best, bestScore := "", -1.0
	for title, e := range s.catalog {
		if score := cosine(vecs[0], e.vec); score > bestScore {
			best, bestScore = title, score
		}
	}
	if best == "" {
		return "", models.ErrCourseNotFound
	}
	if s.minSim > 0 && bestScore < s.minSim {
		return "", models.ErrCourseNotFound
	}
	return best, nil
}

func (s *MemoryStore) GetCourse(ctx context.Context, title string) (models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.catalog[title]
	if !ok {
		return models.Course{}, models.ErrCourseNotFound
	}
	return e.course, nil
}

func (s *MemoryStore) Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) models.SearchResults {
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
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return models.EmptyResults(fmt.Errorf("embedding query: %w", err))
	}

	match := func(ch models.Chunk) bool {
		if courseFilter != "" && ch.CourseTitle != courseFilter {
			return false
		}
		if lessonNumber != nil && ch.LessonNum != *lessonNumber {
			return false
		}
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	semantic := s.vectorHits(vecs[0], match, limit*3)
	hits := semantic
	if s.hybrid {
		kw, err := s.keywordHits(query, match, limit*3)
		if err != nil {
			return models.EmptyResults(fmt.Errorf("keyword search: %w", err))
		}
		hits = fuseRRF(semantic, kw, limit)
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	var res models.SearchResults
	for _, h := range hits {
		e := s.content[h.id]
		res.Documents = append(res.Documents, e.chunk.Content)
		res.Metadata = append(res.Metadata, models.ChunkMeta{
			CourseTitle: e.chunk.CourseTitle,
			LessonNum:   e.chunk.LessonNum,
			Index:       e.chunk.Index,
			Score:       h.score,
		})
	}
	return res
}

// vectorHits ranks matching content entries by cosine similarity. Callers
// hold at least a read lock.
func (s *MemoryStore) vectorHits(query []float32, match func(models.Chunk) bool, k int) []rankedHit {
	type scored struct {
		id    string
		score float64
	}
	var scoreds []scored
	for id, e := range s.content {
		if !match(e.chunk) {
			continue
		}
		score := cosine(query, e.vec)
		if s.minSim > 0 && score < s.minSim {
			continue
		}
		scoreds = append(scoreds, scored{id: id, score: score})
	}
	sort.Slice(scoreds, func(i, j int) bool {
		if scoreds[i].score != scoreds[j].score {
			return scoreds[i].score > scoreds[j].score
		}
		return scoreds[i].id < scoreds[j].id
	})
	if len(scoreds) > k {
		scoreds = scoreds[:k]
	}
	out := make([]rankedHit, 0, len(scoreds))
	for i, sc := range scoreds {
		out = append(out, rankedHit{id: sc.id, score: sc.score, rank: i + 1})
	}
	return out
}

// keywordHits runs the BM25 side and filters hits with the same metadata
// predicate as the vector side. Callers hold at least a read lock.
func (s *MemoryStore) keywordHits(query string, match func(models.Chunk) bool, k int) ([]rankedHit, error) {
	q := bleve.NewMatchQuery(strings.TrimSpace(query))
	req := bleve.NewSearchRequestOptions(q, k*3, 0, false)
	res, err := s.keyword.Search(req)
	if err != nil {
		return nil, err
	}
	var out []rankedHit
	for _, hit := range res.Hits {
		e, ok := s.content[hit.ID]
		if !ok || !match(e.chunk) {
			continue
		}
		out = append(out, rankedHit{id: hit.ID, score: hit.Score, rank: len(out) + 1})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (models.CatalogStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	titles := make([]string, 0, len(s.catalog))
	for title := range s.catalog {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return models.CatalogStats{TotalCourses: len(titles), CourseTitles: titles}, nil
}
