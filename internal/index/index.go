package index

import (
	"context"
	"math"
	"sort"

	"github.com/mohammad-safakhou/tutor/models"
)

// Embedder turns text into vectors. Both indexes share one embedder so
// catalog and content entries live in the same vector space.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the dual-index interface: a catalog index over course titles and
// a content index over chunk text. Implementations must keep the two in
// lockstep — every indexed chunk's course title exists in the catalog.
type Store interface {
	// AddCourse upserts the course into the catalog index and replaces its
	// chunks in the content index. The caller checks existence first; the
	// store itself does not deduplicate.
	AddCourse(ctx context.Context, course models.Course, chunks []models.Chunk) error

	// ExistingTitles returns the set of cataloged course titles.
	ExistingTitles(ctx context.Context) (map[string]struct{}, error)

	// ResolveCourse finds the best catalog match for a possibly partial or
	// misspelled course name. Returns models.ErrCourseNotFound when the
	// catalog is empty or the best match falls below the configured
	// similarity floor.
	ResolveCourse(ctx context.Context, name string) (string, error)

	// GetCourse returns the cataloged course for an exact title.
	GetCourse(ctx context.Context, title string) (models.Course, error)

	// Search runs a bounded nearest-neighbor query on the content index.
	// When courseName is set it is resolved first; a resolution miss
	// short-circuits with an error-bearing result and issues no content
	// query. Index failures are carried in SearchResults.Err, never
	// returned as a Go error.
	Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) models.SearchResults

	// Stats summarises the catalog index.
	Stats(ctx context.Context) (models.CatalogStats, error)
}

const rrfK = 60 // reciprocal-rank-fusion constant

type rankedHit struct {
	id    string
	score float64
	rank  int
}

// fuseRRF merges two ranked lists with reciprocal-rank fusion and returns
// the top k by fused score.
func fuseRRF(a, b []rankedHit, k int) []rankedHit {
	type agg struct {
		hit   rankedHit
		fused float64
	}
	m := map[string]*agg{}
	add := func(list []rankedHit) {
		for _, h := range list {
			x, ok := m[h.id]
			if !ok {
				x = &agg{hit: h}
				m[h.id] = x
			}
			x.fused += 1.0 / float64(rrfK+h.rank)
		}
	}
	add(a)
	add(b)
	items := make([]*agg, 0, len(m))
	for _, v := range m {
		items = append(items, v)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].fused != items[j].fused {
			return items[i].fused > items[j].fused
		}
		return items[i].hit.id < items[j].hit.id
	})
	if len(items) > k {
		items = items[:k]
	}
	out := make([]rankedHit, 0, len(items))
	for i, v := range items {
		out = append(out, rankedHit{id: v.hit.id, score: v.fused, rank: i + 1})
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
