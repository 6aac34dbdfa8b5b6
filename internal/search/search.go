package search

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/joelkehle/research-assistant/internal/plan"
)

// TitleSimilarityThreshold is the position-wise character match fraction at
// or above which two normalized titles count as the same paper.
const TitleSimilarityThreshold = 0.9

// Searcher fans queries out to its backends concurrently and merges the
// results deterministically. The cache is advisory and process-wide; a
// duplicated fill is wasteful but harmless.
type Searcher struct {
	backends map[plan.Source]Backend

	mu    sync.Mutex
	cache map[string][]Result
}

func NewSearcher(backends ...Backend) *Searcher {
	m := make(map[plan.Source]Backend, len(backends))
	for _, b := range backends {
		m[b.Source()] = b
	}
	return &Searcher{backends: m, cache: make(map[string][]Result)}
}

// Run executes every (query, source) pair concurrently and waits for all of
// them. Output order is deterministic regardless of completion order: input
// query order, paper_index before web within a query, source-returned order
// within a source. Failed calls are logged and contribute nothing. The
// merged output is deduplicated by normalized title.
func (s *Searcher) Run(ctx context.Context, queries []plan.Query) []Result {
	type slotKey struct{ query, source int }
	slots := make(map[slotKey][]Result)
	failed := make([]bool, len(queries))
	var slotMu sync.Mutex

	cached := make([][]Result, len(queries))
	fromCache := make([]bool, len(queries))
	sources := make([][]plan.Source, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		sources[i] = orderSources(q.Sources)
		if hit, ok := s.cacheGet(q); ok {
			cached[i] = hit
			fromCache[i] = true
			continue
		}
		for j, src := range sources[i] {
			backend, ok := s.backends[src]
			if !ok {
				log.Printf("research-assistant search_warn query=%q source=%s err=\"no backend configured\"", q.Text, src)
				continue
			}
			i, j, q, src := i, j, q, backend
			g.Go(func() error {
				results, err := src.Search(gctx, q.Text, q.MaxResults)
				slotMu.Lock()
				defer slotMu.Unlock()
				if err != nil {
					log.Printf("research-assistant search_warn query=%q source=%s err=%q", q.Text, src.Source(), err.Error())
					failed[i] = true
					return nil
				}
				slots[slotKey{i, j}] = results
				return nil
			})
		}
	}
	_ = g.Wait()

	var merged []Result
	for i, q := range queries {
		if fromCache[i] {
			merged = append(merged, cached[i]...)
			continue
		}
		var perQuery []Result
		for j := range sources[i] {
			perQuery = append(perQuery, slots[slotKey{i, j}]...)
		}
		// Only fully completed queries are cached; a query with a failed
		// source is retried on the next run.
		if !failed[i] {
			s.cachePut(q, perQuery)
		}
		merged = append(merged, perQuery...)
	}
	return Dedup(merged)
}

func orderSources(in []plan.Source) []plan.Source {
	seen := map[plan.Source]bool{}
	var out []plan.Source
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a] == plan.SourcePaperIndex && out[b] != plan.SourcePaperIndex
	})
	return out
}

func cacheKey(q plan.Query) string {
	srcs := make([]string, 0, len(q.Sources))
	for _, s := range orderSources(q.Sources) {
		srcs = append(srcs, string(s))
	}
	return fmt.Sprintf("%s|%s|%d", q.Text, strings.Join(srcs, ","), q.MaxResults)
}

func (s *Searcher) cacheGet(q plan.Query) ([]Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hit, ok := s.cache[cacheKey(q)]
	return hit, ok
}

// cachePut records a completed query. Zero-result queries are cached too,
// as an empty non-nil slice, so repeating them costs no backend calls.
func (s *Searcher) cachePut(q plan.Query, results []Result) {
	if results == nil {
		results = []Result{}
	}
	s.mu.Lock()
	s.cache[cacheKey(q)] = results
	s.mu.Unlock()
}

// Dedup removes duplicate results by normalized title, keeping the first
// copy encountered. Untitled results are dropped. The operation is
// idempotent.
func Dedup(results []Result) []Result {
	var seen []string
	var out []Result
	for _, r := range results {
		title := strings.ToLower(strings.TrimSpace(r.Title))
		if title == "" {
			continue
		}
		dup := false
		for _, prev := range seen {
			if similarTitles(title, prev) {
				dup = true
				break
			}
		}
		if !dup {
			seen = append(seen, title)
			out = append(out, r)
		}
	}
	return out
}

// truncateRunes caps s at n runes without splitting a multi-byte rune.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// similarTitles compares two normalized titles position by position. The
// match fraction is computed over the longer title, so unequal-length tails
// count as mismatches.
func similarTitles(a, b string) bool {
	if a == b {
		return true
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return false
	}
	shorter := len(a)
	if len(b) < shorter {
		shorter = len(b)
	}
	matches := 0
	for i := 0; i < shorter; i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches)/float64(longer) >= TitleSimilarityThreshold
}
