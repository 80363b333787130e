package search

import (
	"cmp"
	"context"
	"math"
	"slices"
	"time"

	"github.com/sanonone/genomemap/pkg/metrics"
)

// TagSearchEngine ranks tags by how their activation across the map compares
// to the activation of the requested tags.
type TagSearchEngine struct {
	index *TagIndex
}

// NewTagSearchEngine wraps an index.
func NewTagSearchEngine(index *TagIndex) *TagSearchEngine {
	return &TagSearchEngine{index: index}
}

// Index returns the underlying index.
func (e *TagSearchEngine) Index() *TagIndex { return e.index }

// SimilarTags scores every catalog tag that was not requested. For each
// requested tag the score adds the L2 norm, over all nodes, of the candidate's
// activation minus the requested tag's activation. The enclosed method clamps
// negative differences to zero. Tags scoring at most the threshold are returned
// in ascending score order; ties keep name order.
//
// Unknown requested tags are ignored. Without a threshold every candidate is kept.
func (e *TagSearchEngine) SimilarTags(ctx context.Context, req TagSimilarityRequest) (TagSimilarityResponse, error) {
	start := time.Now()
	resp := TagSimilarityResponse{Request: req, Matches: []MatchedTag{}}
	if err := req.Validate(); err != nil {
		return resp, err
	}

	requested := make(map[string]struct{}, len(req.Tags))
	components := make([]int, 0, len(req.Tags))
	for _, name := range req.Tags {
		if _, dup := requested[name]; dup {
			continue
		}
		requested[name] = struct{}{}
		if c, ok := e.index.Tags.Lookup(name); ok {
			components = append(components, c)
		}
	}

	enclosed := req.Method == Enclosed
	nodes := e.index.Map.Nodes()

	var scanErr error
	e.index.Tags.Scan(func(name string, candidate int) bool {
		if _, skip := requested[name]; skip {
			return true
		}
		if err := ctx.Err(); err != nil {
			scanErr = err
			return false
		}
		var score float64
		for _, c := range components {
			var sum float64
			for _, node := range nodes {
				diff := float64(node[candidate] - node[c])
				if enclosed && diff < 0 {
					continue
				}
				sum += diff * diff
			}
			score += math.Sqrt(sum)
		}
		if s := float32(score); req.Threshold == nil || s <= *req.Threshold {
			resp.Matches = append(resp.Matches, MatchedTag{Tag: name, Score: s})
		}
		return true
	})
	if scanErr != nil {
		return resp, scanErr
	}

	slices.SortStableFunc(resp.Matches, func(a, b MatchedTag) int {
		return cmp.Compare(a.Score, b.Score)
	})
	resp.Matches = resp.Matches[:truncate(len(resp.Matches), req.Count)]

	metrics.SearchDuration.WithLabelValues("tags").Observe(time.Since(start).Seconds())
	metrics.SearchResults.WithLabelValues("tags").Observe(float64(len(resp.Matches)))
	return resp, nil
}
