package search

import (
	"context"
	"slices"
	"time"

	"github.com/sanonone/genomemap/pkg/metrics"
)

// nodeScore is a node with its weighted tag activation.
type nodeScore struct {
	node  int
	score float32
}

// MovieSearchEngine finds movies on map nodes that activate a weighted tag set.
type MovieSearchEngine struct {
	index *MovieIndex
}

// NewMovieSearchEngine wraps an index.
func NewMovieSearchEngine(index *MovieIndex) *MovieSearchEngine {
	return &MovieSearchEngine{index: index}
}

// Index returns the underlying index.
func (e *MovieSearchEngine) Index() *MovieIndex { return e.index }

// FindMovies scores every node as the priority-weighted sum of the requested
// tag components, keeps nodes scoring at least the optional threshold and
// returns the movies located on them, best nodes first.
//
// Unknown tags are ignored. With no usable tags every node scores 0.
func (e *MovieSearchEngine) FindMovies(ctx context.Context, req MovieSearchRequest) (MovieSearchResponse, error) {
	start := time.Now()
	resp := MovieSearchResponse{Request: req, Movies: []Movie{}}
	if err := req.Validate(); err != nil {
		return resp, err
	}

	type weight struct {
		component int
		priority  float32
	}
	weights := make([]weight, 0, len(req.Tags))
	for _, t := range req.Tags {
		if c, ok := e.index.Tags.Lookup(t.Tag); ok {
			weights = append(weights, weight{c, t.Priority})
		}
	}

	m := e.index.Map
	scores := make([]nodeScore, 0, m.Len())
	for i, node := range m.Nodes() {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return resp, err
			}
		}
		var s float32
		for _, w := range weights {
			s += w.priority * node[w.component]
		}
		if req.Threshold == nil || s >= *req.Threshold {
			scores = append(scores, nodeScore{i, s})
		}
	}
	slices.SortStableFunc(scores, func(a, b nodeScore) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})

	limit := truncate(len(e.index.Movies), req.Count)
	for _, ns := range scores {
		if len(resp.Movies) >= limit {
			break
		}
		for _, id := range e.index.Nodes.EntitiesAt(ns.node) {
			movie, ok := e.index.Movies[id]
			if !ok {
				continue
			}
			resp.Movies = append(resp.Movies, movie)
			if len(resp.Movies) >= limit {
				break
			}
		}
	}

	metrics.SearchDuration.WithLabelValues("movies").Observe(time.Since(start).Seconds())
	metrics.SearchResults.WithLabelValues("movies").Observe(float64(len(resp.Movies)))
	return resp, nil
}
