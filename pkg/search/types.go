// Package search answers read-only queries against a trained self-organizing map.
//
// Two engines are provided. MovieSearchEngine scores every map node with a
// weighted sum of tag components and returns the movies indexed under the best
// nodes. TagSearchEngine ranks genome tags by how similar (or how enclosed)
// their activation is across the whole map compared to the requested tags.
//
// Both engines are pure functions of a frozen map, its index and the request,
// and are safe for concurrent use.
package search

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTagOutOfRange is returned when a tag component does not exist in the map's node vectors.
	ErrTagOutOfRange = errors.New("search: tag component out of range")
	// ErrUnknownMethod is returned when a tag request names an unsupported matching method.
	ErrUnknownMethod = errors.New("search: unknown matching method")
	// ErrInvalidCount is returned when a request limits results to a negative count.
	ErrInvalidCount = errors.New("search: count must not be negative")
)

// Movie is the display record of an indexed movie.
type Movie struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	IMDbID string `json:"imdbID"`
	TMDbID string `json:"tmdbID"`
}

// PrioritizedTag is a requested tag with its weight.
type PrioritizedTag struct {
	Tag      string  `json:"tag"`
	Priority float32 `json:"priority"`
}

// MovieSearchRequest asks for movies located on nodes that score high for a weighted tag set.
type MovieSearchRequest struct {
	Tags      []PrioritizedTag `json:"tags"`
	Threshold *float32         `json:"threshold,omitempty"`
	Count     *int             `json:"count,omitempty"`
}

// Validate rejects requests that cannot be answered.
func (r MovieSearchRequest) Validate() error {
	if r.Count != nil && *r.Count < 0 {
		return ErrInvalidCount
	}
	return nil
}

// MovieSearchResponse echoes the request with the ranked movies.
type MovieSearchResponse struct {
	Request MovieSearchRequest `json:"request"`
	Movies  []Movie            `json:"movies"`
}

// MatchingMethod selects how tag activations are compared.
type MatchingMethod string

const (
	// Enclosed only counts nodes where the candidate tag is stronger than the
	// requested tag.
	Enclosed MatchingMethod = "enclosed"
	// Similar counts the plain squared difference on every node.
	Similar MatchingMethod = "similar"
)

// ParseMatchingMethod validates a method name.
func ParseMatchingMethod(name string) (MatchingMethod, error) {
	switch m := MatchingMethod(name); m {
	case Enclosed, Similar:
		return m, nil
	default:
		return "", fmt.Errorf("%w: '%s' (expected enclosed or similar)", ErrUnknownMethod, name)
	}
}

// UnmarshalJSON rejects unknown method names.
func (m *MatchingMethod) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseMatchingMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// TagSimilarityRequest asks for tags related to a set of tags.
type TagSimilarityRequest struct {
	Tags      []string       `json:"tags"`
	Method    MatchingMethod `json:"method"`
	Threshold *float32       `json:"threshold,omitempty"`
	Count     *int           `json:"count,omitempty"`
}

// Validate rejects requests that cannot be answered.
func (r TagSimilarityRequest) Validate() error {
	if _, err := ParseMatchingMethod(string(r.Method)); err != nil {
		return err
	}
	if r.Count != nil && *r.Count < 0 {
		return ErrInvalidCount
	}
	return nil
}

// MatchedTag is a tag with its score. Lower scores are closer matches.
type MatchedTag struct {
	Tag   string  `json:"tag"`
	Score float32 `json:"score"`
}

// TagSimilarityResponse echoes the request with the ranked tags.
type TagSimilarityResponse struct {
	Request TagSimilarityRequest `json:"request"`
	Matches []MatchedTag         `json:"matches"`
}

// truncate limits n results to an optional count.
func truncate(n int, count *int) int {
	if count == nil {
		return n
	}
	return max(0, min(n, *count))
}
