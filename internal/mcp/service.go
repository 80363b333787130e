package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sanonone/genomemap/pkg/search"
)

// defaultCount keeps tool answers small enough for a model context.
const defaultCount = 20

type Service struct {
	movies *search.MovieSearchEngine
	tags   *search.TagSearchEngine
}

func NewService(movies *search.MovieSearchEngine, tags *search.TagSearchEngine) *Service {
	return &Service{movies: movies, tags: tags}
}

func countOrDefault(count *int) *int {
	if count != nil {
		return count
	}
	n := defaultCount
	return &n
}

// --- Tool Handlers ---

func (s *Service) SearchMovies(ctx context.Context, req *mcp.CallToolRequest, args SearchMoviesArgs) (*mcp.CallToolResult, search.MovieSearchResponse, error) {
	query := search.MovieSearchRequest{
		Tags:      make([]search.PrioritizedTag, len(args.Tags)),
		Threshold: args.Threshold,
		Count:     countOrDefault(args.Count),
	}
	for i, t := range args.Tags {
		query.Tags[i] = search.PrioritizedTag{Tag: t.Tag, Priority: t.Priority}
	}

	resp, err := s.movies.FindMovies(ctx, query)
	if err != nil {
		return nil, search.MovieSearchResponse{}, err
	}
	return nil, resp, nil
}

func (s *Service) SearchTags(ctx context.Context, req *mcp.CallToolRequest, args SearchTagsArgs) (*mcp.CallToolResult, search.TagSimilarityResponse, error) {
	method := search.Similar
	if args.Method != "" {
		m, err := search.ParseMatchingMethod(args.Method)
		if err != nil {
			return nil, search.TagSimilarityResponse{}, err
		}
		method = m
	}
	query := search.TagSimilarityRequest{
		Tags:      args.Tags,
		Method:    method,
		Threshold: args.Threshold,
		Count:     countOrDefault(args.Count),
	}

	resp, err := s.tags.SimilarTags(ctx, query)
	if err != nil {
		return nil, search.TagSimilarityResponse{}, err
	}
	return nil, resp, nil
}

func (s *Service) MapInfo(ctx context.Context, req *mcp.CallToolRequest, args MapInfoArgs) (*mcp.CallToolResult, search.MapInfo, error) {
	return nil, s.movies.Index().Info(), nil
}
