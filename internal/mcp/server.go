// Package mcp exposes the search engines as Model Context Protocol tools.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sanonone/genomemap/pkg/search"
)

func NewMCPServer(movies *search.MovieSearchEngine, tags *search.TagSearchEngine, version string) *mcp.Server {
	service := NewService(movies, tags)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "genomemap",
		Version: version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "search_movies",
		Description: "Find movies matching a weighted set of genome tags (e.g. 'dark' 1.0, 'funny' -0.5) using a self-organizing map of the tag genome.",
	}, service.SearchMovies)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "search_tags",
		Description: "Find genome tags whose distribution over the map is similar to, or encloses, the given tags. Lower scores are closer.",
	}, service.SearchTags)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "map_info",
		Description: "Describe the loaded map: lattice dimensions, number of tags and indexed movies.",
	}, service.MapInfo)

	return s
}
