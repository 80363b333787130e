package search

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"github.com/sanonone/genomemap/pkg/genome"
	"github.com/sanonone/genomemap/pkg/metrics"
	"github.com/sanonone/genomemap/pkg/som"
	"github.com/tidwall/btree"
	"golang.org/x/sync/errgroup"
)

// NodeIndex groups entity ids by the flat index of their best matching unit.
// It is built once from a frozen map and never modified.
type NodeIndex struct {
	nodes    *btree.Map[int, []int]
	entities int
}

// BuildNodeIndex runs one BMU search per entity and groups the ids by node.
// Entity ids within a node are ascending, so the result is deterministic.
// workers <= 0 uses GOMAXPROCS.
func BuildNodeIndex(ctx context.Context, m *som.Map, vectors map[int][]float32, workers int) (*NodeIndex, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ids := make([]int, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	bmus := make([]int, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	chunk := max(1, (len(ids)+workers-1)/workers)
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		g.Go(func() error {
			for k := start; k < end; k++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				bmu, err := m.BestMatchingUnit(vectors[ids[k]])
				if err != nil {
					return fmt.Errorf("entity %d: %w", ids[k], err)
				}
				bmus[k] = bmu
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := &NodeIndex{nodes: btree.NewMap[int, []int](0), entities: len(ids)}
	for k, id := range ids {
		group, _ := idx.nodes.Get(bmus[k])
		idx.nodes.Set(bmus[k], append(group, id))
	}
	return idx, nil
}

// EntitiesAt returns the ids whose best matching unit is node i, in ascending
// order. The returned slice must not be modified.
func (x *NodeIndex) EntitiesAt(i int) []int {
	ids, _ := x.nodes.Get(i)
	return ids
}

// Len returns the number of indexed entities.
func (x *NodeIndex) Len() int { return x.entities }

// OccupiedNodes returns the number of nodes with at least one entity.
func (x *NodeIndex) OccupiedNodes() int { return x.nodes.Len() }

// Scan calls fn for every occupied node in ascending order until fn returns false.
func (x *NodeIndex) Scan(fn func(node int, ids []int) bool) {
	x.nodes.Scan(fn)
}

// MovieIndex holds everything the movie engine needs.
type MovieIndex struct {
	Map    *som.Map
	Tags   *Catalog
	Nodes  *NodeIndex
	Movies map[int]Movie
}

// NewMovieIndex places every movie vector on the map and attaches display records.
// Movies without a display record are still indexed; the engine drops them from results.
func NewMovieIndex(ctx context.Context, m *som.Map, vectors map[int][]float32, tags map[int]string, movies map[int]Movie, workers int) (*MovieIndex, error) {
	catalog := NewCatalog(tags)
	if err := catalog.Validate(m.OutputSize()); err != nil {
		return nil, err
	}
	nodes, err := BuildNodeIndex(ctx, m, vectors, workers)
	if err != nil {
		return nil, err
	}
	if movies == nil {
		movies = map[int]Movie{}
	}
	metrics.IndexedEntities.WithLabelValues("movies").Set(float64(nodes.Len()))
	return &MovieIndex{Map: m, Tags: catalog, Nodes: nodes, Movies: movies}, nil
}

// TagIndex holds the map and tag catalog used by the tag engine.
type TagIndex struct {
	Map  *som.Map
	Tags *Catalog
}

// NewTagIndex validates that every tag addresses a node component.
func NewTagIndex(m *som.Map, tags map[int]string) (*TagIndex, error) {
	catalog := NewCatalog(tags)
	if err := catalog.Validate(m.OutputSize()); err != nil {
		return nil, err
	}
	metrics.IndexedEntities.WithLabelValues("tags").Set(float64(catalog.Len()))
	return &TagIndex{Map: m, Tags: catalog}, nil
}

// MergeMovies combines titles and external links into display records.
// Only movies with a title produce a record; links are optional.
func MergeMovies(titles map[int]string, links map[int]genome.Link) map[int]Movie {
	movies := make(map[int]Movie, len(titles))
	for id, title := range titles {
		if title == "" {
			continue
		}
		l := links[id]
		movies[id] = Movie{ID: id, Title: title, IMDbID: l.IMDbID, TMDbID: l.TMDbID}
	}
	return movies
}

// MapInfo describes the map and indexes behind a query API.
type MapInfo struct {
	Dimensions    []int  `json:"dimensions"`
	Nodes         int    `json:"nodes"`
	OutputSize    int    `json:"outputSize"`
	Metric        string `json:"metric"`
	Tags          int    `json:"tags"`
	Movies        int    `json:"movies"`
	IndexedMovies int    `json:"indexedMovies"`
	OccupiedNodes int    `json:"occupiedNodes"`
}

// Info summarizes the index.
func (x *MovieIndex) Info() MapInfo {
	return MapInfo{
		Dimensions:    x.Map.DimensionSizes(),
		Nodes:         x.Map.Len(),
		OutputSize:    x.Map.OutputSize(),
		Metric:        string(x.Map.Metric()),
		Tags:          x.Tags.Len(),
		Movies:        len(x.Movies),
		IndexedMovies: x.Nodes.Len(),
		OccupiedNodes: x.Nodes.OccupiedNodes(),
	}
}
