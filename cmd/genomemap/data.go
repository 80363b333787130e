package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sanonone/genomemap/internal/config"
	"github.com/sanonone/genomemap/pkg/core/distance"
	"github.com/sanonone/genomemap/pkg/genome"
	"github.com/sanonone/genomemap/pkg/persistence"
	"github.com/sanonone/genomemap/pkg/search"
)

// dataFlags overrides the data section of the configuration.
type dataFlags struct {
	mapPath string
	tags    string
	movies  string
	links   string
	vectors string
	metric  string
}

func (f dataFlags) apply(d config.DataConfig) config.DataConfig {
	for _, o := range []struct {
		dst *string
		src string
	}{
		{&d.Map, f.mapPath},
		{&d.Tags, f.tags},
		{&d.Movies, f.movies},
		{&d.Links, f.links},
		{&d.Vectors, f.vectors},
	} {
		if o.src != "" {
			*o.dst = o.src
		}
	}
	return d
}

// engines bundles the two search engines built over one map.
type engines struct {
	Movies *search.MovieSearchEngine
	Tags   *search.TagSearchEngine
}

// loadEngines reads the map and dataset files and indexes every movie vector.
// An empty metric keeps the one stored in a snapshot.
func loadEngines(ctx context.Context, data config.DataConfig, metricName string, workers int) (engines, error) {
	start := time.Now()

	var metric distance.Metric
	if metricName != "" {
		m, err := distance.ParseMetric(metricName)
		if err != nil {
			return engines{}, err
		}
		metric = m
	}

	m, err := persistence.LoadFile(data.Map, metric)
	if err != nil {
		return engines{}, fmt.Errorf("failed to load map: %w", err)
	}
	tags, err := genome.LoadTags(data.Tags)
	if err != nil {
		return engines{}, err
	}
	titles, err := genome.LoadMovies(data.Movies)
	if err != nil {
		return engines{}, err
	}
	var links map[int]genome.Link
	if data.Links != "" {
		if links, err = genome.LoadLinks(data.Links); err != nil {
			return engines{}, err
		}
	}
	rows, err := genome.LoadVectors(data.Vectors)
	if err != nil {
		return engines{}, err
	}
	vectors, unresolved := genome.ResolveVectors(rows, titles)
	if unresolved > 0 {
		slog.Warn("Skipped vectors with unknown titles", "count", unresolved)
	}

	movieIndex, err := search.NewMovieIndex(ctx, m, vectors, tags, search.MergeMovies(titles, links), workers)
	if err != nil {
		return engines{}, err
	}
	tagIndex, err := search.NewTagIndex(m, tags)
	if err != nil {
		return engines{}, err
	}

	info := movieIndex.Info()
	slog.Info("Map loaded",
		"dimensions", info.Dimensions,
		"metric", info.Metric,
		"tags", info.Tags,
		"movies", info.Movies,
		"indexed_movies", info.IndexedMovies,
		"occupied_nodes", info.OccupiedNodes,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)

	return engines{
		Movies: search.NewMovieSearchEngine(movieIndex),
		Tags:   search.NewTagSearchEngine(tagIndex),
	}, nil
}
