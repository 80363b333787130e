package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sanonone/genomemap/pkg/core/distance"
	"github.com/sanonone/genomemap/pkg/genome"
	"github.com/sanonone/genomemap/pkg/persistence"
	"github.com/sanonone/genomemap/pkg/search"
	"github.com/sanonone/genomemap/pkg/som"
	"github.com/spf13/cobra"
)

// newInspectCmd creates the "genomemap inspect" subcommand.
func newInspectCmd() *cobra.Command {
	var (
		vectors string
		metric  string
	)

	cmd := &cobra.Command{
		Use:   "inspect <map>",
		Short: "Describe a trained map",
		Long: "Print the lattice shape of a map file. With --vectors, also place every row of\n" +
			"a score matrix on the map and report the quantization error and node occupancy.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), cmd.OutOrStdout(), args[0], metric, vectors)
		},
	}

	cmd.Flags().StringVar(&vectors, "vectors", "", "score matrix to measure the map against")
	cmd.Flags().StringVar(&metric, "metric", "", "lattice metric of a text map (default hexagonal)")

	return cmd
}

func runInspect(ctx context.Context, w io.Writer, mapPath, metricName, vectorsPath string) error {
	var metric distance.Metric
	if metricName != "" {
		m, err := distance.ParseMetric(metricName)
		if err != nil {
			return err
		}
		metric = m
	}
	m, err := persistence.LoadFile(mapPath, metric)
	if err != nil {
		return err
	}

	info := search.MapInfo{
		Dimensions: m.DimensionSizes(),
		Nodes:      m.Len(),
		OutputSize: m.OutputSize(),
		Metric:     string(m.Metric()),
	}
	fmt.Fprintf(w, "dimensions:     %v\n", info.Dimensions)
	fmt.Fprintf(w, "nodes:          %d\n", info.Nodes)
	fmt.Fprintf(w, "output size:    %d\n", info.OutputSize)
	fmt.Fprintf(w, "metric:         %s\n", info.Metric)
	if vectorsPath == "" {
		return nil
	}

	rows, err := genome.LoadVectors(vectorsPath)
	if err != nil {
		return err
	}
	samples := genome.Samples(rows)
	qe, err := som.QuantizationError(m, samples)
	if err != nil {
		return err
	}

	byRow := make(map[int][]float32, len(samples))
	for i, s := range samples {
		byRow[i] = s
	}
	nodes, err := search.BuildNodeIndex(ctx, m, byRow, 0)
	if err != nil {
		return err
	}
	busiest, busiestCount := -1, 0
	nodes.Scan(func(node int, ids []int) bool {
		if len(ids) > busiestCount {
			busiest, busiestCount = node, len(ids)
		}
		return true
	})

	fmt.Fprintf(w, "vectors:        %d\n", len(samples))
	fmt.Fprintf(w, "quantization:   %.6f\n", qe)
	fmt.Fprintf(w, "occupied nodes: %d (%.1f%%)\n", nodes.OccupiedNodes(), 100*float64(nodes.OccupiedNodes())/float64(m.Len()))
	if busiest >= 0 {
		fmt.Fprintf(w, "busiest node:   %v with %d vectors\n", m.Coordinates(busiest), busiestCount)
	}
	return nil
}
