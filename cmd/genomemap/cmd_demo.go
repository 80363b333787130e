package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/sanonone/genomemap/pkg/core/distance"
	"github.com/sanonone/genomemap/pkg/persistence"
	"github.com/sanonone/genomemap/pkg/som"
	"github.com/spf13/cobra"
)

const (
	demoSide    = 20
	demoSamples = 1000
)

// newDemoCmd creates the "genomemap demo" subcommand.
func newDemoCmd() *cobra.Command {
	var (
		step       int
		iterations int
		seed       int64
		output     string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Train a small map on random points of the unit square",
		Long: "Train a 20x20 Manhattan map with two-component nodes on points drawn uniformly\n" +
			"from the unit square and report how the map unfolds every --step iterations.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDemo(ctx, cmd.OutOrStdout(), step, iterations, seed, output)
		},
	}

	cmd.Flags().IntVar(&step, "step", 1000, "iterations between reports")
	cmd.Flags().IntVar(&iterations, "iterations", 10000, "total training iterations")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 seeds from the clock)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the final map to this file")

	return cmd
}

func randomSquarePoint(rng *rand.Rand) []float32 {
	return []float32{rng.Float32(), rng.Float32()}
}

func runDemo(ctx context.Context, w io.Writer, step, iterations int, seed int64, output string) error {
	if step <= 0 || iterations <= 0 {
		return errors.New("step and iterations must be positive")
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	m, err := som.New([]int{demoSide, demoSide}, 2, distance.Manhattan, rng)
	if err != nil {
		return err
	}
	eval := make([][]float32, demoSamples)
	for i := range eval {
		eval[i] = randomSquarePoint(rng)
	}

	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.Update(randomSquarePoint(rng), iterations, i, 1); err != nil {
			return err
		}
		if (i+1)%step != 0 && i+1 != iterations {
			continue
		}
		qe, err := som.QuantizationError(m, eval)
		if err != nil {
			return err
		}
		s := m.ScheduleAt(iterations, i, 1)
		fmt.Fprintf(w, "iteration %6d/%d  radius %7.3f  learning rate %.4f  quantization error %.5f\n",
			i+1, iterations, s.Radius, s.LearningRate, qe)
	}

	if output != "" {
		if err := persistence.SaveFile(output, m, persistence.FormatText, persistence.Float32); err != nil {
			return err
		}
		fmt.Fprintf(w, "saved to %s\n", output)
	}
	return nil
}
