package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sanonone/genomemap/internal/config"
	"github.com/sanonone/genomemap/pkg/core/distance"
	"github.com/sanonone/genomemap/pkg/genome"
	"github.com/sanonone/genomemap/pkg/persistence"
	"github.com/sanonone/genomemap/pkg/som"
	"github.com/spf13/cobra"
)

// trainOptions describes one training run.
type trainOptions struct {
	Width              int
	Height             int
	Epochs             int
	Dataset            string
	Output             string
	Metric             string
	NeighbourhoodScale float64
	DecayFraction      float64
	Seed               int64
	Format             string
	Precision          string
}

// trainOptionsFrom fills a run from the training section of the configuration.
func trainOptionsFrom(t config.TrainingConfig) trainOptions {
	return trainOptions{
		Width:              t.Width,
		Height:             t.Height,
		Epochs:             t.Epochs,
		Metric:             t.Metric,
		NeighbourhoodScale: t.NeighbourhoodScale,
		DecayFraction:      t.DecayFraction,
		Seed:               t.Seed,
		Format:             t.Format,
		Precision:          t.Precision,
	}
}

// newTrainCmd creates the "genomemap train" subcommand.
func newTrainCmd(global *globalOptions) *cobra.Command {
	var (
		output    string
		nscale    float64
		decay     float64
		metric    string
		seed      int64
		format    string
		precision string
	)

	cmd := &cobra.Command{
		Use:   "train [<width> <height> <epochs>] [dataset]",
		Short: "Train a map on a score matrix",
		Long: "Train a two-dimensional map of width x height nodes for the given number of\n" +
			"epochs. Every epoch updates the map with one randomly drawn row of the dataset.\n" +
			"Omitted arguments come from the training and data sections of the configuration.",
		Args: func(cmd *cobra.Command, args []string) error {
			switch len(args) {
			case 0, 1, 3, 4:
				return nil
			default:
				return fmt.Errorf("expected [<width> <height> <epochs>] [dataset], got %d arguments", len(args))
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := trainArgs(trainOptionsFrom(global.cfg.Training), global.cfg.Data, args)
			if err != nil {
				return err
			}
			if output != "" {
				opts.Output = output
			}

			flags := cmd.Flags()
			if flags.Changed("nscale") {
				opts.NeighbourhoodScale = nscale
			}
			if flags.Changed("decay") {
				opts.DecayFraction = decay
			}
			if flags.Changed("metric") {
				opts.Metric = metric
			}
			if flags.Changed("seed") {
				opts.Seed = seed
			}
			if flags.Changed("format") {
				opts.Format = format
			}
			if flags.Changed("precision") {
				opts.Precision = precision
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runTrain(ctx, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file the trained map is written to (default data.map)")
	cmd.Flags().Float64Var(&nscale, "nscale", 1, "neighbourhood scale; values above 1 widen the neighbourhood")
	cmd.Flags().Float64Var(&decay, "decay", 0.8, "share of the epochs over which radius and learning rate decay")
	cmd.Flags().StringVar(&metric, "metric", string(distance.Hexagonal), "lattice metric: hexagonal, euclidean or manhattan")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 seeds from the clock)")
	cmd.Flags().StringVar(&format, "format", string(persistence.FormatText), "output format: text or snapshot")
	cmd.Flags().StringVar(&precision, "precision", string(persistence.Float32), "snapshot precision: float32 or float16")

	return cmd
}

// trainArgs applies the positional arguments over opts. Width, height and
// epochs are given together or not at all; the dataset and output default to
// the configured vectors and map files.
func trainArgs(opts trainOptions, data config.DataConfig, args []string) (trainOptions, error) {
	opts.Dataset, opts.Output = data.Vectors, data.Map
	n := len(args)
	if n >= 3 {
		var err error
		if opts.Width, err = positiveArg("width", args[0]); err != nil {
			return opts, err
		}
		if opts.Height, err = positiveArg("height", args[1]); err != nil {
			return opts, err
		}
		if opts.Epochs, err = positiveArg("epochs", args[2]); err != nil {
			return opts, err
		}
		args = args[3:]
	}
	switch len(args) {
	case 0:
	case 1:
		opts.Dataset = args[0]
	default:
		return opts, fmt.Errorf("expected [<width> <height> <epochs>] [dataset], got %d arguments", n)
	}
	if opts.Dataset == "" {
		return opts, errors.New("a dataset is required")
	}
	return opts, nil
}

func positiveArg(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got '%s'", name, value)
	}
	return n, nil
}

// runTrain loads the dataset, trains a fresh map and saves it.
func runTrain(ctx context.Context, w io.Writer, opts trainOptions) error {
	metric, err := distance.ParseMetric(opts.Metric)
	if err != nil {
		return err
	}
	precision, err := persistence.ParsePrecision(opts.Precision)
	if err != nil {
		return err
	}
	if opts.Output == "" {
		return errors.New("an output path is required")
	}

	vectors, err := genome.LoadVectors(opts.Dataset)
	if err != nil {
		return err
	}
	if len(vectors) == 0 {
		return fmt.Errorf("%s: dataset has no rows", opts.Dataset)
	}
	samples := genome.Samples(vectors)

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	m, err := som.New([]int{opts.Width, opts.Height}, len(samples[0]), metric, rng)
	if err != nil {
		return err
	}
	trainer, err := som.NewTrainer(som.TrainerConfig{
		Epochs:             opts.Epochs,
		NeighbourhoodScale: opts.NeighbourhoodScale,
		DecayFraction:      opts.DecayFraction,
		MeasureQuality:     true,
	}, slog.Default())
	if err != nil {
		return err
	}

	stats, err := trainer.Train(ctx, m, samples, rng)
	if err != nil {
		return fmt.Errorf("training stopped after %d epochs: %w", stats.Epochs, err)
	}
	if err := persistence.SaveFile(opts.Output, m, persistence.Format(opts.Format), precision); err != nil {
		return err
	}

	fmt.Fprintf(w, "trained %dx%d %s map on %d vectors in %s\n",
		opts.Width, opts.Height, metric, len(samples), stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "quantization error: %.6f\n", stats.QuantizationError)
	fmt.Fprintf(w, "saved to %s (seed %d)\n", opts.Output, seed)
	return nil
}
