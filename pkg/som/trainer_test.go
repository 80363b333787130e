package som

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/sanonone/genomemap/pkg/core/distance"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func squarePoints(rng *rand.Rand, n int) [][]float32 {
	points := make([][]float32, n)
	for i := range points {
		points[i] = []float32{rng.Float32(), rng.Float32()}
	}
	return points
}

func TestTrainerConfigValidate(t *testing.T) {
	valid := DefaultTrainerConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cases := map[string]func(*TrainerConfig){
		"ZeroEpochs":       func(c *TrainerConfig) { c.Epochs = 0 },
		"ZeroScale":        func(c *TrainerConfig) { c.NeighbourhoodScale = 0 },
		"ZeroDecay":        func(c *TrainerConfig) { c.DecayFraction = 0 },
		"DecayAboveOne":    func(c *TrainerConfig) { c.DecayFraction = 1.5 },
		"NegativeProgress": func(c *TrainerConfig) { c.ProgressEvery = -1 },
	}
	for name, mutate := range cases {
		cfg := DefaultTrainerConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidSchedule) {
			t.Errorf("%s: expected ErrInvalidSchedule, got %v", name, err)
		}
		if _, err := NewTrainer(cfg, nil); err == nil {
			t.Errorf("%s: NewTrainer accepted an invalid config", name)
		}
	}
}

func TestTotalIterations(t *testing.T) {
	cases := []struct {
		epochs int
		decay  float64
		want   int
	}{
		{10, 0.8, 8},
		{1000, 0.8, 800},
		{1, 0.8, 1},
		{7, 1, 7},
	}
	for _, c := range cases {
		cfg := TrainerConfig{Epochs: c.epochs, DecayFraction: c.decay, NeighbourhoodScale: 1}
		if got := cfg.TotalIterations(); got != c.want {
			t.Errorf("TotalIterations(epochs=%d, decay=%v) = %d, want %d", c.epochs, c.decay, got, c.want)
		}
	}
}

func TestTrainSquareDistribution(t *testing.T) {
	// A square lattice with Manhattan neighbourhood trained on uniform 2-D points
	// must unfold into the unit square.
	m := newTestMap(t, []int{6, 6}, 2, distance.Manhattan, 21)
	rng := rand.New(rand.NewSource(22))
	points := squarePoints(rng, 500)

	before, err := QuantizationError(m, points)
	if err != nil {
		t.Fatal(err)
	}

	cfg := DefaultTrainerConfig()
	cfg.Epochs = 3000
	cfg.MeasureQuality = true
	trainer, err := NewTrainer(cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	stats, err := trainer.Train(context.Background(), m, points, rng)
	if err != nil {
		t.Fatal(err)
	}

	if stats.Epochs != 3000 || stats.TotalIterations != 2400 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.QuantizationError >= before {
		t.Errorf("quantization error did not improve: %f -> %f", before, stats.QuantizationError)
	}
	const slack = 0.05
	for i, node := range m.Nodes() {
		for _, v := range node {
			if v < -slack || v > 1+slack {
				t.Fatalf("node %d at %v is outside the unit square", i, node)
			}
		}
	}
}

func TestTrainReproducible(t *testing.T) {
	run := func() *Map {
		m := newTestMap(t, []int{4, 4}, 3, distance.Hexagonal, 2)
		rng := rand.New(rand.NewSource(3))
		samples := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}
		cfg := DefaultTrainerConfig()
		cfg.Epochs = 200
		trainer, _ := NewTrainer(cfg, quietLogger())
		if _, err := trainer.Train(context.Background(), m, samples, rng); err != nil {
			t.Fatal(err)
		}
		return m
	}
	a, b := run(), run()
	for i := range a.Nodes() {
		if !slices.Equal(a.Node(i), b.Node(i)) {
			t.Fatalf("node %d differs between identically seeded runs", i)
		}
	}
}

func TestTrainErrors(t *testing.T) {
	m := newTestMap(t, []int{3, 3}, 2, distance.Hexagonal, 1)
	cfg := DefaultTrainerConfig()
	cfg.Epochs = 10
	trainer, _ := NewTrainer(cfg, quietLogger())
	rng := rand.New(rand.NewSource(1))

	t.Run("NoSamples", func(t *testing.T) {
		if _, err := trainer.Train(context.Background(), m, nil, rng); err == nil {
			t.Error("expected an error for an empty dataset")
		}
	})

	t.Run("SampleDimension", func(t *testing.T) {
		_, err := trainer.Train(context.Background(), m, [][]float32{{1, 2, 3}}, rng)
		if !errors.Is(err, ErrSampleDimension) {
			t.Errorf("expected ErrSampleDimension, got %v", err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		stats, err := trainer.Train(ctx, m, [][]float32{{1, 2}}, rng)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if stats.Epochs != 0 {
			t.Errorf("expected no completed epochs, got %d", stats.Epochs)
		}
	})
}

func TestQuantizationError(t *testing.T) {
	m, err := FromNodes([][]float32{{0, 0}, {10, 0}}, []int{2}, distance.Euclidean)
	if err != nil {
		t.Fatal(err)
	}
	qe, err := QuantizationError(m, [][]float32{{0, 3}, {10, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if qe != 2 {
		t.Errorf("got %f, want 2", qe)
	}

	if _, err := QuantizationError(m, [][]float32{{1, 2, 3}}); !errors.Is(err, ErrSampleDimension) {
		t.Errorf("expected ErrSampleDimension, got %v", err)
	}
}

func TestQuantizationErrorMatchesKernel(t *testing.T) {
	m := newTestMap(t, []int{5, 4}, 33, distance.Euclidean, 9)
	rng := rand.New(rand.NewSource(10))
	samples := make([][]float32, 50)
	for i := range samples {
		samples[i] = make([]float32, 33)
		for j := range samples[i] {
			samples[i][j] = rng.Float32()
		}
	}

	var want float64
	for _, s := range samples {
		bmu, err := m.BestMatchingUnit(s)
		if err != nil {
			t.Fatal(err)
		}
		d, err := distance.SquaredEuclidean(s, m.Node(bmu))
		if err != nil {
			t.Fatal(err)
		}
		want += math.Sqrt(d)
	}
	want /= float64(len(samples))

	got, err := QuantizationError(m, samples)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("got %f, want %f", got, want)
	}
}
