package som

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/sanonone/genomemap/pkg/core/distance"
	"github.com/sanonone/genomemap/pkg/metrics"
)

// TrainerConfig controls the training loop.
type TrainerConfig struct {
	// Epochs is the number of updates; each epoch trains on one random sample.
	Epochs int

	// NeighbourhoodScale widens (>1) or narrows (<1) the Gaussian neighbourhood.
	NeighbourhoodScale float64

	// DecayFraction is the share of Epochs over which radius and learning rate
	// decay. The remaining epochs fine-tune with a small neighbourhood.
	// Default: 0.8.
	DecayFraction float64

	// ProgressEvery logs progress every n epochs. 0 logs every 10%.
	ProgressEvery int

	// MeasureQuality computes the quantization error over all samples after
	// training. It costs one BMU search per sample.
	MeasureQuality bool
}

// DefaultTrainerConfig returns the settings used for genome maps.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Epochs:             10000,
		NeighbourhoodScale: 1,
		DecayFraction:      0.8,
	}
}

// Validate reports the first invalid setting.
func (c TrainerConfig) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("%w: epochs must be positive, got %d", ErrInvalidSchedule, c.Epochs)
	}
	if !(c.NeighbourhoodScale > 0) {
		return fmt.Errorf("%w: neighbourhood scale must be positive, got %v", ErrInvalidSchedule, c.NeighbourhoodScale)
	}
	if !(c.DecayFraction > 0 && c.DecayFraction <= 1) {
		return fmt.Errorf("%w: decay fraction must be in (0, 1], got %v", ErrInvalidSchedule, c.DecayFraction)
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("%w: progress interval must not be negative", ErrInvalidSchedule)
	}
	return nil
}

// TotalIterations is the iteration count handed to Update as the decay horizon.
func (c TrainerConfig) TotalIterations() int {
	return max(1, int(float64(c.Epochs)*c.DecayFraction))
}

// TrainStats summarizes a finished training run.
type TrainStats struct {
	Epochs            int           `json:"epochs"`
	TotalIterations   int           `json:"total_iterations"`
	Duration          time.Duration `json:"duration"`
	QuantizationError float64       `json:"quantization_error,omitempty"`
}

// Trainer runs the sequential epoch loop over a map.
type Trainer struct {
	cfg    TrainerConfig
	logger *slog.Logger
}

// NewTrainer validates cfg and returns a Trainer. A nil logger uses slog.Default().
func NewTrainer(cfg TrainerConfig, logger *slog.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{cfg: cfg, logger: logger}, nil
}

// Train updates m once per epoch with a sample drawn from samples using rng.
// Epochs are strictly sequential; ctx is checked between epochs.
func (t *Trainer) Train(ctx context.Context, m *Map, samples [][]float32, rng *rand.Rand) (TrainStats, error) {
	if len(samples) == 0 {
		return TrainStats{}, errors.New("som: no training samples")
	}
	if rng == nil {
		return TrainStats{}, errors.New("som: a random source is required")
	}
	for i, s := range samples {
		if len(s) != m.OutputSize() {
			return TrainStats{}, fmt.Errorf("%w: sample %d has %d components, map nodes have %d", ErrSampleDimension, i, len(s), m.OutputSize())
		}
	}

	total := t.cfg.TotalIterations()
	every := t.cfg.ProgressEvery
	if every == 0 {
		every = max(1, t.cfg.Epochs/10)
	}

	start := time.Now()
	t.logger.Info("training started",
		"dimensions", m.DimensionSizes(),
		"nodes", m.Len(),
		"output_size", m.OutputSize(),
		"metric", m.Metric(),
		"epochs", t.cfg.Epochs,
		"decay_iterations", total,
		"samples", len(samples),
	)
	metrics.MapNodes.Set(float64(m.Len()))

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return TrainStats{Epochs: epoch, TotalIterations: total, Duration: time.Since(start)}, err
		}
		sample := samples[rng.Intn(len(samples))]
		if err := m.Update(sample, total, epoch, t.cfg.NeighbourhoodScale); err != nil {
			return TrainStats{}, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		metrics.TrainingIterations.Inc()

		if (epoch+1)%every == 0 {
			s := m.ScheduleAt(total, epoch, t.cfg.NeighbourhoodScale)
			t.logger.Info("training progress",
				"epoch", epoch+1,
				"of", t.cfg.Epochs,
				"radius", s.Radius,
				"learning_rate", s.LearningRate,
				"elapsed", time.Since(start).Round(time.Millisecond).String(),
			)
		}
	}

	stats := TrainStats{
		Epochs:          t.cfg.Epochs,
		TotalIterations: total,
		Duration:        time.Since(start),
	}
	if t.cfg.MeasureQuality {
		qe, err := QuantizationError(m, samples)
		if err != nil {
			return stats, err
		}
		stats.QuantizationError = qe
		metrics.QuantizationError.Set(qe)
	}
	t.logger.Info("training finished", "duration", stats.Duration.String(), "quantization_error", stats.QuantizationError)
	return stats, nil
}

// QuantizationError returns the mean Euclidean distance between every sample
// and its best matching unit.
func QuantizationError(m *Map, samples [][]float32) (float64, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	var sum float64
	for _, s := range samples {
		bmu, err := m.BestMatchingUnit(s)
		if err != nil {
			return 0, err
		}
		d, err := distance.SquaredEuclidean(s, m.nodes[bmu])
		if err != nil {
			return 0, err
		}
		sum += math.Sqrt(d)
	}
	return sum / float64(len(samples)), nil
}
