package som

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/blas/gonum"
)

// parallelThreshold is the number of weight components above which Update
// spreads the node adjustment over several goroutines.
const parallelThreshold = 1 << 16

var blasEngine = gonum.Implementation{}

// Schedule holds the decayed training parameters for one iteration.
type Schedule struct {
	// Radius is the neighbourhood radius (nabla).
	Radius float64
	// LearningRate is the influence on the best matching unit (alpha).
	LearningRate float64
	// Width is 2 * Radius^2 * neighbourhoodScale, the denominator of the Gaussian.
	Width float64
}

// ScheduleAt computes the decayed radius and learning rate for an iteration.
//
// The initial radius is half the largest lattice dimension. Radius and learning
// rate share the decay constant lambda = totalIterations / ln(radius0).
// Lattices whose initial radius is at most 1 do not decay.
func (m *Map) ScheduleAt(totalIterations, currentIteration int, neighbourhoodScale float64) Schedule {
	decay := 1.0
	if logNabla := math.Log(m.nabla0); logNabla > 0 {
		lambda := float64(totalIterations) / logNabla
		decay = math.Exp(-float64(currentIteration) / lambda)
	}
	nabla := m.nabla0 * decay
	return Schedule{
		Radius:       nabla,
		LearningRate: decay,
		Width:        nabla * nabla * 2 * neighbourhoodScale,
	}
}

// Neighbourhood returns the update strength of every node for a best matching
// unit at flat index bmu:
//
//	h(i) = exp(-d(bmu, i)^2 / width) * alpha
//
// where d is the map's lattice metric.
func (m *Map) Neighbourhood(bmu, totalIterations, currentIteration int, neighbourhoodScale float64) []float32 {
	s := m.ScheduleAt(totalIterations, currentIteration, neighbourhoodScale)
	center := m.coords[bmu]

	mask := make([]float32, len(m.nodes))
	for i, coord := range m.coords {
		d := m.distanceFn(center, coord)
		if d == 0 {
			mask[i] = float32(s.LearningRate)
			continue
		}
		mask[i] = float32(math.Exp(-(d*d)/s.Width) * s.LearningRate)
	}
	return mask
}

// Update performs one training step towards sample.
//
// The best matching unit and the neighbourhood are computed before any node
// moves; every node then moves by h(i) * (sample - node). Nodes are
// independent, so large maps are adjusted in parallel partitions.
func (m *Map) Update(sample []float32, totalIterations, currentIteration int, neighbourhoodScale float64) error {
	if totalIterations <= 0 || currentIteration < 0 {
		return fmt.Errorf("%w: iteration %d of %d", ErrInvalidSchedule, currentIteration, totalIterations)
	}
	if !(neighbourhoodScale > 0) {
		return fmt.Errorf("%w: neighbourhood scale %v must be positive", ErrInvalidSchedule, neighbourhoodScale)
	}

	bmu, err := m.BestMatchingUnit(sample)
	if err != nil {
		return err
	}
	mask := m.Neighbourhood(bmu, totalIterations, currentIteration, neighbourhoodScale)

	if len(m.nodes)*m.outputSize < parallelThreshold {
		m.applyRange(sample, mask, 0, len(m.nodes))
		return nil
	}

	workers := runtime.GOMAXPROCS(0)
	chunk := (len(m.nodes) + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < len(m.nodes); start += chunk {
		end := min(start+chunk, len(m.nodes))
		g.Go(func() error {
			m.applyRange(sample, mask, start, end)
			return nil
		})
	}
	return g.Wait()
}

// applyRange moves nodes [start, end) towards sample using a local scratch buffer.
func (m *Map) applyRange(sample []float32, mask []float32, start, end int) {
	n := m.outputSize
	diff := make([]float32, n)
	for i := start; i < end; i++ {
		h := mask[i]
		if h == 0 {
			continue
		}
		node := m.nodes[i]
		copy(diff, sample)
		blasEngine.Saxpy(n, -1, node, 1, diff, 1)
		blasEngine.Saxpy(n, h, diff, 1, node, 1)
	}
}
