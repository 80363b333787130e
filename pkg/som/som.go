// Package som implements a Kohonen self-organizing map over an N-dimensional lattice.
//
// A Map owns a flat, row-major slice of node weight vectors. Lattice coordinates
// and flat indices convert into each other with Coordinates and Index. Best
// matching unit search always runs in weight space using the squared Euclidean
// distance; the injected lattice metric only shapes the training neighbourhood.
//
// Basic usage:
//
//	rng := rand.New(rand.NewSource(1))
//	m, err := som.New([]int{40, 40}, 1128, distance.Hexagonal, rng)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trainer, _ := som.NewTrainer(som.DefaultTrainerConfig(), nil)
//	stats, err := trainer.Train(ctx, m, samples, rng)
package som

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/sanonone/genomemap/pkg/core/distance"
)

var (
	// ErrInvalidDimensions is returned when a lattice size or the output size is not positive,
	// or when the lattice shape does not fit the chosen metric.
	ErrInvalidDimensions = errors.New("som: invalid dimensions")
	// ErrDimensionMismatch is returned when node data does not fit the declared lattice.
	ErrDimensionMismatch = errors.New("som: node data does not match dimension sizes")
	// ErrDimensionalityMismatch is returned when a coordinate has the wrong number of components.
	ErrDimensionalityMismatch = errors.New("som: coordinate dimensionality does not match map")
	// ErrCoordinateOutOfRange is returned when a coordinate lies outside the lattice.
	ErrCoordinateOutOfRange = errors.New("som: coordinate out of range")
	// ErrSampleDimension is returned when a sample length differs from the node length.
	ErrSampleDimension = errors.New("som: sample length does not match node length")
	// ErrInvalidSchedule is returned for non-positive iteration counts or neighbourhood scales.
	ErrInvalidSchedule = errors.New("som: invalid training schedule")
	// ErrEmptyMap is returned when a map without nodes is searched.
	ErrEmptyMap = errors.New("som: map has no nodes")
)

// Map is a Kohonen self-organizing map.
//
// Nodes are stored in row-major order: the first dimension varies fastest.
// A Map is not safe for concurrent Update calls; concurrent readers are safe
// once training has finished.
type Map struct {
	dimensionSizes []int
	nodes          [][]float32
	outputSize     int

	metric     distance.Metric
	distanceFn distance.LatticeFunc

	// coords caches the lattice coordinate of every node.
	coords [][]int

	// nabla0 is the initial neighbourhood radius: half of the largest dimension.
	nabla0 float64
}

// New creates a randomly initialized map with the given lattice shape.
// Every node component is drawn uniformly from [-1, 1] using rng.
func New(dimensionSizes []int, outputSize int, metric distance.Metric, rng *rand.Rand) (*Map, error) {
	if outputSize <= 0 {
		return nil, fmt.Errorf("%w: output size %d must be positive", ErrInvalidDimensions, outputSize)
	}
	if rng == nil {
		return nil, errors.New("som: a random source is required")
	}
	count, err := nodeCount(dimensionSizes)
	if err != nil {
		return nil, err
	}

	nodes := make([][]float32, count)
	backing := make([]float32, count*outputSize)
	for i := range nodes {
		node := backing[i*outputSize : (i+1)*outputSize : (i+1)*outputSize]
		for j := range node {
			node[j] = rng.Float32()*2 - 1
		}
		nodes[i] = node
	}

	return newMap(nodes, dimensionSizes, outputSize, metric)
}

// FromNodes wraps existing node vectors, typically loaded from a persisted map.
// The map takes ownership of nodes; callers must not modify them afterwards.
func FromNodes(nodes [][]float32, dimensionSizes []int, metric distance.Metric) (*Map, error) {
	count, err := nodeCount(dimensionSizes)
	if err != nil {
		return nil, err
	}
	if len(nodes) != count {
		return nil, fmt.Errorf("%w: %d nodes for lattice %v (expected %d)", ErrDimensionMismatch, len(nodes), dimensionSizes, count)
	}
	outputSize := len(nodes[0])
	if outputSize == 0 {
		return nil, fmt.Errorf("%w: node 0 is empty", ErrDimensionMismatch)
	}
	for i, node := range nodes {
		if len(node) != outputSize {
			return nil, fmt.Errorf("%w: node %d has %d components (expected %d)", ErrDimensionMismatch, i, len(node), outputSize)
		}
	}
	return newMap(nodes, dimensionSizes, outputSize, metric)
}

func newMap(nodes [][]float32, dimensionSizes []int, outputSize int, metric distance.Metric) (*Map, error) {
	fn, err := distance.GetLatticeFunc(metric)
	if err != nil {
		return nil, err
	}
	if metric == distance.Hexagonal && len(dimensionSizes) != 2 {
		return nil, fmt.Errorf("%w: hexagonal lattices must have 2 dimensions, got %d", ErrInvalidDimensions, len(dimensionSizes))
	}

	m := &Map{
		dimensionSizes: slices.Clone(dimensionSizes),
		nodes:          nodes,
		outputSize:     outputSize,
		metric:         metric,
		distanceFn:     fn,
		nabla0:         float64(slices.Max(dimensionSizes)) / 2,
	}
	m.coords = make([][]int, len(nodes))
	for i := range nodes {
		m.coords[i] = m.Coordinates(i)
	}
	return m, nil
}

func nodeCount(dimensionSizes []int) (int, error) {
	if len(dimensionSizes) == 0 {
		return 0, fmt.Errorf("%w: at least one dimension is required", ErrInvalidDimensions)
	}
	count := 1
	for i, size := range dimensionSizes {
		if size <= 0 {
			return 0, fmt.Errorf("%w: dimension %d has size %d", ErrInvalidDimensions, i, size)
		}
		count *= size
	}
	return count, nil
}

// DimensionSizes returns a copy of the lattice shape.
func (m *Map) DimensionSizes() []int { return slices.Clone(m.dimensionSizes) }

// Dimensions returns the number of lattice dimensions.
func (m *Map) Dimensions() int { return len(m.dimensionSizes) }

// OutputSize returns the length of every node vector.
func (m *Map) OutputSize() int { return m.outputSize }

// Len returns the number of nodes.
func (m *Map) Len() int { return len(m.nodes) }

// Metric returns the lattice metric used during training.
func (m *Map) Metric() distance.Metric { return m.metric }

// Node returns the weight vector at flat index i. The slice is shared with the map.
func (m *Map) Node(i int) []float32 { return m.nodes[i] }

// Nodes returns all weight vectors in row-major order. The slices are shared with the map.
func (m *Map) Nodes() [][]float32 { return m.nodes }

// At returns the weight vector at the given lattice coordinate.
func (m *Map) At(coordinate ...int) ([]float32, error) {
	i, err := m.Index(coordinate)
	if err != nil {
		return nil, err
	}
	return m.nodes[i], nil
}

// Coordinates converts a flat node index into a lattice coordinate.
func (m *Map) Coordinates(index int) []int {
	result := make([]int, len(m.dimensionSizes))
	idx := index
	for d, size := range m.dimensionSizes {
		result[d] = idx % size
		idx /= size
	}
	return result
}

// Index converts a lattice coordinate into a flat node index.
// It is the exact inverse of Coordinates.
func (m *Map) Index(coordinate []int) (int, error) {
	if len(coordinate) != len(m.dimensionSizes) {
		return 0, fmt.Errorf("%w: got %d components, map has %d dimensions", ErrDimensionalityMismatch, len(coordinate), len(m.dimensionSizes))
	}
	idx := 0
	for d := len(coordinate) - 1; d >= 0; d-- {
		c := coordinate[d]
		if c < 0 || c >= m.dimensionSizes[d] {
			return 0, fmt.Errorf("%w: component %d is %d (size %d)", ErrCoordinateOutOfRange, d, c, m.dimensionSizes[d])
		}
		idx = idx*m.dimensionSizes[d] + c
	}
	return idx, nil
}

// BestMatchingUnit returns the flat index of the node closest to sample in
// weight space. Ties resolve to the lowest index.
func (m *Map) BestMatchingUnit(sample []float32) (int, error) {
	if len(m.nodes) == 0 {
		return 0, ErrEmptyMap
	}
	if len(sample) != m.outputSize {
		return 0, fmt.Errorf("%w: got %d, map nodes have %d", ErrSampleDimension, len(sample), m.outputSize)
	}

	best := 0
	bestDist, err := distance.SquaredEuclidean(sample, m.nodes[0])
	if err != nil {
		return 0, err
	}
	for i := 1; i < len(m.nodes); i++ {
		d, err := distance.SquaredEuclidean(sample, m.nodes[i])
		if err != nil {
			return 0, err
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}
