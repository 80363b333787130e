package distance

import (
	"fmt"
	"math"
	"strings"
)

// Metric names a topological distance measured over lattice coordinates.
// The set is closed: Euclidean, Manhattan and Hexagonal.
type Metric string

const (
	// Euclidean is the straight-line distance between two grid cells.
	Euclidean Metric = "euclidean"
	// Manhattan is the sum of absolute coordinate differences.
	Manhattan Metric = "manhattan"
	// Hexagonal is the step count between two cells of an offset hexagonal grid.
	// Coordinates are (column, row) pairs.
	Hexagonal Metric = "hexagonal"
)

// LatticeFunc measures the distance between two lattice coordinates of equal length.
type LatticeFunc func(a, b []int) float64

var latticeFuncs = map[Metric]LatticeFunc{
	Euclidean: euclideanLattice,
	Manhattan: manhattanLattice,
	Hexagonal: hexagonalLattice,
}

// GetLatticeFunc returns the implementation registered for a metric.
func GetLatticeFunc(metric Metric) (LatticeFunc, error) {
	fn, ok := latticeFuncs[metric]
	if !ok {
		return nil, fmt.Errorf("lattice metric '%s' not supported", metric)
	}
	return fn, nil
}

// ParseMetric converts a user supplied name into a Metric.
// Matching is case-insensitive; an empty name selects Hexagonal.
func ParseMetric(name string) (Metric, error) {
	if name == "" {
		return Hexagonal, nil
	}
	m := Metric(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := latticeFuncs[m]; !ok {
		return "", fmt.Errorf("unknown lattice metric '%s' (expected euclidean, manhattan or hexagonal)", name)
	}
	return m, nil
}

func euclideanLattice(a, b []int) float64 {
	var sum int
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(float64(sum))
}

func manhattanLattice(a, b []int) float64 {
	var sum int
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum)
}

func hexagonalLattice(a, b []int) float64 {
	return float64(HexagonGridDistance(a[0], a[1], b[0], b[1]))
}

// HexagonGridDistance returns the number of steps between two cells of an
// offset hexagonal grid where odd rows are shifted.
//
// Both cells are converted to cube coordinates (x + y + z == 0) and the
// distance is the largest absolute difference along any cube axis.
func HexagonGridDistance(fromColumn, fromRow, toColumn, toRow int) int {
	fx, fy, fz := cube(fromColumn, fromRow)
	tx, ty, tz := cube(toColumn, toRow)
	return max(abs(fx-tx), abs(fy-ty), abs(fz-tz))
}

func cube(column, row int) (x, y, z int) {
	x = column - (row+(row&1))/2
	z = row
	y = -x - z
	return x, y, z
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
