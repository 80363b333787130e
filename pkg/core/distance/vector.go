// Package distance provides the metrics used by the self-organizing map.
//
// Two families live here. Lattice metrics measure how far apart two nodes sit
// on the map grid and drive the neighbourhood function during training. The
// weight-space kernel measures the squared Euclidean distance between a sample
// and a node vector and drives best matching unit search.
//
// The weight-space kernel is selected at init using runtime CPU detection:
// the Gonum BLAS implementation when AVX2 is available, a pure Go loop otherwise.
package distance

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"gonum.org/v1/gonum/blas/gonum"
)

// VectorFunc computes the squared Euclidean distance between two weight vectors.
type VectorFunc func(v1, v2 []float32) (float64, error)

var squaredEuclidean VectorFunc = squaredEuclideanGo

// Engine reports which weight-space kernel is active ("gonum" or "go").
var Engine = "go"

func init() {
	if cpuid.CPU.Has(cpuid.AVX2) {
		squaredEuclidean = squaredEuclideanGonum
		Engine = "gonum"
	}
	slog.Debug("distance kernel selected", "engine", Engine, "cpu", cpuid.CPU.BrandName)
}

// SquaredEuclidean returns the squared Euclidean distance between v1 and v2
// using the kernel selected at init.
func SquaredEuclidean(v1, v2 []float32) (float64, error) {
	return squaredEuclidean(v1, v2)
}

// diffWorkspace holds scratch slices for the Gonum kernel so that BMU search
// does not allocate per comparison.
var diffWorkspace = sync.Pool{
	New: func() interface{} {
		// Genome vectors have 1128 components.
		s := make([]float32, 1128)
		return &s
	},
}

func squaredEuclideanGo(v1, v2 []float32) (float64, error) {
	if len(v1) != len(v2) {
		return 0, errors.New("squaredEuclidean: vectors must have the same length")
	}
	var sum float32
	for i := range v1 {
		diff := v1[i] - v2[i]
		sum += diff * diff
	}
	return float64(sum), nil
}

var gonumEngine = gonum.Implementation{}

func squaredEuclideanGonum(v1, v2 []float32) (float64, error) {
	n := len(v1)
	if n != len(v2) {
		return 0, errors.New("squaredEuclidean: vectors must have the same length")
	}
	if n == 0 {
		return 0, nil
	}

	diffPtr := diffWorkspace.Get().(*[]float32)
	defer diffWorkspace.Put(diffPtr)

	if cap(*diffPtr) < n {
		*diffPtr = make([]float32, n)
	}
	diff := (*diffPtr)[:n]

	copy(diff, v1)
	gonumEngine.Saxpy(n, -1, v2, 1, diff, 1)
	dot := gonumEngine.Sdot(n, diff, 1, diff, 1)

	return float64(dot), nil
}
