package distance

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
)

func floatsAreEqual(a, b float64) bool {
	const tolerance = 1e-6
	return math.Abs(a-b) < tolerance
}

func TestLatticeMetrics(t *testing.T) {
	t.Run("Euclidean", func(t *testing.T) {
		fn, err := GetLatticeFunc(Euclidean)
		if err != nil {
			t.Fatal(err)
		}
		if got := fn([]int{0, 0}, []int{3, 4}); !floatsAreEqual(got, 5) {
			t.Errorf("got %f, want 5", got)
		}
	})

	t.Run("Manhattan", func(t *testing.T) {
		fn, _ := GetLatticeFunc(Manhattan)
		if got := fn([]int{1, 5}, []int{4, 1}); !floatsAreEqual(got, 7) {
			t.Errorf("got %f, want 7", got)
		}
	})

	t.Run("Hexagonal", func(t *testing.T) {
		fn, _ := GetLatticeFunc(Hexagonal)
		cases := []struct {
			a, b []int
			want float64
		}{
			{[]int{0, 0}, []int{0, 0}, 0},
			{[]int{0, 0}, []int{2, 0}, 2},
			{[]int{0, 0}, []int{0, 1}, 1},
			{[]int{0, 0}, []int{1, 1}, 1},
			{[]int{0, 0}, []int{2, 1}, 2},
			{[]int{0, 0}, []int{0, 2}, 2},
			{[]int{3, 3}, []int{0, 0}, 4},
		}
		for _, c := range cases {
			if got := fn(c.a, c.b); !floatsAreEqual(got, c.want) {
				t.Errorf("hex(%v, %v) = %f, want %f", c.a, c.b, got, c.want)
			}
		}
	})

	t.Run("UnknownMetric", func(t *testing.T) {
		if _, err := GetLatticeFunc(Metric("cosine")); err == nil {
			t.Error("expected an error for an unsupported lattice metric")
		}
	})
}

func TestLatticeMetricProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, metric := range []Metric{Euclidean, Manhattan, Hexagonal} {
		fn, _ := GetLatticeFunc(metric)
		t.Run(string(metric), func(t *testing.T) {
			for i := 0; i < 500; i++ {
				a := []int{rng.Intn(20), rng.Intn(20)}
				b := []int{rng.Intn(20), rng.Intn(20)}
				if fn(a, a) != 0 {
					t.Fatalf("distance of %v to itself is %f", a, fn(a, a))
				}
				if fn(a, b) != fn(b, a) {
					t.Fatalf("asymmetric: d(%v,%v)=%f d(%v,%v)=%f", a, b, fn(a, b), b, a, fn(b, a))
				}
				if fn(a, b) < 0 {
					t.Fatalf("negative distance between %v and %v", a, b)
				}
				if (a[0] != b[0] || a[1] != b[1]) && fn(a, b) == 0 {
					t.Fatalf("distinct cells %v and %v have zero distance", a, b)
				}
			}
		})
	}
}

func TestHexagonNeighbours(t *testing.T) {
	// Every cell on an offset hexagonal grid has exactly six neighbours at distance 1.
	for _, center := range [][2]int{{5, 4}, {5, 5}} {
		n := 0
		for c := center[0] - 2; c <= center[0]+2; c++ {
			for r := center[1] - 2; r <= center[1]+2; r++ {
				if HexagonGridDistance(center[0], center[1], c, r) == 1 {
					n++
				}
			}
		}
		if n != 6 {
			t.Errorf("cell %v has %d neighbours, want 6", center, n)
		}
	}
}

func TestParseMetric(t *testing.T) {
	cases := map[string]Metric{
		"":           Hexagonal,
		"hexagonal":  Hexagonal,
		"Manhattan":  Manhattan,
		" euclidean": Euclidean,
	}
	for in, want := range cases {
		got, err := ParseMetric(in)
		if err != nil {
			t.Fatalf("ParseMetric(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseMetric(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseMetric("chebyshev"); err == nil {
		t.Error("expected an error for an unknown metric")
	}
}

func TestSquaredEuclideanImplementations(t *testing.T) {
	impls := map[string]VectorFunc{
		"go":    squaredEuclideanGo,
		"gonum": squaredEuclideanGonum,
		"auto":  SquaredEuclidean,
	}
	for name, fn := range impls {
		t.Run(name, func(t *testing.T) {
			dist, err := fn([]float32{1, 2}, []float32{3, 4})
			if err != nil {
				t.Fatal(err)
			}
			if !floatsAreEqual(dist, 8) {
				t.Errorf("got %f, want 8", dist)
			}
			if _, err := fn([]float32{1}, []float32{1, 2}); err == nil {
				t.Error("expected a length mismatch error")
			}
		})
	}
}

func TestSquaredEuclideanConsistency(t *testing.T) {
	// The pooled workspace must grow for vectors larger than its initial capacity.
	for _, dims := range []int{3, 64, 1128, 4096} {
		v1, v2 := generateVectors(dims)
		want, _ := squaredEuclideanGo(v1, v2)
		got, _ := squaredEuclideanGonum(v1, v2)
		if math.Abs(want-got) > 1e-3*math.Max(1, want) {
			t.Errorf("dims=%d: gonum=%f go=%f", dims, got, want)
		}
	}
}

func generateVectors(dims int) ([]float32, []float32) {
	v1 := make([]float32, dims)
	v2 := make([]float32, dims)
	for i := 0; i < dims; i++ {
		v1[i] = rand.Float32()
		v2[i] = rand.Float32()
	}
	return v1, v2
}

func BenchmarkSquaredEuclidean(b *testing.B) {
	dims := []int{2, 64, 256, 1128}
	for _, d := range dims {
		for name, fn := range map[string]VectorFunc{"go": squaredEuclideanGo, "gonum": squaredEuclideanGonum} {
			b.Run(fmt.Sprintf("%s_%dD", name, d), func(b *testing.B) {
				v1, v2 := generateVectors(d)
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					fn(v1, v2)
				}
			})
		}
	}
}
