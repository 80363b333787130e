package persistence

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sanonone/genomemap/pkg/core/distance"
	"github.com/sanonone/genomemap/pkg/som"
)

// ErrMalformedMap is returned when a text map cannot be parsed.
var ErrMalformedMap = errors.New("persistence: malformed map")

// WriteText writes the map in the plain text format: the first line holds the
// comma-separated dimension sizes, every following line one node vector in
// row-major order.
func WriteText(w io.Writer, m *som.Map) error {
	bw := bufio.NewWriterSize(w, 1<<16)
	buf := make([]byte, 0, 32)

	for i, d := range m.DimensionSizes() {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(strconv.Itoa(d))
	}
	for _, node := range m.Nodes() {
		bw.WriteByte('\n')
		for i, v := range node {
			if i > 0 {
				bw.WriteByte(',')
			}
			buf = strconv.AppendFloat(buf[:0], float64(v), 'g', -1, 32)
			bw.Write(buf)
		}
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

// ReadText parses a map written by WriteText. Empty lines are ignored. The
// lattice metric is not part of the format and must be supplied.
func ReadText(r io.Reader, metric distance.Metric) (*som.Map, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<26)

	var (
		dims  []int
		nodes [][]float32
		line  int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, ",")

		if dims == nil {
			dims = make([]int, len(fields))
			for i, f := range fields {
				d, err := strconv.Atoi(strings.TrimSpace(f))
				if err != nil || d <= 0 {
					return nil, fmt.Errorf("%w: line %d: dimension size '%s' is not a positive integer", ErrMalformedMap, line, f)
				}
				dims[i] = d
			}
			continue
		}

		node := make([]float32, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: '%s' is not a number", ErrMalformedMap, line, f)
			}
			node[i] = float32(v)
		}
		nodes = append(nodes, node)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if dims == nil {
		return nil, fmt.Errorf("%w: missing dimension line", ErrMalformedMap)
	}

	m, err := som.FromNodes(nodes, dims, metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMap, err)
	}
	return m, nil
}
