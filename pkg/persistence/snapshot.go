package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/sanonone/genomemap/pkg/core/distance"
	"github.com/sanonone/genomemap/pkg/som"
	"github.com/x448/float16"
)

// Precision is the storage width of node components in a snapshot.
type Precision string

const (
	Float32 Precision = "float32"
	Float16 Precision = "float16"
)

// Format selects the on-disk representation used by SaveFile.
type Format string

const (
	FormatText     Format = "text"
	FormatSnapshot Format = "snapshot"
)

const snapshotVersion = 1

var (
	// ErrUnsupportedPrecision is returned for an unknown precision or format.
	ErrUnsupportedPrecision = errors.New("persistence: unsupported precision")
	// ErrCorruptSnapshot is returned when frames are valid but do not describe a map.
	ErrCorruptSnapshot = errors.New("persistence: corrupt snapshot")
)

// ParsePrecision validates a precision name. An empty name means float32.
func ParsePrecision(name string) (Precision, error) {
	switch p := Precision(strings.ToLower(name)); p {
	case "":
		return Float32, nil
	case Float32, Float16:
		return p, nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrUnsupportedPrecision, name)
	}
}

func (p Precision) code() (byte, int, error) {
	switch p {
	case Float32, "":
		return 0, 4, nil
	case Float16:
		return 1, 2, nil
	default:
		return 0, 0, fmt.Errorf("%w: '%s'", ErrUnsupportedPrecision, p)
	}
}

// Header payload:
// [version u8][precision u8][metric len u8][metric][dims u32][size u32 * dims][output size u32]
func encodeHeader(m *som.Map, precision byte) []byte {
	metric := string(m.Metric())
	dims := m.DimensionSizes()
	buf := make([]byte, 0, 3+len(metric)+4+4*len(dims)+4)
	buf = append(buf, snapshotVersion, precision, byte(len(metric)))
	buf = append(buf, metric...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(dims)))
	for _, d := range dims {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(d))
	}
	return binary.LittleEndian.AppendUint32(buf, uint32(m.OutputSize()))
}

type snapshotHeader struct {
	precision  byte
	metric     distance.Metric
	dims       []int
	outputSize int
}

func decodeHeader(p []byte) (snapshotHeader, error) {
	var h snapshotHeader
	if len(p) < 3 || p[0] != snapshotVersion {
		return h, fmt.Errorf("%w: unknown header version", ErrCorruptSnapshot)
	}
	h.precision = p[1]
	n := int(p[2])
	p = p[3:]
	if len(p) < n+4 {
		return h, fmt.Errorf("%w: short header", ErrCorruptSnapshot)
	}
	h.metric = distance.Metric(p[:n])
	p = p[n:]
	count := int(binary.LittleEndian.Uint32(p))
	p = p[4:]
	if len(p) != 4*count+4 {
		return h, fmt.Errorf("%w: header declares %d dimensions", ErrCorruptSnapshot, count)
	}
	h.dims = make([]int, count)
	for i := range h.dims {
		h.dims[i] = int(binary.LittleEndian.Uint32(p[4*i:]))
	}
	h.outputSize = int(binary.LittleEndian.Uint32(p[4*count:]))
	return h, nil
}

// WriteSnapshot writes the map as checksummed frames: one header frame, one
// frame per node and an end frame holding the node count.
func WriteSnapshot(w io.Writer, m *som.Map, precision Precision) error {
	code, width, err := precision.code()
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(w, 1<<16)
	fw := NewFrameWriter(bw)

	if err := fw.WriteFrame(OpCodeHeader, encodeHeader(m, code)); err != nil {
		return err
	}
	payload := make([]byte, m.OutputSize()*width)
	for _, node := range m.Nodes() {
		for i, v := range node {
			if code == 1 {
				binary.LittleEndian.PutUint16(payload[2*i:], float16.Fromfloat32(v).Bits())
			} else {
				binary.LittleEndian.PutUint32(payload[4*i:], math.Float32bits(v))
			}
		}
		if err := fw.WriteFrame(OpCodeNode, payload); err != nil {
			return err
		}
	}
	if err := fw.WriteFrame(OpCodeEnd, binary.LittleEndian.AppendUint32(nil, uint32(m.Len()))); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadSnapshot decodes a map written by WriteSnapshot. When metric is empty
// the metric stored in the snapshot is used.
func ReadSnapshot(r io.Reader, metric distance.Metric) (*som.Map, error) {
	br := bufio.NewReaderSize(r, 1<<16)

	first, err := ReadFrame(br)
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty snapshot", ErrCorruptSnapshot)
		}
		return nil, err
	}
	if first.OpCode != OpCodeHeader {
		return nil, fmt.Errorf("%w: first frame has opcode %#x", ErrCorruptSnapshot, first.OpCode)
	}
	h, err := decodeHeader(first.Payload)
	if err != nil {
		return nil, err
	}
	width := 4
	switch h.precision {
	case 0:
	case 1:
		width = 2
	default:
		return nil, fmt.Errorf("%w: code %d", ErrUnsupportedPrecision, h.precision)
	}
	if metric == "" {
		metric = h.metric
	}

	var nodes [][]float32
	for {
		f, err := ReadFrame(br)
		if err == io.EOF {
			return nil, fmt.Errorf("%w: missing end frame", ErrIncompleteFrame)
		}
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", len(nodes), err)
		}

		switch f.OpCode {
		case OpCodeNode:
			if len(f.Payload) != h.outputSize*width {
				return nil, fmt.Errorf("%w: node %d has %d bytes", ErrCorruptSnapshot, len(nodes), len(f.Payload))
			}
			node := make([]float32, h.outputSize)
			for i := range node {
				if width == 2 {
					node[i] = float16.Frombits(binary.LittleEndian.Uint16(f.Payload[2*i:])).Float32()
				} else {
					node[i] = math.Float32frombits(binary.LittleEndian.Uint32(f.Payload[4*i:]))
				}
			}
			nodes = append(nodes, node)
		case OpCodeEnd:
			if len(f.Payload) != 4 || int(binary.LittleEndian.Uint32(f.Payload)) != len(nodes) {
				return nil, fmt.Errorf("%w: end frame does not match %d nodes", ErrCorruptSnapshot, len(nodes))
			}
			m, err := som.FromNodes(nodes, h.dims, metric)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
			}
			return m, nil
		default:
			return nil, fmt.Errorf("%w: unexpected opcode %#x", ErrCorruptSnapshot, f.OpCode)
		}
	}
}

// SaveFile writes the map to path through a temporary file and a rename, so
// readers never observe a partial map.
func SaveFile(path string, m *som.Map, format Format, precision Precision) error {
	var write func(io.Writer) error
	switch format {
	case FormatText, "":
		write = func(w io.Writer) error { return WriteText(w, m) }
	case FormatSnapshot:
		write = func(w io.Writer) error { return WriteSnapshot(w, m, precision) }
	default:
		return fmt.Errorf("%w: unknown format '%s'", ErrUnsupportedPrecision, format)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFile reads a map written by SaveFile. Snapshots are recognized by
// their leading magic byte; everything else is parsed as text. metric is
// required for text maps and overrides the stored metric of snapshots when set.
func LoadFile(path string, metric distance.Metric) (*som.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 1<<16)
	first, err := br.Peek(1)
	if err != nil && err != io.EOF {
		return nil, err
	}

	var m *som.Map
	if len(first) == 1 && first[0] == MagicByte {
		m, err = ReadSnapshot(br, metric)
	} else {
		if metric == "" {
			metric = distance.Hexagonal
		}
		m, err = ReadText(br, metric)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
