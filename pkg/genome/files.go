package genome

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func load[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	v, err := parse(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// LoadTags reads a tags file from disk.
func LoadTags(path string) (map[int]string, error) { return load(path, ParseTags) }

// LoadMovies reads a movies file from disk.
func LoadMovies(path string) (map[int]string, error) { return load(path, ParseMovies) }

// LoadLinks reads a links file from disk.
func LoadLinks(path string) (map[int]Link, error) { return load(path, ParseLinks) }

// LoadVectors reads a score matrix from disk.
func LoadVectors(path string) ([]Vector, error) { return load(path, ParseVectors) }

// ConvertScores streams a scores file into a score matrix file.
// It returns the number of rows written.
func ConvertScores(scoresPath, matrixPath string) (int, error) {
	b := NewMatrixBuilder()
	if _, err := load(scoresPath, func(r io.Reader) (struct{}, error) {
		return struct{}{}, ScanScores(r, b.Add)
	}); err != nil {
		return 0, err
	}
	vectors, err := b.Vectors()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", scoresPath, err)
	}

	f, err := os.CreateTemp(filepath.Dir(matrixPath), filepath.Base(matrixPath)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	w := bufio.NewWriterSize(f, 1<<20)
	if err := WriteMatrix(w, vectors); err != nil {
		f.Close()
		return 0, err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(f.Name(), matrixPath); err != nil {
		return 0, err
	}
	return len(vectors), nil
}
