// Package genome reads and writes the CSV files of a tag genome dataset:
// tag names, movie titles, external links, per-item tag scores and the dense
// score matrix the map is trained on.
package genome

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// ErrMalformedInput is returned when a record cannot be parsed.
var ErrMalformedInput = errors.New("genome: malformed input")

// Score is one (item, tag, relevance) triple of a genome scores file.
type Score struct {
	Movie int
	Tag   int
	Score float32
}

// Vector is one row of a score matrix. Rows keyed by a quoted title instead
// of an id have ID 0 and a non-empty Title.
type Vector struct {
	ID     int
	Title  string
	Values []float32
}

// Link holds the external identifiers of a movie.
type Link struct {
	IMDbID string
	TMDbID string
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

func malformed(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformedInput, line, fmt.Sprintf(format, args...))
}

// scan calls fn for every non-empty record. The first record is skipped when
// header is true.
func scan(r io.Reader, header bool, fn func(line int, fields []string) error) error {
	cr := newReader(r)
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return malformed(perr.Line, "%v", perr.Err)
			}
			return err
		}
		line, _ := cr.FieldPos(0)
		if header {
			header = false
			continue
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		if err := fn(line, fields); err != nil {
			return err
		}
	}
}

func parseInt(line int, field, what string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return 0, malformed(line, "%s '%s' is not an integer", what, field)
	}
	return v, nil
}

func parseFloat(line int, field string) (float32, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
	if err != nil {
		return 0, malformed(line, "'%s' is not a number", field)
	}
	return float32(v), nil
}

// ParseTags reads an `id,name` file with a header row.
func ParseTags(r io.Reader) (map[int]string, error) {
	tags := make(map[int]string)
	err := scan(r, true, func(line int, fields []string) error {
		if len(fields) < 2 {
			return malformed(line, "expected at least two columns: id,name")
		}
		id, err := parseInt(line, fields[0], "tag id")
		if err != nil {
			return err
		}
		tags[id] = fields[1]
		return nil
	})
	return tags, err
}

// ParseMovies reads an `id,title,genres` file with a header row. Unquoted
// titles containing commas are rejoined; the genres column is ignored.
func ParseMovies(r io.Reader) (map[int]string, error) {
	movies := make(map[int]string)
	err := scan(r, true, func(line int, fields []string) error {
		if len(fields) < 3 {
			return malformed(line, "expected at least three columns: id,title,genres")
		}
		id, err := parseInt(line, fields[0], "movie id")
		if err != nil {
			return err
		}
		movies[id] = strings.Join(fields[1:len(fields)-1], ",")
		return nil
	})
	return movies, err
}

// ParseLinks reads a `movieId,imdbId,tmdbId` file with a header row.
// Missing identifiers are kept as empty strings.
func ParseLinks(r io.Reader) (map[int]Link, error) {
	links := make(map[int]Link)
	err := scan(r, true, func(line int, fields []string) error {
		if len(fields) < 2 {
			return malformed(line, "expected at least two columns: movieId,imdbId")
		}
		id, err := parseInt(line, fields[0], "movie id")
		if err != nil {
			return err
		}
		l := Link{IMDbID: strings.TrimSpace(fields[1])}
		if len(fields) > 2 {
			l.TMDbID = strings.TrimSpace(fields[2])
		}
		links[id] = l
		return nil
	})
	return links, err
}

// ParseVectors reads a header-less score matrix. Each row is `id,v1,...,vN`
// or `"title",v1,...,vN`. All rows must have the same number of values.
func ParseVectors(r io.Reader) ([]Vector, error) {
	var (
		vectors []Vector
		width   = -1
	)
	err := scan(r, false, func(line int, fields []string) error {
		values := slices.DeleteFunc(slices.Clone(fields[1:]), func(f string) bool { return f == "" })
		if len(values) == 0 {
			return malformed(line, "row has no values")
		}
		if width >= 0 && len(values) != width {
			return malformed(line, "expected %d values, got %d", width, len(values))
		}
		width = len(values)

		v := Vector{Values: make([]float32, len(values))}
		if id, err := strconv.Atoi(strings.TrimSpace(fields[0])); err == nil {
			v.ID = id
		} else if title := strings.TrimSpace(fields[0]); title != "" {
			v.Title = title
		} else {
			return malformed(line, "row has neither an id nor a title")
		}
		for i, f := range values {
			x, err := parseFloat(line, f)
			if err != nil {
				return err
			}
			v.Values[i] = x
		}
		vectors = append(vectors, v)
		return nil
	})
	return vectors, err
}

// ResolveVectors keys vectors by movie id. Rows keyed by title are matched
// against titles; rows whose title is unknown are counted and skipped.
func ResolveVectors(vectors []Vector, titles map[int]string) (map[int][]float32, int) {
	byTitle := make(map[string]int, len(titles))
	for id, title := range titles {
		if prev, ok := byTitle[title]; !ok || id < prev {
			byTitle[title] = id
		}
	}

	out := make(map[int][]float32, len(vectors))
	unresolved := 0
	for _, v := range vectors {
		if v.Title == "" {
			out[v.ID] = v.Values
			continue
		}
		id, ok := byTitle[v.Title]
		if !ok {
			unresolved++
			continue
		}
		out[id] = v.Values
	}
	return out, unresolved
}

// Samples returns the vector values in row order.
func Samples(vectors []Vector) [][]float32 {
	samples := make([][]float32, len(vectors))
	for i, v := range vectors {
		samples[i] = v.Values
	}
	return samples
}

// ScanScores streams a `movieId,tagId,relevance` file with a header row.
func ScanScores(r io.Reader, fn func(Score) error) error {
	return scan(r, true, func(line int, fields []string) error {
		if len(fields) < 3 {
			return malformed(line, "expected three columns: movieId,tagId,relevance")
		}
		movie, err := parseInt(line, fields[0], "movie id")
		if err != nil {
			return err
		}
		tag, err := parseInt(line, fields[1], "tag id")
		if err != nil {
			return err
		}
		score, err := parseFloat(line, fields[2])
		if err != nil {
			return err
		}
		return fn(Score{Movie: movie, Tag: tag, Score: score})
	})
}

// ParseScores collects every score of a scores file.
func ParseScores(r io.Reader) ([]Score, error) {
	var scores []Score
	err := ScanScores(r, func(s Score) error {
		scores = append(scores, s)
		return nil
	})
	return scores, err
}

// MatrixBuilder groups scores into dense per-movie vectors. Tag ids of a
// movie must arrive in ascending order starting at 1 without gaps.
type MatrixBuilder struct {
	rows map[int][]float32
}

// NewMatrixBuilder returns an empty builder.
func NewMatrixBuilder() *MatrixBuilder {
	return &MatrixBuilder{rows: make(map[int][]float32)}
}

// Add appends one score to its movie's vector.
func (b *MatrixBuilder) Add(s Score) error {
	row := b.rows[s.Movie]
	if s.Tag != len(row)+1 {
		return fmt.Errorf("%w: movie %d: expected tag %d, got %d", ErrMalformedInput, s.Movie, len(row)+1, s.Tag)
	}
	b.rows[s.Movie] = append(row, s.Score)
	return nil
}

// Vectors returns the rows ordered by movie id. Every row must have the same width.
func (b *MatrixBuilder) Vectors() ([]Vector, error) {
	ids := make([]int, 0, len(b.rows))
	for id := range b.rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]Vector, len(ids))
	for i, id := range ids {
		out[i] = Vector{ID: id, Values: b.rows[id]}
		if len(out[i].Values) != len(out[0].Values) {
			return nil, fmt.Errorf("%w: movie %d has %d tags, movie %d has %d", ErrMalformedInput,
				id, len(out[i].Values), out[0].ID, len(out[0].Values))
		}
	}
	return out, nil
}

// ScoreMatrix groups scores into rows ordered by movie id.
func ScoreMatrix(scores []Score) ([]Vector, error) {
	b := NewMatrixBuilder()
	for _, s := range scores {
		if err := b.Add(s); err != nil {
			return nil, err
		}
	}
	return b.Vectors()
}

// WriteMatrix writes header-less `id,v1,...,vN` rows. Rows with a title are
// written with the title in place of the id, quoted when it needs to be.
func WriteMatrix(w io.Writer, vectors []Vector) error {
	cw := csv.NewWriter(w)
	record := make([]string, 0, 64)
	for _, v := range vectors {
		record = record[:0]
		if v.Title != "" {
			record = append(record, v.Title)
		} else {
			record = append(record, strconv.Itoa(v.ID))
		}
		for _, x := range v.Values {
			record = append(record, strconv.FormatFloat(float64(x), 'g', -1, 32))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
