package genome

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
)

func TestParseTags(t *testing.T) {
	tags, err := ParseTags(strings.NewReader("tagId,tag\n1,007\n2,007 (series)\n\n3,18th century\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := map[int]string{1: "007", 2: "007 (series)", 3: "18th century"}
	if len(tags) != len(want) {
		t.Fatalf("got %v", tags)
	}
	for id, name := range want {
		if tags[id] != name {
			t.Errorf("tag %d = %q, want %q", id, tags[id], name)
		}
	}

	_, err = ParseTags(strings.NewReader("tagId,tag\nx,oops\n"))
	if !errors.Is(err, ErrMalformedInput) || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected malformed input at line 2, got %v", err)
	}
	_, err = ParseTags(strings.NewReader("tagId,tag\n1\n"))
	if !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected malformed input for a single column, got %v", err)
	}
}

func TestParseMovies(t *testing.T) {
	input := `movieId,title,genres
1,Toy Story (1995),Adventure|Animation
11,"American President, The (1995)",Comedy|Drama|Romance
12,Dracula, Dead and Loving It (1995),Comedy|Horror
`
	movies, err := ParseMovies(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	cases := map[int]string{
		1:  "Toy Story (1995)",
		11: "American President, The (1995)",
		12: "Dracula, Dead and Loving It (1995)",
	}
	for id, title := range cases {
		if movies[id] != title {
			t.Errorf("movie %d = %q, want %q", id, movies[id], title)
		}
	}

	if _, err := ParseMovies(strings.NewReader("movieId,title,genres\n1,Only Title\n")); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected malformed input, got %v", err)
	}
}

func TestParseLinks(t *testing.T) {
	links, err := ParseLinks(strings.NewReader("movieId,imdbId,tmdbId\n1,0114709,862\n2,0113497,\n"))
	if err != nil {
		t.Fatal(err)
	}
	if links[1] != (Link{IMDbID: "0114709", TMDbID: "862"}) {
		t.Errorf("unexpected link %+v", links[1])
	}
	if links[2] != (Link{IMDbID: "0113497"}) {
		t.Errorf("unexpected link %+v", links[2])
	}
}

func TestParseVectors(t *testing.T) {
	input := "1,0.5,0.25\n\"Heat, The\",1,0\n3,0,1,\n"
	vectors, err := ParseVectors(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(vectors))
	}
	if vectors[0].ID != 1 || !slices.Equal(vectors[0].Values, []float32{0.5, 0.25}) {
		t.Errorf("row 0 = %+v", vectors[0])
	}
	if vectors[1].ID != 0 || vectors[1].Title != "Heat, The" || !slices.Equal(vectors[1].Values, []float32{1, 0}) {
		t.Errorf("row 1 = %+v", vectors[1])
	}
	// A trailing comma does not add a component.
	if !slices.Equal(vectors[2].Values, []float32{0, 1}) {
		t.Errorf("row 2 = %+v", vectors[2])
	}

	bad := map[string]string{
		"Ragged":   "1,0.5,0.5\n2,0.5\n",
		"NotFloat": "1,abc\n",
		"NoValues": "1\n",
		"NoKey":    ",0.5\n",
	}
	for name, in := range bad {
		if _, err := ParseVectors(strings.NewReader(in)); !errors.Is(err, ErrMalformedInput) {
			t.Errorf("%s: expected ErrMalformedInput, got %v", name, err)
		}
	}
}

func TestResolveVectors(t *testing.T) {
	vectors := []Vector{
		{ID: 5, Values: []float32{1}},
		{Title: "Heat", Values: []float32{2}},
		{Title: "Missing", Values: []float32{3}},
	}
	out, unresolved := ResolveVectors(vectors, map[int]string{7: "Heat", 9: "Heat", 5: "Five"})
	if unresolved != 1 {
		t.Errorf("expected 1 unresolved row, got %d", unresolved)
	}
	if len(out) != 2 || out[5][0] != 1 || out[7][0] != 2 {
		t.Errorf("unexpected vectors %v", out)
	}
}

func TestScoreMatrix(t *testing.T) {
	scores, err := ParseScores(strings.NewReader("movieId,tagId,relevance\n2,1,0.1\n2,2,0.2\n1,1,0.5\n1,2,0.75\n"))
	if err != nil {
		t.Fatal(err)
	}
	rows, err := ScoreMatrix(scores)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].ID != 1 || rows[1].ID != 2 {
		t.Fatalf("rows not ordered by movie id: %+v", rows)
	}
	if !slices.Equal(rows[0].Values, []float32{0.5, 0.75}) {
		t.Errorf("row 1 = %v", rows[0].Values)
	}

	t.Run("Gap", func(t *testing.T) {
		_, err := ScoreMatrix([]Score{{Movie: 1, Tag: 1}, {Movie: 1, Tag: 3}})
		if !errors.Is(err, ErrMalformedInput) {
			t.Errorf("expected ErrMalformedInput, got %v", err)
		}
	})
	t.Run("Ragged", func(t *testing.T) {
		_, err := ScoreMatrix([]Score{{Movie: 1, Tag: 1}, {Movie: 1, Tag: 2}, {Movie: 2, Tag: 1}})
		if !errors.Is(err, ErrMalformedInput) {
			t.Errorf("expected ErrMalformedInput, got %v", err)
		}
	})
}

func TestWriteMatrixRoundTrip(t *testing.T) {
	rows := []Vector{
		{ID: 1, Values: []float32{0.5, 0.025}},
		{Title: "Heat, The", Values: []float32{1, 0}},
	}
	var buf bytes.Buffer
	if err := WriteMatrix(&buf, rows); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "1,0.5,0.025\n\"Heat, The\",1,0\n" {
		t.Errorf("unexpected output %q", got)
	}
	back, err := ParseVectors(&buf)
	if err != nil {
		t.Fatal(err)
	}
	for i := range rows {
		if back[i].ID != rows[i].ID || back[i].Title != rows[i].Title || !slices.Equal(back[i].Values, rows[i].Values) {
			t.Errorf("row %d: got %+v, want %+v", i, back[i], rows[i])
		}
	}
}

func TestConvertScores(t *testing.T) {
	dir := t.TempDir()
	scores := filepath.Join(dir, "genome-scores.csv")
	matrix := filepath.Join(dir, "matrix.csv")
	if err := os.WriteFile(scores, []byte("movieId,tagId,relevance\n1,1,0.5\n1,2,0.25\n3,1,1\n3,2,0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := ConvertScores(scores, matrix)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows, got %d", n)
	}
	vectors, err := LoadVectors(matrix)
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 2 || vectors[1].ID != 3 || !slices.Equal(vectors[1].Values, []float32{1, 0}) {
		t.Errorf("unexpected matrix %+v", vectors)
	}

	if _, err := LoadTags(filepath.Join(dir, "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestConvertScoresConcurrent(t *testing.T) {
	dir := t.TempDir()
	scores := filepath.Join(dir, "genome-scores.csv")
	matrix := filepath.Join(dir, "matrix.csv")
	if err := os.WriteFile(scores, []byte("movieId,tagId,relevance\n1,1,0.5\n1,2,0.25\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = ConvertScores(scores, matrix)
		}()
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("convert %d: %v", i, err)
		}
	}

	vectors, err := LoadVectors(matrix)
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 1 || !slices.Equal(vectors[0].Values, []float32{0.5, 0.25}) {
		t.Errorf("unexpected matrix %+v", vectors)
	}

	bad := filepath.Join(dir, "bad-scores.csv")
	if err := os.WriteFile(bad, []byte("movieId,tagId,relevance\n1,2,0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ConvertScores(bad, filepath.Join(dir, "bad.csv")); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
}
