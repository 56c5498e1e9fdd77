package IO

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Edge is a directed regulatory link From -> To.
type Edge struct {
	From, To string
}

// LoadGroundTruthCSV reads a BEELINE refNetwork.csv. The header row is
// skipped; the first two columns of every other row are Gene1,Gene2.
func LoadGroundTruthCSV(path string) ([]Edge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	edges, err := ReadGroundTruth(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return edges, nil
}

func ReadGroundTruth(r io.Reader) ([]Edge, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return nil, ErrEmptyData
		}
		return nil, err
	}
	var edges []Edge
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d has %d fields, want at least 2: %w", line, len(rec), ErrRaggedRow)
		}
		edges = append(edges, Edge{From: strings.TrimSpace(rec[0]), To: strings.TrimSpace(rec[1])})
	}
	return edges, nil
}

// Restrict keeps edges whose genes are both in index, dropping self loops
// and duplicates. Order of first appearance is preserved.
func Restrict(edges []Edge, index map[string]int) []Edge {
	seen := make(map[Edge]bool, len(edges))
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		_, okFrom := index[e.From]
		_, okTo := index[e.To]
		if !okFrom || !okTo || e.From == e.To || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
