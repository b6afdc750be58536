package adjacency

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-layout/pkg/layout"
)

// ErrHeader reports a CSV whose header lacks the from and to columns.
var ErrHeader = errors.New("adjacency: csv header needs from and to columns")

// LoadCSV reads an edge-list CSV. The header names the columns; "from" and
// "to" are required, "intensity" is optional and defaults to zero per row
// (the engine substitutes its default). Column order does not matter and
// extra columns are ignored.
//
// Edges come back in file order. Nodes are the distinct endpoint ids in
// ascending order, all at the origin; see SeedCircle for initial placement.
func LoadCSV(r io.Reader) ([]layout.Node, []layout.Edge, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("adjacency: read csv header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := colIndex["from"]; !ok {
		return nil, nil, ErrHeader
	}
	if _, ok := colIndex["to"]; !ok {
		return nil, nil, ErrHeader
	}

	var edges []layout.Edge
	seen := make(map[int32]struct{})
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("adjacency: read csv: %w", err)
		}
		line++

		from, err := parseID(getField(record, colIndex, "from"))
		if err != nil {
			return nil, nil, fmt.Errorf("adjacency: line %d: from: %w", line, err)
		}
		to, err := parseID(getField(record, colIndex, "to"))
		if err != nil {
			return nil, nil, fmt.Errorf("adjacency: line %d: to: %w", line, err)
		}

		intensity := 0.0
		if raw := getField(record, colIndex, "intensity"); raw != "" {
			intensity, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("adjacency: line %d: intensity: %w", line, err)
			}
		}

		edges = append(edges, layout.Edge{From: from, To: to, Intensity: intensity})
		seen[from] = struct{}{}
		seen[to] = struct{}{}
	}

	nodes := make([]layout.Node, 0, len(seen))
	for id := range seen {
		nodes = append(nodes, layout.Node{ID: id})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	return nodes, edges, nil
}

// LoadCSVFile opens path and loads it with LoadCSV.
func LoadCSVFile(path string) ([]layout.Node, []layout.Edge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("adjacency: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadCSV(f)
}

func getField(record []string, colIndex map[string]int, name string) string {
	idx, ok := colIndex[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseID(s string) (int32, error) {
	if s == "" {
		return 0, errors.New("empty id")
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}
