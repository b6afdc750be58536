package graphfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dd0wney/cluso-layout/pkg/layout"
	"github.com/dd0wney/cluso-layout/pkg/validation"
)

// JSON mirrors the binary container fields for human-edited inputs. Unlike
// binary files, JSON goes through full validation because a NaN or negative
// intensity here is a typo, not a computed value.

type jsonGraph struct {
	Width  float64    `json:"width" validate:"required,finite,gt=0"`
	Height float64    `json:"height" validate:"required,finite,gt=0"`
	Nodes  []jsonNode `json:"nodes"`
	Edges  []jsonEdge `json:"edges,omitempty"`
}

type jsonNode struct {
	ID    int32   `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Fixed bool    `json:"fixed,omitempty"`
}

type jsonEdge struct {
	From      int32   `json:"from"`
	To        int32   `json:"to"`
	Intensity float64 `json:"intensity,omitempty"`
}

type jsonPositions struct {
	Positions []jsonPosition `json:"positions"`
}

type jsonPosition struct {
	ID int32   `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// ReadGraphJSON parses and validates a JSON graph.
func ReadGraphJSON(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var jg jsonGraph
	if err := json.Unmarshal(data, &jg); err != nil {
		return nil, fmt.Errorf("parse graph json: %w", err)
	}
	if err := validation.Struct(&jg); err != nil {
		return nil, err
	}

	g := &Graph{
		Width:  jg.Width,
		Height: jg.Height,
		Nodes:  make([]layout.Node, len(jg.Nodes)),
		Edges:  make([]layout.Edge, len(jg.Edges)),
	}
	for i, n := range jg.Nodes {
		g.Nodes[i] = layout.Node{ID: n.ID, X: n.X, Y: n.Y, Fixed: n.Fixed}
	}
	for i, e := range jg.Edges {
		g.Edges[i] = layout.Edge{From: e.From, To: e.To, Intensity: e.Intensity}
	}

	if err := validation.ValidateNodes(g.Nodes); err != nil {
		return nil, err
	}
	if err := validation.ValidateEdges(g.Edges); err != nil {
		return nil, err
	}
	return g, nil
}

// ReadGraphJSONFile loads a JSON graph from disk.
func ReadGraphJSONFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGraphJSON(f)
}

// WriteGraphJSON writes g as indented JSON.
func WriteGraphJSON(w io.Writer, g *Graph) error {
	jg := jsonGraph{
		Width:  g.Width,
		Height: g.Height,
		Nodes:  make([]jsonNode, len(g.Nodes)),
		Edges:  make([]jsonEdge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		jg.Nodes[i] = jsonNode{ID: n.ID, X: n.X, Y: n.Y, Fixed: n.Fixed}
	}
	for i, e := range g.Edges {
		jg.Edges[i] = jsonEdge{From: e.From, To: e.To, Intensity: e.Intensity}
	}

	data, err := json.MarshalIndent(&jg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// ReadPositionsJSON parses a JSON position list.
func ReadPositionsJSON(r io.Reader) ([]layout.Position, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var jp jsonPositions
	if err := json.Unmarshal(data, &jp); err != nil {
		return nil, fmt.Errorf("parse positions json: %w", err)
	}

	positions := make([]layout.Position, len(jp.Positions))
	for i, p := range jp.Positions {
		positions[i] = layout.Position{ID: p.ID, X: p.X, Y: p.Y}
	}
	return positions, nil
}

// WritePositionsJSON writes positions as indented JSON.
func WritePositionsJSON(w io.Writer, positions []layout.Position) error {
	jp := jsonPositions{Positions: make([]jsonPosition, len(positions))}
	for i, p := range positions {
		jp.Positions[i] = jsonPosition{ID: p.ID, X: p.X, Y: p.Y}
	}

	data, err := json.MarshalIndent(&jp, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
