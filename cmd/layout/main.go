// layout is the one-shot CLI: read a graph container, run the simulation
// in-process, write the positions. No daemon involved.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dd0wney/cluso-layout/pkg/graphfile"
	"github.com/dd0wney/cluso-layout/pkg/layout"
)

func main() {
	inPath := flag.String("in", "", "Input graph (.json or binary container)")
	outPath := flag.String("out", "-", "Output positions (.json or binary container, \"-\" = JSON to stdout)")
	iterations := flag.Int("iterations", layout.DefaultMaxIterations, "Simulation iterations")
	temperature := flag.Float64("temperature", layout.DefaultInitialTemperature, "Initial temperature")
	width := flag.Float64("width", 0, "Override the container's area width")
	height := flag.Float64("height", 0, "Override the container's area height")
	topLeft := flag.Bool("top-left", false, "Treat coordinates as top-left origin (translate in and out of engine space)")
	flag.Parse()

	if *inPath == "" {
		fmt.Println("Usage: layout -in graph.json [-out positions.json] [-iterations 100] [-top-left]")
		os.Exit(1)
	}

	// Progress goes to stderr when the result streams to stdout.
	progress := io.Writer(os.Stdout)
	if *outPath == "-" {
		progress = os.Stderr
	}

	g, err := loadGraph(*inPath)
	if err != nil {
		fmt.Fprintf(progress, "❌ Failed to read graph: %v\n", err)
		os.Exit(1)
	}
	if *width > 0 {
		g.Width = *width
	}
	if *height > 0 {
		g.Height = *height
	}
	fmt.Fprintf(progress, "📂 Loaded %s: %d nodes, %d edges, %gx%g area\n",
		*inPath, len(g.Nodes), len(g.Edges), g.Width, g.Height)

	if *topLeft {
		for i := range g.Nodes {
			g.Nodes[i].X -= g.Width / 2
			g.Nodes[i].Y -= g.Height / 2
		}
	}

	sess, err := layout.New(g.Nodes, g.Edges, g.Width, g.Height)
	if err != nil {
		fmt.Fprintf(progress, "❌ Failed to create session: %v\n", err)
		os.Exit(1)
	}
	defer sess.Close()

	out := make([]layout.Position, len(g.Nodes))
	start := time.Now()
	n, err := sess.ComputeInto(context.Background(), layout.ComputeOptions{
		MaxIterations:      *iterations,
		InitialTemperature: *temperature,
	}, out)
	if err != nil {
		fmt.Fprintf(progress, "❌ Compute failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(progress, "✅ Computed %d positions in %s (%d iterations)\n",
		n, time.Since(start).Round(time.Microsecond), *iterations)

	if *topLeft {
		for i := range out[:n] {
			out[i].X += g.Width / 2
			out[i].Y += g.Height / 2
		}
	}

	if err := writePositions(*outPath, out[:n]); err != nil {
		fmt.Fprintf(progress, "❌ Failed to write positions: %v\n", err)
		os.Exit(1)
	}
	if *outPath != "-" {
		fmt.Fprintf(progress, "💾 Wrote %s\n", *outPath)
	}
}

func loadGraph(path string) (*graphfile.Graph, error) {
	if strings.HasSuffix(path, ".json") {
		return graphfile.ReadGraphJSONFile(path)
	}
	return graphfile.ReadGraphFile(path)
}

func writePositions(path string, positions []layout.Position) error {
	if path == "-" {
		return graphfile.WritePositionsJSON(os.Stdout, positions)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if strings.HasSuffix(path, ".json") {
		err = graphfile.WritePositionsJSON(f, positions)
	} else {
		err = graphfile.WritePositions(f, positions)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
