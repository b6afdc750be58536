// layout-bench measures simulation throughput on synthetic graphs and
// verifies the sharded repulsion pass changes nothing but the wall clock.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-layout/pkg/layout"
)

func main() {
	numNodes := flag.Int("nodes", 2000, "Number of nodes")
	avgDegree := flag.Int("degree", 3, "Average edges per node")
	iterations := flag.Int("iterations", 100, "Simulation iterations")
	seed := flag.Int64("seed", 42, "Graph generator seed")
	maxWorkers := flag.Int("workers", 0, "Largest worker count to test (0 = CPU count)")
	flag.Parse()

	if *maxWorkers == 0 {
		*maxWorkers = runtime.NumCPU()
	}

	fmt.Printf("🔬 Layout Simulation Benchmark\n")
	fmt.Printf("======================================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Nodes:       %d\n", *numNodes)
	fmt.Printf("  Avg Degree:  %d\n", *avgDegree)
	fmt.Printf("  Iterations:  %d\n", *iterations)
	fmt.Printf("  Seed:        %d\n", *seed)
	fmt.Printf("  CPU Cores:   %d\n\n", runtime.NumCPU())

	fmt.Printf("📊 Generating test graph...\n")
	nodes, edges := syntheticGraph(*numNodes, *avgDegree, *seed)
	width, height := 4000.0, 3000.0
	fmt.Printf("   %d nodes, %d edges in a %gx%g area\n\n", len(nodes), len(edges), width, height)

	opts := layout.ComputeOptions{
		MaxIterations:      *iterations,
		InitialTemperature: 80,
	}

	fmt.Printf("🐌 Serial repulsion pass...\n")
	baseline, serialOut := run(nodes, edges, width, height, opts, 1)
	report(baseline, *numNodes, *iterations, 0)

	workerSteps := []int{2, 4}
	if *maxWorkers > 4 {
		workerSteps = append(workerSteps, *maxWorkers)
	}
	var bestSpeedup float64
	var bestWorkers int
	for _, w := range workerSteps {
		if w > *maxWorkers {
			continue
		}
		fmt.Printf("⚡ Sharded repulsion pass (%d workers)...\n", w)
		elapsed, out := run(nodes, edges, width, height, opts, w)
		speedup := baseline.Seconds() / elapsed.Seconds()
		report(elapsed, *numNodes, *iterations, speedup)

		if !samePositions(serialOut, out) {
			fmt.Printf("❌ Sharded run diverged from the serial baseline\n")
			os.Exit(1)
		}
		if speedup > bestSpeedup {
			bestSpeedup, bestWorkers = speedup, w
		}
	}
	fmt.Printf("✅ Every sharded run matched the serial output bit for bit\n\n")

	fmt.Printf("📊 Summary\n")
	fmt.Printf("======================================\n")
	fmt.Printf("Serial:        %s (baseline)\n", baseline.Round(time.Millisecond))
	fmt.Printf("Best:          %.2fx with %d workers\n", bestSpeedup, bestWorkers)
	if bestSpeedup >= 2.0 {
		fmt.Printf("🚀 Sharding pays off at this size\n")
	} else {
		fmt.Printf("💡 Modest speedup - try more nodes, repulsion is O(n²)\n")
	}
}

func run(nodes []layout.Node, edges []layout.Edge, width, height float64, opts layout.ComputeOptions, workers int) (time.Duration, []layout.Position) {
	sess, err := layout.New(nodes, edges, width, height)
	if err != nil {
		fmt.Printf("❌ Failed to create session: %v\n", err)
		os.Exit(1)
	}
	defer sess.Close()
	sess.SetParallelism(workers)

	out := make([]layout.Position, len(nodes))
	start := time.Now()
	n, err := sess.ComputeInto(context.Background(), opts, out)
	if err != nil {
		fmt.Printf("❌ Compute failed: %v\n", err)
		os.Exit(1)
	}
	return time.Since(start), out[:n]
}

func report(elapsed time.Duration, nodes, iterations int, speedup float64) {
	throughput := float64(nodes) * float64(iterations) / elapsed.Seconds()
	fmt.Printf("   Duration:    %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("   Throughput:  %.0f node-iterations/sec\n", throughput)
	if speedup > 0 {
		fmt.Printf("   Speedup:     %.2fx\n", speedup)
	}
	fmt.Println()
}

func samePositions(a, b []layout.Position) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// syntheticGraph builds a connected random graph: a spanning tree first,
// then extra edges up to the requested average degree. Same seed, same
// graph.
func syntheticGraph(n, avgDegree int, seed int64) ([]layout.Node, []layout.Edge) {
	rng := rand.New(rand.NewSource(seed))

	nodes := make([]layout.Node, n)
	for i := range nodes {
		nodes[i] = layout.Node{
			ID: int32(i),
			X:  rng.Float64()*100 - 50,
			Y:  rng.Float64()*100 - 50,
		}
	}

	var edges []layout.Edge
	for i := 1; i < n; i++ {
		edges = append(edges, layout.Edge{
			From:      int32(rng.Intn(i)),
			To:        int32(i),
			Intensity: float64(rng.Intn(100) + 1),
		})
	}
	extra := n*avgDegree/2 - len(edges)
	for i := 0; i < extra; i++ {
		from := rng.Intn(n)
		to := rng.Intn(n)
		edges = append(edges, layout.Edge{
			From:      int32(from),
			To:        int32(to),
			Intensity: float64(rng.Intn(100) + 1),
		})
	}
	return nodes, edges
}
