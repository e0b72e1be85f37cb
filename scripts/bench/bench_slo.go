// bench_slo.go: SLO benchmark for the alignment pipeline and run store.
// Run: go run ./scripts/bench [--entities 193] [--resolutions 1000] [--iterations N]
//
// Generates a synthetic UN-sized batch and reports p50/p95/p99 latencies for
// each stage as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
	"github.com/julianne-789/tech-ga-analytics/internal/store"
)

type BenchResult struct {
	Stage      string  `json:"stage"`
	Iterations int     `json:"iterations"`
	P50Ms      float64 `json:"p50_ms"`
	P95Ms      float64 `json:"p95_ms"`
	P99Ms      float64 `json:"p99_ms"`
	MinMs      float64 `json:"min_ms"`
	MaxMs      float64 `json:"max_ms"`
	MeanMs     float64 `json:"mean_ms"`
	Pass       bool    `json:"pass"`
	SLOMs      float64 `json:"slo_ms"`
}

type BenchReport struct {
	GeneratedAt string        `json:"generated_at"`
	Entities    int           `json:"entities"`
	Resolutions int           `json:"resolutions"`
	Rows        int           `json:"rows"`
	Results     []BenchResult `json:"results"`
	AllPass     bool          `json:"all_pass"`
}

func main() {
	entities := flag.Int("entities", 193, "Number of voting entities")
	resolutions := flag.Int("resolutions", 1000, "Number of resolutions")
	iterations := flag.Int("iterations", 10, "Number of iterations per stage")
	seed := flag.Int64("seed", 1, "Random seed for the synthetic batch")
	outFile := flag.String("out", "", "Output JSON file (default: stdout)")
	flag.Parse()

	rows := syntheticBatch(rand.New(rand.NewSource(*seed)), *entities, *resolutions)
	fields := alignment.DefaultFields()

	report := BenchReport{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Entities:    *entities,
		Resolutions: *resolutions,
		Rows:        len(rows),
		AllPass:     true,
	}

	fmt.Fprintf(os.Stderr, "galign SLO Benchmark\n")
	fmt.Fprintf(os.Stderr, "  Entities: %d, Resolutions: %d, Rows: %d\n", *entities, *resolutions, len(rows))
	fmt.Fprintf(os.Stderr, "  Iterations: %d\n\n", *iterations)

	records := alignment.NormalizeAll(rows, fields)
	pivot, universe := alignment.BuildPivotFromRecords(records)
	res := alignment.Compute(pivot, universe)

	stages := []struct {
		name  string
		sloMs float64
		fn    func()
	}{
		{"pivot", 1000, func() { alignment.BuildPivot(rows, fields) }},
		{"compute", 5000, func() { alignment.Compute(pivot, universe) }},
		{"assemble", 2000, func() { alignment.Assemble(res) }},
		{"analyze", 8000, func() { alignment.Analyze(rows, fields) }},
	}
	for _, st := range stages {
		r := computeResult(st.name, timeIt(*iterations, st.fn), st.sloMs)
		report.Results = append(report.Results, r)
		report.AllPass = report.AllPass && r.Pass
	}

	storeResults, err := benchmarkStore(context.Background(), alignment.Analyze(rows, fields), *iterations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error benchmarking store: %v\n", err)
		os.Exit(1)
	}
	for _, r := range storeResults {
		report.Results = append(report.Results, r)
		report.AllPass = report.AllPass && r.Pass
	}

	for _, r := range report.Results {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(os.Stderr, "  %s: p50=%.1fms p95=%.1fms p99=%.1fms (SLO: %.0fms) %s\n",
			r.Stage, r.P50Ms, r.P95Ms, r.P99Ms, r.SLOMs, status)
	}
	if report.AllPass {
		fmt.Fprintf(os.Stderr, "\nAll SLOs met\n")
	} else {
		fmt.Fprintf(os.Stderr, "\nSome SLOs missed\n")
	}

	jsonBytes, _ := json.MarshalIndent(report, "", "  ")
	if *outFile != "" {
		os.WriteFile(*outFile, jsonBytes, 0644)
		fmt.Fprintf(os.Stderr, "\nReport written to %s\n", *outFile)
	} else {
		fmt.Println(string(jsonBytes))
	}
}

// syntheticBatch builds a dense batch where each entity leans toward one of
// a handful of blocs, so match percentages spread across the whole range.
func syntheticBatch(rng *rand.Rand, entities, resolutions int) []alignment.Row {
	const blocs = 4
	votes := []string{"Y", "N", "A", "X", ""}
	lean := make([]int, entities)
	for e := range lean {
		lean[e] = rng.Intn(blocs)
	}

	rows := make([]alignment.Row, 0, entities*resolutions)
	for r := 0; r < resolutions; r++ {
		res := fmt.Sprintf("A/RES/%d/%03d", 60+r/200, r%200)
		blocVote := make([]string, blocs)
		for b := range blocVote {
			blocVote[b] = votes[rng.Intn(2)]
		}
		for e := 0; e < entities; e++ {
			v := blocVote[lean[e]]
			if rng.Float64() < 0.2 {
				v = votes[rng.Intn(len(votes))]
			}
			rows = append(rows, alignment.Row{
				"resolution": res,
				"ms_name":    fmt.Sprintf("Entity %03d", e),
				"ms_vote":    v,
			})
		}
	}
	return rows
}

func benchmarkStore(ctx context.Context, a *alignment.Analysis, iterations int) ([]BenchResult, error) {
	s, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		return nil, err
	}
	defer s.Close()

	fields := alignment.DefaultFields()
	var lastID int64
	var saveErr error
	save := timeIt(iterations, func() {
		if saveErr != nil {
			return
		}
		lastID, saveErr = s.SaveRun(ctx, store.NewRun("synthetic", fields, a))
	})
	if saveErr != nil {
		return nil, saveErr
	}
	get := timeIt(iterations, func() { s.GetRun(ctx, lastID) })
	list := timeIt(iterations, func() { s.ListRuns(ctx, store.ListOpts{Limit: 20}) })

	return []BenchResult{
		computeResult("store_save", save, 2000),
		computeResult("store_get", get, 2000),
		computeResult("store_list", list, 200),
	}, nil
}

func timeIt(iterations int, fn func()) []float64 {
	times := make([]float64, 0, iterations)
	for i := 0; i < iterations; i++ {
		start := time.Now()
		fn()
		times = append(times, float64(time.Since(start).Microseconds())/1000.0)
	}
	return times
}

func computeResult(name string, times []float64, sloMs float64) BenchResult {
	sort.Float64s(times)
	n := len(times)
	if n == 0 {
		return BenchResult{Stage: name, SLOMs: sloMs}
	}

	sum := 0.0
	for _, t := range times {
		sum += t
	}

	p95 := times[int(float64(n)*0.95)]
	return BenchResult{
		Stage:      name,
		Iterations: n,
		P50Ms:      times[n/2],
		P95Ms:      p95,
		P99Ms:      times[int(float64(n)*0.99)],
		MinMs:      times[0],
		MaxMs:      times[n-1],
		MeanMs:     sum / float64(n),
		SLOMs:      sloMs,
		Pass:       p95 <= sloMs,
	}
}
