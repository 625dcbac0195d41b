package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/use-agent/duel/models"
	"github.com/use-agent/duel/scoring"
)

// CLI flags
var (
	apiURL      = flag.String("api-url", "http://localhost:8080", "Duel API base URL")
	apiKey      = flag.String("api-key", "", "API key for authenticated requests")
	runs        = flag.Int("runs", 3, "Number of races per URL")
	concurrency = flag.Int("concurrency", 2, "Races in flight at once")
	strategies  = flag.String("strategies", "", "Comma-separated strategy IDs (default: all)")
	output      = flag.String("output", "benchmark-results.json", "JSON output file path")
)

type benchTarget struct {
	Label string
	URL   string
}

// Test URLs covering 5 site types.
var testURLs = []benchTarget{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"Complex", "https://github.com/go-rod/rod"},
}

// --- Benchmark result types ---

type runResult struct {
	Label   string                  `json:"label"`
	URL     string                  `json:"url"`
	Run     int                     `json:"run"`
	TotalMs int64                   `json:"total_ms"`
	Winner  string                  `json:"winner,omitempty"`
	Scores  []models.StrategyScore  `json:"scores,omitempty"`
	Rows    []models.CostBenefitRow `json:"cost_benefit,omitempty"`
	Error   string                  `json:"error,omitempty"`

	outcomes []models.Outcome
}

// urlSummary pools every run's outcomes for one URL.
type urlSummary struct {
	Label   string         `json:"label"`
	URL     string         `json:"url"`
	Summary models.Summary `json:"summary"`
}

// strategyTally aggregates one strategy across every race.
type strategyTally struct {
	Strategy   string  `json:"strategy"`
	Wins       int     `json:"wins"`
	Races      int     `json:"races"`
	Successes  int     `json:"successes"`
	AvgScore   float64 `json:"avg_score"`
	AvgBenefit float64 `json:"avg_benefit"`

	scoreSum, benefitSum float64
}

type benchmarkReport struct {
	Timestamp  string           `json:"timestamp"`
	APIURL     string           `json:"api_url"`
	RunsPerURL int              `json:"runs_per_url"`
	Runs       []runResult      `json:"runs"`
	URLs       []urlSummary     `json:"urls"`
	Tally      []*strategyTally `json:"tally"`
	NoWinner   int              `json:"no_winner"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Duel Benchmark Suite ===")
	fmt.Printf("API URL:      %s\n", *apiURL)
	fmt.Printf("Runs/URL:     %d\n", *runs)
	fmt.Printf("Concurrency:  %d\n", *concurrency)
	fmt.Printf("Output:       %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure duel is running (e.g. duel serve)\n")
		os.Exit(1)
	}

	var ids []string
	if *strategies != "" {
		ids = strings.Split(*strategies, ",")
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	rc := &racer{
		client:  &http.Client{Timeout: 5 * time.Minute},
		baseURL: *apiURL,
		apiKey:  *apiKey,
		ids:     ids,
	}
	stores := make(map[string]*scoring.Store, len(testURLs))
	for _, t := range testURLs {
		stores[t.Label] = scoring.NewStore()
	}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*concurrency)
	for _, t := range testURLs {
		for i := 1; i <= *runs; i++ {
			g.Go(func() error {
				rr := rc.race(ctx, t, i)
				stores[t.Label].AddAll(rr.outcomes...)
				if rr.Error != "" {
					fmt.Printf("  [%s] run %d FAILED: %s\n", t.Label, i, rr.Error)
				} else {
					fmt.Printf("  [%s] run %d winner=%s  %dms\n", t.Label, i, orNone(rr.Winner), rr.TotalMs)
				}
				mu.Lock()
				report.Runs = append(report.Runs, rr)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	slices.SortFunc(report.Runs, func(a, b runResult) int {
		if c := strings.Compare(a.Label, b.Label); c != 0 {
			return c
		}
		return a.Run - b.Run
	})
	report.URLs = summarize(testURLs, stores)
	report.Tally, report.NoWinner = tally(report.Runs)

	fmt.Println()
	printTable(report.Tally, report.NoWinner)
	fmt.Println()
	for _, u := range report.URLs {
		fmt.Printf("  %-8s %d/%d succeeded, avg %.2fs\n", u.Label, u.Summary.SuccessfulCrawls, u.Summary.TotalCrawls, u.Summary.AvgTimeSeconds)
	}

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// racer posts races to the Duel API.
type racer struct {
	client  *http.Client
	baseURL string
	apiKey  string
	ids     []string
}

// race runs one race against t. Outcomes are requested with content so
// they can be pooled and scored across runs.
func (r *racer) race(ctx context.Context, t benchTarget, run int) runResult {
	rr := runResult{Label: t.Label, URL: t.URL, Run: run}

	bodyBytes, err := json.Marshal(models.RaceRequest{URL: t.URL, Strategies: r.ids, IncludeContent: true})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/v1/race", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("HTTP error: %v", err)
		return rr
	}
	defer resp.Body.Close()
	rr.TotalMs = time.Since(start).Milliseconds()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		rr.Error = fmt.Sprintf("read error: %v", err)
		return rr
	}
	var rresp models.RaceResponse
	if err := json.Unmarshal(body, &rresp); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}
	if !rresp.Success || rresp.Report == nil {
		if rresp.Error != nil {
			rr.Error = fmt.Sprintf("[%s] %s", rresp.Error.Code, rresp.Error.Message)
		} else {
			rr.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return rr
	}

	rr.Winner = rresp.Report.Winner.StrategyID
	rr.Scores = rresp.Report.Winner.Scores
	rr.Rows = rresp.Report.CostBenefit
	rr.outcomes = rresp.Report.Outcomes
	return rr
}

// summarize reports pooled statistics per URL, in targets order.
func summarize(targets []benchTarget, stores map[string]*scoring.Store) []urlSummary {
	out := make([]urlSummary, 0, len(targets))
	for _, t := range targets {
		s, ok := stores[t.Label]
		if !ok {
			continue
		}
		out = append(out, urlSummary{
			Label:   t.Label,
			URL:     t.URL,
			Summary: scoring.SummaryStats(s.Outcomes()),
		})
	}
	return out
}

// tally counts wins per strategy and averages composite scores over the
// races a strategy succeeded in and benefits over every race it ran in.
func tally(results []runResult) ([]*strategyTally, int) {
	byID := make(map[string]*strategyTally)
	get := func(id string) *strategyTally {
		t, ok := byID[id]
		if !ok {
			t = &strategyTally{Strategy: id}
			byID[id] = t
		}
		return t
	}

	noWinner := 0
	for _, rr := range results {
		if rr.Error != "" {
			continue
		}
		if rr.Winner == "" {
			noWinner++
		} else {
			get(rr.Winner).Wins++
		}
		for _, row := range rr.Rows {
			t := get(row.StrategyID)
			t.Races++
			t.benefitSum += row.Benefit
		}
		for _, s := range rr.Scores {
			t := get(s.StrategyID)
			t.Successes++
			t.scoreSum += s.Score
		}
	}

	out := make([]*strategyTally, 0, len(byID))
	for _, t := range byID {
		if t.Successes > 0 {
			t.AvgScore = t.scoreSum / float64(t.Successes)
		}
		if t.Races > 0 {
			t.AvgBenefit = t.benefitSum / float64(t.Races)
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *strategyTally) int {
		if a.Wins != b.Wins {
			return b.Wins - a.Wins
		}
		return strings.Compare(a.Strategy, b.Strategy)
	})
	return out, noWinner
}

func printTable(tallies []*strategyTally, noWinner int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tWINS\tSUCCESS\tAVG SCORE\tAVG BENEFIT")
	fmt.Fprintln(w, "--------\t----\t-------\t---------\t-----------")
	for _, t := range tallies {
		fmt.Fprintf(w, "%s\t%d\t%d/%d\t%.1f\t%.1f\n", t.Strategy, t.Wins, t.Successes, t.Races, t.AvgScore, t.AvgBenefit)
	}
	w.Flush()
	if noWinner > 0 {
		fmt.Printf("\n%d race(s) had no winner\n", noWinner)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
