package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/use-agent/duel/models"
	"github.com/use-agent/duel/scoring"
)

func TestTally(t *testing.T) {
	results := []runResult{
		{
			Winner: "lightweight",
			Scores: []models.StrategyScore{{StrategyID: "lightweight", Score: 80}, {StrategyID: "browser", Score: 60}},
			Rows:   []models.CostBenefitRow{{StrategyID: "lightweight", Benefit: 90}, {StrategyID: "browser", Benefit: 80}},
		},
		{
			Winner: "browser",
			Scores: []models.StrategyScore{{StrategyID: "browser", Score: 70}},
			Rows:   []models.CostBenefitRow{{StrategyID: "lightweight", Benefit: 0}, {StrategyID: "browser", Benefit: 70}},
		},
		{
			Rows: []models.CostBenefitRow{{StrategyID: "lightweight"}, {StrategyID: "browser"}},
		},
		{Error: "HTTP error: refused"},
	}

	got, noWinner := tally(results)
	if noWinner != 1 {
		t.Errorf("noWinner = %d, want 1", noWinner)
	}
	want := []*strategyTally{
		{Strategy: "browser", Wins: 1, Races: 3, Successes: 2, AvgScore: 65, AvgBenefit: 50},
		{Strategy: "lightweight", Wins: 1, Races: 3, Successes: 1, AvgScore: 80, AvgBenefit: 30},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(strategyTally{})); diff != "" {
		t.Errorf("tally (-want +got):\n%s", diff)
	}
}

func outcome(strategy string, ok bool, elapsed time.Duration, content string) models.Outcome {
	return models.NewOutcome(models.OutcomeParams{
		TargetURL:  "https://example.com",
		StrategyID: strategy,
		Succeeded:  ok,
		Elapsed:    elapsed,
		StatusCode: 200,
		Content:    content,
	})
}

// fakeAPI answers /api/v1/race with one report per call, in order.
func fakeAPI(t *testing.T, reports ...models.RaceReport) (*httptest.Server, *[]models.RaceRequest) {
	t.Helper()
	var seen []models.RaceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/race" || r.Header.Get("X-API-Key") != "k" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		var req models.RaceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		seen = append(seen, req)
		report := reports[len(seen)-1]
		_ = json.NewEncoder(w).Encode(models.RaceResponse{Success: true, Report: &report})
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestRacer_PoolsRunsPerURL(t *testing.T) {
	target := benchTarget{Label: "Static", URL: "https://example.com"}
	run1 := scoring.BuildReport(target.URL, []models.Outcome{
		outcome("lightweight", true, time.Second, "<html>one</html>"),
		outcome("browser", false, 3*time.Second, ""),
	})
	run2 := scoring.BuildReport(target.URL, []models.Outcome{
		outcome("lightweight", true, 3*time.Second, "<html>two</html>"),
		outcome("browser", true, time.Second, "<html>three</html>"),
	})
	srv, seen := fakeAPI(t, run1, run2)

	rc := &racer{client: srv.Client(), baseURL: srv.URL, apiKey: "k", ids: []string{"lightweight", "browser"}}
	store := scoring.NewStore()
	for i := 1; i <= 2; i++ {
		rr := rc.race(context.Background(), target, i)
		if rr.Error != "" {
			t.Fatalf("run %d: %s", i, rr.Error)
		}
		store.AddAll(rr.outcomes...)
	}

	for _, req := range *seen {
		if !req.IncludeContent || req.URL != target.URL {
			t.Errorf("request = %+v", req)
		}
	}

	got := summarize([]benchTarget{target, {Label: "Missing"}}, map[string]*scoring.Store{"Static": store})
	want := []urlSummary{{
		Label: "Static",
		URL:   target.URL,
		Summary: models.Summary{
			TotalCrawls:      4,
			SuccessfulCrawls: 3,
			AvgTimeSeconds:   2,
			TotalPayloadSize: len("<html>one</html>") + len("<html>two</html>") + len("<html>three</html>"),
			StrategiesTested: []string{"lightweight", "browser"},
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summarize (-want +got):\n%s", diff)
	}

	// Scored as one race, only the first lightweight success counts.
	pooled := store.Report(target.URL)
	if n := len(pooled.Winner.Scores); n != 2 {
		t.Errorf("pooled scores = %d, want 2", n)
	}
}

func TestRacer_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(models.RaceResponse{
			Error: &models.ErrorDetail{Code: models.ErrCodeRateLimited, Message: "slow down"},
		})
	}))
	defer srv.Close()

	rc := &racer{client: srv.Client(), baseURL: srv.URL}
	rr := rc.race(context.Background(), benchTarget{Label: "Static", URL: "https://example.com"}, 1)
	if rr.Error != "[RATE_LIMITED] slow down" || rr.outcomes != nil {
		t.Errorf("runResult = %+v", rr)
	}
}
