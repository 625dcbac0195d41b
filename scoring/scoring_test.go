package scoring

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/duel/models"
)

var body = strings.Repeat("lorem ipsum dolor ", 10)

func success(id string, elapsed time.Duration, flags ...string) models.Outcome {
	attrs := models.Attributes{}
	for _, f := range flags {
		attrs[f] = true
	}
	return models.NewOutcome(models.OutcomeParams{
		TargetURL:  "https://example.com",
		StrategyID: id,
		Succeeded:  true,
		Elapsed:    elapsed,
		StatusCode: 200,
		Content:    body,
		Attributes: attrs,
	})
}

func failure(id string, elapsed time.Duration) models.Outcome {
	return models.FailedOutcome("https://example.com", id, elapsed, 0, errors.New("connection refused"))
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompositeScore(t *testing.T) {
	tests := []struct {
		name string
		o    models.Outcome
		want Score
	}{
		{"fast capped", success("a", 100*time.Millisecond), Score{Speed: 30, Integrity: 30, Quality: 20}},
		{"half second structured", success("a", 500*time.Millisecond, models.AttrStructuredData), Score{Speed: 20, Integrity: 30, Quality: 28}},
		{"zero elapsed", success("a", 0), Score{Speed: 0, Integrity: 30, Quality: 20}},
		{"failed", failure("a", time.Second), Score{Speed: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompositeScore(tt.o)
			if !approx(got.Speed, tt.want.Speed) || !approx(got.Integrity, tt.want.Integrity) || !approx(got.Quality, tt.want.Quality) {
				t.Errorf("CompositeScore = %+v, want %+v", got, tt.want)
			}
			if got.Speed > 30 || got.Quality < 0 || got.Quality > 40 {
				t.Errorf("component out of bounds: %+v", got)
			}
		})
	}
}

func TestDetermineWinner_ThreeWay(t *testing.T) {
	outcomes := []models.Outcome{
		success("A", 500*time.Millisecond, models.AttrStructuredData),
		success("B", 2300*time.Millisecond, models.AttrStructuredData, models.AttrMarkdown),
		failure("C", time.Second),
	}

	w := DetermineWinner(outcomes)
	if w.StrategyID != "A" {
		t.Fatalf("winner = %q, want A", w.StrategyID)
	}
	if !approx(w.Score, 78) {
		t.Errorf("score = %v, want 78", w.Score)
	}
	if len(w.Scores) != 2 {
		t.Fatalf("scores = %d entries, want 2 (failed C excluded)", len(w.Scores))
	}
	if w.Scores[1].StrategyID != "B" || math.Abs(w.Scores[1].Score-68.35) > 0.01 {
		t.Errorf("B score = %+v, want about 68.35", w.Scores[1])
	}
	want := "A won with a score of 78.0/100. Completed in 0.50s, excellent data integrity"
	if w.Reason != want {
		t.Errorf("reason = %q, want %q", w.Reason, want)
	}
}

func TestDetermineWinner_NoWinner(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []models.Outcome
		reason   string
	}{
		{"empty", nil, ReasonNoResults},
		{"all failed", []models.Outcome{failure("a", time.Second), failure("b", 2*time.Second)}, ReasonAllFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DetermineWinner(tt.outcomes)
			if w.HasWinner() {
				t.Errorf("unexpected winner %q", w.StrategyID)
			}
			if w.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", w.Reason, tt.reason)
			}
			if w.Scores == nil || len(w.Scores) != 0 {
				t.Errorf("scores = %#v, want empty non-nil", w.Scores)
			}
		})
	}
}

func TestDetermineWinner_TiesAndRepeats(t *testing.T) {
	outcomes := []models.Outcome{
		failure("x", time.Second),
		success("x", time.Second),
		success("y", time.Second),
		success("x", 100*time.Millisecond),
	}
	w := DetermineWinner(outcomes)
	if w.StrategyID != "x" {
		t.Errorf("winner = %q, want x (tie goes to earliest)", w.StrategyID)
	}
	var ids []string
	for _, s := range w.Scores {
		ids = append(ids, s.StrategyID)
	}
	if diff := cmp.Diff([]string{"x", "y"}, ids); diff != "" {
		t.Errorf("scored IDs mismatch (-want +got):\n%s", diff)
	}
	if !approx(w.Score, 10+30+20) {
		t.Errorf("x scored from later outcome: %v", w.Score)
	}
}

func TestDetermineWinner_HighQualityRationale(t *testing.T) {
	w := DetermineWinner([]models.Outcome{
		success("ai-agentic", 4*time.Second, models.AttrStructuredData, models.AttrMarkdown, models.AttrCleanText),
	})
	if !strings.HasSuffix(w.Reason, "high structural quality (100/100)") {
		t.Errorf("reason = %q", w.Reason)
	}
}

func TestCostBenefit(t *testing.T) {
	rows := CostBenefit([]models.Outcome{
		success("lightweight", time.Second),
		failure("browser", time.Second),
		success("ai-agentic", time.Second, models.AttrStructuredData, models.AttrMarkdown, models.AttrCleanText),
		success("browser:stealth", time.Second),
		success("custom", time.Second),
	})

	want := []models.CostBenefitRow{
		{StrategyID: "lightweight", Family: "lightweight", RelativeCost: 1, Benefit: 85, Ratio: 85, Recommendation: models.RecommendExcellent},
		{StrategyID: "browser", Family: "browser", RelativeCost: 5, Recommendation: models.RecommendPoor},
		{StrategyID: "ai-agentic", Family: "ai-agentic", RelativeCost: 10, Benefit: 100, Ratio: 10, Recommendation: models.RecommendExcellent},
		{StrategyID: "browser:stealth", Family: "browser", RelativeCost: 5, Benefit: 85, Ratio: 17, Recommendation: models.RecommendExcellent},
		{StrategyID: "custom", Family: "custom", RelativeCost: 5, Benefit: 85, Ratio: 17, Recommendation: models.RecommendExcellent},
	}
	ignoreRanks := cmp.FilterPath(func(p cmp.Path) bool {
		n := p.Last().String()
		return n == ".SpeedRank" || n == ".QualityRank"
	}, cmp.Ignore())
	if diff := cmp.Diff(want, rows, ignoreRanks, cmp.Comparer(approx)); diff != "" {
		t.Errorf("CostBenefit mismatch (-want +got):\n%s", diff)
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		ratio float64
		want  models.Recommendation
	}{
		{0, models.RecommendPoor},
		{1, models.RecommendPoor},
		{1.01, models.RecommendFair},
		{3, models.RecommendFair},
		{3.5, models.RecommendGood},
		{5, models.RecommendGood},
		{5.1, models.RecommendExcellent},
	}
	for _, tt := range tests {
		if got := Recommend(tt.ratio); got != tt.want {
			t.Errorf("Recommend(%v) = %q, want %q", tt.ratio, got, tt.want)
		}
	}
}

func TestCostBenefit_Ranks(t *testing.T) {
	rows := CostBenefit([]models.Outcome{
		success("s1", 2*time.Second),
		failure("s2", 100*time.Millisecond),
		success("s3", time.Second, models.AttrStructuredData),
		success("s4", 2*time.Second, models.AttrStructuredData),
	})

	type ranks struct{ Speed, Quality int }
	got := map[string]ranks{}
	for _, r := range rows {
		got[r.StrategyID] = ranks{r.SpeedRank, r.QualityRank}
	}
	want := map[string]ranks{
		"s1": {2, 3},
		"s2": {0, 0},
		"s3": {1, 1},
		"s4": {3, 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ranks mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryStats(t *testing.T) {
	s := SummaryStats([]models.Outcome{
		success("a", time.Second),
		failure("b", 3*time.Second),
		success("a", 2*time.Second),
	})
	want := models.Summary{
		TotalCrawls:      3,
		SuccessfulCrawls: 2,
		AvgTimeSeconds:   2,
		TotalPayloadSize: 2 * len(body),
		StrategiesTested: []string{"a", "b"},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("SummaryStats mismatch (-want +got):\n%s", diff)
	}

	empty := SummaryStats(nil)
	if empty.TotalCrawls != 0 || empty.AvgTimeSeconds != 0 || len(empty.StrategiesTested) != 0 {
		t.Errorf("empty summary = %+v", empty)
	}

	allFailed := SummaryStats([]models.Outcome{failure("a", time.Second)})
	if allFailed.SuccessfulCrawls != 0 {
		t.Errorf("successful = %d, want 0", allFailed.SuccessfulCrawls)
	}
}

func TestComparisonTable(t *testing.T) {
	rows := ComparisonTable([]models.Outcome{
		success("a", time.Second, models.AttrMarkdown),
		failure("b", time.Second),
	})
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if !rows[0].IntegrityOK || rows[0].QualityScore != 65 || !approx(rows[0].CompositeScore, 10+30+26) {
		t.Errorf("row a = %+v", rows[0])
	}
	if rows[1].IntegrityOK || rows[1].ErrorMessage != "connection refused" {
		t.Errorf("row b = %+v", rows[1])
	}
}

func TestAgreement(t *testing.T) {
	withHTML := func(id, raw string) models.Outcome {
		o := success(id, time.Second)
		o.Attributes[models.AttrRawHTML] = raw
		return o
	}
	pairs := Agreement([]models.Outcome{
		withHTML("lightweight", "<html><body><p>x</p></body></html>"),
		withHTML("browser", "<html><body><p>y</p></body></html>"),
		failure("ai-agentic", time.Second),
		success("other", time.Second),
	})
	want := []models.AgreementPair{
		{A: "lightweight", B: "browser", TextDistance: 0, DOMDistance: 0},
		{A: "lightweight", B: "other", TextDistance: 0, DOMDistance: -1},
		{A: "browser", B: "other", TextDistance: 0, DOMDistance: -1},
	}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Errorf("Agreement mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildReport_Empty(t *testing.T) {
	r := BuildReport("https://example.com", nil)
	if r.Outcomes == nil || len(r.Outcomes) != 0 {
		t.Errorf("outcomes = %#v, want empty non-nil", r.Outcomes)
	}
	if r.Winner.Reason != ReasonNoResults {
		t.Errorf("reason = %q", r.Winner.Reason)
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(success(string(rune('a'+i%26)), time.Second))
		}()
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Fatalf("Len = %d, want 50", s.Len())
	}

	snap := s.Outcomes()
	snap[0].StrategyID = "mutated"
	if s.Outcomes()[0].StrategyID == "mutated" {
		t.Error("Outcomes returned the backing slice")
	}

	s.Clear()
	s.AddAll(failure("a", 0), failure("a", 0))
	if s.Len() != 2 {
		t.Errorf("Len after Clear+AddAll = %d, want 2 (no dedup)", s.Len())
	}
}

func TestStore_Report(t *testing.T) {
	s := NewStore()
	if r := s.Report("https://example.com"); len(r.Outcomes) != 0 || r.Winner.Reason != ReasonNoResults {
		t.Errorf("empty store report = %+v", r)
	}

	// Two races fed into one store: the second, faster "a" is ignored by
	// winner scoring but counted by the summary.
	s.AddAll(success("a", 2*time.Second), failure("b", time.Second))
	s.AddAll(success("a", time.Second/2), success("b", time.Second))

	r := s.Report("https://example.com")
	if r.TargetURL != "https://example.com" || len(r.Outcomes) != 4 {
		t.Fatalf("report = %+v", r)
	}
	if r.Summary.TotalCrawls != 4 || r.Summary.SuccessfulCrawls != 3 {
		t.Errorf("summary = %+v", r.Summary)
	}
	want := CompositeScore(success("a", 2*time.Second)).Total()
	var gotA float64
	for _, sc := range r.Winner.Scores {
		if sc.StrategyID == "a" {
			gotA = sc.Score
		}
	}
	if gotA != want {
		t.Errorf("score of a = %v, want %v from its first success", gotA, want)
	}
	if len(r.Winner.Scores) != 2 {
		t.Errorf("scores = %+v", r.Winner.Scores)
	}
}
