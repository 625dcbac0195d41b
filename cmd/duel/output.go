package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/use-agent/duel/models"
)

// Output formats of the race command.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validFormat(f string) bool {
	return f == formatTable || f == formatJSON || f == formatYAML
}

// writeReport renders a report. The table format never includes content.
func writeReport(w io.Writer, r *models.RaceReport, format string, includeContent bool) error {
	if !includeContent {
		r = withoutContent(r)
	}
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case formatYAML:
		data, err := toYAML(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return writeTable(w, r)
	}
}

func writeTable(w io.Writer, r *models.RaceReport) error {
	fmt.Fprintf(w, "Target:  %s\n", r.TargetURL)
	if r.Winner.HasWinner() {
		fmt.Fprintf(w, "Winner:  %s (%.1f)\n", r.Winner.StrategyID, r.Winner.Score)
	} else {
		fmt.Fprintf(w, "Winner:  none\n")
	}
	fmt.Fprintf(w, "Reason:  %s\n\n", r.Winner.Reason)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tOK\tTIME(s)\tSTATUS\tKB\tINTEGRITY\tQUALITY\tSCORE\tERROR")
	for _, row := range r.Comparison {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%.1f\t%s\t%.0f\t%.1f\t%s\n",
			row.StrategyID, yesNo(row.Succeeded), row.ElapsedSeconds, status(row.StatusCode),
			row.PayloadKB, yesNo(row.IntegrityOK), row.QualityScore, row.CompositeScore,
			truncate(row.ErrorMessage, 60))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tFAMILY\tCOST\tBENEFIT\tRATIO\tSPEED#\tQUALITY#\tRECOMMENDATION")
	for _, row := range r.CostBenefit {
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.1f\t%.2f\t%s\t%s\t%s\n",
			row.StrategyID, row.Family, row.RelativeCost, row.Benefit, row.Ratio,
			rank(row.SpeedRank), rank(row.QualityRank), row.Recommendation)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := r.Summary
	fmt.Fprintf(w, "\n%d/%d succeeded, avg %.2fs, %d bytes total\n",
		s.SuccessfulCrawls, s.TotalCrawls, s.AvgTimeSeconds, s.TotalPayloadSize)
	return nil
}

// withoutContent copies the report with outcome payloads and bulky
// attributes removed.
func withoutContent(r *models.RaceReport) *models.RaceReport {
	c := *r
	c.Outcomes = make([]models.Outcome, len(r.Outcomes))
	for i, o := range r.Outcomes {
		o.Content = ""
		o.Attributes = maps.Clone(o.Attributes)
		delete(o.Attributes, models.AttrRawHTML)
		delete(o.Attributes, models.AttrTextContent)
		c.Outcomes[i] = o
	}
	return &c
}

// toYAML renders v with its JSON field names and order. JSON is valid YAML,
// so the JSON encoding is parsed into a node tree and re-emitted in block
// style.
func toYAML(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("output: marshal: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("output: parse: %w", err)
	}
	blockStyle(&node)
	return yaml.Marshal(&node)
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func status(code int) string {
	if code == 0 {
		return "-"
	}
	return fmt.Sprint(code)
}

func rank(r int) string {
	if r == 0 {
		return "-"
	}
	return fmt.Sprint(r)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
