package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/duel/models"
)

func main() {
	apiURL := os.Getenv("DUEL_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	api := &apiClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  os.Getenv("DUEL_API_KEY"),
		// Races have no overall deadline; strategy timeouts bound them.
		http: &http.Client{Timeout: 180 * time.Second},
	}

	s := server.NewMCPServer(
		"duel",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	raceURLTool := mcp.NewTool("race_url",
		mcp.WithDescription("Race several crawling strategies (plain HTTP, headless browser, stealth browser, LLM extraction) against one URL and report which one performed best on speed, data integrity and structural quality."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to race strategies against"),
		),
		mcp.WithArray("strategies",
			mcp.Description("Strategy IDs to race, in dispatch order (default: all). Use list_strategies to see what is available."),
			mcp.WithStringItems(),
		),
		mcp.WithString("identity_mode",
			mcp.Description("How each attempt picks its user agent and proxy: 'random' (default) or 'rotate' (round-robin over proxies)"),
			mcp.Enum(models.IdentityModeRandom, models.IdentityModeRotate),
		),
		mcp.WithNumber("max_age",
			mcp.Description("Return a cached report younger than this many milliseconds instead of racing again (default: 0, no cache)"),
		),
	)
	s.AddTool(raceURLTool, handleRaceURL(api))

	getRaceTool := mcp.NewTool("get_race",
		mcp.WithDescription("Fetch a previous race report by its ID (reports expire after an hour)."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The race ID, e.g. race_3f2a9c1d0b7e4a56"),
		),
	)
	s.AddTool(getRaceTool, handleGetRace(api))

	listTool := mcp.NewTool("list_strategies",
		mcp.WithDescription("List the strategy IDs the server can race."),
	)
	s.AddTool(listTool, handleListStrategies(api))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiClient calls the duel HTTP API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func (a *apiClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// report decodes a RaceResponse and renders it, or returns a tool error.
func report(body []byte) *mcp.CallToolResult {
	var resp models.RaceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err))
	}
	if !resp.Success || resp.Report == nil {
		errMsg := "race failed"
		if resp.Error != nil {
			errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
		}
		return mcp.NewToolResultError(errMsg)
	}
	return mcp.NewToolResultText(formatReport(resp.Report, resp.CacheStatus))
}

func handleRaceURL(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.RaceRequest{
			URL:          target,
			Strategies:   request.GetStringSlice("strategies", nil),
			IdentityMode: request.GetString("identity_mode", ""),
			MaxAge:       request.GetInt("max_age", 0),
		}
		body, err := api.do(ctx, http.MethodPost, "/api/v1/race", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return report(body), nil
	}
}

func handleGetRace(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		body, err := api.do(ctx, http.MethodGet, "/api/v1/races/"+url.PathEscape(id), nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return report(body), nil
	}
}

func handleListStrategies(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := api.do(ctx, http.MethodGet, "/api/v1/strategies", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var resp struct {
			Strategies []string `json:"strategies"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		return mcp.NewToolResultText(strings.Join(resp.Strategies, "\n")), nil
	}
}

// formatReport renders a report as plain text for the model.
func formatReport(r *models.RaceReport, cacheStatus string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Race %s on %s", r.ID, r.TargetURL)
	if cacheStatus == "hit" {
		sb.WriteString(" (cached)")
	}
	sb.WriteString("\n\n")

	if r.Winner.HasWinner() {
		fmt.Fprintf(&sb, "Winner: %s\n", r.Winner.Reason)
	} else {
		fmt.Fprintf(&sb, "No winner: %s\n", r.Winner.Reason)
	}
	if r.PreviousWinner != "" {
		fmt.Fprintf(&sb, "Previous winner on this domain: %s\n", r.PreviousWinner)
	}

	sb.WriteString("\nResults:\n")
	for _, row := range r.Comparison {
		if row.Succeeded {
			fmt.Fprintf(&sb, "- %s: ok in %.2fs, HTTP %d, %.1f KB, quality %.0f, score %.1f\n",
				row.StrategyID, row.ElapsedSeconds, row.StatusCode, row.PayloadKB, row.QualityScore, row.CompositeScore)
		} else {
			fmt.Fprintf(&sb, "- %s: failed after %.2fs: %s\n", row.StrategyID, row.ElapsedSeconds, row.ErrorMessage)
		}
	}

	sb.WriteString("\nCost/benefit:\n")
	for _, row := range r.CostBenefit {
		fmt.Fprintf(&sb, "- %s: cost %.0f, benefit %.1f, ratio %.2f (%s)\n",
			row.StrategyID, row.RelativeCost, row.Benefit, row.Ratio, row.Recommendation)
	}

	s := r.Summary
	fmt.Fprintf(&sb, "\n%d/%d strategies succeeded, average %.2fs.\n", s.SuccessfulCrawls, s.TotalCrawls, s.AvgTimeSeconds)
	return sb.String()
}
