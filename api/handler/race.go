package handler

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/duel/cache"
	"github.com/use-agent/duel/engine"
	"github.com/use-agent/duel/models"
	"github.com/use-agent/duel/scoring"
	"github.com/use-agent/duel/webhook"
)

// Cache status values.
const (
	cacheHit  = "hit"
	cacheMiss = "miss"
)

// Racer holds what the race endpoints share. Cache and Winners are
// optional.
type Racer struct {
	Registry     *engine.Registry
	Orchestrator *engine.Orchestrator
	Cache        *cache.Cache
	Winners      *engine.WinnerMemory
	Reports      *ReportStore
}

// prepared is a validated race request.
type prepared struct {
	req     models.RaceRequest
	entries []engine.Entry
}

// PostRace returns a handler for POST /api/v1/race.
//
// Flow:
//  1. Parse and validate the request, resolve strategies.
//  2. Serve a cached report when max_age allows.
//  3. Run the race, score it, remember the domain winner.
//  4. Store, cache and (optionally) deliver the report by webhook.
func (rc *Racer) PostRace() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		p, err := rc.prepare(c)
		if err != nil {
			respondError(c, err, start)
			return
		}

		if report, hit := rc.cached(&p.req); hit {
			c.JSON(http.StatusOK, models.RaceResponse{
				Success:     true,
				Report:      view(report, p.req.IncludeContent),
				CacheStatus: cacheHit,
				TotalMs:     time.Since(start).Milliseconds(),
			})
			return
		}

		report, err := rc.run(c.Request.Context(), p, nil)
		if err != nil {
			respondError(c, err, start)
			return
		}

		resp := models.RaceResponse{
			Success: true,
			Report:  view(report, p.req.IncludeContent),
			TotalMs: time.Since(start).Milliseconds(),
		}
		if p.req.MaxAge > 0 {
			resp.CacheStatus = cacheMiss
		}
		c.JSON(http.StatusOK, resp)
	}
}

// StreamRace returns a handler for POST /api/v1/race/stream. It sends a
// "progress" server-sent event per strategy state change, then a single
// "report" event (or "error"). A cached report is sent directly.
func (rc *Racer) StreamRace() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		p, err := rc.prepare(c)
		if err != nil {
			respondError(c, err, start)
			return
		}

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")

		if report, hit := rc.cached(&p.req); hit {
			c.SSEvent("report", models.RaceResponse{
				Success:     true,
				Report:      view(report, p.req.IncludeContent),
				CacheStatus: cacheHit,
				TotalMs:     time.Since(start).Milliseconds(),
			})
			return
		}

		type finished struct {
			report *models.RaceReport
			err    error
		}
		// waiting + running + done per strategy; the observer never blocks.
		events := make(chan models.ProgressEvent, 3*len(p.entries))
		done := make(chan finished, 1)
		ctx := c.Request.Context()
		go func() {
			report, err := rc.run(ctx, p, func(ev models.ProgressEvent) { events <- ev })
			done <- finished{report, err}
		}()

		includeContent := p.req.IncludeContent
		progress := func(ev models.ProgressEvent) {
			if ev.Outcome != nil && !includeContent {
				o := stripOutcome(*ev.Outcome)
				ev.Outcome = &o
			}
			c.SSEvent("progress", ev)
		}

		// The race outlives a disconnected client; its report stays
		// retrievable through GET /races/:id.
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				progress(ev)
				c.Writer.Flush()
			case f := <-done:
				for len(events) > 0 {
					progress(<-events)
				}
				if f.err != nil {
					c.SSEvent("error", errorDetail(f.err))
					c.Writer.Flush()
					return
				}
				resp := models.RaceResponse{
					Success: true,
					Report:  view(f.report, includeContent),
					TotalMs: time.Since(start).Milliseconds(),
				}
				if p.req.MaxAge > 0 {
					resp.CacheStatus = cacheMiss
				}
				c.SSEvent("report", resp)
				c.Writer.Flush()
				return
			}
		}
	}
}

// GetRace returns a handler for GET /api/v1/races/:id. Pass
// ?include_content=true for the full outcome payloads.
func (rc *Racer) GetRace() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		report, ok := rc.Reports.Load(c.Param("id"))
		if !ok {
			respondError(c, models.NewDuelError(models.ErrCodeNotFound, "race not found or expired", nil), start)
			return
		}
		include, _ := strconv.ParseBool(c.Query("include_content"))
		c.JSON(http.StatusOK, models.RaceResponse{
			Success: true,
			Report:  view(report, include),
			TotalMs: time.Since(start).Milliseconds(),
		})
	}
}

// ListStrategies returns a handler for GET /api/v1/strategies.
func (rc *Racer) ListStrategies() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"strategies": rc.Registry.IDs()})
	}
}

func (rc *Racer) prepare(c *gin.Context) (*prepared, error) {
	var req models.RaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, models.NewDuelError(models.ErrCodeInvalidInput, err.Error(), err)
	}
	req.Defaults(rc.Registry.IDs())

	if err := engine.ValidateURL(req.URL); err != nil {
		return nil, err
	}
	entries, err := rc.Registry.Select(req.Strategies)
	if err != nil {
		return nil, err
	}
	return &prepared{req: req, entries: entries}, nil
}

func (rc *Racer) cacheKey(req *models.RaceRequest) string {
	return cache.Key(req.URL, req.Strategies, req.IdentityMode)
}

func (rc *Racer) cached(req *models.RaceRequest) (*models.RaceReport, bool) {
	if rc.Cache == nil || req.MaxAge <= 0 {
		return nil, false
	}
	return rc.Cache.Get(rc.cacheKey(req), time.Duration(req.MaxAge)*time.Millisecond)
}

// run races, scores and records one request.
func (rc *Racer) run(ctx context.Context, p *prepared, observer engine.Observer) (*models.RaceReport, error) {
	req := &p.req

	var previous string
	if rc.Winners != nil {
		previous = rc.Winners.Get(req.URL)
	}

	results, err := rc.Orchestrator.WithMode(req.IdentityMode).Run(ctx, req.URL, p.entries, observer)
	if err != nil {
		return nil, err
	}

	store := scoring.NewStore()
	store.AddAll(engine.Outcomes(results)...)
	report := store.Report(req.URL)
	report.ID = "race_" + randomID()
	report.PreviousWinner = previous

	slog.Info("race finished",
		"race_id", report.ID,
		"url", req.URL,
		"strategies", len(p.entries),
		"succeeded", report.Summary.SuccessfulCrawls,
		"winner", report.Winner.StrategyID,
	)

	if rc.Winners != nil {
		rc.Winners.Set(req.URL, report.Winner.StrategyID)
	}
	rc.Reports.Save(&report)
	if rc.Cache != nil && req.MaxAge > 0 {
		rc.Cache.Set(rc.cacheKey(req), &report)
	}
	if req.WebhookURL != "" {
		webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret,
			webhook.NewEvent(webhook.EventRaceCompleted, report.ID, view(&report, false)))
	}
	return &report, nil
}

// view returns the report as served. Without includeContent, outcome
// payloads and bulky attributes are dropped; the stored report is never
// modified.
func view(r *models.RaceReport, includeContent bool) *models.RaceReport {
	if includeContent {
		return r
	}
	v := *r
	v.Outcomes = make([]models.Outcome, len(r.Outcomes))
	for i, o := range r.Outcomes {
		v.Outcomes[i] = stripOutcome(o)
	}
	return &v
}

// bulkyAttributes are dropped from served outcomes unless content is
// requested.
var bulkyAttributes = []string{models.AttrRawHTML, models.AttrTextContent}

func stripOutcome(o models.Outcome) models.Outcome {
	o.Content = ""
	o.Attributes = maps.Clone(o.Attributes)
	for _, k := range bulkyAttributes {
		delete(o.Attributes, k)
	}
	return o
}

// respondError maps a DuelError to its HTTP status and writes a structured
// JSON error response.
func respondError(c *gin.Context, err error, start time.Time) {
	c.JSON(mapErrorToStatus(models.CodeOf(err)), models.RaceResponse{
		Success: false,
		Error:   errorDetail(err),
		TotalMs: time.Since(start).Milliseconds(),
	})
}

func errorDetail(err error) *models.ErrorDetail {
	var de *models.DuelError
	if errors.As(err, &de) {
		return de.ToDetail()
	}
	return &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeInvalidInput, models.ErrCodeInvalidURL, models.ErrCodeNoStrategies,
		models.ErrCodeUnknownStrategy, models.ErrCodeDuplicateStrategy:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeFetch, models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
