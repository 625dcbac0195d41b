package models

// RaceResponse is the response for POST /api/v1/race and GET /api/v1/races/:id.
type RaceResponse struct {
	Success bool `json:"success"`

	Report *RaceReport `json:"report,omitempty"`

	// CacheStatus is "hit", "miss", or empty when caching was not requested.
	CacheStatus string `json:"cache_status,omitempty"`

	// TotalMs is the wall-clock time spent serving the request.
	TotalMs int64 `json:"total_ms"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status     string    `json:"status"` // "healthy" or "degraded"
	Uptime     string    `json:"uptime"`
	Strategies []string  `json:"strategies"`
	PoolStats  PoolStats `json:"pool_stats"`
	Version    string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
