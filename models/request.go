package models

// Identity modes for a race.
const (
	IdentityModeRandom = "random"
	IdentityModeRotate = "rotate"
)

// RaceRequest is the payload for POST /api/v1/race and /api/v1/race/stream.
type RaceRequest struct {
	// URL is the single target of the race. Required.
	URL string `json:"url" binding:"required,url"`

	// Strategies lists the strategy IDs to race, in dispatch order.
	// Default: every registered strategy.
	Strategies []string `json:"strategies,omitempty" binding:"omitempty,dive,required"`

	// IdentityMode selects how each attempt's identity is drawn.
	// "random" (default) or "rotate" (round-robin over proxies).
	IdentityMode string `json:"identity_mode,omitempty" binding:"omitempty,oneof=random rotate"`

	// MaxAge enables report caching: a cached report younger than MaxAge
	// milliseconds is returned instead of running a new race. 0 disables.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`

	// IncludeContent keeps outcome payloads and auxiliary attributes in the
	// response. Default false: they are stripped to keep responses small.
	IncludeContent bool `json:"include_content,omitempty"`

	// WebhookURL receives a signed race.completed event when set.
	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *RaceRequest) Defaults(allStrategies []string) {
	if len(r.Strategies) == 0 {
		r.Strategies = append([]string(nil), allStrategies...)
	}
	if r.IdentityMode == "" {
		r.IdentityMode = IdentityModeRandom
	}
}
