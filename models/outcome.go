package models

import (
	"maps"
	"time"
)

// Well-known outcome attribute keys.
const (
	// Quality flags read by the structural quality evaluator.
	AttrStructuredData = "has_structured_data"
	AttrMarkdown       = "has_markdown"
	AttrCleanText      = "has_clean_text"

	// Auxiliary data a strategy may attach.
	AttrRawHTML         = "raw_html"
	AttrTextContent     = "text_content"
	AttrTitle           = "title"
	AttrFinalURL        = "final_url"
	AttrRedirects       = "redirects"
	AttrContentType     = "content_type"
	AttrNeedsBrowser    = "needs_browser"
	AttrEstimatedTokens = "estimated_tokens"
	AttrStructured      = "structured_data"
)

// Attributes holds strategy-specific flags and auxiliary content.
type Attributes map[string]any

// Flag reports whether key holds boolean true.
func (a Attributes) Flag(key string) bool {
	v, ok := a[key].(bool)
	return ok && v
}

// String returns the string stored under key, or "".
func (a Attributes) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Outcome is the record of one strategy's attempt against one URL.
//
// Outcomes are built once through NewOutcome or FailedOutcome and must be
// treated as read-only afterwards. Quality and integrity are derived on
// demand by the quality package and never stored here.
type Outcome struct {
	TargetURL  string `json:"target_url"`
	StrategyID string `json:"strategy_id"`
	Succeeded  bool   `json:"succeeded"`

	// ElapsedSeconds is the wall-clock duration of the attempt.
	ElapsedSeconds float64 `json:"elapsed_seconds"`

	// StatusCode is the protocol-level status; 0 when unknown
	// (e.g. transport failure).
	StatusCode int `json:"status_code,omitempty"`

	// Content is the raw payload or extracted text; "" when absent.
	Content string `json:"content,omitempty"`

	// PayloadSize is len(Content) in bytes.
	PayloadSize int `json:"payload_size"`

	// ErrorMessage is set on failure, or on a partial failure of an
	// otherwise successful attempt.
	ErrorMessage string `json:"error_message,omitempty"`

	Attributes Attributes `json:"attributes,omitempty"`
}

// OutcomeParams carries the inputs for NewOutcome.
type OutcomeParams struct {
	TargetURL    string
	StrategyID   string
	Succeeded    bool
	Elapsed      time.Duration
	StatusCode   int
	Content      string
	ErrorMessage string
	Attributes   Attributes
}

// NewOutcome builds an Outcome, deriving PayloadSize from the content and
// taking a private copy of the attributes.
func NewOutcome(p OutcomeParams) Outcome {
	elapsed := p.Elapsed.Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	attrs := maps.Clone(p.Attributes)
	if attrs == nil {
		attrs = Attributes{}
	}
	return Outcome{
		TargetURL:      p.TargetURL,
		StrategyID:     p.StrategyID,
		Succeeded:      p.Succeeded,
		ElapsedSeconds: elapsed,
		StatusCode:     p.StatusCode,
		Content:        p.Content,
		PayloadSize:    len(p.Content),
		ErrorMessage:   p.ErrorMessage,
		Attributes:     attrs,
	}
}

// FailedOutcome builds the failure shape: no content, the error text as the
// message and the status code if one is known.
func FailedOutcome(targetURL, strategyID string, elapsed time.Duration, statusCode int, err error) Outcome {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return NewOutcome(OutcomeParams{
		TargetURL:    targetURL,
		StrategyID:   strategyID,
		Elapsed:      elapsed,
		StatusCode:   statusCode,
		ErrorMessage: msg,
	})
}

// HasContent reports whether the outcome carries a payload.
func (o Outcome) HasContent() bool {
	return o.Content != ""
}

// Identity is the per-attempt network identity handed to a strategy.
type Identity struct {
	UserAgent string `json:"user_agent"`

	// Proxy is a proxy URL such as "http://host:port" or
	// "socks5://host:port"; "" means a direct connection.
	Proxy string `json:"proxy,omitempty"`
}
