package dataflows

import (
	"context"
	"fmt"
	"time"
)

// RawRecord maps a source-specific field name to the raw value returned by
// the API. It is consumed by the mapping resolver and discarded.
type RawRecord map[string]any

// Request describes one historical price fetch.
type Request struct {
	Ticker string
	Start  time.Time
	End    time.Time

	// Period is the bar interval; only Poloniex honors it.
	Period time.Duration
}

// Source is one external price-data API.
type Source interface {
	Name() string

	// ResolveTicker validates the requested ticker against the source's
	// supported set, substituting a default where the source allows it.
	ResolveTicker(ticker string) (string, error)

	Fetch(ctx context.Context, req Request) ([]RawRecord, error)
}

// APIError reports a non-200 answer from a source API.
type APIError struct {
	Source string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Source, e.Status, e.Body)
}
