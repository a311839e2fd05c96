// Package dataflows contains the per-source API clients that fetch raw
// historical price records.
package dataflows

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cryptoetl/cryptohist/internal/config"
)

const dateLayout = "2006-01-02"

// New returns the client for a configured data source.
func New(name string, cfg *config.Config, sources config.Sources) (Source, error) {
	spec, ok := sources[name]
	if !ok {
		return nil, fmt.Errorf("source %q is not in the sources config", name)
	}

	switch name {
	case "coindesk":
		return NewCoindeskClient(cfg, spec), nil
	case "poloniex":
		return NewPoloniexClient(cfg, spec), nil
	default:
		return nil, fmt.Errorf("no client implemented for source %q", name)
	}
}

// clampRange fills in and corrects the requested date range: a missing or
// future start falls back to yesterday, a missing or future end to today.
func clampRange(start, end time.Time, log *logrus.Entry) (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	if start.IsZero() || start.After(now) {
		log.Warnf("missing or future start date, defaulting to %s", yesterday.Format(dateLayout))
		start = yesterday
	}
	if end.IsZero() || end.After(now) {
		log.Warnf("missing or future end date, defaulting to %s", today.Format(dateLayout))
		end = today
	}
	return start, end
}
