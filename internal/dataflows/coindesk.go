package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/cryptoetl/cryptohist/internal/config"
)

const coindeskBaseURL = "https://api.coindesk.com"

// CoindeskClient fetches daily close prices from the Coindesk charts API.
type CoindeskClient struct {
	client *resty.Client
	spec   config.SourceSpec
	log    *logrus.Entry
}

// NewCoindeskClient creates a new Coindesk client.
func NewCoindeskClient(cfg *config.Config, spec config.SourceSpec) *CoindeskClient {
	client := resty.New()
	client.SetBaseURL(coindeskBaseURL)
	client.SetTimeout(cfg.HTTPTimeout)

	return &CoindeskClient{
		client: client,
		spec:   spec,
		log:    logrus.WithField("source", spec.Name),
	}
}

func (c *CoindeskClient) Name() string { return c.spec.Name }

// ResolveTicker substitutes the configured default when the requested ticker
// is outside Coindesk's allowable set.
func (c *CoindeskClient) ResolveTicker(ticker string) (string, error) {
	if slices.Contains(c.spec.AllowedTickers, ticker) {
		return ticker, nil
	}
	fallback := c.spec.DefaultTicker
	if fallback == "" {
		return "", fmt.Errorf("ticker %q not in coindesk allowable tickers %v", ticker, c.spec.AllowedTickers)
	}
	c.log.Warnf("ticker %q not in coindesk allowable tickers, defaulting to %s", ticker, fallback)
	return fallback, nil
}

// Fetch retrieves one raw record per day in the requested range.
func (c *CoindeskClient) Fetch(ctx context.Context, req Request) ([]RawRecord, error) {
	start, end := clampRange(req.Start, req.End, c.log)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"output":    "json",
			"data":      "close",
			"index":     req.Ticker,
			"startdate": start.Format(dateLayout),
			"enddate":   end.Format(dateLayout),
			"exchanges": "bpi",
			"dev":       "1",
		}).
		Get("/charts/data")
	if err != nil {
		return nil, fmt.Errorf("coindesk request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{Source: c.spec.Name, Status: resp.StatusCode(), Body: resp.String()}
	}

	records, err := parseCoindeskBody(resp.Body())
	if err != nil {
		return nil, err
	}
	c.log.Debugf("parsed %d records", len(records))
	return records, nil
}

// parseCoindeskBody unwraps the JSONP padding the charts endpoint answers
// with (`cb({...});`) and flattens the bpi pairs into raw records.
func parseCoindeskBody(body []byte) ([]RawRecord, error) {
	s := strings.TrimSpace(string(body))
	s = strings.TrimPrefix(s, "cb(")
	s = strings.TrimSuffix(s, ";")
	s = strings.TrimSuffix(s, ")")

	var payload struct {
		BPI [][2]json.Number `json:"bpi"`
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse coindesk response: %w", err)
	}

	records := make([]RawRecord, 0, len(payload.BPI))
	for _, pair := range payload.BPI {
		records = append(records, RawRecord{
			"timestamp": pair[0],
			"price":     pair[1],
		})
	}
	return records, nil
}
