package dataflows

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/cryptoetl/cryptohist/internal/config"
)

const (
	poloniexBaseURL = "https://poloniex.com"

	// defaultPoloniexPeriod matches the API's 30 minute candle interval.
	defaultPoloniexPeriod = 1800 * time.Second
)

// PoloniexClient fetches OHLC candles from the Poloniex public chart API.
type PoloniexClient struct {
	client *resty.Client
	spec   config.SourceSpec
	log    *logrus.Entry
}

// NewPoloniexClient creates a new Poloniex client.
func NewPoloniexClient(cfg *config.Config, spec config.SourceSpec) *PoloniexClient {
	client := resty.New()
	client.SetBaseURL(poloniexBaseURL)
	client.SetTimeout(cfg.HTTPTimeout)

	return &PoloniexClient{
		client: client,
		spec:   spec,
		log:    logrus.WithField("source", spec.Name),
	}
}

func (p *PoloniexClient) Name() string { return p.spec.Name }

// ResolveTicker checks a BASE_QUOTE pair against the configured tickers map.
func (p *PoloniexClient) ResolveTicker(ticker string) (string, error) {
	base, quote, ok := strings.Cut(ticker, "_")
	if !ok {
		return "", fmt.Errorf("invalid ticker %q: must be in format BASE_QUOTE", ticker)
	}

	quotes, ok := p.spec.Tickers[base]
	if !ok {
		return "", fmt.Errorf("base ticker %q not in poloniex supported base tickers", base)
	}
	if !slices.Contains(quotes, quote) {
		return "", fmt.Errorf("quote ticker %q not supported for base ticker %q (supported: %v)", quote, base, quotes)
	}
	return ticker, nil
}

// Fetch retrieves one raw record per candle in the requested range.
func (p *PoloniexClient) Fetch(ctx context.Context, req Request) ([]RawRecord, error) {
	start, end := clampRange(req.Start, req.End, p.log)

	period := req.Period
	if period <= 0 {
		period = defaultPoloniexPeriod
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"command":      "returnChartData",
			"currencyPair": req.Ticker,
			"start":        strconv.FormatInt(start.Unix(), 10),
			"end":          strconv.FormatInt(end.Unix(), 10),
			"period":       strconv.Itoa(int(period.Seconds())),
		}).
		Get("/public")
	if err != nil {
		return nil, fmt.Errorf("poloniex request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{Source: p.spec.Name, Status: resp.StatusCode(), Body: resp.String()}
	}

	records, err := parsePoloniexBody(resp.Body())
	if err != nil {
		return nil, err
	}
	p.log.Debugf("parsed %d records", len(records))
	return records, nil
}

// parsePoloniexBody decodes a chart data response. Poloniex signals failures
// with a 200 answer carrying an {"error": ...} object instead of the candle
// array.
func parsePoloniexBody(body []byte) ([]RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse poloniex response: %w", err)
	}

	switch v := payload.(type) {
	case map[string]any:
		if msg, ok := v["error"]; ok {
			return nil, fmt.Errorf("poloniex returned error: %v", msg)
		}
		return nil, fmt.Errorf("unexpected poloniex response shape")
	case []any:
		records := make([]RawRecord, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("unexpected poloniex record of type %T", item)
			}
			records = append(records, RawRecord(obj))
		}
		return records, nil
	default:
		return nil, fmt.Errorf("unexpected poloniex response of type %T", payload)
	}
}
