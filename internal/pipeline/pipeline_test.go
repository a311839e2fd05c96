package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cryptoetl/cryptohist/internal/cleaning"
	"github.com/cryptoetl/cryptohist/internal/config"
	"github.com/cryptoetl/cryptohist/internal/dataflows"
	"github.com/cryptoetl/cryptohist/internal/mapping"
)

type fakeSource struct {
	name      string
	records   []dataflows.RawRecord
	fetchErr  error
	tickerErr error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) ResolveTicker(ticker string) (string, error) {
	return ticker, f.tickerErr
}

func (f *fakeSource) Fetch(_ context.Context, _ dataflows.Request) ([]dataflows.RawRecord, error) {
	return f.records, f.fetchErr
}

type captureSink struct {
	rows      []map[string]any
	insertErr error
}

func (s *captureSink) InsertRows(_ context.Context, rows []map[string]any) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.rows = append(s.rows, rows...)
	return nil
}

func testResolver(t *testing.T) *mapping.Resolver {
	t.Helper()
	epoch, err := cleaning.Lookup("check_epoch")
	require.NoError(t, err)
	flt, err := cleaning.Lookup("check_float")
	require.NoError(t, err)

	return mapping.NewResolver(config.Sources{
		"coindesk": {
			Name: "coindesk",
			Fields: []config.FieldSpec{
				{RawField: "price", Column: "close", Clean: flt},
				{RawField: "timestamp", Column: "snap_time", Clean: epoch, Required: true},
			},
		},
	})
}

func TestRunStampsAndInserts(t *testing.T) {
	src := &fakeSource{
		name: "coindesk",
		records: []dataflows.RawRecord{
			{"timestamp": json.Number("1498867200"), "price": "2500.50"},
			{"timestamp": json.Number("1498953600"), "price": "2541.23"},
		},
	}
	sink := &captureSink{}

	stats, err := New(src, testResolver(t), sink).Run(context.Background(), dataflows.Request{Ticker: "USD"})
	require.NoError(t, err)
	require.Equal(t, Stats{Fetched: 2, Inserted: 2, Skipped: 0}, stats)

	require.Len(t, sink.rows, 2)
	first := sink.rows[0]
	require.Equal(t, "USD", first["ticker"])
	require.Equal(t, "coindesk", first["data_source"])
	require.Equal(t, time.Date(2017, 7, 1, 0, 0, 0, 0, time.UTC), first["snap_time"])

	// Source order is preserved.
	require.Equal(t, time.Date(2017, 7, 2, 0, 0, 0, 0, time.UTC), sink.rows[1]["snap_time"])
}

func TestRunSkipsBadRecords(t *testing.T) {
	src := &fakeSource{
		name: "coindesk",
		records: []dataflows.RawRecord{
			{"timestamp": json.Number("1498867200"), "price": "2500.50"},
			{"timestamp": json.Number("1498953600"), "price": "garbage"},
			{"price": "2600.00"}, // missing required timestamp
		},
	}
	sink := &captureSink{}

	stats, err := New(src, testResolver(t), sink).Run(context.Background(), dataflows.Request{Ticker: "USD"})
	require.NoError(t, err)
	require.Equal(t, Stats{Fetched: 3, Inserted: 1, Skipped: 2}, stats)
	require.Len(t, sink.rows, 1)
}

func TestRunUnknownSourceAborts(t *testing.T) {
	src := &fakeSource{
		name:    "kraken",
		records: []dataflows.RawRecord{{"timestamp": json.Number("1498867200")}},
	}

	_, err := New(src, testResolver(t), &captureSink{}).Run(context.Background(), dataflows.Request{Ticker: "USD"})
	var unknown *mapping.UnknownSourceError
	require.ErrorAs(t, err, &unknown)
}

func TestRunFetchErrorAborts(t *testing.T) {
	src := &fakeSource{name: "coindesk", fetchErr: errors.New("connection refused")}

	_, err := New(src, testResolver(t), &captureSink{}).Run(context.Background(), dataflows.Request{Ticker: "USD"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")
}

func TestRunTickerErrorAborts(t *testing.T) {
	src := &fakeSource{name: "coindesk", tickerErr: errors.New("bad ticker")}

	_, err := New(src, testResolver(t), &captureSink{}).Run(context.Background(), dataflows.Request{Ticker: "???"})
	require.Error(t, err)
}

func TestRunSinkErrorAborts(t *testing.T) {
	src := &fakeSource{
		name:    "coindesk",
		records: []dataflows.RawRecord{{"timestamp": json.Number("1498867200"), "price": "1.0"}},
	}
	sink := &captureSink{insertErr: errors.New("connection reset")}

	stats, err := New(src, testResolver(t), sink).Run(context.Background(), dataflows.Request{Ticker: "USD"})
	require.Error(t, err)
	require.Zero(t, stats.Inserted)
}
