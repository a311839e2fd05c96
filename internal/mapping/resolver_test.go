package mapping

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cryptoetl/cryptohist/internal/cleaning"
	"github.com/cryptoetl/cryptohist/internal/config"
	"github.com/cryptoetl/cryptohist/internal/dataflows"
)

func mustClean(t *testing.T, name string) cleaning.Func {
	t.Helper()
	fn, err := cleaning.Lookup(name)
	require.NoError(t, err)
	return fn
}

func coindeskSources(t *testing.T) config.Sources {
	return config.Sources{
		"coindesk": {
			Name: "coindesk",
			Fields: []config.FieldSpec{
				{RawField: "price", Column: "close", Clean: mustClean(t, "check_float")},
				{RawField: "timestamp", Column: "snap_time", Clean: mustClean(t, "check_epoch"), Required: true},
			},
		},
	}
}

func TestResolveEndToEnd(t *testing.T) {
	r := NewResolver(coindeskSources(t))

	row, err := r.Resolve("coindesk", dataflows.RawRecord{
		"timestamp": json.Number("1498867200"),
		"price":     "2500.50",
	})
	require.NoError(t, err)

	// Exactly the declared destination columns, no more, no fewer.
	require.Len(t, row, 2)
	require.Equal(t, time.Date(2017, 7, 1, 0, 0, 0, 0, time.UTC), row["snap_time"])
	require.True(t, row["close"].(decimal.Decimal).Equal(decimal.RequireFromString("2500.5")))
}

func TestResolveUnknownSource(t *testing.T) {
	r := NewResolver(coindeskSources(t))

	_, err := r.Resolve("kraken", dataflows.RawRecord{})
	var unknown *UnknownSourceError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "kraken", unknown.Source)
}

func TestResolveMissingOptionalFieldIsNull(t *testing.T) {
	r := NewResolver(coindeskSources(t))

	row, err := r.Resolve("coindesk", dataflows.RawRecord{
		"timestamp": json.Number("1498867200"),
	})
	require.NoError(t, err)
	require.Len(t, row, 2)

	val, ok := row["close"]
	require.True(t, ok)
	require.Nil(t, val)
}

func TestResolveMissingRequiredField(t *testing.T) {
	r := NewResolver(coindeskSources(t))

	_, err := r.Resolve("coindesk", dataflows.RawRecord{"price": "2500.50"})
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "timestamp", missing.Field)
}

func TestResolveCoercionFailure(t *testing.T) {
	r := NewResolver(coindeskSources(t))

	_, err := r.Resolve("coindesk", dataflows.RawRecord{
		"timestamp": json.Number("1498867200"),
		"price":     "not-a-price",
	})
	var cerr *cleaning.CoercionError
	require.ErrorAs(t, err, &cerr)
	require.Contains(t, err.Error(), "coindesk.price")
}

func TestResolveExtraRawFieldsIgnored(t *testing.T) {
	r := NewResolver(coindeskSources(t))

	row, err := r.Resolve("coindesk", dataflows.RawRecord{
		"timestamp":  json.Number("1498867200"),
		"price":      "2500.50",
		"unexpected": "value",
	})
	require.NoError(t, err)
	require.Len(t, row, 2)
	require.NotContains(t, row, "unexpected")
}
