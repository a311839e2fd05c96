package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionsDSN(t *testing.T) {
	dsn := Options{
		Host:     "db.internal",
		Port:     5433,
		User:     "crypto",
		Password: "hunter2",
		Database: "crypto",
		SSLMode:  "require",
	}.dsn()
	require.Equal(t, "host=db.internal port=5433 user=crypto password=hunter2 dbname=crypto sslmode=require", dsn)
}

func TestOptionsDSNDefaults(t *testing.T) {
	dsn := Options{Database: "crypto"}.dsn()
	require.Equal(t, "host=localhost port=5432 dbname=crypto sslmode=disable", dsn)
}

func TestColumnsCopy(t *testing.T) {
	cols := Columns()
	require.Contains(t, cols, "snap_time")
	require.Contains(t, cols, "weighted_avg")

	cols[0] = "mutated"
	require.Equal(t, "snap_time", Columns()[0])
}
