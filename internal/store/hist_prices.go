package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TableName is the destination table for normalized price rows.
const TableName = "hist_prices"

// HistPrice mirrors the hist_prices table. It drives migration; inserts go
// through column-keyed maps so rows can carry a per-source subset of columns.
type HistPrice struct {
	SnapTime    time.Time           `gorm:"column:snap_time;not null"`
	Ticker      string              `gorm:"column:ticker;size:10;not null"`
	DataSource  string              `gorm:"column:data_source;size:30;not null"`
	High        decimal.NullDecimal `gorm:"column:high;type:numeric"`
	Low         decimal.NullDecimal `gorm:"column:low;type:numeric"`
	Open        decimal.NullDecimal `gorm:"column:open;type:numeric"`
	Close       decimal.NullDecimal `gorm:"column:close;type:numeric"`
	WeightedAvg decimal.NullDecimal `gorm:"column:weighted_avg;type:numeric"`
	BaseVolume  decimal.NullDecimal `gorm:"column:base_volume;type:numeric"`
	QuoteVolume decimal.NullDecimal `gorm:"column:quote_volume;type:numeric"`
}

func (HistPrice) TableName() string { return TableName }

var columns = []string{
	"snap_time",
	"ticker",
	"data_source",
	"high",
	"low",
	"open",
	"close",
	"weighted_avg",
	"base_volume",
	"quote_volume",
}

// Columns lists every column of the hist_prices table. The mapping config is
// validated against this set at load time.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// Migrate creates or updates the hist_prices table.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&HistPrice{}); err != nil {
		return fmt.Errorf("migrate %s: %w", TableName, err)
	}
	return nil
}

// InsertRows appends normalized rows to hist_prices. Rows address the table
// by column name; absent columns are written as NULL.
func (s *Store) InsertRows(ctx context.Context, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Table(TableName).Create(rows).Error; err != nil {
		return fmt.Errorf("insert into %s: %w", TableName, err)
	}
	return nil
}
