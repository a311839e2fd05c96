// Package pipeline drives one ingestion run: fetch raw records from a source,
// normalize them through the mapping resolver and hand the rows to the sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cryptoetl/cryptohist/internal/dataflows"
	"github.com/cryptoetl/cryptohist/internal/mapping"
)

// Sink receives normalized rows. Satisfied by *store.Store.
type Sink interface {
	InsertRows(ctx context.Context, rows []map[string]any) error
}

// Stats summarizes one run.
type Stats struct {
	Fetched  int
	Inserted int
	Skipped  int
}

// Pipeline wires a source client, the mapping resolver and a sink.
type Pipeline struct {
	source   dataflows.Source
	resolver *mapping.Resolver
	sink     Sink
	log      *logrus.Entry
}

// New creates a pipeline for one source.
func New(source dataflows.Source, resolver *mapping.Resolver, sink Sink) *Pipeline {
	return &Pipeline{
		source:   source,
		resolver: resolver,
		sink:     sink,
		log:      logrus.WithField("source", source.Name()),
	}
}

// Run executes one fetch-normalize-insert cycle. Records that fail cleaning
// or miss a required field are logged and skipped; the run itself fails only
// on fetch, configuration or sink errors. Records keep the order the source
// API returned them in.
func (p *Pipeline) Run(ctx context.Context, req dataflows.Request) (Stats, error) {
	var stats Stats

	ticker, err := p.source.ResolveTicker(req.Ticker)
	if err != nil {
		return stats, err
	}
	req.Ticker = ticker

	records, err := p.source.Fetch(ctx, req)
	if err != nil {
		return stats, fmt.Errorf("fetch from %s: %w", p.source.Name(), err)
	}
	stats.Fetched = len(records)
	p.log.Infof("fetched %d records for %s", len(records), req.Ticker)

	rows := make([]map[string]any, 0, len(records))
	for i, rec := range records {
		row, err := p.resolver.Resolve(p.source.Name(), rec)
		if err != nil {
			var unknown *mapping.UnknownSourceError
			if errors.As(err, &unknown) {
				return stats, err
			}
			p.log.WithError(err).Warnf("skipping record %d", i)
			stats.Skipped++
			continue
		}

		row["ticker"] = req.Ticker
		row["data_source"] = p.source.Name()
		rows = append(rows, row)
	}

	if err := p.sink.InsertRows(ctx, rows); err != nil {
		return stats, err
	}
	stats.Inserted = len(rows)

	p.log.WithFields(logrus.Fields{
		"fetched":  stats.Fetched,
		"inserted": stats.Inserted,
		"skipped":  stats.Skipped,
	}).Info("run complete")
	return stats, nil
}
