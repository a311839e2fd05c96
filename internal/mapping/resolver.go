// Package mapping applies the per-source field mapping config to raw API
// records, producing normalized column-keyed rows.
package mapping

import (
	"fmt"

	"github.com/cryptoetl/cryptohist/internal/config"
	"github.com/cryptoetl/cryptohist/internal/dataflows"
)

// Row maps destination column names to cleaned values. It is an alias so
// slices of rows satisfy the map-based insert path of the sink.
type Row = map[string]any

// UnknownSourceError reports a source name absent from the mapping config.
type UnknownSourceError struct {
	Source string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("source %q is not in the sources config", e.Source)
}

// MissingFieldError reports a raw field marked required that the record does
// not carry.
type MissingFieldError struct {
	Source string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record from %s is missing required field %q", e.Source, e.Field)
}

// Resolver turns raw records into normalized rows using the source specs.
type Resolver struct {
	sources config.Sources
}

// NewResolver creates a resolver over the loaded source specs.
func NewResolver(sources config.Sources) *Resolver {
	return &Resolver{sources: sources}
}

// Resolve applies every field spec of the named source to the record. Fields
// absent from the record become NULL columns unless marked required; the
// output carries exactly the destination columns declared for the source.
func (r *Resolver) Resolve(source string, rec dataflows.RawRecord) (Row, error) {
	spec, ok := r.sources[source]
	if !ok {
		return nil, &UnknownSourceError{Source: source}
	}

	row := make(Row, len(spec.Fields))
	for _, fs := range spec.Fields {
		raw, ok := rec[fs.RawField]
		if !ok || raw == nil {
			if fs.Required {
				return nil, &MissingFieldError{Source: source, Field: fs.RawField}
			}
			row[fs.Column] = nil
			continue
		}

		cleaned, err := fs.Clean(raw, fs.Args)
		if err != nil {
			return nil, fmt.Errorf("clean %s.%s: %w", source, fs.RawField, err)
		}
		row[fs.Column] = cleaned
	}
	return row, nil
}
