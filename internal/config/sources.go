package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cryptoetl/cryptohist/internal/cleaning"
	"github.com/cryptoetl/cryptohist/internal/store"
)

// fileSources mirrors the sources.yaml layout.
type fileSources map[string]fileSource

type fileSource struct {
	Fields         map[string]fileField `yaml:"fields"`
	Tickers        map[string][]string  `yaml:"tickers,omitempty"`
	AllowedTickers []string             `yaml:"allowed_tickers,omitempty"`
	DefaultTicker  string               `yaml:"default_ticker,omitempty"`
}

type fileField struct {
	CleaningFunc string         `yaml:"cleaning_func"`
	MappedName   string         `yaml:"mapped_name"`
	Args         map[string]any `yaml:"args,omitempty"`
	Required     bool           `yaml:"required,omitempty"`
}

// FieldSpec is one resolved field mapping: which raw API field to read, how
// to clean it and which table column it lands in.
type FieldSpec struct {
	RawField string
	Column   string
	Clean    cleaning.Func
	Args     cleaning.Args
	Required bool
}

// SourceSpec is the resolved mapping for one data source.
type SourceSpec struct {
	Name string

	// Fields is ordered by raw field name so runs are deterministic.
	Fields []FieldSpec

	// Tickers maps a base ticker to its supported quote tickers (Poloniex).
	Tickers map[string][]string

	// AllowedTickers is a flat ticker allowlist (Coindesk); DefaultTicker is
	// substituted when the requested ticker is not in it.
	AllowedTickers []string
	DefaultTicker  string
}

// Sources indexes the resolved source specs by source name.
type Sources map[string]SourceSpec

// LoadSources reads and validates the field mapping config. Cleaning function
// identifiers are resolved here so an unknown name fails the run at startup,
// and destination columns are checked against the hist_prices schema.
func LoadSources(path string) (Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources config: %w", err)
	}

	var raw fileSources
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse sources config %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("sources config %s defines no sources", path)
	}

	tableColumns := make(map[string]struct{})
	for _, col := range store.Columns() {
		tableColumns[col] = struct{}{}
	}

	sources := make(Sources, len(raw))
	for name, src := range raw {
		spec, err := resolveSource(name, src, tableColumns)
		if err != nil {
			return nil, err
		}
		sources[name] = spec
	}
	return sources, nil
}

func resolveSource(name string, src fileSource, tableColumns map[string]struct{}) (SourceSpec, error) {
	if len(src.Fields) == 0 {
		return SourceSpec{}, fmt.Errorf("source %q maps no fields", name)
	}

	fields := make([]FieldSpec, 0, len(src.Fields))
	seen := make(map[string]string, len(src.Fields))
	for rawField, f := range src.Fields {
		if f.MappedName == "" {
			return SourceSpec{}, fmt.Errorf("source %q field %q has no mapped_name", name, rawField)
		}
		if _, ok := tableColumns[f.MappedName]; !ok {
			return SourceSpec{}, fmt.Errorf("source %q field %q maps to unknown column %q", name, rawField, f.MappedName)
		}
		if prev, ok := seen[f.MappedName]; ok {
			return SourceSpec{}, fmt.Errorf("source %q maps both %q and %q to column %q", name, prev, rawField, f.MappedName)
		}
		seen[f.MappedName] = rawField

		clean, err := cleaning.Lookup(f.CleaningFunc)
		if err != nil {
			return SourceSpec{}, fmt.Errorf("source %q field %q: %w", name, rawField, err)
		}

		fields = append(fields, FieldSpec{
			RawField: rawField,
			Column:   f.MappedName,
			Clean:    clean,
			Args:     cleaning.Args(f.Args),
			Required: f.Required,
		})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].RawField < fields[j].RawField })

	return SourceSpec{
		Name:           name,
		Fields:         fields,
		Tickers:        src.Tickers,
		AllowedTickers: src.AllowedTickers,
		DefaultTicker:  src.DefaultTicker,
	}, nil
}
