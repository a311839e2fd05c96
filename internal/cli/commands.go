// Package cli builds the cryptohist command tree.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cryptoetl/cryptohist/internal/cleaning"
	"github.com/cryptoetl/cryptohist/internal/config"
	"github.com/cryptoetl/cryptohist/internal/dataflows"
	"github.com/cryptoetl/cryptohist/internal/mapping"
	"github.com/cryptoetl/cryptohist/internal/pipeline"
	"github.com/cryptoetl/cryptohist/internal/store"
)

const version = "1.0.0"

type fetchFlags struct {
	source string
	ticker string
	start  string
	end    string
	period int
	dryRun bool
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	var debug bool
	var flags fetchFlags

	rootCmd := &cobra.Command{
		Use:   "cryptohist",
		Short: "Load historical cryptocurrency prices into PostgreSQL",
		Long: `cryptohist fetches historical price data from third-party APIs (Coindesk,
Poloniex), normalizes the fields through a declarative per-source mapping and
appends the rows to the hist_prices table.

Example: cryptohist --source poloniex --ticker BTC_ETH --start 2017-07-01 --end 2017-07-02 --period 30`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cfg, flags)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfg.SourcesFile, "config", cfg.SourcesFile, "field mapping config path")

	rootCmd.Flags().StringVar(&flags.source, "source", "", "data source name (coindesk, poloniex)")
	rootCmd.Flags().StringVar(&flags.ticker, "ticker", "", "ticker symbol, e.g. USD or BTC_ETH")
	rootCmd.Flags().StringVar(&flags.start, "start", "", "start date in YYYY-MM-DD format (yesterday if not provided)")
	rootCmd.Flags().StringVar(&flags.end, "end", "", "end date in YYYY-MM-DD format (today if not provided)")
	rootCmd.Flags().IntVar(&flags.period, "period", 30, "quote interval in minutes")
	rootCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print normalized rows instead of inserting")
	rootCmd.MarkFlagRequired("source")
	rootCmd.MarkFlagRequired("ticker")

	rootCmd.AddCommand(newMigrateCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func runFetch(cfg *config.Config, flags fetchFlags) error {
	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return err
	}

	req, err := buildRequest(flags)
	if err != nil {
		return err
	}

	src, err := dataflows.New(flags.source, cfg, sources)
	if err != nil {
		return err
	}

	var sink pipeline.Sink
	if flags.dryRun {
		sink = printSink{}
	} else {
		st, err := store.Open(storeOptions(cfg))
		if err != nil {
			return err
		}
		defer st.Close()
		sink = st
	}

	stats, err := pipeline.New(src, mapping.NewResolver(sources), sink).Run(context.Background(), req)
	if err != nil {
		return err
	}

	fmt.Printf("fetched %d, inserted %d, skipped %d\n", stats.Fetched, stats.Inserted, stats.Skipped)
	return nil
}

func buildRequest(flags fetchFlags) (dataflows.Request, error) {
	req := dataflows.Request{
		Ticker: flags.ticker,
		Period: time.Duration(flags.period) * time.Minute,
	}

	var err error
	if flags.start != "" {
		req.Start, err = time.ParseInLocation(cleaning.DateLayout, flags.start, time.UTC)
		if err != nil {
			return req, fmt.Errorf("invalid --start date %q: expected YYYY-MM-DD", flags.start)
		}
	}
	if flags.end != "" {
		req.End, err = time.ParseInLocation(cleaning.DateLayout, flags.end, time.UTC)
		if err != nil {
			return req, fmt.Errorf("invalid --end date %q: expected YYYY-MM-DD", flags.end)
		}
	}
	if !req.Start.IsZero() && !req.End.IsZero() && req.End.Before(req.Start) {
		return req, fmt.Errorf("--end %s is before --start %s", flags.end, flags.start)
	}
	return req, nil
}

func storeOptions(cfg *config.Config) store.Options {
	return store.Options{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
	}
}

// newMigrateCmd creates the migrate command.
func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the hist_prices table",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(storeOptions(cfg))
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(); err != nil {
				return err
			}
			fmt.Printf("table %s is up to date\n", store.TableName)
			return nil
		},
	}
}

// newConfigCmd creates the config command.
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the resolved runtime configuration and source mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("sources file:  %s\n", cfg.SourcesFile)
			fmt.Printf("http timeout:  %s\n", cfg.HTTPTimeout)
			fmt.Printf("database:      %s@%s:%d/%s\n", cfg.DB.User, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)

			sources, err := config.LoadSources(cfg.SourcesFile)
			if err != nil {
				return err
			}
			for name, spec := range sources {
				fmt.Printf("\nsource %s:\n", name)
				for _, f := range spec.Fields {
					required := ""
					if f.Required {
						required = " (required)"
					}
					fmt.Printf("  %-18s -> %s%s\n", f.RawField, f.Column, required)
				}
			}
			return nil
		},
	})

	return configCmd
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cryptohist v%s\n", version)
		},
	}
}
