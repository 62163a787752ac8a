package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jpl-au/ldt"
	"github.com/jpl-au/ldt/source"
)

// app carries what every command needs once flags and config are read.
type app struct {
	cfg    *config
	log    *slog.Logger
	closer io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "ldtctl",
		Short:        "Index, compact and read LDT record files",
		Long:         `Scan LDT files into record indexes and catalogs, compact them into per-record gzip stores, and fetch single records by byte range from local disk, S3 or Azure Blob Storage.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, closer, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			a.cfg, a.log, a.closer = cfg, logger, closer
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default ./ldtctl.yaml)")
	pf.String("registry", "", "parser registry YAML file")
	pf.StringP("parser", "p", "", "parser name in the registry (default \"default\")")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("log-file", "", "also write logs to this file")
	pf.String("source", "file", "record source: file, s3, gcp or azure")
	pf.String("source-dir", ".", "directory for the file source")
	pf.String("bucket", "", "bucket for the s3 and gcp sources")
	pf.String("cache-dir", "", "cache fetched ranges in this directory")

	root.AddCommand(
		newIndexCmd(a),
		newGetCmd(a),
		newCompactCmd(a),
		newExpandCmd(a),
		newParsersCmd(a),
		newCatalogCmd(a),
	)
	return root
}

func (a *app) registry() (*ldt.Registry, error) {
	if a.cfg.Registry == "" {
		return nil, errors.New("no parser registry configured (use --registry or LDT_REGISTRY)")
	}
	return ldt.LoadRegistryFile(a.cfg.Registry)
}

func (a *app) parser() (*ldt.Parser, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	return reg.Parser(a.cfg.Parser, ldt.WithLogger(a.log))
}

func (a *app) source(ctx context.Context) (source.Source, error) {
	cfg := a.cfg.Source
	cfg.Logger = a.log
	return source.New(ctx, cfg)
}
