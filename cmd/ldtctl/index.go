package main

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jpl-au/ldt"
)

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Scan a file and print or catalog its record indexes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, _ := cmd.Flags().GetString("catalog")
			return a.index(cmd, args[0], catalog)
		},
	}
	cmd.Flags().String("catalog", "", "write a catalog file instead of JSON lines")
	return cmd
}

func (a *app) index(cmd *cobra.Command, path, catalog string) error {
	p, err := a.parser()
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scan := p.NewScan(f)
	var records []ldt.RecordIndex
	for ri, err := range scan.All() {
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		records = append(records, ri)
	}

	if catalog == "" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, ri := range records {
			if err := enc.Encode(ri); err != nil {
				return err
			}
		}
		return nil
	}
	return a.writeCatalog(p, catalog, filepath.Base(path), scan.State().EOL, false, records)
}

func (a *app) writeCatalog(p *ldt.Parser, path, source string, eol ldt.EOL, compacted bool, records []ldt.RecordIndex) error {
	cw, err := ldt.CreateCatalog(filepath.Dir(path), filepath.Base(path), eol, compacted, ldt.CatalogOptions{Logger: a.log})
	if err != nil {
		return err
	}
	if err := p.WriteCatalog(cw, source, records); err != nil {
		cw.Close()
		return err
	}
	return cw.Close()
}
