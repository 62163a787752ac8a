package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/jpl-au/ldt"
)

func newCompactCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact <file>",
		Short: "Rewrite a file as a per-record gzip store",
		Long:  `Writes <name>.cldt next to the source, plus a catalog of the relocated records when --catalog is set.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			catalog, _ := cmd.Flags().GetString("catalog")
			return a.compact(cmd, args[0], out, catalog)
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (default <name>.cldt)")
	cmd.Flags().String("catalog", "", "write a catalog of the compacted records")
	return cmd
}

func (a *app) compact(cmd *cobra.Command, path, out, catalog string) (err error) {
	p, err := a.parser()
	if err != nil {
		return err
	}
	if out == "" {
		out = ldt.CompactedName(path)
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	dst, err := os.Create(out)
	if err != nil {
		src.Close()
		return err
	}
	defer func() {
		var result *multierror.Error
		result = multierror.Append(result, err)
		if cerr := dst.Close(); cerr != nil {
			result = multierror.Append(result, cerr)
		}
		if cerr := src.Close(); cerr != nil {
			result = multierror.Append(result, cerr)
		}
		err = result.ErrorOrNil()
	}()

	records, err := p.Compact(src, dst)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records (%s)\n", out, len(records), ldt.CompactedMimeType)

	if catalog == "" {
		return nil
	}
	eol, err := detectEOL(src)
	if err != nil {
		return err
	}
	return a.writeCatalog(p, catalog, filepath.Base(path), eol, true, records)
}

func detectEOL(f *os.File) (ldt.EOL, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return 0, err
	}
	return ldt.DetectEOL(f)
}
