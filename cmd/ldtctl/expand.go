package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jpl-au/ldt"
)

func newExpandCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expand <file>",
		Short: "Print the text of one compacted record block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, _ := cmd.Flags().GetInt64("offset")
			size, _ := cmd.Flags().GetInt64("size")
			n, _ := ldt.DecodeSize(size)
			if offset < 0 || n < 1 {
				return fmt.Errorf("%w: offset %d size %d", ldt.ErrInvalidRange, offset, size)
			}

			src, err := a.source(cmd.Context())
			if err != nil {
				return err
			}
			defer src.Close()

			rc, err := src.ReadRange(cmd.Context(), args[0], ldt.ByteRange{Start: offset, Length: n})
			if err != nil {
				return err
			}
			defer rc.Close()
			block, err := io.ReadAll(rc)
			if err != nil {
				return err
			}

			text, err := ldt.Expand(block)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().Int64("offset", 0, "block start offset")
	cmd.Flags().Int64("size", 0, "block size (the sign is ignored)")
	_ = cmd.MarkFlagRequired("size")
	return cmd
}
