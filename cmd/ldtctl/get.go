package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch one record by offset and size and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			key, _ := flags.GetString("key")
			offset, _ := flags.GetInt64("offset")
			size, _ := flags.GetInt64("size")
			first, _ := flags.GetInt("first")
			last, _ := flags.GetInt("last")

			p, err := a.parser()
			if err != nil {
				return err
			}
			src, err := a.source(cmd.Context())
			if err != nil {
				return err
			}
			defer src.Close()

			rec, err := p.GetRecord(cmd.Context(), src, key, offset, size)
			if err != nil {
				return err
			}
			if rec == nil {
				cmd.PrintErrln("no record at that range")
				return nil
			}
			if first > 0 || last > 0 {
				if last == 0 {
					last = rec.PageCount
				}
				rec = rec.ForPageRange(max(first, 1), last)
			}

			out, err := rec.JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().String("key", "", "object key or file path relative to the source")
	cmd.Flags().Int64("offset", 0, "record start offset")
	cmd.Flags().Int64("size", 0, "record size, negative for compacted stores")
	cmd.Flags().Int("first", 0, "first page to keep")
	cmd.Flags().Int("last", 0, "last page to keep")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("size")
	return cmd
}
