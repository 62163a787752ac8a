package main

import (
	"iter"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jpl-au/ldt"
)

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog <file>",
		Short: "List, look up or search catalog entries",
		Long: `Prints catalog entries as JSON lines. With --title, prints the entry
with that title. With --match, prints the entries whose --field (the title
by default) matches the pattern.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			title, _ := flags.GetString("title")
			field, _ := flags.GetString("field")
			pattern, _ := flags.GetString("match")
			caseSensitive, _ := flags.GetBool("case-sensitive")

			c, err := ldt.OpenCatalog(filepath.Dir(args[0]), filepath.Base(args[0]), ldt.CatalogOptions{Logger: a.log})
			if err != nil {
				return err
			}
			defer c.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			if title != "" {
				e, err := c.Get(title)
				if err != nil {
					return err
				}
				return enc.Encode(e)
			}

			var entries iter.Seq2[ldt.Entry, error]
			if pattern != "" {
				entries = c.Search(field, pattern, ldt.SearchOptions{CaseSensitive: caseSensitive})
			} else {
				entries = c.List()
			}
			for e, err := range entries {
				if err != nil {
					return err
				}
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().String("title", "", "print the entry with this title")
	cmd.Flags().String("field", ldt.TitleField, "entry field to search")
	cmd.Flags().String("match", "", "print entries whose field matches this pattern")
	cmd.Flags().Bool("case-sensitive", false, "match case exactly")
	return cmd
}
