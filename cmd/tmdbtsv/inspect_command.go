package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tmdbtsv/internal/config"
	"tmdbtsv/internal/flatten"
	"tmdbtsv/internal/jsondoc"
	"tmdbtsv/internal/table"
)

func newInspectCommand() *cobra.Command {
	var lists []string
	var source string

	cmd := &cobra.Command{
		Use:         "inspect FILE",
		Short:       "Show the tables a JSON export would flatten into, without writing",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			records, err := jsondoc.Load(path)
			if err != nil {
				return err
			}
			res, err := flatten.New(flatten.Options{}).Flatten(source, records, lists)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d records\n", path, len(records))
			tables := append([]*table.Table{res.Parent}, res.Children...)
			rows := make([][]string, 0, len(tables))
			for _, t := range tables {
				deduped := table.Deduplicate(t)
				rows = append(rows, []string{
					t.Name,
					strconv.Itoa(t.Len()),
					strconv.Itoa(deduped.Len()),
					strings.Join(t.Columns, ", "),
				})
			}
			printTable(out,
				[]string{"Table", "Rows", "Unique", "Columns"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&lists, "lists", nil, "Embedded-list attributes to extract (comma separated)")
	cmd.Flags().StringVar(&source, "name", "records", "Name of the parent table")
	return cmd
}
