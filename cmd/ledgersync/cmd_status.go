package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func runStatus(cmd *cobra.Command, _ []string) error {
	session, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer closeSession(session)

	counts, err := session.Counts(cmd.Context())
	if err != nil {
		return fmt.Errorf("counting cached records: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status: %s\n\n", session.Status())

	tables := make([]string, 0, len(counts))
	for table := range counts {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tROWS")
	for _, table := range tables {
		fmt.Fprintf(w, "%s\t%d\n", table, counts[table])
	}
	return w.Flush()
}
