package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dsimport/internal/core"
)

func newPreviewCmd() *cobra.Command {
	var (
		noHeader   bool
		rows       int
		maxPayload int
	)

	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Show column types, the suggested mapping and the chunk plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readFile(args[0], core.DefaultMaxFileSize)
			if err != nil {
				return err
			}
			table := core.Parse(content, !noHeader)
			if table == nil || table.RowCount == 0 {
				return core.ErrEmptyContent
			}
			printPreview(cmd.OutOrStdout(), table, rows, maxPayload, !noHeader, content)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noHeader, "no-header", false, "Treat the first line as data")
	cmd.Flags().IntVarP(&rows, "rows", "n", 5, "Sample rows to show")
	cmd.Flags().IntVar(&maxPayload, "max-payload", core.DefaultMaxPayloadSize, "Chunk size limit in bytes")

	return cmd
}

func printPreview(w io.Writer, table *core.ParsedTable, rows, maxPayload int, hasHeader bool, content string) {
	profiles := core.ProfileColumns(table)
	mapping := core.AutoDetect(profiles)
	chunks := core.Chunk(content, hasHeader, maxPayload)

	fmt.Fprintf(w, "%d rows, %d columns, %d bytes, %d chunk(s)\n\n",
		table.RowCount, len(table.Headers), table.EstimatedByteSize, len(chunks))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLS\tUNIQUE\tROLE")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", p.Name, p.Type, p.NullCount, p.UniqueCount, roleOf(mapping, p.Name))
	}
	tw.Flush()

	if rows > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(table.Headers, "\t"))
		for i, row := range table.Rows {
			if i >= rows {
				break
			}
			fmt.Fprintln(tw, strings.Join(truncateAll(row, 40), "\t"))
		}
		tw.Flush()
	}
}

func roleOf(m core.ColumnMapping, column string) string {
	switch {
	case column == m.InputColumn:
		return "input"
	case column == m.ExpectedColumn:
		return "expected"
	}
	for _, c := range m.MetadataColumns {
		if c == column {
			return "metadata"
		}
	}
	return "-"
}

func truncateAll(values []string, max int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		v = strings.ReplaceAll(v, "\n", " ")
		if r := []rune(v); len(r) > max {
			v = string(r[:max-1]) + "…"
		}
		out[i] = v
	}
	return out
}
