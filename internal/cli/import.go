package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dsimport/internal/core"
)

// errPartialImport makes the exit status non-zero when chunks were lost.
var errPartialImport = errors.New("import incomplete")

type importFlags struct {
	datasetID  string
	input      string
	expected   string
	metadata   []string
	noHeader   bool
	noDedupe   bool
	dryRun     bool
	maxErrors  int
	maxPayload int
}

func newImportCmd() *cobra.Command {
	var f importFlags

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Upload a CSV file to a dataset in chunks",
		Long: `Upload a CSV file to a dataset. Column roles are detected from the header
names; --input, --expected and --metadata override the detected role they
name and leave the others in place. Failed chunks are retried with exponential
backoff and reported at the end; Ctrl-C stops after the current chunk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.datasetID, "dataset", "d", "", "Target dataset ID")
	cmd.Flags().StringVar(&f.input, "input", "", "Input column (default: detected)")
	cmd.Flags().StringVar(&f.expected, "expected", "", "Expected output column")
	cmd.Flags().StringSliceVar(&f.metadata, "metadata", nil, "Metadata columns, comma-separated")
	cmd.Flags().BoolVar(&f.noHeader, "no-header", false, "Treat the first line as data")
	cmd.Flags().BoolVar(&f.noDedupe, "no-dedupe", false, "Keep rows the dataset already contains")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Show the mapping and chunk plan without uploading")
	cmd.Flags().IntVar(&f.maxErrors, "max-errors", 20, "Errors to print (0 for all)")
	cmd.Flags().IntVar(&f.maxPayload, "max-payload", 0, "Chunk size limit in bytes (default: IMPORT_MAX_PAYLOAD_SIZE)")
	cmd.MarkFlagRequired("dataset")

	return cmd
}

func runImport(cmd *cobra.Command, path string, f importFlags) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, backend, err := connect(errOut)
	if err != nil {
		return err
	}

	content, err := readFile(path, cfg.Import.MaxFileSize)
	if err != nil {
		return err
	}
	hasHeader := !f.noHeader
	table := core.Parse(content, hasHeader)
	if table == nil || table.RowCount == 0 {
		return core.ErrEmptyContent
	}

	mapping := resolveMapping(core.AutoDetect(core.ProfileColumns(table)), f, cmd.Flags().Changed)
	if err := mapping.Validate(table.Headers); err != nil {
		return err
	}

	maxPayload := f.maxPayload
	if maxPayload <= 0 {
		maxPayload = cfg.Import.MaxPayloadSize
	}
	chunks := core.Chunk(content, hasHeader, maxPayload)

	fmt.Fprintf(out, "%s: %d rows in %d chunk(s) -> dataset %s\n",
		filepath.Base(path), table.RowCount, len(chunks), f.datasetID)
	fmt.Fprintf(out, "mapping: input=%s expected=%s metadata=%s\n",
		mapping.InputColumn, orDash(mapping.ExpectedColumn), orDash(strings.Join(mapping.MetadataColumns, ",")))
	if f.dryRun {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	importer := core.NewImporter(backend, core.WithRetryPolicy(core.RetryPolicy{
		MaxRetries:   cfg.Import.MaxRetries,
		InitialDelay: cfg.Import.InitialBackoff,
	}))
	progress := newProgressPrinter(errOut)

	res, err := importer.Import(ctx, core.ImportTarget{
		ProjectID: backend.ProjectID(),
		DatasetID: f.datasetID,
	}, content, core.ImportOptions{
		ColumnMapping:      mapping,
		HasHeader:          hasHeader,
		Deduplicate:        !f.noDedupe,
		MaxPayloadSize:     maxPayload,
		DelayBetweenChunks: cfg.Import.DelayBetweenChunks,
		OnProgress:         progress.Update,
	})
	if err != nil {
		return err
	}

	printResult(out, res, f.maxErrors)
	if res.Cancelled {
		return context.Canceled
	}
	if len(res.FailedChunks) > 0 {
		return fmt.Errorf("%w: %d of %d chunks failed", errPartialImport, len(res.FailedChunks), res.TotalChunks)
	}
	return nil
}

// resolveMapping starts from the detected mapping and replaces each role
// whose flag was given. Explicitly chosen columns are taken out of the
// detected roles they would otherwise share.
func resolveMapping(detected core.ColumnMapping, f importFlags, changed func(name string) bool) core.ColumnMapping {
	m := detected
	if changed("input") {
		m.InputColumn = f.input
	}
	if changed("metadata") {
		m.MetadataColumns = f.metadata
	}
	if changed("expected") {
		m.ExpectedColumn = f.expected
	} else if m.ExpectedColumn == m.InputColumn || slices.Contains(m.MetadataColumns, m.ExpectedColumn) {
		m.ExpectedColumn = ""
	}
	if !changed("metadata") {
		kept := []string{}
		for _, c := range m.MetadataColumns {
			if c != m.InputColumn && c != m.ExpectedColumn {
				kept = append(kept, c)
			}
		}
		m.MetadataColumns = kept
	}
	return m
}

func printResult(w io.Writer, res *core.ImportResult, maxErrors int) {
	fmt.Fprintf(w, "created %d, skipped %d", res.Created, res.Skipped)
	if n := len(res.FailedChunks); n > 0 {
		fmt.Fprintf(w, ", %d chunk(s) failed", n)
	}
	if res.Cancelled {
		fmt.Fprint(w, ", cancelled")
	}
	fmt.Fprintln(w)

	for i, msg := range res.Errors {
		if maxErrors > 0 && i >= maxErrors {
			fmt.Fprintf(w, "  ... and %d more\n", len(res.Errors)-i)
			break
		}
		fmt.Fprintf(w, "  %s\n", msg)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
