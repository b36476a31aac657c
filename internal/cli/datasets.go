package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dsimport/internal/client"
)

func newDatasetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List and create datasets",
	}
	cmd.AddCommand(newDatasetsListCmd())
	cmd.AddCommand(newDatasetsCreateCmd())
	return cmd
}

func newDatasetsListCmd() *cobra.Command {
	var (
		opts   client.ListOptions
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List datasets in the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, backend, err := connect(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			page, err := backend.ListDatasets(cmd.Context(), backend.ProjectID(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(page)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tITEMS\tUPDATED")
			for _, ds := range page.Data {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", ds.ID, ds.Name, ds.ItemCount, ds.UpdatedAt.Format("2006-01-02 15:04"))
			}
			tw.Flush()
			fmt.Fprintf(out, "page %d of %d (%d total)\n",
				page.Pagination.Page, page.Pagination.TotalPages, page.Pagination.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "Datasets per page")
	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "Filter by name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON page")

	return cmd
}

func newDatasetsCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty dataset and print its ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, backend, err := connect(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ds, err := backend.CreateDataset(cmd.Context(), backend.ProjectID(), client.DatasetInput{
				Name:        args[0],
				Description: description,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ds.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Dataset description")
	return cmd
}
