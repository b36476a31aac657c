// Package cli implements the dsimport command line tool.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dsimport/internal/logging"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var logLevel, logFormat string

	rootCmd := &cobra.Command{
		Use:   "dsimport",
		Short: "Preview and import CSV files into evaluation datasets",
		Long: `dsimport parses CSV files, suggests a column mapping and uploads the rows
to a dataset in size-bounded chunks with retries.

The backend is configured with BACKEND_URL, BACKEND_API_KEY and
BACKEND_PROJECT_ID (a .env file in the working directory is read).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(cmd.ErrOrStderr(), logLevel, logFormat)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newDatasetsCmd())

	return rootCmd
}
