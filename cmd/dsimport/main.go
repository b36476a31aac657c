package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/dsimport/internal/cli"
	"github.com/JonMunkholm/dsimport/internal/core"
)

func main() {
	// A missing .env is normal for the CLI.
	_ = godotenv.Load()

	rootCmd := cli.NewRootCmd()
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, "Error:", core.FormatUserError(err))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
