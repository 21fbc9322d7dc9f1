package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd is the formcraft entry point. Subcommands do the work.
var rootCmd = &cobra.Command{
	Use:   "formcraft",
	Short: "Drag-and-drop form builder backend",
	Long: `formcraft serves the form builder API: builder sessions, live preview,
conditional logic and publishing of forms to a persistent store.

Available subcommands:
  serve          - Start the HTTP server
  preview        - Render a form file against a set of values
  hash-password  - Print a bcrypt hash for auth.password_hash`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to app.yaml (default: ./app.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
