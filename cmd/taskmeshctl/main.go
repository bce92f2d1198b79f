// Command taskmeshctl is a CLI client for the job-processing HTTP API,
// retargeted from the teacher's memoryctl (CLI client for the Memory
// backend REST API) onto this platform's job submission/status/results
// surface, plus an offline "apikey create" administrative subcommand
// (§3 "API Key record"; supplemented feature — see SPEC_FULL.md
// "SUPPLEMENTED FEATURES").
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag    string
	apiKeyFlag string
	rootCmd    = &cobra.Command{
		Use:   "taskmeshctl",
		Short: "CLI client for the job-processing HTTP API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "API server base URL")
	rootCmd.PersistentFlags().StringVarP(&apiKeyFlag, "key", "k", os.Getenv("TASKMESH_API_KEY"), "API key (or set TASKMESH_API_KEY)")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newAnalyzeSubjectsCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newResultsCmd())
	rootCmd.AddCommand(newAPIKeyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
