package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var configFile string
	var envFile string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "dspace-import",
		Short: "Import content into a DSpace repository over its REST API",
		Long: `dspace-import creates communities, collections and items in a DSpace
repository and uploads their bitstreams from local files or S3.

Connection settings come from DSPACE_* environment variables, an optional
--env-file and an optional --config file.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (yaml, json, toml or env)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every request")

	// Add subcommands
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewIngestCommand())
	rootCmd.AddCommand(NewMetadataCommand())

	return rootCmd
}
