package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "forgectl",
		Short:   "TestForge operator tool",
		Long:    `Operator tool for the TestForge suite service: hash user credential files and move test suites in and out of a backend as YAML.`,
		Version: version,
	}

	var configFile string
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "service configuration file (default: testforge.cfg or environment)")

	rootCmd.AddCommand(
		newHashUsersCommand(),
		newImportCommand(&configFile),
		newExportCommand(&configFile),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
