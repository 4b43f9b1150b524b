package main

import (
	"fmt"
	"os"

	"github.com/kmettler/habitloop/cmd/admin/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "habitloop-admin",
		Short: "Admin tool for the Habitloop API",
		Long:  "CLI tool for checking connectivity and triggering maintenance jobs",
	}

	rootCmd.AddCommand(commands.NewTestCmd())
	rootCmd.AddCommand(commands.NewAnalyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
