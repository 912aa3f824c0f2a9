package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of policy-feed",
	// Printing the version needs neither config nor secrets.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("policy-feed %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
