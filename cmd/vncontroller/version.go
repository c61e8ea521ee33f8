package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/llmvn"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of vncontroller",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "vncontroller version %s\n", strings.TrimSpace(llmvn.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
