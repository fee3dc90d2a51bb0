package main

import (
	"fmt"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration after env and flag overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgPathUsed == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No config file loaded (using defaults).")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n\n", cfgPathUsed)
		}
		_, err := pp.Fprintln(cmd.OutOrStdout(), currentConfig)
		return err
	},
}
