/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/itparc/inventory/config"
	"github.com/itparc/inventory/internal/logging"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "inventory",
	Short: "IT equipment inventory and maintenance API",
	Long: `Tracks IT equipment, who it is assigned to and its maintenance history.

	inventory migrate up
	inventory admin create --username root --email root@example.com
	inventory server
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) logging.Logger {
	return logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
}
