package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "httptap",
	Short: "httptap - intercepting HTTP(S) proxy with a traffic tap",
	Long: `Httptap sits between a client and one upstream service, logging every
exchange while relaying it unchanged.

It provides:
  - Deterministic request/response tap logging with header redaction
  - TLS termination on the listener and TLS origination to the upstream
  - Transparent WebSocket tunneling
  - Prometheus metrics and persistent traffic history`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
