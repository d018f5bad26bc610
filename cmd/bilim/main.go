package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bilim-app/bilim/internal/interfaces/cli/server"
	"github.com/bilim-app/bilim/internal/interfaces/cli/sweep"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bilim",
		Short: "Bilim - payment and entitlement backend",
		Long:  `Bilim is the billing backend for the Bilim learning platform: Payme and Atmos payment gateways, the transaction ledger and subscription entitlements.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		sweep.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
