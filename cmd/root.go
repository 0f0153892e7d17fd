package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shop",
	Short: "E-commerce backend",
	Long:  `An e-commerce backend providing accounts, a product catalog, shopping carts, checkout and order history over HTTP, plus an internal gRPC order API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
