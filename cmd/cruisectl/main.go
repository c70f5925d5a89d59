// Command cruisectl runs operator tasks against the cruise booking database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "cruisectl",
	Short:         "Operator tools for the cruise booking service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)

	// Orders
	rootCmd.AddCommand(fixGuestOrdersCmd)
	rootCmd.AddCommand(importOrdersCmd)

	// Auth
	rootCmd.AddCommand(issueTokenCmd)
}
