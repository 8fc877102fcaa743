package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	baseURL    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "auctionctl",
	Short: "Browse, follow and bid on live auctions",
	Long: `auctionctl is a client for the auction service.

It lists auctions, follows one auction live (countdown plus pushed bids),
places bids, and can serve the same views as JSON over HTTP.

Examples:
  auctionctl list
  auctionctl watch 1
  auctionctl bid 1 55.50
  auctionctl serve
  auctionctl stub --seed`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: config.yaml in ., ./config or /etc/auction-tracker)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "auction service base URL, overrides api.base_url")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides log.level")

	rootCmd.AddCommand(
		listCmd,
		usersCmd,
		createCmd,
		showCmd,
		watchCmd,
		bidCmd,
		serveCmd,
		stubCmd,
		feedCmd,
		historyCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
