package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"auction-tracker/internal/metrics"
	"auction-tracker/internal/presentation"
	"auction-tracker/internal/services"

	"github.com/spf13/cobra"
)

const clearScreen = "\033[H\033[2J"

var watchNoClear bool

var showCmd = &cobra.Command{
	Use:   "show [auction-id]",
	Short: "Show one auction with its bid history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		auctionID, err := parseAuctionID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tracker, _, err := a.tracking(cmd.Context(), metrics.New(nil))
		if err != nil {
			return err
		}
		snap, err := a.load(cmd.Context(), tracker, auctionID)
		if err != nil {
			return err
		}
		return presentation.RenderDetail(cmd.OutOrStdout(), presentation.Detail(snap, time.Now(), !tracker.Degraded()))
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [auction-id]",
	Short: "Follow an auction live until interrupted",
	Long: `Follow one auction: the countdown ticks every second, bids pushed by the
service appear as they are accepted, and the view refetches when the
auction ends. Without a live channel the auction is polled instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		auctionID, err := parseAuctionID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		tracker, _, err := a.tracking(ctx, metrics.New(nil))
		if err != nil {
			return err
		}
		if _, err := a.load(ctx, tracker, auctionID); err != nil {
			return err
		}

		refresher := services.NewCronRefresher(a.cfg.Tracker.PollSchedule, a.log)
		refresher.Register(tracker)
		if err := refresher.Start(ctx); err != nil {
			return fmt.Errorf("start refresher: %w", err)
		}
		defer refresher.Stop()

		out := cmd.OutOrStdout()
		for {
			if snap, ok := tracker.Snapshot(); ok {
				if err := redraw(out, snap, !tracker.Degraded()); err != nil {
					return err
				}
			}

			select {
			case <-ctx.Done():
				return nil
			case <-tracker.Changes():
			}
		}
	},
}

var bidCmd = &cobra.Command{
	Use:   "bid [auction-id] [amount]",
	Short: "Place a bid as bidder.user_id",
	Long: `Place a bid on an auction. The amount must be above the current highest
bid and the auction must still be running; both are checked before anything
is sent.

Example:
  auctionctl bid 1 55.50`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		auctionID, err := parseAuctionID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tracker, _, err := a.tracking(cmd.Context(), metrics.New(nil))
		if err != nil {
			return err
		}
		if _, err := a.load(cmd.Context(), tracker, auctionID); err != nil {
			return err
		}

		bid, err := tracker.SubmitBid(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Bid placed successfully! %s on auction #%d\n",
			presentation.FormatMoney(bid.Amount), auctionID)
		return nil
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoClear, "no-clear", false, "append frames instead of redrawing the screen")
}

func redraw(w io.Writer, snap services.Projection, live bool) error {
	if watchNoClear {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	} else if _, err := io.WriteString(w, clearScreen); err != nil {
		return err
	}
	return presentation.RenderDetail(w, presentation.Detail(snap, time.Now(), live))
}

func parseAuctionID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid auction id %q", arg)
	}
	return id, nil
}
