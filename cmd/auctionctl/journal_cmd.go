package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"auction-tracker/internal/domain"
	"auction-tracker/internal/infrastructure/mysql"
	"auction-tracker/internal/infrastructure/redis"
	"auction-tracker/internal/presentation"

	"github.com/spf13/cobra"
)

var feedAuction int64

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Tail bids fanned out to Redis by trackers with publish.enabled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rdb, err := a.redis(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		subscriber := redis.NewRedisEventSubscriber(rdb, a.log)
		err = subscriber.SubscribeToBidEvents(cmd.Context(), func(event *domain.BidEvent) {
			if feedAuction != 0 && event.AuctionID != feedAuction {
				return
			}
			fmt.Fprintf(out, "%s  auction #%d  %s  by user %d\n",
				presentation.FormatDateTime(event.Bid.CreatedAt.Local()),
				event.AuctionID,
				presentation.FormatMoney(event.Bid.Amount),
				event.Bid.UserID)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [auction-id]",
	Short: "Print the bids journaled to MySQL for one auction",
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

		db, err := a.database(cmd.Context())
		if err != nil {
			return err
		}
		events, err := mysql.NewMySQLBidArchive(db).GetBidHistory(cmd.Context(), auctionID)
		if err != nil {
			return fmt.Errorf("read bid history of %d: %w", auctionID, err)
		}
		return renderHistory(cmd.OutOrStdout(), auctionID, events)
	},
}

func init() {
	feedCmd.Flags().Int64Var(&feedAuction, "auction", 0, "only show bids on this auction")
}

func renderHistory(w io.Writer, auctionID int64, events []*domain.BidEvent) error {
	if len(events) == 0 {
		_, err := fmt.Fprintf(w, "no journaled bids for auction #%d\n", auctionID)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLACED\tBID\tUSER\tAMOUNT")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n",
			presentation.FormatDateTime(e.Bid.CreatedAt.Local()), e.Bid.ID, e.Bid.UserID, presentation.FormatMoney(e.Bid.Amount))
	}
	return tw.Flush()
}
