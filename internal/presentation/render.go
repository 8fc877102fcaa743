package presentation

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"auction-tracker/internal/domain"
)

func RenderList(w io.Writer, cards []AuctionCard, meta domain.PageMeta) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTARTING\tCURRENT\tSTATUS")
	for _, c := range cards {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.StartingPrice, c.CurrentBid, c.StatusLabel)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d of %d (%d auctions)\n", meta.Page, meta.TotalPages, meta.Total)
	return err
}

func RenderDetail(w io.Writer, v DetailView) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n%s\n\n", v.Name, v.Description)
	fmt.Fprintf(&b, "%s", v.StatusLabel)
	if !v.Ended {
		fmt.Fprintf(&b, "  [%s, %.0f%% left]", v.CountdownLabel, v.RemainingPercent)
	}
	if !v.Live {
		b.WriteString("  (polling)")
	}
	fmt.Fprintf(&b, "\nAuction started on %s\n\n", v.StartedOn)
	fmt.Fprintf(&b, "Starting Price:      %s\n", v.StartingPrice)
	fmt.Fprintf(&b, "Current Highest Bid: %s\n", v.CurrentHighestBid)
	if v.BidHint != "" {
		fmt.Fprintf(&b, "%s:           %s\n", labelPlace, v.BidHint)
	}
	b.WriteString("\n")

	b.WriteString("Bid History\n")
	if len(v.Bids) == 0 {
		b.WriteString("  no bids yet\n")
	}
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, bid := range v.Bids {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", bid.Amount, bid.Username, bid.PlacedAt)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, b.String())
	return err
}
