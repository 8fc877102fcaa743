package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"auction-tracker/internal/presentation"
	"auction-tracker/internal/services"

	"github.com/spf13/cobra"
)

var (
	listPage  int
	listLimit int

	itemForm services.ItemForm
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List auctions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		catalog, err := a.catalog(cmd.Context())
		if err != nil {
			return err
		}
		page, err := catalog.ListAuctions(cmd.Context(), listPage, listLimit)
		if err != nil {
			return err
		}
		return presentation.RenderList(cmd.OutOrStdout(), presentation.Cards(page.Items, time.Now()), page.Meta)
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List the users bids can be placed as",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		catalog, err := a.catalog(cmd.Context())
		if err != nil {
			return err
		}
		users, err := catalog.ListUsers(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSERNAME")
		for _, u := range users {
			fmt.Fprintf(tw, "%d\t%s\n", u.ID, u.Username)
		}
		return tw.Flush()
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Put a new item up for auction",
	Long: `Create a new auction item.

The end time is RFC 3339 and defaults to seven days from now.

Example:
  auctionctl create --name "Desk Lamp" --description "Brass" --price 25.50`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		catalog, err := a.catalog(cmd.Context())
		if err != nil {
			return err
		}
		item, err := catalog.CreateItem(cmd.Context(), itemForm)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Item created: #%d %s, ends %s\n",
			item.ID, item.Name, presentation.FormatDateTime(item.AuctionEndTime.Local()))
		return nil
	},
}

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	listCmd.Flags().IntVar(&listLimit, "limit", 10, "auctions per page")

	createCmd.Flags().StringVar(&itemForm.Name, "name", "", "item name")
	createCmd.Flags().StringVar(&itemForm.Description, "description", "", "item description")
	createCmd.Flags().StringVar(&itemForm.StartingPrice, "price", "", "starting price")
	createCmd.Flags().StringVar(&itemForm.AuctionEndTime, "ends", "", "auction end time, RFC 3339")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("price")
}
