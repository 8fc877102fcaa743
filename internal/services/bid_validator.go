package services

import (
	"fmt"
	"strings"

	"auction-tracker/internal/auctionerrors"

	"github.com/shopspring/decimal"
)

// ValidateBidAmount parses the amount a user typed and checks it against the
// projection currently on screen. It never touches the network.
func ValidateBidAmount(text string, p *Projection) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, auctionerrors.Validation("SubmitBid", auctionerrors.ErrBidAmountMissing)
	}

	amount, err := decimal.NewFromString(strings.TrimPrefix(text, "$"))
	if err != nil {
		return decimal.Zero, auctionerrors.Validation("SubmitBid",
			fmt.Errorf("%w - %q", auctionerrors.ErrBidAmountInvalid, text))
	}

	if p == nil || !p.Loaded {
		return decimal.Zero, auctionerrors.Validation("SubmitBid",
			fmt.Errorf("%w - auction not loaded yet", auctionerrors.ErrNotTracking))
	}
	if !p.Active() {
		return decimal.Zero, auctionerrors.Validation("SubmitBid",
			fmt.Errorf("%w - auction %d", auctionerrors.ErrAuctionEnded, p.AuctionID))
	}
	if !amount.GreaterThan(p.Headline()) {
		return decimal.Zero, auctionerrors.Validation("SubmitBid",
			fmt.Errorf("%w - must exceed %s", auctionerrors.ErrBidTooLow, p.Headline().StringFixed(2)))
	}

	return amount, nil
}

// CanBid is the hint used to enable the bid button.
func CanBid(text string, p *Projection) bool {
	_, err := ValidateBidAmount(text, p)
	return err == nil
}
