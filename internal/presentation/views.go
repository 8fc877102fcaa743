package presentation

import (
	"fmt"
	"time"

	"auction-tracker/internal/domain"
	"auction-tracker/internal/services"
)

const (
	labelEnded = "Auction Ended"
	labelPlace = "Place Bid"
)

// AuctionCard is one entry of the auction list.
type AuctionCard struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	StartingPrice string `json:"startingPrice"`
	CurrentBid    string `json:"currentBid"`
	Ended         bool   `json:"ended"`
	StatusLabel   string `json:"statusLabel"`
	ActionLabel   string `json:"actionLabel"`
}

// Card decides "ended" from the end time alone; list entries carry no status.
func Card(a domain.Auction, now time.Time) AuctionCard {
	ended := !now.Before(a.AuctionEndTime)

	card := AuctionCard{
		ID:            a.ID,
		Name:          a.Name,
		Description:   a.Description,
		StartingPrice: FormatMoney(a.StartingPrice),
		CurrentBid:    FormatMoney(a.CurrentHighestBid),
		Ended:         ended,
		StatusLabel:   "Ends " + FormatDistance(a.AuctionEndTime, now),
		ActionLabel:   labelPlace,
	}
	if ended {
		card.StatusLabel = labelEnded
		card.ActionLabel = labelEnded
	}
	return card
}

func Cards(items []domain.Auction, now time.Time) []AuctionCard {
	cards := make([]AuctionCard, 0, len(items))
	for _, a := range items {
		cards = append(cards, Card(a, now))
	}
	return cards
}

type BidLine struct {
	ID       int64  `json:"id"`
	Amount   string `json:"amount"`
	Username string `json:"username"`
	PlacedAt string `json:"placedAt"`
}

// DetailView is the auction detail page.
type DetailView struct {
	ID                int64              `json:"id"`
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	StatusLabel       string             `json:"statusLabel"`
	StartedOn         string             `json:"startedOn"`
	StartingPrice     string             `json:"startingPrice"`
	CurrentHighestBid string             `json:"currentHighestBid"`
	Ended             bool               `json:"ended"`
	Countdown         services.Countdown `json:"countdown"`
	CountdownLabel    string             `json:"countdownLabel"`
	RemainingPercent  float64            `json:"remainingPercent"`
	Bids              []BidLine          `json:"bids"`
	Live              bool               `json:"live"`
	BiddingOpen       bool               `json:"biddingOpen"`
	BidHint           string             `json:"bidHint,omitempty"`
	BidEnabled        bool               `json:"bidEnabled"`
}

func Detail(p services.Projection, now time.Time, live bool) DetailView {
	ended := p.Status == domain.AuctionEnded

	view := DetailView{
		ID:                p.AuctionID,
		Name:              p.Auction.Name,
		Description:       p.Auction.Description,
		StatusLabel:       "Ends " + FormatDistance(p.Auction.AuctionEndTime, now),
		StartedOn:         FormatDate(p.Auction.CreatedAt),
		StartingPrice:     FormatMoney(p.Auction.StartingPrice),
		CurrentHighestBid: FormatMoney(p.Headline()),
		Ended:             ended,
		Countdown:         p.Countdown,
		CountdownLabel:    CountdownLabel(p.Countdown),
		RemainingPercent:  p.RemainingPercent(),
		Bids:              make([]BidLine, 0, len(p.Bids)),
		Live:              live,
	}
	if ended {
		view.StatusLabel = labelEnded
	}
	if p.Loaded && p.Active() {
		view.BiddingOpen = true
		view.BidHint = "Enter more than " + FormatMoney(p.Headline())
	}

	for _, b := range p.Bids {
		view.Bids = append(view.Bids, BidLine{
			ID:       b.ID,
			Amount:   FormatMoney(b.Amount),
			Username: b.Username,
			PlacedAt: FormatDateTime(b.CreatedAt),
		})
	}
	return view
}

func CountdownLabel(c services.Countdown) string {
	if c.Days > 0 {
		return fmt.Sprintf("%dd %02dh %02dm %02ds", c.Days, c.Hours, c.Minutes, c.Seconds)
	}
	return fmt.Sprintf("%02dh %02dm %02ds", c.Hours, c.Minutes, c.Seconds)
}

// BidButtonEnabled mirrors the bid button. It accepts exactly what SubmitBid
// would send.
func BidButtonEnabled(amountText string, p services.Projection) bool {
	return services.CanBid(amountText, &p)
}
