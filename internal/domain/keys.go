package domain

import "fmt"

// Cache keys. Invalidating a key also drops every "<key>:..." entry.
const AuctionListKey = "auctions"

func AuctionListPageKey(page, limit int) string {
	return fmt.Sprintf("%s:page:%d:%d", AuctionListKey, page, limit)
}

func AuctionKey(auctionID int64) string {
	return fmt.Sprintf("auction:%d", auctionID)
}
