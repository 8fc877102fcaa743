package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"auction-tracker/internal/auctionerrors"
	"auction-tracker/internal/domain"
	"auction-tracker/pkg/logger"

	"github.com/shopspring/decimal"
)

const DefaultAuctionLength = 7 * 24 * time.Hour

// ItemForm is the raw input of the add-item form.
type ItemForm struct {
	Name           string
	Description    string
	StartingPrice  string
	AuctionEndTime string // RFC 3339; empty means now + DefaultAuctionLength
}

// Catalog serves the auction list through the query cache and creates items.
type Catalog struct {
	api   domain.AuctionAPI
	cache domain.QueryCache
	now   func() time.Time
	log   logger.Logger
}

func NewCatalog(api domain.AuctionAPI, cache domain.QueryCache, log logger.Logger) *Catalog {
	return &Catalog{
		api:   api,
		cache: cache,
		now:   time.Now,
		log:   log,
	}
}

func (c *Catalog) ListAuctions(ctx context.Context, page, limit int) (*domain.AuctionPage, error) {
	key := domain.AuctionListPageKey(page, limit)

	var cached domain.AuctionPage
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.log.Warn("Cache read failed", "key", key, "error", err)
	}
	if found {
		return &cached, nil
	}

	result, err := c.api.ListAuctions(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}

	if err := c.cache.Set(ctx, key, result); err != nil {
		c.log.Warn("Cache write failed", "key", key, "error", err)
	}
	return result, nil
}

func (c *Catalog) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := c.api.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ValidateItemForm turns form input into a request, or a validation error
// naming the first offending field.
func (c *Catalog) ValidateItemForm(form ItemForm) (domain.CreateItemRequest, error) {
	invalid := func(detail string) error {
		return auctionerrors.Validation("CreateItem", fmt.Errorf("%w - %s", auctionerrors.ErrInvalidItem, detail))
	}

	name := strings.TrimSpace(form.Name)
	if name == "" {
		return domain.CreateItemRequest{}, invalid("name is required")
	}
	description := strings.TrimSpace(form.Description)
	if description == "" {
		return domain.CreateItemRequest{}, invalid("description is required")
	}

	price, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(form.StartingPrice), "$"))
	if err != nil {
		return domain.CreateItemRequest{}, invalid("starting price must be a number")
	}
	if !price.IsPositive() {
		return domain.CreateItemRequest{}, invalid("starting price must be greater than 0")
	}

	now := c.now()
	end := now.Add(DefaultAuctionLength)
	if text := strings.TrimSpace(form.AuctionEndTime); text != "" {
		end, err = time.Parse(time.RFC3339, text)
		if err != nil {
			return domain.CreateItemRequest{}, invalid("end time must be RFC 3339")
		}
	}
	if !end.After(now) {
		return domain.CreateItemRequest{}, invalid("end time must be in the future")
	}

	return domain.CreateItemRequest{
		Name:           name,
		Description:    description,
		StartingPrice:  price,
		AuctionEndTime: end,
	}, nil
}

// CreateItem validates form, creates the item and invalidates every cached list page.
func (c *Catalog) CreateItem(ctx context.Context, form ItemForm) (*domain.Auction, error) {
	req, err := c.ValidateItemForm(form)
	if err != nil {
		return nil, err
	}

	item, err := c.api.CreateItem(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	if err := c.cache.Invalidate(ctx, domain.AuctionListKey); err != nil {
		c.log.Warn("Cache invalidate failed", "key", domain.AuctionListKey, "error", err)
	}
	c.log.Info("Item created", "item_id", item.ID, "name", item.Name)
	return item, nil
}
