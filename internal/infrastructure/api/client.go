package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"auction-tracker/internal/auctionerrors"
	"auction-tracker/internal/domain"
	"auction-tracker/pkg/logger"

	"github.com/google/uuid"
)

// Client talks to the external auction REST service. It never retries and
// never caches; callers sit behind a QueryCache.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

func NewClient(baseURL string, hc *http.Client, log logger.Logger) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		http:    hc,
		log:     log,
	}
}

func (c *Client) ListAuctions(ctx context.Context, page, limit int) (*domain.AuctionPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/items"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out domain.AuctionPage
	if err := c.doJSON(ctx, "ListAuctions", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAuction(ctx context.Context, auctionID int64) (*domain.AuctionDetail, error) {
	var out domain.AuctionDetail
	if err := c.doJSON(ctx, "GetAuction", http.MethodGet, fmt.Sprintf("/items/%d", auctionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PlaceBid(ctx context.Context, req domain.PlaceBidRequest) (*domain.Bid, error) {
	var out domain.Bid
	if err := c.doJSON(ctx, "PlaceBid", http.MethodPost, "/bids", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateItem(ctx context.Context, req domain.CreateItemRequest) (*domain.Auction, error) {
	body := createItemBody{
		Name:           req.Name,
		Description:    req.Description,
		StartingPrice:  req.StartingPrice.String(),
		AuctionEndTime: req.AuctionEndTime.UTC().Format(time.RFC3339Nano),
	}

	var out domain.Auction
	if err := c.doJSON(ctx, "CreateItem", http.MethodPost, "/items", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := c.doJSON(ctx, "ListUsers", http.MethodGet, "/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- Wire format ----

type createItemBody struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	StartingPrice  string `json:"startingPrice"`
	AuctionEndTime string `json:"auctionEndTime"`
}

// doJSON sends req as JSON (if non-nil) and decodes a 2xx body into resp.
// Every failure comes back as a single network-kind error.
func (c *Client) doJSON(ctx context.Context, op, method, path string, req any, resp any) error {
	var body io.Reader
	if req != nil {
		b, err := json.Marshal(req)
		if err != nil {
			return auctionerrors.Network(op, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return auctionerrors.Network(op, err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("Accept", "application/json")
	if req != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	rsp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn("Request failed", "op", op, "request_id", requestID, "error", err)
		return auctionerrors.Network(op, err)
	}
	defer rsp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(rsp.Body, 1<<20))
	c.log.Debug("Request completed", "op", op, "method", method, "path", path,
		"status", rsp.StatusCode, "request_id", requestID, "latency", time.Since(start).String())

	if rsp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return auctionerrors.Network(op, fmt.Errorf("%s %s: %w", method, path, auctionerrors.ErrAuctionNotFound))
	}
	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		return auctionerrors.Network(op, &UnexpectedStatusError{
			Method: method,
			Path:   path,
			Code:   rsp.StatusCode,
			Body:   strings.TrimSpace(string(raw)),
		})
	}

	if resp != nil {
		if err := json.Unmarshal(raw, resp); err != nil {
			return auctionerrors.Network(op, fmt.Errorf("decode %s %s: %w", method, path, err))
		}
	}
	return nil
}
