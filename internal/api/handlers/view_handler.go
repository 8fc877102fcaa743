package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"auction-tracker/internal/auctionerrors"
	"auction-tracker/internal/domain"
	"auction-tracker/internal/infrastructure/api"
	"auction-tracker/internal/presentation"
	"auction-tracker/internal/services"
	"auction-tracker/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// ViewHandler serves the list and detail views as JSON. All detail requests
// share one tracker, the way one open tab follows one auction at a time.
type ViewHandler struct {
	catalog     *services.Catalog
	tracker     *services.Tracker
	loadTimeout time.Duration
	now         func() time.Time
	log         logger.Logger
}

func NewViewHandler(catalog *services.Catalog, tracker *services.Tracker, loadTimeout time.Duration, log logger.Logger) *ViewHandler {
	if loadTimeout <= 0 {
		loadTimeout = 5 * time.Second
	}
	return &ViewHandler{
		catalog:     catalog,
		tracker:     tracker,
		loadTimeout: loadTimeout,
		now:         time.Now,
		log:         log,
	}
}

type ListResponse struct {
	Items []presentation.AuctionCard `json:"items"`
	Meta  domain.PageMeta            `json:"meta"`
}

type BidRequest struct {
	Amount string `json:"amount"`
}

type BidResponse struct {
	Bid     domain.Bid `json:"bid"`
	Message string     `json:"message"`
}

type ItemRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	StartingPrice  string `json:"startingPrice"`
	AuctionEndTime string `json:"auctionEndTime"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Register mounts the viewer routes. A nil gatherer serves the default registry.
func (h *ViewHandler) Register(e *echo.Echo, gatherer prometheus.Gatherer) {
	v1 := e.Group("/api/v1")
	v1.GET("/auctions", h.ListAuctions)
	v1.GET("/auctions/:id", h.GetAuction)
	v1.POST("/auctions/:id/bids", h.PlaceBid)
	v1.POST("/items", h.CreateItem)
	v1.GET("/users", h.ListUsers)

	e.GET("/health", h.Health)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

func (h *ViewHandler) ListAuctions(c echo.Context) error {
	page, err := queryInt(c, "page", defaultPage)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: auctionerrors.KindValidation.String()})
	}
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: auctionerrors.KindValidation.String()})
	}

	result, err := h.catalog.ListAuctions(c.Request().Context(), page, limit)
	if err != nil {
		return h.fail(c, "ListAuctions", err)
	}

	return c.JSON(http.StatusOK, ListResponse{
		Items: presentation.Cards(result.Items, h.now()),
		Meta:  result.Meta,
	})
}

// GetAuction switches the tracker to the requested auction and returns its
// detail view once the first fetch has completed. An "amount" query parameter
// is checked the same way a submitted bid would be.
func (h *ViewHandler) GetAuction(c echo.Context) error {
	snap, err := h.track(c)
	if err != nil {
		return h.fail(c, "GetAuction", err)
	}
	view := presentation.Detail(snap, h.now(), !h.tracker.Degraded())
	view.BidEnabled = presentation.BidButtonEnabled(c.QueryParam("amount"), snap)
	return c.JSON(http.StatusOK, view)
}

func (h *ViewHandler) PlaceBid(c echo.Context) error {
	var req BidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Kind: auctionerrors.KindValidation.String()})
	}

	if _, err := h.track(c); err != nil {
		return h.fail(c, "PlaceBid", err)
	}

	bid, err := h.tracker.SubmitBid(c.Request().Context(), req.Amount)
	if err != nil {
		return h.fail(c, "PlaceBid", err)
	}

	return c.JSON(http.StatusCreated, BidResponse{Bid: *bid, Message: "Bid placed successfully!"})
}

func (h *ViewHandler) CreateItem(c echo.Context) error {
	var req ItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Kind: auctionerrors.KindValidation.String()})
	}

	item, err := h.catalog.CreateItem(c.Request().Context(), services.ItemForm{
		Name:           req.Name,
		Description:    req.Description,
		StartingPrice:  req.StartingPrice,
		AuctionEndTime: req.AuctionEndTime,
	})
	if err != nil {
		return h.fail(c, "CreateItem", err)
	}
	return c.JSON(http.StatusCreated, presentation.Card(*item, h.now()))
}

func (h *ViewHandler) ListUsers(c echo.Context) error {
	users, err := h.catalog.ListUsers(c.Request().Context())
	if err != nil {
		return h.fail(c, "ListUsers", err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *ViewHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "auction-viewer",
		"timestamp": h.now().Format(time.RFC3339),
		"tracking":  h.tracker.AuctionID(),
		"degraded":  h.tracker.Degraded(),
	})
}

func (h *ViewHandler) track(c echo.Context) (services.Projection, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return services.Projection{}, auctionerrors.Validation("track",
			errors.New("auction id must be a positive integer"))
	}

	if err := h.tracker.StartTracking(c.Request().Context(), id); err != nil {
		return services.Projection{}, err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.loadTimeout)
	defer cancel()

	snap, err := h.tracker.WaitLoaded(ctx)
	if errors.Is(err, auctionerrors.ErrAuctionNotFound) {
		// nothing to poll for
		h.tracker.StopTracking()
	}
	return snap, err
}

func (h *ViewHandler) fail(c echo.Context, op string, err error) error {
	kind := auctionerrors.KindOf(err)
	status := statusFor(err)

	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "op", op, "kind", kind.String(), "error", err)
	} else {
		h.log.Debug("Request rejected", "op", op, "kind", kind.String(), "error", err)
	}
	return c.JSON(status, ErrorResponse{Error: err.Error(), Kind: kind.String()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, auctionerrors.ErrBidTooLow), errors.Is(err, auctionerrors.ErrAuctionEnded):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	var unexpected *api.UnexpectedStatusError
	if errors.As(err, &unexpected) && unexpected.Code == http.StatusNotFound {
		return http.StatusNotFound
	}

	switch auctionerrors.KindOf(err) {
	case auctionerrors.KindValidation:
		return http.StatusBadRequest
	case auctionerrors.KindChannel:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return n, nil
}
