package httpapi

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"dkpauction/domain/entities"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	maxHistoryLimit    = 500
	maxDurationSeconds = math.MaxInt64 / int64(time.Second)
)

// AuctionEngine is the application surface the handlers drive
type AuctionEngine interface {
	CreateAuction(ctx context.Context, params entities.CreateAuctionParams) (*entities.Auction, error)
	ListActive(ctx context.Context, requestingUserID *int64) ([]*entities.ActiveAuctionView, error)
	GetAuction(ctx context.Context, auctionID int64) (*entities.AuctionDetail, error)
	PlaceBid(ctx context.Context, auctionID, userID, amount int64) (*entities.BidPlacement, error)
	CloseAuction(ctx context.Context, auctionID int64) (*entities.SettlementResult, error)
	EnsureAccount(ctx context.Context, userID int64, username string) (*entities.Account, error)
	GetAccount(ctx context.Context, userID int64) (*entities.Account, error)
	Available(ctx context.Context, userID int64) (int64, error)
	History(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error)
	AdjustBalance(ctx context.Context, userID, delta int64, reason entities.TransactionReason, metadata map[string]any) (*entities.LedgerEntry, error)
}

// HealthCheck reports whether dependencies are reachable
type HealthCheck func(ctx context.Context) error

type Handler struct {
	engine AuctionEngine
	health HealthCheck
}

// NewHandler creates the HTTP handlers. health may be nil.
func NewHandler(engine AuctionEngine, health HealthCheck) *Handler {
	return &Handler{engine: engine, health: health}
}

// CreateAuction handles POST /auctions
func (h *Handler) CreateAuction(c *gin.Context) {
	var req CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request payload: "+err.Error())
		return
	}

	params := entities.CreateAuctionParams{
		ItemName:     req.Item,
		ItemMetadata: req.ItemMetadata,
		MinBid:       req.MinBid,
		CreatedBy:    callerID(c),
	}
	if req.DurationSeconds != nil {
		if *req.DurationSeconds > maxDurationSeconds {
			writeBadRequest(c, "durationSeconds is out of range")
			return
		}
		d := time.Duration(*req.DurationSeconds) * time.Second
		params.Duration = &d
	}

	auction, err := h.engine.CreateAuction(c.Request.Context(), params)
	if err != nil {
		writeError(c, "CreateAuction", err)
		return
	}
	c.JSON(http.StatusCreated, toAuctionResponse(auction, nil))
}

// ListAuctions handles GET /auctions
func (h *Handler) ListAuctions(c *gin.Context) {
	views, err := h.engine.ListActive(c.Request.Context(), callerID(c))
	if err != nil {
		writeError(c, "ListAuctions", err)
		return
	}

	out := make([]AuctionResponse, 0, len(views))
	for _, v := range views {
		resp := toAuctionResponse(v.Auction, v.Bids)
		resp.AvailableForRequestingUser = v.AvailableForUser
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, out)
}

// GetAuction handles GET /auctions/:id
func (h *Handler) GetAuction(c *gin.Context) {
	auctionID, ok := pathID(c)
	if !ok {
		return
	}

	detail, err := h.engine.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		writeError(c, "GetAuction", err)
		return
	}

	resp := toAuctionResponse(detail.Auction, detail.Bids)
	if len(detail.Rolls) > 0 {
		resp.Rolls = toRollResponses(detail.Rolls)
	}
	c.JSON(http.StatusOK, resp)
}

// PlaceBid handles POST /auctions/:id/bids
func (h *Handler) PlaceBid(c *gin.Context) {
	auctionID, ok := pathID(c)
	if !ok {
		return
	}
	var req PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request payload: "+err.Error())
		return
	}
	userID := *callerID(c)

	placement, err := h.engine.PlaceBid(c.Request.Context(), auctionID, userID, req.Amount)
	if err != nil {
		writeError(c, "PlaceBid", err)
		return
	}

	c.JSON(http.StatusCreated, PlaceBidResponse{
		Accepted:     true,
		TimeExtended: placement.TimeExtended,
		NewEndsAt:    placement.NewEndsAt,
		EndsAt:       placement.EndsAt,
		OutbidUserID: placement.OutbidUserID,
	})
}

// CloseAuction handles POST /auctions/:id/close
func (h *Handler) CloseAuction(c *gin.Context) {
	auctionID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.engine.CloseAuction(c.Request.Context(), auctionID)
	if err != nil {
		writeError(c, "CloseAuction", err)
		return
	}

	log.WithFields(log.Fields{
		"auctionID": auctionID,
		"closedBy":  *callerID(c),
		"status":    result.Status,
	}).Info("Auction closed manually")

	c.JSON(http.StatusOK, toSettlementResponse(result))
}

// CreateAccount handles POST /accounts
func (h *Handler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request payload: "+err.Error())
		return
	}

	account, err := h.engine.EnsureAccount(c.Request.Context(), req.UserID, req.Username)
	if err != nil {
		writeError(c, "CreateAccount", err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(account))
}

// GetAccount handles GET /accounts/:id
func (h *Handler) GetAccount(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	account, err := h.engine.GetAccount(ctx, userID)
	if err != nil {
		writeError(c, "GetAccount", err)
		return
	}
	available, err := h.engine.Available(ctx, userID)
	if err != nil {
		writeError(c, "GetAccount", err)
		return
	}

	resp := toAccountResponse(account)
	resp.Available = &available
	c.JSON(http.StatusOK, resp)
}

// GetTransactions handles GET /accounts/:id/transactions
func (h *Handler) GetTransactions(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := h.engine.History(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, "GetTransactions", err)
		return
	}

	out := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLedgerEntryResponse(e))
	}
	c.JSON(http.StatusOK, out)
}

// AdjustBalance handles POST /accounts/:id/adjustments
func (h *Handler) AdjustBalance(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}
	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "invalid request payload: "+err.Error())
		return
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["adjusted_by"] = *callerID(c)

	entry, err := h.engine.AdjustBalance(c.Request.Context(), userID, req.Delta, entities.TransactionReason(req.Reason), metadata)
	if err != nil {
		writeError(c, "AdjustBalance", err)
		return
	}
	c.JSON(http.StatusCreated, toLedgerEntryResponse(entry))
}

// Health handles GET /healthz
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			log.WithError(err).Warn("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(c, "invalid id "+strconv.Quote(c.Param("id")))
		return 0, false
	}
	return id, true
}
