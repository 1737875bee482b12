package main

import (
	"net/http"
	"strconv"
	"time"

	"albion-market-go/internal/database"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ItemResolver maps item names to catalog ids.
type ItemResolver interface {
	Resolve(query string) (string, bool)
}

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log    *zap.Logger
	db     *gorm.DB
	trades *database.TradeStore
	quotes *database.QuoteStore
	routes *database.RouteStore
	items  ItemResolver
	now    func() time.Time
}

// NewAPIHandler creates a new APIHandler. items may be nil, in which case
// prices are looked up by exact item id only.
func NewAPIHandler(log *zap.Logger, db *gorm.DB, items ItemResolver) *APIHandler {
	return &APIHandler{
		log:    log,
		db:     db,
		trades: database.NewTradeStore(db),
		quotes: database.NewQuoteStore(db),
		routes: database.NewRouteStore(db),
		items:  items,
		now:    time.Now,
	}
}

// Register mounts the routes on r.
func (h *APIHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.HealthHandler)
	r.GET("/api/trades", h.TradesHandler)
	r.GET("/api/statistics", h.StatisticsHandler)
	r.GET("/api/prices/:item", h.PricesHandler)
	r.GET("/api/routes", h.RoutesHandler)
}

// HealthHandler reports whether the database is reachable.
func (h *APIHandler) HealthHandler(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// TradesHandler returns the most recent stored snapshot.
func (h *APIHandler) TradesHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}

	records, err := h.trades.Latest(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get trades"})
		return
	}
	c.JSON(http.StatusOK, records)
}

// StatisticsHandler returns aggregated trade statistics.
func (h *APIHandler) StatisticsHandler(c *gin.Context) {
	stats, err := h.trades.Statistics(c.Request.Context(), h.now())
	if err != nil {
		h.log.Error("Failed to calculate statistics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to calculate statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// PricesHandler returns the stored quotes of one item, given by id or name.
func (h *APIHandler) PricesHandler(c *gin.Context) {
	itemID := c.Param("item")
	if h.items != nil {
		if id, ok := h.items.Resolve(itemID); ok {
			itemID = id
		}
	}

	records, err := h.quotes.ListItem(c.Request.Context(), itemID)
	if err != nil {
		h.log.Error("Failed to get prices from database", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get prices"})
		return
	}
	c.JSON(http.StatusOK, records)
}

// RoutesHandler returns the enabled routes.
func (h *APIHandler) RoutesHandler(c *gin.Context) {
	routes, err := h.routes.List(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to get routes from database", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get routes"})
		return
	}
	c.JSON(http.StatusOK, routes)
}
