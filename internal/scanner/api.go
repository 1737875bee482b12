package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"albion-market-go/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultTradeLimit = 50

// APIServer exposes the live board, the scanner status and metrics over HTTP.
type APIServer struct {
	server  *http.Server
	board   *Board
	monitor *Monitor
	logger  *zap.Logger
}

// NewAPIServer creates a new APIServer listening on port.
func NewAPIServer(port int, board *Board, monitor *Monitor, logger *zap.Logger) *APIServer {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &APIServer{
		server:  &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: engine},
		board:   board,
		monitor: monitor,
		logger:  logger.Named("api-server"),
	}
	s.Register(engine)
	return s
}

// Register mounts the routes on r.
func (s *APIServer) Register(r *gin.Engine) {
	r.GET("/healthz", s.health)
	r.GET("/status", s.status)
	r.GET("/api/trades", s.trades)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// Handler returns the HTTP handler of the server.
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *APIServer) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.Status())
}

func (s *APIServer) trades(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultTradeLimit)))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}
	c.JSON(http.StatusOK, s.board.Snapshot(limit))
}
