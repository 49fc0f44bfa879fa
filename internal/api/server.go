// Package api is the local HTTP surface the presentation layer renders from:
// order views, tab counts, connection state, the current toast, and the
// operator actions that feed back into the engine.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gocha/internal/engine"
	"gocha/internal/models"
	"gocha/internal/orders"
)

// Server wraps the gin router around one engine.
type Server struct {
	router *gin.Engine
	engine *engine.Engine
	log    *zap.Logger
}

// NewServer creates the console API for eng.
func NewServer(eng *engine.Engine, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		router: gin.New(),
		engine: eng,
		log:    log.With(zap.String("component", "api")),
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// setupRoutes configures all console endpoints.
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "venue": s.engine.VenueID()})
	})

	v1 := s.router.Group("/api")
	{
		v1.GET("/orders", s.GetOrders)
		v1.GET("/orders/counts", s.GetCounts)
		v1.POST("/orders/:id/status", s.RequestTransition)

		v1.GET("/connection", s.GetConnection)
		v1.GET("/notifications/current", s.GetCurrentToast)
		v1.POST("/interaction", s.MarkInteraction)
		v1.POST("/refresh", s.Refresh)
	}
}

// Router returns the gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// GetOrders returns the current order set, optionally filtered to one status
// bucket, in presentation order.
func (s *Server) GetOrders(c *gin.Context) {
	status := models.Status(c.Query("status"))
	if status != "" && !models.Valid(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + string(status)})
		return
	}

	var recs []*models.OrderRecord
	if status == "" {
		recs = s.engine.Orders().All()
	} else {
		recs = s.engine.Orders().ByStatus(status)
	}
	if recs == nil {
		recs = []*models.OrderRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": recs})
}

// GetCounts returns the per-status tab counts.
func (s *Server) GetCounts(c *gin.Context) {
	counts := s.engine.Orders().Counts()
	c.JSON(http.StatusOK, gin.H{
		"pending":   counts[models.StatusPending],
		"ready":     counts[models.StatusReady],
		"delivered": counts[models.StatusDelivered],
	})
}

// RequestTransition advances an order on the operator's behalf. Pressing the
// button is a user interaction, so it also arms audible cues.
func (s *Server) RequestTransition(c *gin.Context) {
	var req struct {
		Status models.Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if sched := s.engine.Scheduler(); sched != nil {
		sched.MarkInteracted()
	}

	err := s.engine.RequestTransition(c.Param("id"), req.Status)
	if err != nil {
		s.log.Warn("transition rejected",
			zap.String("order_id", c.Param("id")),
			zap.String("target", string(req.Status)),
			zap.Error(err))
		c.JSON(transitionStatusCode(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}

// transitionStatusCode maps engine errors onto HTTP codes.
func transitionStatusCode(err error) int {
	switch {
	case errors.Is(err, orders.ErrUnknownOrder):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrConflictingUpdate):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNotRunning):
		return http.StatusServiceUnavailable
	default:
		// Remote command failures are transient; the engine has already
		// kicked off reconciliation.
		return http.StatusBadGateway
	}
}

// GetConnection reports the push channel state.
func (s *Server) GetConnection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": s.engine.ConnectionState().String()})
}

// GetCurrentToast returns the visible toast, or null once it expired.
func (s *Server) GetCurrentToast(c *gin.Context) {
	if sched := s.engine.Scheduler(); sched != nil {
		if toast := sched.Current(); toast != nil {
			c.JSON(http.StatusOK, gin.H{"toast": toast})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"toast": nil})
}

// MarkInteraction records a user-originated input event, permanently arming
// audible cues for the session.
func (s *Server) MarkInteraction(c *gin.Context) {
	if sched := s.engine.Scheduler(); sched != nil {
		sched.MarkInteracted()
	}
	c.JSON(http.StatusOK, gin.H{"message": "interaction recorded"})
}

// Refresh triggers an on-demand snapshot re-fetch.
func (s *Server) Refresh(c *gin.Context) {
	if err := s.engine.Refresh(); err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, engine.ErrNotRunning) {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "snapshot refreshed"})
}
