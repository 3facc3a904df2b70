// Package api exposes a small read-only REST surface over the latest
// fusion state, in the gin-engine-in-a-struct shape used by
// jndunlap-gohypo's ui.Server. Nothing here can mutate FSM state: every
// route only reads the most recent fusion.Tick recorded via Update.
package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sentinellabs/sentinelfsm/fusion"
)

// Server wraps a gin.Engine and the latest fusion snapshot it serves.
type Server struct {
	router *gin.Engine
	log    zerolog.Logger
	voter  *fusion.Voter

	mu       sync.RWMutex
	lastTick fusion.Tick
	hasTick  bool
}

// NewServer constructs a Server bound to a single fusion.Voter. Call
// Update after each Tick to keep the served snapshot current.
func NewServer(voter *fusion.Voter, log zerolog.Logger) *Server {
	s := &Server{
		router: gin.New(),
		log:    log.With().Str("component", "api").Logger(),
		voter:  voter,
	}
	s.router.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/consensus", s.handleConsensus)
	s.router.GET("/channels/:name", s.handleChannel)
}

// Update records the latest tick for the REST surface to serve. Call this
// once per fusion cycle, after Voter.Tick returns.
func (s *Server) Update(tick fusion.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTick = tick
	s.hasTick = true
}

// Handler returns the underlying http.Handler for use with an http.Server
// or httptest.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConsensus(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasTick {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no tick recorded yet"})
		return
	}
	c.JSON(http.StatusOK, s.lastTick)
}

func (s *Server) handleChannel(c *gin.Context) {
	name := c.Param("name")

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasTick {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no tick recorded yet"})
		return
	}
	for _, ch := range s.lastTick.Channels {
		if ch.Name == name {
			c.JSON(http.StatusOK, ch)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
}
