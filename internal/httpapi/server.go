// Package httpapi exposes the round lifecycle and history over REST. All
// routes are per-user: the session is looked up by the authenticated user id.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/perceptra/braingym/internal/game"
	"github.com/perceptra/braingym/internal/history"
	"github.com/perceptra/braingym/internal/metrics"
)

type Server struct {
	manager *game.Manager
	store   history.Store
	secret  string
}

func New(manager *game.Manager, store history.Store, jwtSecret string) *Server {
	return &Server{manager: manager, store: store, secret: jwtSecret}
}

func (s *Server) Register(r *gin.Engine) {
	api := r.Group("/api", RequireAuth(s.secret))
	api.POST("/rounds", s.startRound)
	api.GET("/rounds/current", s.currentRound)
	api.POST("/rounds/current/guess", s.submitGuess)
	api.POST("/rounds/current/click", s.click)
	api.POST("/rounds/current/giveup", s.giveUp)
	api.POST("/rounds/current/again", s.playAgain)
	api.GET("/history", s.listHistory)
}

func (s *Server) session(c *gin.Context) *game.Session {
	return s.manager.Session(userID(c))
}

func (s *Server) startRound(c *gin.Context) {
	var req struct {
		Mode    game.Mode `json:"mode"`
		Subject string    `json:"subject"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	view, err := s.session(c).Start(c.Request.Context(), req.Mode, req.Subject)
	switch {
	case errors.Is(err, game.ErrUnknownMode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown game mode"})
		return
	case errors.Is(err, game.ErrRoundInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "a round is already in progress"})
		return
	case errors.Is(err, game.ErrRoundSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": "a newer round replaced this one"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate puzzle"})
		return
	}
	metrics.RoundsStarted.WithLabelValues(string(req.Mode)).Inc()
	c.JSON(http.StatusCreated, view)
}

func (s *Server) currentRound(c *gin.Context) {
	c.JSON(http.StatusOK, s.session(c).View())
}

func (s *Server) submitGuess(c *gin.Context) {
	var req struct {
		Guess string `json:"guess"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess := s.session(c)
	mode := sess.View().Mode
	ev, err := sess.SubmitGuess(c.Request.Context(), req.Guess)
	switch {
	case errors.Is(err, game.ErrEmptyGuess):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty guess"})
		return
	case errors.Is(err, game.ErrNoActiveRound), errors.Is(err, game.ErrRoundSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": "no active round"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to evaluate guess"})
		return
	}
	metrics.GuessesVerified.WithLabelValues(string(mode)).Add(float64(len(ev.Results)))
	c.JSON(http.StatusOK, ev)
}

func (s *Server) click(c *gin.Context) {
	var req struct {
		Press   game.Point `json:"press"`
		Release game.Point `json:"release"`
		Frame   game.Frame `json:"frame"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := s.session(c).Click(req.Press, req.Release, req.Frame)
	if errors.Is(err, game.ErrClickIgnored) {
		c.JSON(http.StatusOK, gin.H{"ignored": true})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process click"})
		return
	}
	metrics.Clicks.WithLabelValues(string(res.Outcome)).Inc()
	c.JSON(http.StatusOK, res)
}

func (s *Server) giveUp(c *gin.Context) {
	sess := s.session(c)
	if err := sess.GiveUp(c.Request.Context()); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no active round"})
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

func (s *Server) playAgain(c *gin.Context) {
	sess := s.session(c)
	if err := sess.PlayAgain(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a round is still in progress"})
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

func (s *Server) listHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.store.ListRounds(c.Request.Context(), userID(c), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch game history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": entries})
}
