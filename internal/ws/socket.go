package ws

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/perceptra/braingym/internal/game"
)

type ConnCtx struct {
	UserID string
}

// Server pushes round notifications (ticks, zone changes, phase changes,
// reveals) to each player's connections. A connection authenticates once
// with its API token and joins a per-user room; every event for that user's
// session fans out to all of their connections.
type Server struct {
	secret []byte

	mu    sync.Mutex
	conns map[string]map[string]socketio.Conn // userID -> socketID -> conn
}

func New(jwtSecret string) *Server {
	return &Server{secret: []byte(jwtSecret), conns: make(map[string]map[string]socketio.Conn)}
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// auth binds this connection to the token's user
	io.OnEvent("/", "auth", func(s socketio.Conn, payload struct {
		Token string `json:"token"`
	}) map[string]any {
		userID, err := srv.userID(payload.Token)
		if err != nil {
			log.Warn().Err(err).Str("sid", s.ID()).Msg("socket auth failed")
			return map[string]any{"error": "unauthorized"}
		}
		s.SetContext(&ConnCtx{UserID: userID})
		srv.addConn(userID, s)
		log.Info().Str("sid", s.ID()).Str("user", userID).Msg("socket authenticated")
		return map[string]any{"ok": true}
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.UserID != "" {
			srv.removeConn(ctx.UserID, s)
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	io.OnError("/", func(s socketio.Conn, err error) {
		log.Warn().Err(err).Msg("socket error")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	return io
}

func (srv *Server) userID(token string) (string, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return srv.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !t.Valid {
		return "", errors.New("invalid token")
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return "", errors.New("token missing user id")
	}
	return id, nil
}

func (srv *Server) addConn(userID string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.conns[userID] == nil {
		srv.conns[userID] = make(map[string]socketio.Conn)
	}
	srv.conns[userID][c.ID()] = c
}

func (srv *Server) removeConn(userID string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	delete(srv.conns[userID], c.ID())
	if len(srv.conns[userID]) == 0 {
		delete(srv.conns, userID)
	}
}

func (srv *Server) emit(userID, event string, payload any) {
	srv.mu.Lock()
	conns := make([]socketio.Conn, 0, len(srv.conns[userID]))
	for _, c := range srv.conns[userID] {
		conns = append(conns, c)
	}
	srv.mu.Unlock()
	for _, c := range conns {
		c.Emit(event, payload)
	}
}

// Events returns the game event sink for one user. Safe to hand to a
// session before any connection exists; events to an empty room are dropped.
func (srv *Server) Events(userID string) game.Events {
	return &userEvents{srv: srv, userID: userID}
}

type userEvents struct {
	srv    *Server
	userID string
}

func (e *userEvents) Tick(remaining int, zone game.Zone) {
	e.srv.emit(e.userID, "round:tick", map[string]any{"remaining": remaining, "zone": zone})
}

func (e *userEvents) PhaseChanged(phase game.Phase) {
	e.srv.emit(e.userID, "round:phase", map[string]any{"phase": phase})
}

func (e *userEvents) Revealed(items []game.RevealedItem) {
	e.srv.emit(e.userID, "round:reveal", map[string]any{"items": items})
}
