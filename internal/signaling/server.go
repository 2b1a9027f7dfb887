package signaling

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/meetly/signal-server/internal/auth"
	"github.com/meetly/signal-server/internal/config"
	"github.com/meetly/signal-server/internal/metrics"
	"github.com/meetly/signal-server/internal/origin"
	"github.com/meetly/signal-server/internal/ratelimit"
	"github.com/meetly/signal-server/internal/registry"
)

// Server is the session router. It authenticates connection attempts, owns
// every live connection, validates inbound events and routes them to the
// registry and delivery primitives.
type Server struct {
	cfg config.Config
	log *slog.Logger

	// verifier is nil when auth_mode=none; every handshake then succeeds with
	// an empty identity.
	verifier auth.Verifier

	rooms   *registry.Registry
	metrics *metrics.Metrics

	mu    sync.RWMutex
	conns map[string]*client
}

func NewServer(cfg config.Config, logger *slog.Logger, verifier auth.Verifier, rooms *registry.Registry, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		cfg:      cfg,
		log:      logger,
		verifier: verifier,
		rooms:    rooms,
		metrics:  m,
		conns:    make(map[string]*client),
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Close tears down every live connection. Used on shutdown.
func (s *Server) Close() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.conns))
	for _, c := range s.conns {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		s.dropClient(c)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := s.authenticate(r)
	if err != nil {
		s.metrics.Inc(metrics.AuthFailure)
		s.log.Warn("connection refused", "remote_addr", r.RemoteAddr, "err", err)
		if auth.IsUnauthorized(err) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		} else {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		id:       uuid.NewString(),
		identity: identity,
		conn:     conn,
		srv:      s,
		limiter: ratelimit.NewTokenBucket(
			ratelimit.RealClock{},
			int64(s.cfg.MaxSignalingMessagesPerSecond),
			int64(s.cfg.MaxSignalingMessagesPerSecond),
		),
		send: make(chan []byte, s.cfg.SendQueueDepth),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()

	s.metrics.Inc(metrics.ConnectionsOpened)
	s.log.Info("connection opened", "conn_id", c.id, "user_id", identity.UserID, "remote_addr", r.RemoteAddr)

	go c.writePump()
	c.readPump()
}

// checkOrigin gates the upgrade on the browser Origin header. Non-browser
// clients, which send no Origin, always pass.
func (s *Server) checkOrigin(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" {
		return true
	}
	normalized, host, ok := origin.NormalizeHeader(header)
	if !ok {
		return false
	}
	if !origin.IsAllowed(normalized, host, r.Host, s.cfg.AllowedOrigins) {
		s.log.Warn("origin rejected", "origin", header, "remote_addr", r.RemoteAddr)
		return false
	}
	return true
}

// authenticate verifies the handshake credential before the upgrade, so a
// rejected attempt never reaches the event loop.
func (s *Server) authenticate(r *http.Request) (auth.Identity, error) {
	if s.cfg.AuthMode == config.AuthModeNone {
		return auth.Identity{}, nil
	}
	cred, err := auth.CredentialFromRequest(r)
	if err != nil {
		return auth.Identity{}, err
	}
	return s.verifier.Verify(cred)
}

// dropClient removes the connection from the router and from every room it
// joined. No departure notification is sent to remaining members.
func (s *Server) dropClient(c *client) {
	c.closeOnce.Do(func() {
		s.mu.Lock()
		delete(s.conns, c.id)
		s.mu.Unlock()

		removed := s.rooms.RemoveConnectionEverywhere(c.id)
		close(c.done)
		_ = c.conn.Close()

		s.metrics.Inc(metrics.ConnectionsClosed)
		s.log.Info("connection closed", "conn_id", c.id, "user_id", c.identity.UserID, "rooms_left", len(removed))
	})
}

func (s *Server) lookupClient(connID string) (*client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[connID]
	return c, ok
}
