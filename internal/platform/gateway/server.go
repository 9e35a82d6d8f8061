// Package gateway exposes conversation controllers over WebSocket. Each
// connection authenticates with a shared token, then exchanges JSON
// frames: inbound user messages, outbound controller events.
package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/beacon/internal/config"
	"github.com/soyeahso/beacon/internal/domain"
	"github.com/soyeahso/beacon/internal/logging"
	"github.com/soyeahso/beacon/internal/platform"
)

const (
	platformID       = "gateway"
	handshakeTimeout = 10 * time.Second
	maxFrameBytes    = 1 << 20 // 1MB
)

// Server is the Beacon WebSocket gateway.
type Server struct {
	cfg      config.GatewayConfig
	hub      *platform.Hub
	log      *logging.Logger
	clients  *ClientRegistry
	eventSeq atomic.Int64
	limiter  *authRateLimiter

	mu         sync.Mutex
	httpServer *http.Server
	addr       string

	upgrader websocket.Upgrader
}

func New(cfg config.GatewayConfig, hub *platform.Hub, log *logging.Logger) *Server {
	return &Server{
		cfg:     cfg,
		hub:     hub,
		log:     log.Sub("gateway"),
		clients: NewClientRegistry(log.Sub("gateway.clients")),
		limiter: newAuthRateLimiter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return r.Header.Get("Origin") == "" },
		},
	}
}

func (s *Server) Name() string { return platformID }

// Addr returns the bound listen address once Run has started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ClientCount reports the number of live connections.
func (s *Server) ClientCount() int { return s.clients.Count() }

func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Run listens until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	bind := resolveBindAddr(s.cfg)
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", bind, err)
	}

	srv := &http.Server{
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Bool("auth", s.cfg.Token != "").
		Msg("gateway listening")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.CloseAll()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(r.RemoteAddr) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("rate limited, too many failed auth attempts")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	client, err := s.handshake(conn)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("handshake failed")
		s.limiter.recordFailure(r.RemoteAddr)
		conn.WriteJSON(Frame{Type: FrameTypeError, Error: &ErrorShape{Code: "auth", Message: err.Error()}})
		conn.Close()
		return
	}

	s.clients.Add(client)
	defer func() {
		s.clients.Remove(client.ConnID)
		client.Close()
	}()
	s.serve(r.Context(), client)
}

// handshake reads the connect frame and verifies the token.
func (s *Server) handshake(conn *websocket.Conn) (*Client, error) {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		return nil, fmt.Errorf("reading connect frame: %w", err)
	}
	if f.Type != FrameTypeConnect {
		return nil, fmt.Errorf("expected %s frame, got %q", FrameTypeConnect, f.Type)
	}
	if s.cfg.Token != "" {
		if subtle.ConstantTimeCompare([]byte(f.Token), []byte(s.cfg.Token)) != 1 {
			return nil, errors.New("invalid token")
		}
	}

	client := NewClient(conn, f.Client)
	if client.Info.ID == "" {
		client.Info.ID = client.ConnID
	}
	if err := client.Send(Frame{Type: FrameTypeHello, ConnID: client.ConnID}); err != nil {
		return nil, err
	}
	return client, nil
}

// serve processes message frames until the connection drops.
func (s *Server) serve(ctx context.Context, client *Client) {
	for {
		f, err := client.ReadFrame()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Str("connId", client.ConnID).Msg("read failed")
			}
			return
		}
		switch f.Type {
		case FrameTypeMessage:
			if err := s.handleMessage(ctx, client, f); err != nil {
				client.Send(Frame{Type: FrameTypeError, Error: &ErrorShape{Code: "message", Message: err.Error()}})
			}
		default:
			client.Send(Frame{Type: FrameTypeError, Error: &ErrorShape{
				Code:    "bad-frame",
				Message: fmt.Sprintf("unsupported frame type %q", f.Type),
			}})
		}
	}
}

// handleMessage runs one controller cycle and streams its events back.
func (s *Server) handleMessage(ctx context.Context, client *Client, f Frame) error {
	if f.Message == "" {
		return errors.New("empty message")
	}
	chatID := f.ChatID
	if chatID == "" {
		chatID = client.Info.ID
	}
	senderID := platformID + ":" + client.Info.ID

	ctrl, err := s.hub.Controller(ctx, domain.SessionKey{
		PlatformID: platformID,
		ChatID:     chatID,
		SenderID:   senderID,
	})
	if err != nil {
		return err
	}

	for ev := range ctrl.Submit(ctx, &domain.Input{SenderID: senderID, Message: f.Message}) {
		ev := ev
		frame := Frame{Type: FrameTypeEvent, Seq: s.eventSeq.Add(1), Event: &ev}
		if err := client.Send(frame); err != nil {
			return err
		}
	}
	return nil
}

// authRateLimiter tracks failed handshakes per IP.
type authRateLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
}

const (
	authRateWindow   = 5 * time.Minute
	authRateMaxFails = 10
)

func newAuthRateLimiter() *authRateLimiter {
	return &authRateLimiter{failures: make(map[string][]time.Time)}
}

func (l *authRateLimiter) allow(remoteAddr string) bool {
	host := hostOf(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-authRateWindow)
	recent := l.failures[host][:0]
	for _, t := range l.failures[host] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) == 0 {
		delete(l.failures, host)
		return true
	}
	l.failures[host] = recent
	return len(recent) < authRateMaxFails
}

func (l *authRateLimiter) recordFailure(remoteAddr string) {
	host := hostOf(remoteAddr)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[host] = append(l.failures[host], time.Now())
}

func hostOf(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}
