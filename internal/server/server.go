package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kspeckhals01/browser-tab-manager/internal/auth"
	"github.com/kspeckhals01/browser-tab-manager/internal/entitlement"
	"github.com/kspeckhals01/browser-tab-manager/internal/logging"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// channelBufferSize is the buffer size for per-client send channels.
const channelBufferSize = 64

// Per-client request rate defaults.
const (
	DefaultRateLimit = 50
	DefaultRateBurst = 20
)

// Storage is the set of adapter operations the bridge exposes.
// Implemented by *adapter.Adapter.
type Storage interface {
	Tier() model.Tier
	State() entitlement.State
	UserProfile(ctx context.Context) (*model.UserProfile, error)

	Sessions(ctx context.Context) ([]model.SavedSession, error)
	SessionCount(ctx context.Context) (int, error)
	SaveSession(ctx context.Context, name string, tabs []model.Tab) (model.Result, error)
	DeleteSession(ctx context.Context, name string) (model.Result, error)

	Groups(ctx context.Context) ([]model.TabGroup, error)
	GroupCount(ctx context.Context) (int, error)
	GroupQuotaReached(ctx context.Context) (bool, error)
	SaveGroup(ctx context.Context, name string, tabs []model.Tab) (model.Result, error)
	DeleteGroup(ctx context.Context, name string) (model.Result, error)
	RenameGroup(ctx context.Context, oldName, newName string) (model.Result, error)
	RemoveTabFromGroup(ctx context.Context, group string, tabID int) ([]model.Tab, model.Result, error)
}

// StorageFactory returns a Storage bound to the current tier. The server
// calls it once per request so a tier change is picked up immediately.
type StorageFactory func(ctx context.Context) (Storage, error)

// Server manages WebSocket connections from the popup and answers each
// request with one adapter call.
type Server struct {
	// addr is the address to listen on (e.g., "127.0.0.1:7171")
	addr string

	upgrader websocket.Upgrader

	// clients tracks all connected WebSocket clients.
	clients map[*Client]bool

	// mu protects clients, stopped and httpServer.
	mu sync.RWMutex

	stopped    bool
	httpServer *http.Server
	listenAddr string

	storage StorageFactory
	tokens  *auth.TokenValidator

	rateLimit rate.Limit
	rateBurst int

	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithTokenValidator requires connections to present a valid bearer token.
func WithTokenValidator(tv *auth.TokenValidator) Option {
	return func(s *Server) { s.tokens = tv }
}

// WithRateLimit sets the per-client request rate.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond > 0 {
			s.rateLimit = rate.Limit(perSecond)
		}
		if burst > 0 {
			s.rateBurst = burst
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock overrides the time source used for days-remaining replies.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates a bridge listening on addr.
func NewServer(addr string, storage StorageFactory, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		clients: make(map[*Client]bool),
		storage: storage,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		rateLimit: DefaultRateLimit,
		rateBurst: DefaultRateBurst,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger).Named("server")
	s.upgrader.CheckOrigin = s.checkOrigin
	return s
}

// extensionOrigins are the origin schemes browser extensions connect from.
var extensionOrigins = []string{
	"chrome-extension://",
	"moz-extension://",
	"safari-web-extension://",
}

// checkOrigin decides which browser origins may open a connection. With a
// token configured any origin may try, since the token was already checked.
// Without one only extension pages and clients sending no Origin header are
// accepted.
func (s *Server) checkOrigin(r *http.Request) bool {
	if s.tokens != nil && s.tokens.Enabled() {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, prefix := range extensionOrigins {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	s.logger.Warn("rejected connection from foreign origin", zap.String("origin", origin))
	return false
}

// ClientCount returns the number of connected clients. Thread-safe.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Addr returns the address the server is listening on. After StartAsync
// with a ":0" port this is the port the kernel picked.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listenAddr != "" {
		return s.listenAddr
	}
	return s.addr
}
