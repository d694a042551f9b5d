// Package p2pserver is the agent's inbound HTTP listener: CORS, per-IP
// rate limiting, route dispatch, request validation, and a signature
// verification gate, handing decoded requests off to a Handlers callback
// set (spec.md §4.7). The server carries no policy of its own.
package p2pserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/hyperlicked/betagent/pkg/cryptoutil"
	"github.com/hyperlicked/betagent/pkg/wire"
)

// DefaultRateLimitPerSecond is the default per-IP request budget.
const DefaultRateLimitPerSecond = 10

// HeaderFreshnessWindow bounds how old an X-Timestamp header on an
// authenticated pull request may be.
const HeaderFreshnessWindow = 5 * time.Minute

// Identity is this agent's self-reported info for GET /p2p/info.
type Identity struct {
	Address    string
	Endpoint   string
	PubkeyHash string
	Version    string
}

// Server is the P2P HTTP listener.
type Server struct {
	identity Identity
	domain   cryptoutil.Domain
	handlers Handlers
	logger   *zap.Logger
	limiter  *RateLimiter
	router   *mux.Router
	httpSrv  *http.Server
	startedAt time.Time
}

// New builds a Server bound to identity, verifying EIP-712 signatures under
// domain and dispatching decoded requests to handlers.
// rateLimitPerSecond <= 0 uses DefaultRateLimitPerSecond.
func New(identity Identity, domain cryptoutil.Domain, handlers Handlers, rateLimitPerSecond int, logger *zap.Logger) *Server {
	if rateLimitPerSecond <= 0 {
		rateLimitPerSecond = DefaultRateLimitPerSecond
	}
	s := &Server{
		identity:  identity,
		domain:    domain,
		handlers:  handlers,
		logger:    logger,
		limiter:   NewRateLimiter(rateLimitPerSecond, time.Second),
		router:    mux.NewRouter(),
		startedAt: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/p2p/info", s.handleInfo).Methods("GET")
	s.router.HandleFunc("/p2p/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/p2p/metrics", s.handleMetrics).Methods("GET")
	s.router.HandleFunc("/p2p/proposal", s.handleProposal).Methods("POST")
	s.router.HandleFunc("/p2p/bet-committed", s.handleBetCommitted).Methods("POST")
	s.router.HandleFunc("/p2p/trades", s.handleTradesPush).Methods("POST")
	s.router.HandleFunc("/p2p/trades/{betId}", s.handleTradesPull).Methods("GET")
	s.router.HandleFunc("/p2p/propose-settlement", s.handleProposeSettlement).Methods("POST")
	s.router.HandleFunc("/p2p/settlement/{betId}", s.handleSettlementStatus).Methods("GET")
	s.router.HandleFunc("/p2p/commitment/sign", s.handleCommitmentSign).Methods("POST")
}

// Handler returns the fully-wrapped handler (rate limit + CORS) for use
// with http.Server or httptest.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Signature", "X-Requestor", "X-Timestamp"},
	})
	return c.Handler(s.rateLimited(s.router))
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.Allow(ip) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Start runs the listener on addr; it blocks until Stop is called or the
// listener fails. Intended to be run in its own goroutine by the
// orchestrator.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Handler()}
	if s.logger != nil {
		s.logger.Info("p2p server starting", zap.String("addr", addr))
	}
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// CompactRateLimiter drops stale per-IP rate-limit entries; intended to
// run on a 10s ticker per spec.md §5.
func (s *Server) CompactRateLimiter() {
	s.limiter.Compact()
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		Address:    s.identity.Address,
		Endpoint:   s.identity.Endpoint,
		PubkeyHash: s.identity.PubkeyHash,
		Version:    s.identity.Version,
		UptimeSecs: int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().Unix(),
		UptimeSecs: int64(time.Since(s.startedAt).Seconds()),
	})
}

// MetricsResponse answers GET /p2p/metrics: a plain JSON snapshot, not a
// Prometheus exposition — no metrics library appears anywhere in the
// dependency pack this agent was grounded on.
type MetricsResponse struct {
	UptimeSecs      int64 `json:"uptime"`
	RateLimitedIPs  int   `json:"rateLimitedIps"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MetricsResponse{
		UptimeSecs:     int64(time.Since(s.startedAt).Seconds()),
		RateLimitedIPs: s.limiter.TrackedIPs(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{Error: true, Message: message, Code: code})
}

func expiryInFuture(expiry *wire.BigInt) bool {
	if expiry == nil {
		return false
	}
	return expiry.Int.Int64() > time.Now().Unix()
}
