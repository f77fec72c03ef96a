package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/fortiblox/X1-Bulldozer/pkg/accounts"
	"github.com/fortiblox/X1-Bulldozer/pkg/blockstore"
	"github.com/fortiblox/X1-Bulldozer/pkg/runtime"
	"github.com/fortiblox/X1-Bulldozer/pkg/svm/programs/bulldozer"
)

// Config holds RPC server configuration.
type Config struct {
	// Addr is the listen address (host:port).
	Addr string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration

	// MaxRequestSize is the maximum allowed request body size in bytes.
	MaxRequestSize int64

	// EnableCORS enables CORS headers for browser access.
	EnableCORS bool

	// AllowedOrigins specifies allowed CORS origins (empty means all).
	AllowedOrigins []string

	// LogRequests enables request logging.
	LogRequests bool

	// SendRate caps sendTransaction and requestAirdrop calls per second.
	// Zero disables the limit.
	SendRate float64

	// SendBurst is the number of writes allowed above SendRate at once.
	SendBurst int

	// MaxAirdropLamports caps a single requestAirdrop.
	MaxAirdropLamports uint64
}

// DefaultConfig returns a default RPC server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:               ":8899",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		MaxRequestSize:     50 * 1024, // 50KB
		EnableCORS:         true,
		SendRate:           100,
		SendBurst:          200,
		MaxAirdropLamports: 1_000_000_000_000, // 1000 SOL
	}
}

// Server is the JSON-RPC 2.0 server.
type Server struct {
	config Config

	// Dependencies
	accountsDB accounts.DB
	journal    blockstore.Store
	executor   *runtime.Executor
	reader     *bulldozer.Reader
	registry   *prometheus.Registry

	limiter  *rate.Limiter
	requests *prometheus.CounterVec
	log      *logrus.Entry

	healthy  bool
	healthMu sync.RWMutex

	// HTTP server
	server *http.Server

	// Method handlers
	handlers map[string]handlerFunc

	// Lifecycle
	mu      sync.RWMutex
	running bool
}

// handlerFunc is a JSON-RPC method handler.
type handlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, *RPCError)

// New creates a new RPC server. The server's own collectors are registered
// with registry, which is also what /metrics exposes.
func New(config Config, accountsDB accounts.DB, journal blockstore.Store, executor *runtime.Executor, registry *prometheus.Registry, log *logrus.Entry) *Server {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	limit := rate.Inf
	if config.SendRate > 0 {
		limit = rate.Limit(config.SendRate)
	}

	s := &Server{
		config:     config,
		accountsDB: accountsDB,
		journal:    journal,
		executor:   executor,
		reader:     bulldozer.NewReader(accountsDB),
		registry:   registry,
		limiter:    rate.NewLimiter(limit, config.SendBurst),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bulldozer",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "JSON-RPC requests by method and result",
			},
			[]string{"method", "result"},
		),
		log:      log.WithField("type", "rpc"),
		healthy:  true,
		handlers: make(map[string]handlerFunc),
	}
	registry.MustRegister(s.requests)

	s.registerHandlers()

	return s
}

// registerHandlers registers all RPC method handlers.
func (s *Server) registerHandlers() {
	// Account methods
	s.handlers["getAccountInfo"] = s.getAccountInfo
	s.handlers["getBalance"] = s.getBalance
	s.handlers["getMultipleAccounts"] = s.getMultipleAccounts
	s.handlers["getProgramAccounts"] = s.getProgramAccounts
	s.handlers["getBulldozerAccounts"] = s.getBulldozerAccounts

	// Transaction methods
	s.handlers["sendTransaction"] = s.sendTransaction
	s.handlers["requestAirdrop"] = s.requestAirdrop
	s.handlers["getTransaction"] = s.getTransaction
	s.handlers["getSignaturesForAddress"] = s.getSignaturesForAddress
	s.handlers["getSignatureStatuses"] = s.getSignatureStatuses

	// Cluster methods
	s.handlers["getSlot"] = s.getSlot
	s.handlers["getBlockHeight"] = s.getSlot
	s.handlers["getHealth"] = s.getHealth
	s.handlers["getVersion"] = s.getVersion
	s.handlers["getFirstAvailableBlock"] = s.getFirstAvailableBlock

	// Info methods
	s.handlers["getLatestBlockhash"] = s.getLatestBlockhash
	s.handlers["isBlockhashValid"] = s.isBlockhashValid
	s.handlers["getMinimumBalanceForRentExemption"] = s.getMinimumBalanceForRentExemption
}

// Handler returns the HTTP handler serving JSON-RPC on / and Prometheus
// metrics on /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", s.handleRPC)
	return s.corsMiddleware(mux)
}

// Start serves until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.log.WithField("addr", s.config.Addr).Info("rpc server starting")

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the RPC server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// SetHealthy sets the server health status.
func (s *Server) SetHealthy(healthy bool) {
	s.healthMu.Lock()
	s.healthy = healthy
	s.healthMu.Unlock()
}

// IsHealthy returns the current health status.
func (s *Server) IsHealthy() bool {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()
	return s.healthy
}

// corsMiddleware adds CORS headers if enabled.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	if !s.config.EnableCORS {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			allowed := len(s.config.AllowedOrigins) == 0
			for _, allowedOrigin := range s.config.AllowedOrigins {
				if allowedOrigin == origin || allowedOrigin == "*" {
					allowed = true
					break
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, solana-client")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleRPC handles incoming JSON-RPC requests.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/json" {
		s.writeJSON(w, Response{JSONRPC: JSONRPCVersion, Error: ErrInvalidRequest})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxRequestSize))
	if err != nil {
		s.writeJSON(w, Response{JSONRPC: JSONRPCVersion, Error: ErrParseError})
		return
	}

	if len(body) > 0 && body[0] == '[' {
		var requests []Request
		if err := json.Unmarshal(body, &requests); err != nil {
			s.writeJSON(w, Response{JSONRPC: JSONRPCVersion, Error: ErrParseError})
			return
		}
		if len(requests) == 0 {
			s.writeJSON(w, Response{JSONRPC: JSONRPCVersion, Error: ErrInvalidRequest})
			return
		}
		responses := make([]Response, len(requests))
		for i, req := range requests {
			responses[i] = s.serve(r.Context(), req)
		}
		s.writeJSON(w, responses)
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeJSON(w, Response{JSONRPC: JSONRPCVersion, Error: ErrParseError})
		return
	}
	s.writeJSON(w, s.serve(r.Context(), req))
}

// serve validates and dispatches one request.
func (s *Server) serve(ctx context.Context, req Request) Response {
	resp := Response{JSONRPC: JSONRPCVersion, ID: req.ID}
	if req.JSONRPC != JSONRPCVersion {
		resp.Error = ErrInvalidRequest
		return resp
	}

	if s.config.LogRequests {
		s.log.WithFields(logrus.Fields{"method": req.Method, "id": req.ID}).Debug("rpc request")
	}

	resp.Result, resp.Error = s.dispatch(ctx, req.Method, req.Params)
	return resp
}

// dispatch routes RPC methods to their handlers. A panicking handler is
// reported as an internal error instead of dropping the connection.
func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (result interface{}, rpcErr *RPCError) {
	handler, ok := s.handlers[method]
	if !ok {
		s.requests.WithLabelValues("unknown", "error").Inc()
		return nil, ErrMethodNotFound
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{"method": method, "panic": r}).Error("rpc handler panicked")
			s.requests.WithLabelValues(method, "error").Inc()
			result, rpcErr = nil, ErrInternalError
		}
	}()

	result, rpcErr = handler(ctx, params)
	if rpcErr != nil {
		s.requests.WithLabelValues(method, "error").Inc()
		return nil, rpcErr
	}
	s.requests.WithLabelValues(method, "ok").Inc()
	return result, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("failed to write rpc response")
	}
}
