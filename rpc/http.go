package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/netutil"

	"farmledger/core"
	"farmledger/indexer"
	"farmledger/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	shutdownTimeout = 10 * time.Second
)

// EventSource serves historical ledger events.
type EventSource interface {
	Query(ctx context.Context, f indexer.Filter) ([]indexer.EventRecord, error)
}

type handlerFunc func(ctx context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error)

type method struct {
	// auth marks methods that act on behalf of the bearer token subject.
	auth bool
	fn   handlerFunc
}

// Options tune the server's optional collaborators.
type Options struct {
	Auth    *Authenticator
	Limiter *RateLimiter
	Events  EventSource
	Hub     *Hub
	Logger  *slog.Logger
	// MaxConns caps simultaneously open client connections; zero disables the cap.
	MaxConns int
}

// Server exposes the node over JSON-RPC 2.0.
type Server struct {
	node     *core.Node
	auth     *Authenticator
	limiter  *RateLimiter
	events   EventSource
	hub      *Hub
	logger   *slog.Logger
	maxConns int
	methods  map[string]method
}

func NewServer(node *core.Node, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		node:     node,
		auth:     opts.Auth,
		limiter:  opts.Limiter,
		events:   opts.Events,
		hub:      opts.Hub,
		logger:   logger.With("component", "rpc"),
		maxConns: opts.MaxConns,
	}
	s.methods = make(map[string]method)
	s.registerFarm()
	s.registerToken()
	s.methods["chain_height"] = method{fn: s.chainHeight}
	return s
}

// Handler returns the HTTP routes served by the node.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())
	if s.hub != nil {
		r.Get("/ws", s.hub.ServeHTTP)
	}
	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		if s.auth != nil {
			r.Use(s.auth.Middleware)
		}
		r.Post("/", s.handle)
	})
	return otelhttp.NewHandler(r, "farm.rpc")
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := s.listen(addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("json-rpc listening", "addr", ln.Addr().String(), "max_conns", s.maxConns)
		errCh <- srv.Serve(ln)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if s.hub != nil {
			s.hub.Close()
		}
		return srv.Shutdown(shutdownCtx)
	}
}

// listen opens the TCP listener, bounded to maxConns accepted connections
// when a cap is configured.
func (s *Server) listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc: listen %s: %w", addr, err)
	}
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}
	return ln, nil
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := http.StatusOK
	body := map[string]interface{}{"status": "ok", "height": s.node.Height()}
	if !s.node.Bootstrapped() {
		status = http.StatusServiceUnavailable
		body["status"] = "awaiting genesis"
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

// handle decodes one JSON-RPC request and dispatches it.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()
	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}
	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	start := time.Now()
	result, rpcErr := s.dispatch(r.Context(), req)
	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
	}
	observability.RPC().Observe(req.Method, code, time.Since(start))
	if rpcErr != nil {
		writeError(w, statusFor(rpcErr.Code), req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) dispatch(ctx context.Context, req *RPCRequest) (interface{}, *RPCError) {
	m, ok := s.methods[req.Method]
	if !ok {
		return nil, &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method %s", req.Method)}
	}
	var caller [20]byte
	if m.auth {
		if !s.auth.Enabled() {
			return nil, &RPCError{Code: codeUnauthorized, Message: errAuthDisabled.Error()}
		}
		addr, err := callerFrom(ctx)
		if err != nil {
			return nil, &RPCError{Code: codeUnauthorized, Message: err.Error()}
		}
		caller = addr
	}
	result, err := m.fn(ctx, caller, req.Params)
	if err != nil {
		rpcErr := toRPCError(err)
		if rpcErr.Code == codeServerError {
			s.logger.Error("rpc method failed", "method", req.Method, "error", err)
		}
		return nil, rpcErr
	}
	return result, nil
}

func statusFor(code int) int {
	switch code {
	case codeUnauthorized:
		return http.StatusUnauthorized
	case codeMethodNotFound:
		return http.StatusNotFound
	case codeRateLimited:
		return http.StatusTooManyRequests
	case codeNotBootstrapped:
		return http.StatusServiceUnavailable
	case codeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func (s *Server) chainHeight(context.Context, [20]byte, []json.RawMessage) (interface{}, error) {
	return s.node.Height(), nil
}
