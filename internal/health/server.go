package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"sync"
	"time"

	logx "farewatch/pkg/logx"
)

// Server manages the optional /healthz listener.
type Server struct {
	mu    sync.Mutex
	log   logx.Logger
	state *State
	srv   *http.Server
	ln    net.Listener
	addr  string
	pprof bool
}

func NewServer(state *State, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{state: state, log: log.With(logx.String("comp", "health"))}
}

// Handler serves GET /healthz, plus /debug/pprof/ when profiling is on.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	pprof := s.pprof
	s.mu.Unlock()
	return s.mux(pprof)
}

func (s *Server) mux(pprof bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(s.state.Snapshot())
	})
	if pprof {
		mux.HandleFunc("/debug/pprof/", hpprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", hpprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", hpprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", hpprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", hpprof.Trace)
	}
	return mux
}

// Apply starts, moves or stops the listener so it matches addr and pprof.
// An empty addr disables it.
func (s *Server) Apply(ctx context.Context, addr string, pprof bool) error {
	addr = strings.TrimSpace(addr)
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr == "" {
		s.stopLocked(ctx)
		return nil
	}
	if s.srv != nil && s.addr == addr && s.pprof == pprof {
		return nil
	}
	s.stopLocked(ctx)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.mux(pprof), ReadHeaderTimeout: 5 * time.Second}
	s.srv, s.ln, s.addr, s.pprof = srv, ln, addr, pprof
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("health server error", logx.String("addr", ln.Addr().String()), logx.Err(err))
		}
	}()
	s.log.Info("health endpoint enabled", logx.String("addr", ln.Addr().String()), logx.Bool("pprof", pprof))
	return nil
}

// Addr reports the bound listen address, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(ctx)
}

func (s *Server) stopLocked(ctx context.Context) {
	if s.srv == nil {
		return
	}
	srv, addr := s.srv, s.addr
	s.srv, s.ln, s.addr, s.pprof = nil, nil, "", false

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("health shutdown error", logx.String("addr", addr), logx.Err(err))
	}
	s.log.Info("health endpoint disabled", logx.String("addr", addr))
}
