package httpjson

import (
    "context"
    "crypto/tls"
    "fmt"
    "log"
    "net"
    "net/http"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/amirimatin/go-nodegeo/pkg/internal/logutil"
    "github.com/amirimatin/go-nodegeo/pkg/observability/tracing"
    "github.com/amirimatin/go-nodegeo/pkg/transport"
)

// Server is a minimal HTTP server exposing the result of a run: the summary
// and the node overlay as JSON, plus /healthz and Prometheus /metrics.
type Server struct {
    mu     sync.Mutex
    bind   string
    addr   string
    srv    *http.Server
    logger *log.Logger
    tlsCfg *tls.Config
}

// NewServer binds to the given TCP address (e.g., ":18545").
func NewServer(bind string, logger *log.Logger) *Server {
    if logger == nil { logger = log.Default() }
    return &Server{bind: bind, addr: bind, logger: logger}
}

// UseTLS enables TLS for the HTTP server using the provided config.
func (s *Server) UseTLS(cfg *tls.Config) *Server { s.tlsCfg = cfg; return s }

// Start launches the HTTP server. The server is shut down when the context
// is canceled.
func (s *Server) Start(ctx context.Context, summary transport.ReportFunc, overlay transport.ReportFunc) error {
    mux := http.NewServeMux()
    mux.HandleFunc("/summary", jsonHandler("http.summary", summary))
    mux.HandleFunc("/overlay", jsonHandler("http.overlay", overlay))
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet { http.Error(w, "method not allowed", http.StatusMethodNotAllowed); return }
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    // Prometheus metrics
    mux.Handle("/metrics", promhttp.Handler())

    ln, err := net.Listen("tcp", s.bind)
    if err != nil { return err }
    if s.tlsCfg != nil {
        ln = tls.NewListener(ln, s.tlsCfg)
    }
    srv := &http.Server{Addr: s.bind, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
    s.mu.Lock()
    s.srv = srv
    s.addr = ln.Addr().String()
    s.mu.Unlock()

    go func() {
        <-ctx.Done()
        _ = s.Stop(context.Background())
    }()
    go func(srv *http.Server) {
        if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
            logutil.Errorf(s.logger, "httpjson: server error: %v", err)
        }
    }(srv)
    return nil
}

func jsonHandler(span string, fn transport.ReportFunc) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet { http.Error(w, "method not allowed", http.StatusMethodNotAllowed); return }
        if fn == nil { http.Error(w, "not available", http.StatusNotImplemented); return }
        ctx, end := tracing.StartSpan(r.Context(), span)
        defer end()
        data, err := fn(ctx)
        if err != nil { http.Error(w, fmt.Sprintf("report error: %v", err), http.StatusInternalServerError); return }
        w.Header().Set("Content-Type", "application/json")
        _, _ = w.Write(data)
    }
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string { s.mu.Lock(); defer s.mu.Unlock(); return s.addr }

// Stop attempts a graceful shutdown with a short timeout.
func (s *Server) Stop(ctx context.Context) error {
    s.mu.Lock()
    srv := s.srv
    s.srv = nil
    s.mu.Unlock()
    if srv == nil { return nil }
    c, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    return srv.Shutdown(c)
}

var _ transport.ReportServer = (*Server)(nil)
