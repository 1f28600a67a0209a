package grpc

import (
    "context"
    "crypto/tls"
    "errors"
    "net"
    "sync"
    "time"

    "google.golang.org/grpc"
    "google.golang.org/grpc/credentials"
    "google.golang.org/grpc/health"
    healthpb "google.golang.org/grpc/health/grpc_health_v1"

    "github.com/amirimatin/go-nodegeo/pkg/observability/tracing"
    "github.com/amirimatin/go-nodegeo/pkg/transport"
)

const serviceName = "nodegeo.v1.Report"

// Server implements transport.ReportServer over gRPC using a JSON codec.
type Server struct {
    mu     sync.Mutex
    bind   string
    addr   string
    srv    *grpc.Server
    tlsCfg *tls.Config
}

func NewServer(bind string) *Server { return &Server{bind: bind, addr: bind} }

// UseTLS enables TLS for the gRPC server using the provided config.
func (s *Server) UseTLS(cfg *tls.Config) *Server { s.tlsCfg = cfg; return s }

// internal request/response types used over gRPC JSON codec
type empty struct{}
type blob struct{ Data []byte `json:"data"` }

// reportServer defines the methods we expose.
type reportServer interface {
    GetSummary(ctx context.Context, in *empty) (*blob, error)
    GetOverlay(ctx context.Context, in *empty) (*blob, error)
}

type reportImpl struct{ summary, overlay transport.ReportFunc }

func (r *reportImpl) GetSummary(ctx context.Context, _ *empty) (*blob, error) {
    return call(ctx, "grpc.summary", r.summary)
}

func (r *reportImpl) GetOverlay(ctx context.Context, _ *empty) (*blob, error) {
    return call(ctx, "grpc.overlay", r.overlay)
}

func call(ctx context.Context, span string, fn transport.ReportFunc) (*blob, error) {
    if fn == nil { return nil, errors.New("not available") }
    ctx, end := tracing.StartSpan(ctx, span)
    defer end()
    b, err := fn(ctx)
    if err != nil { return nil, err }
    return &blob{Data: b}, nil
}

// Service descriptor and handlers (hand-written, no codegen required)
var _Report_serviceDesc = grpc.ServiceDesc{
    ServiceName: serviceName,
    HandlerType: (*reportServer)(nil),
    Methods: []grpc.MethodDesc{
        { MethodName: "GetSummary", Handler: _Report_GetSummary_Handler },
        { MethodName: "GetOverlay", Handler: _Report_GetOverlay_Handler },
    },
}

func _Report_GetSummary_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
    in := new(empty)
    if err := dec(in); err != nil { return nil, err }
    if interceptor == nil { return srv.(reportServer).GetSummary(ctx, in) }
    info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetSummary"}
    handler := func(ctx context.Context, req interface{}) (interface{}, error) {
        return srv.(reportServer).GetSummary(ctx, req.(*empty))
    }
    return interceptor(ctx, in, info, handler)
}

func _Report_GetOverlay_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
    in := new(empty)
    if err := dec(in); err != nil { return nil, err }
    if interceptor == nil { return srv.(reportServer).GetOverlay(ctx, in) }
    info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetOverlay"}
    handler := func(ctx context.Context, req interface{}) (interface{}, error) {
        return srv.(reportServer).GetOverlay(ctx, req.(*empty))
    }
    return interceptor(ctx, in, info, handler)
}

func (s *Server) Start(ctx context.Context, summary transport.ReportFunc, overlay transport.ReportFunc) error {
    lis, err := net.Listen("tcp", s.bind)
    if err != nil { return err }
    // Force JSON codec to avoid requiring protobuf types
    opts := []grpc.ServerOption{grpc.ForceServerCodec(jsonCodec{})}
    if s.tlsCfg != nil { opts = append(opts, grpc.Creds(credentials.NewTLS(s.tlsCfg))) }
    srv := grpc.NewServer(opts...)
    healthpb.RegisterHealthServer(srv, health.NewServer())
    srv.RegisterService(&_Report_serviceDesc, &reportImpl{summary: summary, overlay: overlay})

    s.mu.Lock()
    s.srv = srv
    s.addr = lis.Addr().String()
    s.mu.Unlock()

    go func() {
        <-ctx.Done()
        sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
        defer cancel()
        _ = s.Stop(sctx)
    }()
    go func() { _ = srv.Serve(lis) }()
    return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string { s.mu.Lock(); defer s.mu.Unlock(); return s.addr }

func (s *Server) Stop(ctx context.Context) error {
    s.mu.Lock()
    srv := s.srv
    s.srv = nil
    s.mu.Unlock()
    if srv == nil { return nil }
    ch := make(chan struct{})
    go func() { srv.GracefulStop(); close(ch) }()
    select {
    case <-ch:
    case <-ctx.Done():
        srv.Stop()
    }
    return nil
}

var _ transport.ReportServer = (*Server)(nil)
