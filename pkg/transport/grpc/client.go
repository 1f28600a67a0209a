package grpc

import (
    "context"
    "crypto/tls"
    "time"

    "google.golang.org/grpc"
    "google.golang.org/grpc/credentials"
    "google.golang.org/grpc/credentials/insecure"

    "github.com/amirimatin/go-nodegeo/pkg/transport"
)

// Client fetches reports from a nodegeo gRPC server.
type Client struct {
    timeout time.Duration
    tlsCfg  *tls.Config
}

func NewClient(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = 3 * time.Second }
    return &Client{timeout: timeout}
}

// UseTLS sets TLS config for the client.
func (c *Client) UseTLS(cfg *tls.Config) *Client { c.tlsCfg = cfg; return c }

func (c *Client) dial(target string) (*grpc.ClientConn, error) {
    // Use JSON codec and set content subtype accordingly.
    opts := []grpc.DialOption{
        grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype("json")),
    }
    if c.tlsCfg != nil {
        opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(c.tlsCfg)))
    } else {
        opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
    }
    return grpc.NewClient(target, opts...)
}

func (c *Client) invoke(ctx context.Context, addr, method string) ([]byte, error) {
    cctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()
    cc, err := c.dial(addr)
    if err != nil { return nil, err }
    defer cc.Close()
    out := new(blob)
    if err := cc.Invoke(cctx, "/"+serviceName+"/"+method, &empty{}, out); err != nil { return nil, err }
    return out.Data, nil
}

func (c *Client) GetSummary(ctx context.Context, addr string) ([]byte, error) {
    return c.invoke(ctx, addr, "GetSummary")
}

func (c *Client) GetOverlay(ctx context.Context, addr string) ([]byte, error) {
    return c.invoke(ctx, addr, "GetOverlay")
}

var _ transport.ReportClient = (*Client)(nil)
