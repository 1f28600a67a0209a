package httpjson

import (
    "bytes"
    "context"
    "crypto/tls"
    "encoding/json"
    "fmt"
    "io"
    "net"
    "net/http"
    "strconv"
    "time"

    "github.com/amirimatin/go-nodegeo/pkg/peers"
    "github.com/amirimatin/go-nodegeo/pkg/transport"
)

// Client talks JSON over HTTP. It queries node JSON-RPC endpoints for their
// peers and fetches reports from a serving nodegeo instance. TLS is optional.
type Client struct {
    httpc     *http.Client
    transport *http.Transport
    isTLS     bool
    port      int
}

// NewClient constructs a new Client with the given timeout. The timeout
// bounds each request individually, so one hung node cannot stall others
// longer than that.
func NewClient(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = time.Second }
    tr := &http.Transport{
        Proxy:               http.ProxyFromEnvironment,
        DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
        MaxIdleConnsPerHost: 2,
        IdleConnTimeout:     30 * time.Second,
    }
    return &Client{httpc: &http.Client{Timeout: timeout, Transport: tr}, transport: tr, port: transport.DefaultRPCPort}
}

// UseTLS sets the TLS config for the underlying HTTP client and switches the
// request scheme to https.
func (c *Client) UseTLS(cfg *tls.Config) *Client {
    if c.transport != nil { c.transport.TLSClientConfig = cfg }
    c.isTLS = cfg != nil
    return c
}

// WithPort sets the JSON-RPC port hosts are queried on.
func (c *Client) WithPort(port int) *Client {
    if port > 0 { c.port = port }
    return c
}

func (c *Client) scheme() string {
    if c.isTLS { return "https" }
    return "http"
}

// NetPeers issues one parity_netPeers call against host. A bare host is
// queried on the configured port. Crawled addresses are always bare, since
// the extractor strips ports; only direct callers such as node discovery
// (--seed-node host:port) pass an explicit port.
func (c *Client) NetPeers(ctx context.Context, host string) ([]peers.Record, error) {
    target := host
    if _, _, err := net.SplitHostPort(host); err != nil {
        target = net.JoinHostPort(host, strconv.Itoa(c.port))
    }
    url := fmt.Sprintf("%s://%s", c.scheme(), target)
    body, err := json.Marshal(transport.NewRequest(transport.MethodNetPeers))
    if err != nil { return nil, err }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
    if err != nil { return nil, err }
    req.Header.Set("Content-Type", "application/json")
    resp, err := c.httpc.Do(req)
    if err != nil { return nil, err }
    defer resp.Body.Close()
    b, err := io.ReadAll(resp.Body)
    if err != nil { return nil, err }
    if resp.StatusCode != http.StatusOK {
        return nil, fmt.Errorf("netPeers status %d: %s", resp.StatusCode, string(b))
    }
    var out transport.Response
    if err := json.Unmarshal(b, &out); err != nil { return nil, fmt.Errorf("decode response: %w", err) }
    if out.Error != nil { return nil, out.Error }
    var res peers.NetPeers
    if err := json.Unmarshal(out.Result, &res); err != nil { return nil, fmt.Errorf("decode result: %w", err) }
    return res.Peers, nil
}

var _ transport.PeerLister = (*Client)(nil)

func (c *Client) GetSummary(ctx context.Context, addr string) ([]byte, error) {
    return c.get(ctx, fmt.Sprintf("%s://%s/summary", c.scheme(), addr))
}

func (c *Client) GetOverlay(ctx context.Context, addr string) ([]byte, error) {
    return c.get(ctx, fmt.Sprintf("%s://%s/overlay", c.scheme(), addr))
}

var _ transport.ReportClient = (*Client)(nil)

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        data, err := c.getOnce(ctx, url)
        if err == nil { return data, nil }
        lastErr = err
        // backoff unless context is done
        select {
        case <-ctx.Done():
            return nil, ctx.Err()
        case <-time.After(time.Duration(100*(1<<attempt)) * time.Millisecond):
        }
    }
    return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
    if err != nil { return nil, err }
    resp, err := c.httpc.Do(req)
    if err != nil { return nil, err }
    defer resp.Body.Close()
    b, err := io.ReadAll(resp.Body)
    if err != nil { return nil, err }
    if resp.StatusCode != http.StatusOK {
        return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
    }
    return b, nil
}
