package tlsconfig

import (
    "crypto/tls"
    "crypto/x509"
    "errors"
    "fmt"
    "os"
    "sync"
    "time"
)

// Options defines TLS inputs shared by the RPC client and the report server.
type Options struct {
    Enable             bool
    CAFile             string
    CertFile           string
    KeyFile            string
    InsecureSkipVerify bool
    ServerName         string
    // Reload re-reads the server certificate from disk at most every ReloadTTL.
    Reload    bool
    ReloadTTL time.Duration
}

var ErrNoKeyPair = errors.New("tls: server cert/key required when TLS enabled")

func loadPool(path string) (*x509.CertPool, error) {
    ca, err := os.ReadFile(path)
    if err != nil { return nil, err }
    pool := x509.NewCertPool()
    if !pool.AppendCertsFromPEM(ca) { return nil, fmt.Errorf("tls: no certificates in %s", path) }
    return pool, nil
}

// Client returns a tls.Config for the JSON-RPC and report clients, or nil
// when TLS is disabled.
func (o Options) Client() (*tls.Config, error) {
    if !o.Enable { return nil, nil }
    cfg := &tls.Config{InsecureSkipVerify: o.InsecureSkipVerify, MinVersion: tls.VersionTLS12} //nolint:gosec
    if o.ServerName != "" { cfg.ServerName = o.ServerName }
    if o.CAFile != "" {
        pool, err := loadPool(o.CAFile)
        if err != nil { return nil, err }
        cfg.RootCAs = pool
    }
    if o.CertFile != "" && o.KeyFile != "" {
        cert, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
        if err != nil { return nil, err }
        cfg.Certificates = []tls.Certificate{cert}
    }
    return cfg, nil
}

// Server returns a tls.Config for the report server, or nil when TLS is
// disabled. A CA file turns on client certificate verification.
func (o Options) Server() (*tls.Config, error) {
    if !o.Enable { return nil, nil }
    if o.CertFile == "" || o.KeyFile == "" { return nil, ErrNoKeyPair }
    cfg := &tls.Config{MinVersion: tls.VersionTLS12}
    if o.CAFile != "" {
        pool, err := loadPool(o.CAFile)
        if err != nil { return nil, err }
        cfg.ClientCAs = pool
        cfg.ClientAuth = tls.RequireAndVerifyClientCert
    }
    if !o.Reload {
        cert, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
        if err != nil { return nil, err }
        cfg.Certificates = []tls.Certificate{cert}
        return cfg, nil
    }
    // Fail early on a bad pair, then reload lazily on handshake.
    if _, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile); err != nil { return nil, err }
    ttl := o.ReloadTTL
    if ttl <= 0 { ttl = 10 * time.Second }
    var (
        mu       sync.Mutex
        cached   *tls.Certificate
        lastLoad time.Time
    )
    cfg.GetCertificate = func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
        mu.Lock()
        defer mu.Unlock()
        if cached != nil && time.Since(lastLoad) < ttl { return cached, nil }
        cert, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
        if err != nil {
            if cached != nil { return cached, nil }
            return nil, err
        }
        cached, lastLoad = &cert, time.Now()
        return cached, nil
    }
    return cfg, nil
}
