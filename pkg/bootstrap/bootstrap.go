package bootstrap

import (
    "bytes"
    "crypto/tls"
    "errors"
    "fmt"
    "io"
    "log"
    "os"
    "time"

    "golang.org/x/time/rate"
    "gopkg.in/yaml.v3"

    "github.com/amirimatin/go-nodegeo/pkg/crawler"
    "github.com/amirimatin/go-nodegeo/pkg/discovery"
    dDNS "github.com/amirimatin/go-nodegeo/pkg/discovery/dns"
    dFile "github.com/amirimatin/go-nodegeo/pkg/discovery/file"
    dNode "github.com/amirimatin/go-nodegeo/pkg/discovery/node"
    dStatic "github.com/amirimatin/go-nodegeo/pkg/discovery/static"
    "github.com/amirimatin/go-nodegeo/pkg/geo"
    "github.com/amirimatin/go-nodegeo/pkg/geo/ipapi"
    "github.com/amirimatin/go-nodegeo/pkg/geo/ipinfo"
    "github.com/amirimatin/go-nodegeo/pkg/geo/store"
    "github.com/amirimatin/go-nodegeo/pkg/internal/logutil"
    "github.com/amirimatin/go-nodegeo/pkg/overlay"
    "github.com/amirimatin/go-nodegeo/pkg/pipeline"
    tlsx "github.com/amirimatin/go-nodegeo/pkg/security/tlsconfig"
    "github.com/amirimatin/go-nodegeo/pkg/transport"
    rptgrpc "github.com/amirimatin/go-nodegeo/pkg/transport/grpc"
    httpjson "github.com/amirimatin/go-nodegeo/pkg/transport/httpjson"
)

// Config defines high-level inputs to assemble a pipeline. It is filled from
// command-line flags, a YAML file, or both.
type Config struct {
    // Seed discovery
    DiscoveryKind string        `yaml:"discovery"`  // "file" (default), "static", "dns" or "node"
    SeedsPath     string        `yaml:"seeds"`      // kind=file
    SeedsEnv      string        `yaml:"seeds_env"`  // kind=file, overrides the file when set
    SeedsCSV      string        `yaml:"static"`     // kind=static
    DNSNamesCSV   string        `yaml:"dns_names"`  // kind=dns
    DNSServer     string        `yaml:"dns_server"` // kind=dns, host:port
    SeedNode      string        `yaml:"seed_node"`  // kind=node

    // Crawl
    RPCPort     int           `yaml:"rpc_port"`
    RPCTimeout  time.Duration `yaml:"rpc_timeout"`
    Concurrency int           `yaml:"concurrency"`

    // Geolocation
    GeoProvider    string  `yaml:"geo_provider"` // "ipapi" (default) or "ipinfo"
    GeoBaseURL     string  `yaml:"geo_base_url"`
    GeoToken       string  `yaml:"geo_token"`
    GeoRate        float64 `yaml:"geo_rate"` // requests per second, <= 0 is unlimited
    GeoBurst       int     `yaml:"geo_burst"`
    GeoConcurrency int     `yaml:"geo_concurrency"`
    GeoFailFast    bool    `yaml:"geo_fail_fast"`
    RefreshGeo     bool    `yaml:"refresh_geo"`
    CacheKind      string  `yaml:"cache"` // "file" (default), "bolt" or "none"
    CachePath      string  `yaml:"cache_path"`

    // Artifacts
    WorldPath   string `yaml:"world"`
    OverlayPath string `yaml:"overlay"`
    ISOKey      string `yaml:"iso_key"`

    // Report service
    ServeAddr  string `yaml:"serve_addr"`
    ServeProto string `yaml:"serve_proto"` // "http" (default) or "grpc"

    // TLS (optional) for the node RPC client and the report service
    TLSEnable     bool   `yaml:"tls_enable"`
    TLSCA         string `yaml:"tls_ca"`
    TLSCert       string `yaml:"tls_cert"`
    TLSKey        string `yaml:"tls_key"`
    TLSServerName string `yaml:"tls_server_name"`
    TLSSkipVerify bool   `yaml:"tls_skip_verify"`
    // TLSReload re-reads the report server certificate at most every
    // TLSReloadTTL, so it can be rotated without a restart.
    TLSReload    bool          `yaml:"tls_reload"`
    TLSReloadTTL time.Duration `yaml:"tls_reload_ttl"`

    // Logger (optional). If nil, log.Default() is used.
    Logger *log.Logger `yaml:"-"`
    // Out receives the printed summaries; nil discards them.
    Out io.Writer `yaml:"-"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
    return Config{
        DiscoveryKind:  "file",
        SeedsPath:      "./input/initial_peers.json",
        RPCPort:        transport.DefaultRPCPort,
        RPCTimeout:     time.Second,
        Concurrency:    crawler.DefaultConcurrency,
        GeoProvider:    "ipapi",
        GeoRate:        0.75,
        GeoBurst:       1,
        GeoConcurrency: 1,
        CacheKind:      "file",
        CachePath:      "./output/geo_results.json",
        WorldPath:      "./input/countries.geojson.json",
        OverlayPath:    "./output/nodes.geojson",
        ISOKey:         overlay.DefaultISOKey,
        ServeAddr:      "127.0.0.1:8080",
        ServeProto:     "http",
    }
}

// LoadFile returns Defaults overlaid with the YAML document at path.
func LoadFile(path string) (Config, error) {
    cfg := Defaults()
    if err := LoadInto(path, &cfg); err != nil { return Config{}, err }
    return cfg, nil
}

// LoadInto decodes the YAML document at path over cfg. Keys absent from the
// document leave the current values untouched; unknown keys are rejected.
func LoadInto(path string, cfg *Config) error {
    data, err := os.ReadFile(path)
    if err != nil { return fmt.Errorf("config: %w", err) }
    dec := yaml.NewDecoder(bytes.NewReader(data))
    dec.KnownFields(true)
    if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
        return fmt.Errorf("config %s: %w", path, err)
    }
    return nil
}

func (c Config) tlsOptions() tlsx.Options {
    return tlsx.Options{Enable: c.TLSEnable, CAFile: c.TLSCA, CertFile: c.TLSCert, KeyFile: c.TLSKey, InsecureSkipVerify: c.TLSSkipVerify, ServerName: c.TLSServerName, Reload: c.TLSReload, ReloadTTL: c.TLSReloadTTL}
}

// Build assembles a pipeline.Pipeline from Config without running it.
func Build(cfg Config) (*pipeline.Pipeline, error) {
    logger := logutil.Or(cfg.Logger)

    var cliTLS *tls.Config
    if cfg.TLSEnable {
        c, err := cfg.tlsOptions().Client()
        if err != nil { return nil, fmt.Errorf("tls client config: %w", err) }
        cliTLS = c
    }
    rpc := httpjson.NewClient(cfg.RPCTimeout).WithPort(cfg.RPCPort)
    if cliTLS != nil { rpc.UseTLS(cliTLS) }

    disc, err := buildDiscovery(cfg, rpc, logger)
    if err != nil { return nil, err }

    cr := crawler.New(crawler.Options{Fetcher: crawler.NewRPCFetcher(rpc, logger), Concurrency: cfg.Concurrency, Logger: logger})

    loc, err := buildLocator(cfg)
    if err != nil { return nil, err }
    res := geo.NewResolver(geo.Options{
        Locator:     loc,
        Store:       buildStore(cfg),
        Concurrency: cfg.GeoConcurrency,
        FailFast:    cfg.GeoFailFast,
        Refresh:     cfg.RefreshGeo,
        Logger:      logger,
    })

    return pipeline.New(pipeline.Options{
        Discovery:   disc,
        Crawler:     cr,
        Resolver:    res,
        WorldPath:   cfg.WorldPath,
        OverlayPath: cfg.OverlayPath,
        ISOKey:      cfg.ISOKey,
        Logger:      logger,
        Out:         cfg.Out,
    })
}

func buildDiscovery(cfg Config, lister transport.PeerLister, logger *log.Logger) (discovery.Discovery, error) {
    switch cfg.DiscoveryKind {
    case "", "file":
        return dFile.New(dFile.Options{Path: cfg.SeedsPath, Env: cfg.SeedsEnv}), nil
    case "static":
        return dStatic.New(dStatic.Parse(cfg.SeedsCSV)...), nil
    case "dns":
        return dDNS.New(dDNS.Options{Names: dStatic.Parse(cfg.DNSNamesCSV), Server: cfg.DNSServer, Timeout: cfg.RPCTimeout, Logger: logger}), nil
    case "node":
        if cfg.SeedNode == "" { return nil, errors.New("discovery node: seed node host required") }
        return dNode.New(cfg.SeedNode, lister), nil
    default:
        return nil, fmt.Errorf("unknown discovery %q", cfg.DiscoveryKind)
    }
}

func buildLocator(cfg Config) (geo.Locator, error) {
    limit := rate.Inf
    if cfg.GeoRate > 0 { limit = rate.Limit(cfg.GeoRate) }
    burst := cfg.GeoBurst
    if burst <= 0 { burst = 1 }
    limiter := rate.NewLimiter(limit, burst)
    switch cfg.GeoProvider {
    case "", "ipapi":
        return ipapi.New(ipapi.Options{BaseURL: cfg.GeoBaseURL, Limiter: limiter}), nil
    case "ipinfo":
        token := cfg.GeoToken
        if token == "" { token = os.Getenv(ipinfo.TokenEnv) }
        if token == "" { return nil, fmt.Errorf("ipinfo: token required (--geo-token or %s)", ipinfo.TokenEnv) }
        return ipinfo.New(ipinfo.Options{Token: token, BaseURL: cfg.GeoBaseURL, Limiter: limiter}), nil
    default:
        return nil, fmt.Errorf("unknown geo provider %q", cfg.GeoProvider)
    }
}

func buildStore(cfg Config) geo.Store {
    if cfg.CachePath == "" { return nil }
    switch cfg.CacheKind {
    case "none":
        return nil
    case "bolt":
        return store.NewBolt(cfg.CachePath)
    default:
        return store.NewFile(cfg.CachePath)
    }
}

// NewReportServer returns the report service selected by ServeProto.
func NewReportServer(cfg Config) (transport.ReportServer, error) {
    srvTLS, err := cfg.tlsOptions().Server()
    if err != nil { return nil, fmt.Errorf("tls server config: %w", err) }
    switch cfg.ServeProto {
    case "grpc":
        s := rptgrpc.NewServer(cfg.ServeAddr)
        if srvTLS != nil { s.UseTLS(srvTLS) }
        return s, nil
    default:
        s := httpjson.NewServer(cfg.ServeAddr, logutil.Or(cfg.Logger))
        if srvTLS != nil { s.UseTLS(srvTLS) }
        return s, nil
    }
}

// NewReportClient returns a client for a serving instance speaking proto.
func NewReportClient(proto string, timeout time.Duration, opts tlsx.Options) (transport.ReportClient, error) {
    cliTLS, err := opts.Client()
    if err != nil { return nil, fmt.Errorf("tls client config: %w", err) }
    switch proto {
    case "grpc":
        c := rptgrpc.NewClient(timeout)
        if cliTLS != nil { c.UseTLS(cliTLS) }
        return c, nil
    default:
        c := httpjson.NewClient(timeout)
        if cliTLS != nil { c.UseTLS(cliTLS) }
        return c, nil
    }
}
