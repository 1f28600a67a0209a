package cli

import (
    "context"
    "fmt"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/spf13/cobra"
    "github.com/spf13/pflag"

    "github.com/amirimatin/go-nodegeo/pkg/bootstrap"
    "github.com/amirimatin/go-nodegeo/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-nodegeo/pkg/observability/metrics"
    tracing "github.com/amirimatin/go-nodegeo/pkg/observability/tracing"
    "github.com/amirimatin/go-nodegeo/pkg/pipeline"
    tlsx "github.com/amirimatin/go-nodegeo/pkg/security/tlsconfig"
)

// AddAll attaches the nodegeo subcommands (run/serve/report) to the provided root command.
func AddAll(root *cobra.Command) {
    root.AddCommand(NewRunCmd())
    root.AddCommand(NewServeCmd())
    root.AddCommand(NewReportCmd())
}

// NewNodegeoCommand returns a parent command "nodegeo" containing run/serve/report as subcommands.
func NewNodegeoCommand() *cobra.Command {
    parent := &cobra.Command{Use: "nodegeo", Short: "validator node crawl and geo overlay commands"}
    AddAll(parent)
    return parent
}

// pipelineFlags binds the shared pipeline settings into cfg.
type pipelineFlags struct {
    cfg         bootstrap.Config
    configPath  string
    traceEnable bool
    logJSON     bool
}

func newPipelineFlags(fs *pflag.FlagSet) *pipelineFlags {
    p := &pipelineFlags{cfg: bootstrap.Defaults()}
    c := &p.cfg
    fs.StringVar(&p.configPath, "config", "", "YAML config file; flags given on the command line override it")
    fs.StringVar(&c.DiscoveryKind, "discovery", c.DiscoveryKind, "seed discovery: file|static|dns|node")
    fs.StringVar(&c.SeedsPath, "seeds", c.SeedsPath, "seed document (parity_netPeers response) or host list (discovery=file)")
    fs.StringVar(&c.SeedsEnv, "seeds-env", c.SeedsEnv, "ENV var name containing CSV seed hosts; overrides the file when set")
    fs.StringVar(&c.SeedsCSV, "static", c.SeedsCSV, "comma-separated seed hosts (discovery=static)")
    fs.StringVar(&c.DNSNamesCSV, "dns-names", c.DNSNamesCSV, "comma-separated DNS names resolved to seed hosts (A records)")
    fs.StringVar(&c.DNSServer, "dns-server", c.DNSServer, "nameserver host:port (default from /etc/resolv.conf)")
    fs.StringVar(&c.SeedNode, "seed-node", c.SeedNode, "node host asked for its live peers (discovery=node)")
    fs.IntVar(&c.RPCPort, "rpc-port", c.RPCPort, "JSON-RPC port of crawled nodes")
    fs.DurationVar(&c.RPCTimeout, "rpc-timeout", c.RPCTimeout, "per-node JSON-RPC timeout")
    fs.IntVar(&c.Concurrency, "concurrency", c.Concurrency, "max in-flight peer fetches (1 = sequential)")
    fs.StringVar(&c.GeoProvider, "geo-provider", c.GeoProvider, "geolocation provider: ipapi|ipinfo")
    fs.StringVar(&c.GeoBaseURL, "geo-url", c.GeoBaseURL, "override the provider base URL")
    fs.StringVar(&c.GeoToken, "geo-token", c.GeoToken, "ipinfo token (default $NODEGEO_IPINFO_TOKEN)")
    fs.Float64Var(&c.GeoRate, "geo-rate", c.GeoRate, "geolocation requests per second (<= 0 unlimited)")
    fs.IntVar(&c.GeoBurst, "geo-burst", c.GeoBurst, "geolocation request burst")
    fs.IntVar(&c.GeoConcurrency, "geo-concurrency", c.GeoConcurrency, "max in-flight geolocation lookups")
    fs.BoolVar(&c.GeoFailFast, "geo-fail-fast", c.GeoFailFast, "abort the run on the first failed lookup")
    fs.BoolVar(&c.RefreshGeo, "refresh-geo", c.RefreshGeo, "ignore the geo cache and look every address up again")
    fs.StringVar(&c.CacheKind, "cache", c.CacheKind, "geo cache backend: file|bolt|none")
    fs.StringVar(&c.CachePath, "cache-path", c.CachePath, "geo cache location")
    fs.StringVar(&c.WorldPath, "world", c.WorldPath, "reference country geometry (GeoJSON)")
    fs.StringVar(&c.OverlayPath, "overlay", c.OverlayPath, "node overlay output (GeoJSON); empty skips the write")
    fs.StringVar(&c.ISOKey, "iso-key", c.ISOKey, "feature property joined against country codes")
    fs.BoolVar(&c.TLSEnable, "tls-enable", false, "enable TLS for node RPC and the report service")
    fs.StringVar(&c.TLSCA, "tls-ca", "", "path to CA cert (PEM)")
    fs.StringVar(&c.TLSCert, "tls-cert", "", "path to certificate (PEM)")
    fs.StringVar(&c.TLSKey, "tls-key", "", "path to private key (PEM)")
    fs.BoolVar(&c.TLSSkipVerify, "tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
    fs.StringVar(&c.TLSServerName, "tls-server-name", "", "expected server name (for TLS validation)")
    fs.BoolVar(&p.traceEnable, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
    fs.BoolVar(&p.logJSON, "log-json", false, "emit JSON log lines")
    return p
}

// resolve applies the YAML file, if any, underneath the flags that were set
// explicitly on the command line.
func (p *pipelineFlags) resolve(fs *pflag.FlagSet) (bootstrap.Config, error) {
    if p.configPath != "" {
        set := map[string]string{}
        fs.Visit(func(f *pflag.Flag) { set[f.Name] = f.Value.String() })
        if err := bootstrap.LoadInto(p.configPath, &p.cfg); err != nil { return bootstrap.Config{}, err }
        for name, v := range set {
            if err := fs.Set(name, v); err != nil { return bootstrap.Config{}, fmt.Errorf("flag --%s: %w", name, err) }
        }
    }
    if p.logJSON { logutil.SetJSON(true) }
    cfg := p.cfg
    cfg.Logger = log.Default()
    cfg.Out = os.Stdout
    return cfg, nil
}

func (p *pipelineFlags) startTracing() func() {
    if !p.traceEnable { return func() {} }
    shutdown, err := tracing.Setup(true)
    if err != nil {
        log.Printf("tracing setup error: %v", err)
        return func() {}
    }
    return func() { _ = shutdown(context.Background()) }
}

// NewRunCmd returns the "run" command: one crawl, resolution and overlay pass.
func NewRunCmd() *cobra.Command {
    var pf *pipelineFlags
    cmd := &cobra.Command{
        Use:   "run",
        Short: "Crawl the network, geolocate nodes and build the overlay",
        RunE: func(cmd *cobra.Command, args []string) error {
            cfg, err := pf.resolve(cmd.Flags())
            if err != nil { return err }
            ctx, cancel := signalContext()
            defer cancel()
            defer pf.startTracing()()

            p, err := bootstrap.Build(cfg)
            if err != nil { return err }
            _, err = p.Run(ctx)
            return err
        },
    }
    pf = newPipelineFlags(cmd.Flags())
    return cmd
}

// NewServeCmd returns the "serve" command: run the pipeline, then expose the
// report and metrics until interrupted.
func NewServeCmd() *cobra.Command {
    var (
        pf       *pipelineFlags
        interval time.Duration
    )
    cmd := &cobra.Command{
        Use:   "serve",
        Short: "Run the pipeline and serve the report over HTTP or gRPC",
        RunE: func(cmd *cobra.Command, args []string) error {
            cfg, err := pf.resolve(cmd.Flags())
            if err != nil { return err }
            ctx, cancel := signalContext()
            defer cancel()
            defer pf.startTracing()()

            obsmetrics.Register()
            p, err := bootstrap.Build(cfg)
            if err != nil { return err }
            if _, err := p.Run(ctx); err != nil { return err }

            srv, err := bootstrap.NewReportServer(cfg)
            if err != nil { return err }
            if err := srv.Start(ctx, p.SummaryJSON, p.OverlayJSON); err != nil { return err }
            defer func() {
                sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
                defer scancel()
                _ = srv.Stop(sctx)
            }()
            fmt.Printf("serving report (%s) on %s. Press Ctrl+C to exit.\n", cfg.ServeProto, srv.Addr())
            rerun(ctx, p, interval, cfg.Logger)
            return nil
        },
    }
    pf = newPipelineFlags(cmd.Flags())
    cmd.Flags().StringVar(&pf.cfg.ServeAddr, "addr", pf.cfg.ServeAddr, "report service address (host:port)")
    cmd.Flags().StringVar(&pf.cfg.ServeProto, "proto", pf.cfg.ServeProto, "report service protocol: http|grpc")
    cmd.Flags().DurationVar(&interval, "interval", 0, "re-run the pipeline at this interval (0 = run once)")
    cmd.Flags().BoolVar(&pf.cfg.TLSReload, "tls-reload", false, "reload the report server certificate from disk on handshake")
    cmd.Flags().DurationVar(&pf.cfg.TLSReloadTTL, "tls-reload-ttl", 10*time.Second, "minimum interval between certificate reloads")
    return cmd
}

// rerun blocks until ctx is done, refreshing the report every interval.
func rerun(ctx context.Context, p *pipeline.Pipeline, interval time.Duration, logger *log.Logger) {
    if interval <= 0 {
        <-ctx.Done()
        return
    }
    t := time.NewTicker(interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            if _, err := p.Run(ctx); err != nil && ctx.Err() == nil {
                logutil.Errorf(logger, "serve: pipeline run: %v", err)
            }
        }
    }
}

// NewReportCmd returns the "report" command.
func NewReportCmd() *cobra.Command {
    var (
        addr, proto, what                     string
        timeout                               time.Duration
        tlsEnable, tlsSkip                    bool
        tlsCA, tlsCert, tlsKey, tlsServerName string
    )
    cmd := &cobra.Command{
        Use:   "report",
        Short: "Fetch the summary or overlay from a serving instance",
        RunE: func(cmd *cobra.Command, args []string) error {
            topts := tlsx.Options{Enable: tlsEnable, CAFile: tlsCA, CertFile: tlsCert, KeyFile: tlsKey, InsecureSkipVerify: tlsSkip, ServerName: tlsServerName}
            client, err := bootstrap.NewReportClient(proto, timeout, topts)
            if err != nil { return err }
            ctx, cancel := context.WithTimeout(context.Background(), timeout)
            defer cancel()
            var data []byte
            switch what {
            case "overlay":
                data, err = client.GetOverlay(ctx, addr)
            case "summary":
                data, err = client.GetSummary(ctx, addr)
            default:
                return fmt.Errorf("unknown report %q (summary|overlay)", what)
            }
            if err != nil { return fmt.Errorf("report error: %w", err) }
            out := cmd.OutOrStdout()
            out.Write(data)
            if len(data) == 0 || data[len(data)-1] != '\n' { out.Write([]byte("\n")) }
            return nil
        },
    }
    cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "report service address of a serving instance (host:port)")
    cmd.Flags().StringVar(&proto, "proto", "http", "report service protocol: http|grpc")
    cmd.Flags().StringVar(&what, "what", "summary", "report to fetch: summary|overlay")
    cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "request timeout")
    cmd.Flags().BoolVar(&tlsEnable, "tls-enable", false, "enable TLS for the report service")
    cmd.Flags().StringVar(&tlsCA, "tls-ca", "", "path to CA cert (PEM)")
    cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "path to client certificate (PEM)")
    cmd.Flags().StringVar(&tlsKey, "tls-key", "", "path to client private key (PEM)")
    cmd.Flags().BoolVar(&tlsSkip, "tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
    cmd.Flags().StringVar(&tlsServerName, "tls-server-name", "", "expected server name (for TLS validation)")
    return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
    return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
