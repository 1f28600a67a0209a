package dns

import (
    "context"
    "fmt"
    "log"
    "net"
    "strings"
    "time"

    mdns "github.com/miekg/dns"

    "github.com/amirimatin/go-nodegeo/pkg/discovery"
    "github.com/amirimatin/go-nodegeo/pkg/internal/logutil"
    "github.com/amirimatin/go-nodegeo/pkg/peers"
)

const resolvConf = "/etc/resolv.conf"

// Options configures DNS-based discovery.
type Options struct {
    // Names are hostnames whose A records are seed nodes. IP literals and
    // host:port entries are not resolved, but like every seed they go
    // through the peer extractor, which cuts at the first colon: a port is
    // dropped and the host is queried on the RPC port. AAAA records are not
    // used for the same reason.
    Names []string

    // Server is a "host:port" nameserver to query. When empty the servers
    // in /etc/resolv.conf are used, falling back to the system resolver.
    Server string

    // Timeout bounds each DNS exchange; defaults to 2s.
    Timeout time.Duration

    // Logger optional.
    Logger *log.Logger
}

type impl struct {
    opts Options
}

// New returns a DNS-backed discovery.
func New(opts Options) discovery.Discovery {
    if opts.Timeout <= 0 { opts.Timeout = 2 * time.Second }
    opts.Logger = logutil.Or(opts.Logger)
    return &impl{opts: opts}
}

func (d *impl) Seeds(ctx context.Context) ([]peers.Record, error) {
    servers := d.servers()
    seen := make(map[string]struct{})
    var out []peers.Record
    add := func(h string) {
        if _, ok := seen[h]; ok { return }
        seen[h] = struct{}{}
        out = append(out, peers.NewRecord(h))
    }
    for _, name := range d.opts.Names {
        name = strings.TrimSpace(name)
        if name == "" { continue }
        if passthrough(name) {
            add(name)
            continue
        }
        var ips []string
        var err error
        if len(servers) > 0 {
            ips, err = d.exchange(servers, name)
        } else {
            ips, err = lookupIPv4(ctx, name)
        }
        if err != nil {
            logutil.Warnf(d.opts.Logger, "discovery/dns: resolving %s: %v", name, err)
            continue
        }
        for _, ip := range ips { add(ip) }
    }
    if len(out) == 0 && len(d.opts.Names) > 0 {
        return nil, fmt.Errorf("discovery/dns: no seeds resolved from %v", d.opts.Names)
    }
    return out, nil
}

func (d *impl) servers() []string {
    if d.opts.Server != "" { return []string{d.opts.Server} }
    conf, err := mdns.ClientConfigFromFile(resolvConf)
    if err != nil || len(conf.Servers) == 0 { return nil }
    servers := conf.Servers
    // limit the nameservers like the system resolver does
    if len(servers) > 3 { servers = servers[:3] }
    out := make([]string, 0, len(servers))
    for _, s := range servers { out = append(out, net.JoinHostPort(s, conf.Port)) }
    return out
}

// exchange queries the A records of name, trying servers in order until
// one answers.
func (d *impl) exchange(servers []string, name string) ([]string, error) {
    c := mdns.Client{Timeout: d.opts.Timeout}
    var lastErr error
    for _, server := range servers {
        msg := mdns.Msg{}
        msg.SetQuestion(mdns.Fqdn(name), mdns.TypeA)
        r, _, err := c.Exchange(&msg, server)
        if err != nil { lastErr = err; continue }
        if ips := answers(r.Answer); len(ips) > 0 { return ips, nil }
    }
    if lastErr == nil { lastErr = fmt.Errorf("no A records for %s", name) }
    return nil, lastErr
}

func answers(rrs []mdns.RR) []string {
    var out []string
    for _, rr := range rrs {
        switch v := rr.(type) {
        case *mdns.A:
            out = append(out, v.A.String())
        }
    }
    return out
}

func passthrough(name string) bool {
    if net.ParseIP(name) != nil { return true }
    _, _, err := net.SplitHostPort(name)
    return err == nil
}

func lookupIPv4(ctx context.Context, name string) ([]string, error) {
    addrs, err := net.DefaultResolver.LookupIP(ctx, "ip4", name)
    if err != nil { return nil, err }
    out := make([]string, 0, len(addrs))
    for _, a := range addrs { out = append(out, a.String()) }
    return out, nil
}
