package file

import (
    "bufio"
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "os"
    "strings"

    "github.com/amirimatin/go-nodegeo/pkg/discovery"
    "github.com/amirimatin/go-nodegeo/pkg/peers"
)

// Options configures file/ENV-based discovery.
type Options struct {
    // Path to a captured parity_netPeers response ({"result":{"peers":[...]}})
    // or to a plain list of hosts, one per line or comma-separated.
    Path string
    // Env names a variable holding comma-separated hosts; it overrides the
    // file when non-empty.
    Env string
}

type impl struct {
    opts Options
}

func New(opts Options) discovery.Discovery { return &impl{opts: opts} }

func (i *impl) Seeds(context.Context) ([]peers.Record, error) {
    // ENV takes precedence
    if i.opts.Env != "" {
        if v := strings.TrimSpace(os.Getenv(i.opts.Env)); v != "" {
            return hostRecords(splitHosts(v)), nil
        }
    }
    if i.opts.Path == "" {
        return nil, fmt.Errorf("discovery/file: no seed path configured")
    }
    data, err := os.ReadFile(i.opts.Path)
    if err != nil { return nil, fmt.Errorf("discovery/file: %w", err) }
    return Decode(data)
}

// Decode parses seed data: a JSON peer-list document, a bare JSON array of
// peer records, or a host list.
func Decode(data []byte) ([]peers.Record, error) {
    trimmed := bytes.TrimSpace(data)
    switch {
    case len(trimmed) == 0:
        return nil, nil
    case trimmed[0] == '{':
        var doc peers.Document
        if err := json.Unmarshal(trimmed, &doc); err != nil {
            return nil, fmt.Errorf("discovery/file: decode peer document: %w", err)
        }
        return doc.Result.Peers, nil
    case trimmed[0] == '[':
        var raw []json.RawMessage
        if err := json.Unmarshal(trimmed, &raw); err != nil {
            return nil, fmt.Errorf("discovery/file: decode peer list: %w", err)
        }
        return peers.DecodeRecords(raw), nil
    }
    var hosts []string
    s := bufio.NewScanner(bytes.NewReader(trimmed))
    for s.Scan() {
        line := strings.TrimSpace(s.Text())
        if line == "" || strings.HasPrefix(line, "#") { continue }
        // allow comma-separated per line
        hosts = append(hosts, splitHosts(line)...)
    }
    if err := s.Err(); err != nil { return nil, err }
    return hostRecords(hosts), nil
}

func splitHosts(csv string) []string {
    var out []string
    for _, p := range strings.Split(csv, ",") {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}

func hostRecords(hosts []string) []peers.Record {
    out := make([]peers.Record, 0, len(hosts))
    for _, h := range hosts { out = append(out, peers.NewRecord(h)) }
    return out
}
