package static

import (
    "context"
    "strings"

    "github.com/amirimatin/go-nodegeo/pkg/discovery"
    "github.com/amirimatin/go-nodegeo/pkg/peers"
)

type staticSeeds struct {
    hosts []string
}

func (s *staticSeeds) Seeds(context.Context) ([]peers.Record, error) {
    out := make([]peers.Record, 0, len(s.hosts))
    for _, h := range s.hosts { out = append(out, peers.NewRecord(h)) }
    return out, nil
}

// New returns a Discovery that always returns the given hosts as usable
// seed records.
func New(hosts ...string) discovery.Discovery {
    cleaned := make([]string, 0, len(hosts))
    for _, v := range hosts {
        v = strings.TrimSpace(v)
        if v != "" {
            cleaned = append(cleaned, v)
        }
    }
    return &staticSeeds{hosts: cleaned}
}

// Parse converts a comma-separated list into []string hosts.
func Parse(csv string) []string {
    if csv == "" {
        return nil
    }
    parts := strings.Split(csv, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" {
            out = append(out, p)
        }
    }
    return out
}
