package crawler

import (
    "context"
    "log"

    "github.com/amirimatin/go-nodegeo/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-nodegeo/pkg/observability/metrics"
    "github.com/amirimatin/go-nodegeo/pkg/peers"
    "github.com/amirimatin/go-nodegeo/pkg/transport"
)

// Fetcher returns the usable peer addresses a node reports. It never fails:
// an unreachable or misbehaving node yields no addresses.
type Fetcher interface {
    FetchPeers(ctx context.Context, addr string) []string
}

// RPCFetcher asks nodes for their peers through a PeerLister (typically the
// httpjson client, whose timeout bounds each call).
type RPCFetcher struct {
    Lister transport.PeerLister
    Logger *log.Logger
}

// NewRPCFetcher returns a Fetcher backed by lister.
func NewRPCFetcher(lister transport.PeerLister, logger *log.Logger) *RPCFetcher {
    return &RPCFetcher{Lister: lister, Logger: logutil.Or(logger)}
}

func (f *RPCFetcher) FetchPeers(ctx context.Context, addr string) []string {
    recs, err := f.Lister.NetPeers(ctx, addr)
    obsmetrics.PeerFetches.WithLabelValues(obsmetrics.Result(err)).Inc()
    if err != nil {
        logutil.Warnf(f.Logger, "crawler: fetching peers of %s: %v", addr, err)
        return nil
    }
    out := peers.ExtractAddresses(recs)
    obsmetrics.PeersDiscovered.Add(float64(len(out)))
    return out
}

var _ Fetcher = (*RPCFetcher)(nil)
