package transport

import (
    "context"

    "github.com/amirimatin/go-nodegeo/pkg/peers"
)

// PeerLister abstracts the per-node RPC capability used by the crawler: given
// a host, return the peers that node currently reports.
type PeerLister interface {
    NetPeers(ctx context.Context, host string) ([]peers.Record, error)
}
