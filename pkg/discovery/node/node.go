package node

import (
    "context"
    "fmt"

    "github.com/amirimatin/go-nodegeo/pkg/discovery"
    "github.com/amirimatin/go-nodegeo/pkg/peers"
    "github.com/amirimatin/go-nodegeo/pkg/transport"
)

type impl struct {
    host   string
    lister transport.PeerLister
}

// New returns a Discovery that takes the current peer list of a controlled
// node (host or host:port) as seeds. Unlike crawl fetches, a failure here is
// returned: without seeds there is nothing to crawl.
func New(host string, lister transport.PeerLister) discovery.Discovery {
    return &impl{host: host, lister: lister}
}

func (n *impl) Seeds(ctx context.Context) ([]peers.Record, error) {
    if n.host == "" { return nil, fmt.Errorf("discovery/node: empty seed node") }
    recs, err := n.lister.NetPeers(ctx, n.host)
    if err != nil { return nil, fmt.Errorf("discovery/node: %s: %w", n.host, err) }
    return recs, nil
}
