package discovery

import (
    "context"

    "github.com/amirimatin/go-nodegeo/pkg/peers"
)

// Discovery abstracts where the seed peer list of a crawl comes from: a
// captured peer-list document, a static host list, DNS names or a live node.
type Discovery interface {
    Seeds(ctx context.Context) ([]peers.Record, error)
}
