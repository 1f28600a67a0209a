package crawler

import (
    "context"
    "log"
    "sync"

    "golang.org/x/sync/errgroup"

    "github.com/amirimatin/go-nodegeo/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-nodegeo/pkg/observability/metrics"
    "github.com/amirimatin/go-nodegeo/pkg/observability/tracing"
    "github.com/amirimatin/go-nodegeo/pkg/peers"
)

// DefaultConcurrency caps in-flight peer fetches.
const DefaultConcurrency = 16

// Options configures a Crawler.
type Options struct {
    Fetcher Fetcher
    // Concurrency caps in-flight fetches; 1 queries seeds one after another.
    Concurrency int
    Logger      *log.Logger
}

// Crawler performs a two-hop expansion of the network: every seed is asked
// for its peers, second-hop peers are collected but not queried themselves.
type Crawler struct {
    fetcher Fetcher
    limit   int
    log     *log.Logger
}

func New(opts Options) *Crawler {
    if opts.Concurrency <= 0 { opts.Concurrency = DefaultConcurrency }
    return &Crawler{fetcher: opts.Fetcher, limit: opts.Concurrency, log: logutil.Or(opts.Logger)}
}

// Crawl extracts the seed addresses from seeds, fetches the peers of every
// distinct seed and returns the union of seeds and discoveries.
func (c *Crawler) Crawl(ctx context.Context, seeds []peers.Record) peers.AddressSet {
    ctx, end := tracing.StartSpan(ctx, "crawler.crawl")
    defer end()

    found := peers.NewAddressSet(peers.ExtractAddresses(seeds)...)
    targets := found.Sorted()
    logutil.Infof(c.log, "crawler: %d seed addresses", len(targets))

    var mu sync.Mutex
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(c.limit)
    for _, addr := range targets {
        addr := addr
        g.Go(func() error {
            fctx, end := tracing.StartSpan(gctx, "crawler.fetch", "peer", addr)
            defer end()
            got := c.fetcher.FetchPeers(fctx, addr)
            mu.Lock()
            found.Add(got...)
            mu.Unlock()
            return nil
        })
    }
    _ = g.Wait()

    obsmetrics.CrawlAddresses.Set(float64(found.Len()))
    logutil.Infof(c.log, "crawler: %d unique addresses", found.Len())
    return found
}
