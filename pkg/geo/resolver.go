package geo

import (
    "context"
    "fmt"
    "log"

    "golang.org/x/sync/errgroup"

    "github.com/amirimatin/go-nodegeo/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-nodegeo/pkg/observability/metrics"
    "github.com/amirimatin/go-nodegeo/pkg/observability/tracing"
    "github.com/amirimatin/go-nodegeo/pkg/peers"
)

// Options configures a Resolver.
type Options struct {
    Locator Locator
    // Store holds the persisted result set; nil disables caching.
    Store Store
    // Concurrency caps parallel lookups; defaults to 1 (one at a time).
    Concurrency int
    // FailFast aborts the resolution on the first failed lookup instead of
    // skipping the address.
    FailFast bool
    // Refresh ignores the stored result set and looks everything up again.
    Refresh bool
    Logger  *log.Logger
}

// Resolver turns an address set into geo records.
//
// Caching is all or nothing: when the store holds a result set it is
// returned as is, without comparing it with the addresses asked for. A
// rerun is therefore idempotent and free of external lookups, at the price
// of serving a stale view after the network changed. Use Refresh to rebuild.
type Resolver struct {
    opts Options
    log  *log.Logger
}

func NewResolver(opts Options) *Resolver {
    if opts.Concurrency <= 0 { opts.Concurrency = 1 }
    return &Resolver{opts: opts, log: logutil.Or(opts.Logger)}
}

// Resolve returns one record per address, or the stored result set.
func (r *Resolver) Resolve(ctx context.Context, addrs peers.AddressSet) ([]Record, error) {
    ctx, end := tracing.StartSpan(ctx, "geo.resolve")
    defer end()

    if r.opts.Store != nil && !r.opts.Refresh {
        recs, ok, err := r.opts.Store.Load()
        switch {
        case err != nil:
            logutil.Warnf(r.log, "geo: ignoring unreadable cache: %v", err)
        case ok:
            obsmetrics.GeoCacheHits.Inc()
            logutil.Infof(r.log, "geo: using %d cached records", len(recs))
            return recs, nil
        }
    }

    logutil.Infof(r.log, "geo: looking up %d addresses", addrs.Len())
    ips := addrs.Sorted()
    slots := make([]*Record, len(ips))
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(r.opts.Concurrency)
    for i, ip := range ips {
        i, ip := i, ip
        g.Go(func() error {
            rec, err := r.opts.Locator.Lookup(gctx, ip)
            obsmetrics.GeoLookups.WithLabelValues(obsmetrics.Result(err)).Inc()
            if err != nil {
                if r.opts.FailFast {
                    return fmt.Errorf("%w: %s: %v", ErrLookup, ip, err)
                }
                logutil.Warnf(r.log, "geo: skipping %s: %v", ip, err)
                return nil
            }
            if rec.IP == "" { rec.IP = ip }
            slots[i] = &rec
            return nil
        })
    }
    if err := g.Wait(); err != nil { return nil, err }

    recs := make([]Record, 0, len(slots))
    for _, s := range slots {
        if s != nil { recs = append(recs, *s) }
    }

    // A partial set would be served forever by the whole-cache policy.
    if skipped := len(ips) - len(recs); r.opts.Store != nil && skipped > 0 {
        logutil.Warnf(r.log, "geo: %d lookups failed, cache not written", skipped)
        obsmetrics.ArtifactWrites.WithLabelValues("geo_results", "skipped").Inc()
    } else if r.opts.Store != nil {
        err := r.opts.Store.Save(recs)
        obsmetrics.ArtifactWrites.WithLabelValues("geo_results", obsmetrics.Result(err)).Inc()
        if err != nil {
            logutil.Errorf(r.log, "geo: persisting results: %v", err)
        }
    }
    return recs, nil
}
