package pipeline

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "log"
    "sync"
    "text/tabwriter"
    "time"

    "github.com/amirimatin/go-nodegeo/pkg/aggregate"
    "github.com/amirimatin/go-nodegeo/pkg/geo"
    "github.com/amirimatin/go-nodegeo/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-nodegeo/pkg/observability/metrics"
    "github.com/amirimatin/go-nodegeo/pkg/observability/tracing"
    "github.com/amirimatin/go-nodegeo/pkg/overlay"
)

// Report is the outcome of one run.
type Report struct {
    GeneratedAt time.Time
    Addresses   []string
    Records     []geo.Record
    Counts      aggregate.Result
    Overlay     overlay.Collection
}

// Summary is the JSON shape of a report without the geometry.
type Summary struct {
    GeneratedAt     time.Time         `json:"generatedAt"`
    Addresses       int               `json:"addresses"`
    Located         int               `json:"located"`
    Countries       []aggregate.Entry `json:"countries"`
    CountryCodes    []aggregate.Entry `json:"countryCodes"`
    Orgs            []aggregate.Entry `json:"orgs"`
    OverlayFeatures int               `json:"overlayFeatures"`
}

func (r *Report) Summary() Summary {
    return Summary{
        GeneratedAt:     r.GeneratedAt,
        Addresses:       len(r.Addresses),
        Located:         len(r.Records),
        Countries:       r.Counts.Countries.Sorted(),
        CountryCodes:    r.Counts.CountryCodes.Sorted(),
        Orgs:            r.Counts.Orgs.Sorted(),
        OverlayFeatures: len(r.Overlay.Features),
    }
}

// Pipeline runs seed discovery, crawl, geo resolution, aggregation and the
// overlay join top to bottom.
type Pipeline struct {
    opts Options
    log  *log.Logger
    out  io.Writer

    mu   sync.RWMutex
    last *Report
}

func New(opts Options) (*Pipeline, error) {
    if err := opts.Validate(); err != nil { return nil, err }
    if opts.ISOKey == "" { opts.ISOKey = overlay.DefaultISOKey }
    out := opts.Out
    if out == nil { out = io.Discard }
    return &Pipeline{opts: opts, log: logutil.Or(opts.Logger), out: out}, nil
}

// Run executes the whole pipeline once. Lookup failures under fail-fast and
// unreadable inputs abort the run; artifact write failures are logged only.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
    ctx, end := tracing.StartSpan(ctx, "pipeline.run")
    defer end()

    seeds, err := p.opts.Discovery.Seeds(ctx)
    if err != nil { return nil, fmt.Errorf("seed discovery: %w", err) }
    if len(seeds) == 0 { return nil, ErrNoSeeds }

    addrs := p.opts.Crawler.Crawl(ctx, seeds)
    fmt.Fprintf(p.out, "ips: %d\n", addrs.Len())

    recs, err := p.opts.Resolver.Resolve(ctx, addrs)
    if err != nil { return nil, fmt.Errorf("geo resolution: %w", err) }

    counts := aggregate.Aggregate(recs)
    p.printCounts("countries", counts.Countries)
    p.printCounts("country codes", counts.CountryCodes)
    p.printCounts("orgs", counts.Orgs)
    obsmetrics.NodesPerCountry.Reset()
    for code, n := range counts.CountryCodes {
        obsmetrics.NodesPerCountry.WithLabelValues(code).Set(float64(n))
    }

    _, oend := tracing.StartSpan(ctx, "pipeline.overlay")
    world, err := overlay.Load(p.opts.WorldPath)
    if err != nil { oend(); return nil, fmt.Errorf("world geometry: %w", err) }
    nodes := overlay.Build(world, counts.CountryCodes, p.opts.ISOKey)
    oend()
    if p.opts.OverlayPath != "" {
        err := overlay.Save(p.opts.OverlayPath, nodes)
        obsmetrics.ArtifactWrites.WithLabelValues("overlay", obsmetrics.Result(err)).Inc()
        if err != nil {
            logutil.Errorf(p.log, "pipeline: writing overlay: %v", err)
        } else {
            fmt.Fprintf(p.out, "overlay with %d countries saved to %s\n", len(nodes.Features), p.opts.OverlayPath)
        }
    }

    rep := &Report{GeneratedAt: time.Now().UTC(), Addresses: addrs.Sorted(), Records: recs, Counts: counts, Overlay: nodes}
    p.mu.Lock()
    p.last = rep
    p.mu.Unlock()
    return rep, nil
}

func (p *Pipeline) printCounts(title string, c aggregate.Counts) {
    fmt.Fprintf(p.out, "%s (%d):\n", title, len(c))
    tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
    for _, e := range c.Sorted() {
        fmt.Fprintf(tw, "  %s\t%d\n", e.Key, e.Count)
    }
    _ = tw.Flush()
}

// Last returns the report of the most recent successful run, or nil.
func (p *Pipeline) Last() *Report {
    p.mu.RLock(); defer p.mu.RUnlock()
    return p.last
}

// SummaryJSON serves the last summary; it matches transport.ReportFunc.
func (p *Pipeline) SummaryJSON(context.Context) ([]byte, error) {
    rep := p.Last()
    if rep == nil { return nil, fmt.Errorf("pipeline: no completed run") }
    return json.Marshal(rep.Summary())
}

// OverlayJSON serves the last overlay; it matches transport.ReportFunc.
func (p *Pipeline) OverlayJSON(context.Context) ([]byte, error) {
    rep := p.Last()
    if rep == nil { return nil, fmt.Errorf("pipeline: no completed run") }
    return json.Marshal(rep.Overlay)
}
