package pipeline

import (
    "errors"
    "io"
    "log"

    "github.com/amirimatin/go-nodegeo/pkg/crawler"
    "github.com/amirimatin/go-nodegeo/pkg/discovery"
    "github.com/amirimatin/go-nodegeo/pkg/geo"
)

var (
    ErrNoSeeds = errors.New("pipeline: seed list is empty")
)

// Options carries the components of a run. Instances are typically produced
// from bootstrap.Config.
type Options struct {
    // Discovery provides the seed peer list.
    Discovery discovery.Discovery
    // Crawler expands the seeds into the address set.
    Crawler *crawler.Crawler
    // Resolver turns addresses into geo records.
    Resolver *geo.Resolver

    // WorldPath is the reference country geometry (GeoJSON).
    WorldPath string
    // OverlayPath receives the node overlay; empty skips the write.
    OverlayPath string
    // ISOKey is the feature property joined against country codes.
    ISOKey string

    // Logger reports operational messages.
    Logger *log.Logger
    // Out receives the human-readable summaries; nil discards them.
    Out io.Writer
}

// Validate performs a minimal validation of Options.
func (o Options) Validate() error {
    if o.Discovery == nil {
        return errors.New("pipeline: nil Discovery")
    }
    if o.Crawler == nil {
        return errors.New("pipeline: nil Crawler")
    }
    if o.Resolver == nil {
        return errors.New("pipeline: nil Resolver")
    }
    if o.WorldPath == "" {
        return errors.New("pipeline: empty WorldPath")
    }
    return nil
}
