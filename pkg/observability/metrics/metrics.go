package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    PeerFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "nodegeo",
        Subsystem: "crawl",
        Name:      "peer_fetches_total",
        Help:      "Total parity_netPeers calls issued, by result",
    }, []string{"result"})

    PeersDiscovered = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "nodegeo",
        Subsystem: "crawl",
        Name:      "peers_discovered_total",
        Help:      "Total usable peer addresses returned by second-hop fetches (before dedup)",
    })

    CrawlAddresses = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "nodegeo",
        Subsystem: "crawl",
        Name:      "addresses",
        Help:      "Unique addresses found by the last crawl",
    })

    GeoLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "nodegeo",
        Subsystem: "geo",
        Name:      "lookups_total",
        Help:      "Total geolocation lookups, by result",
    }, []string{"result"})

    GeoCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "nodegeo",
        Subsystem: "geo",
        Name:      "cache_hits_total",
        Help:      "Total resolutions served entirely from the persisted result set",
    })

    NodesPerCountry = prometheus.NewGaugeVec(prometheus.GaugeOpts{
        Namespace: "nodegeo",
        Name:      "nodes_per_country",
        Help:      "Nodes located in each ISO alpha-2 country code by the last run",
    }, []string{"country_code"})

    ArtifactWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "nodegeo",
        Name:      "artifact_writes_total",
        Help:      "Total artifact writes, by artifact and result",
    }, []string{"artifact", "result"})
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(PeerFetches)
        prometheus.MustRegister(PeersDiscovered)
        prometheus.MustRegister(CrawlAddresses)
        prometheus.MustRegister(GeoLookups)
        prometheus.MustRegister(GeoCacheHits)
        prometheus.MustRegister(NodesPerCountry)
        prometheus.MustRegister(ArtifactWrites)
    })
}

// Result maps an error to a result label.
func Result(err error) string {
    if err != nil { return "error" }
    return "ok"
}
