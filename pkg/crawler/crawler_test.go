package crawler

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/amirimatin/go-nodegeo/pkg/peers"
    httpjson "github.com/amirimatin/go-nodegeo/pkg/transport/httpjson"
)

type mapFetcher struct {
    mu      sync.Mutex
    peers   map[string][]string
    calls   map[string]int
    inFlight atomic.Int32
    maxSeen  atomic.Int32
    delay    time.Duration
}

func (f *mapFetcher) FetchPeers(ctx context.Context, addr string) []string {
    n := f.inFlight.Add(1)
    defer f.inFlight.Add(-1)
    for {
        m := f.maxSeen.Load()
        if n <= m || f.maxSeen.CompareAndSwap(m, n) { break }
    }
    if f.delay > 0 { time.Sleep(f.delay) }
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.calls == nil { f.calls = map[string]int{} }
    f.calls[addr]++
    return append([]string(nil), f.peers[addr]...)
}

func records(addrs ...string) []peers.Record {
    out := make([]peers.Record, 0, len(addrs))
    for _, a := range addrs { out = append(out, peers.NewRecord(a)) }
    return out
}

func sameSet(t *testing.T, got peers.AddressSet, want ...string) {
    t.Helper()
    if got.Len() != len(want) {
        t.Fatalf("len mismatch: got %v want %v", got.Sorted(), want)
    }
    for _, w := range want {
        if !got.Has(w) { t.Fatalf("missing %q in %v", w, got.Sorted()) }
    }
}

func TestCrawlTwoHops(t *testing.T) {
    f := &mapFetcher{peers: map[string][]string{
        "1.2.3.4": {"5.6.7.8"},
        "5.6.7.8": {"9.9.9.9"},
    }}
    c := New(Options{Fetcher: f})
    got := c.Crawl(context.Background(), records("1.2.3.4:30303"))
    sameSet(t, got, "1.2.3.4", "5.6.7.8")
    if f.calls["5.6.7.8"] != 0 {
        t.Fatalf("second-hop peer must not be queried")
    }
}

func TestCrawlDuplicateSeedsIdempotent(t *testing.T) {
    pm := map[string][]string{"A": {"C", "A"}, "B": {"C", "D"}}
    withDup := New(Options{Fetcher: &mapFetcher{peers: pm}}).Crawl(context.Background(), records("A", "A", "B"))
    plain := New(Options{Fetcher: &mapFetcher{peers: pm}}).Crawl(context.Background(), records("A", "B"))
    sameSet(t, withDup, plain.Sorted()...)
    sameSet(t, plain, "A", "B", "C", "D")
}

func TestCrawlSequentialMatchesConcurrent(t *testing.T) {
    pm := map[string][]string{"A": {"X", "Y"}, "B": {"Y", "Z"}, "C": nil}
    seq := New(Options{Fetcher: &mapFetcher{peers: pm}, Concurrency: 1}).Crawl(context.Background(), records("A", "B", "C"))
    par := New(Options{Fetcher: &mapFetcher{peers: pm}, Concurrency: 8}).Crawl(context.Background(), records("A", "B", "C"))
    sameSet(t, par, seq.Sorted()...)
}

func TestCrawlCapsInFlight(t *testing.T) {
    var seeds []string
    for i := 0; i < 20; i++ { seeds = append(seeds, string(rune('a'+i))) }
    f := &mapFetcher{peers: map[string][]string{}, delay: 10 * time.Millisecond}
    New(Options{Fetcher: f, Concurrency: 3}).Crawl(context.Background(), records(seeds...))
    if m := f.maxSeen.Load(); m > 3 {
        t.Fatalf("expected at most 3 in flight, saw %d", m)
    }
}

type failingLister struct{}

func (failingLister) NetPeers(context.Context, string) ([]peers.Record, error) {
    return nil, errors.New("connection refused")
}

func TestRPCFetcherSwallowsErrors(t *testing.T) {
    f := NewRPCFetcher(failingLister{}, nil)
    if got := f.FetchPeers(context.Background(), "1.2.3.4"); len(got) != 0 {
        t.Fatalf("expected no peers, got %#v", got)
    }
}

func TestHungPeerDoesNotBlockOthers(t *testing.T) {
    block := make(chan struct{})
    hung := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        select {
        case <-block:
        case <-r.Context().Done():
        }
    }))
    defer hung.Close()
    defer close(block)
    ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"peers":[{"network":{"remoteAddress":"5.6.7.8:30303"},"protocols":{"pip":{}}}]}}`))
    }))
    defer ok.Close()

    lister := routedLister{
        client: httpjson.NewClient(200 * time.Millisecond),
        routes: map[string]string{
            "10.0.0.1": strings.TrimPrefix(hung.URL, "http://"),
            "10.0.0.2": strings.TrimPrefix(ok.URL, "http://"),
        },
    }
    c := New(Options{Fetcher: NewRPCFetcher(lister, nil), Concurrency: 2})
    start := time.Now()
    got := c.Crawl(context.Background(), records("10.0.0.1:30303", "10.0.0.2:30303"))
    if time.Since(start) > 2*time.Second {
        t.Fatalf("crawl took too long: %s", time.Since(start))
    }
    sameSet(t, got, "10.0.0.1", "10.0.0.2", "5.6.7.8")
}

// routedLister sends each seed to the test server standing in for it.
type routedLister struct {
    client *httpjson.Client
    routes map[string]string
}

func (l routedLister) NetPeers(ctx context.Context, host string) ([]peers.Record, error) {
    return l.client.NetPeers(ctx, l.routes[host])
}
