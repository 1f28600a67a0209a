package ipapi

import (
    "context"
    "fmt"
    "net/http"
    "net/url"
    "strings"
    "time"

    "golang.org/x/time/rate"

    "github.com/amirimatin/go-nodegeo/pkg/geo"
)

// DefaultBaseURL is the free ip-api.com JSON endpoint.
const DefaultBaseURL = "http://ip-api.com/json"

// Options configures the ip-api.com locator.
type Options struct {
    BaseURL string
    Timeout time.Duration
    // Limiter throttles requests; the free tier allows 45 per minute.
    Limiter *rate.Limiter
}

// Locator resolves addresses with ip-api.com.
type Locator struct {
    base    string
    httpc   *http.Client
    limiter *rate.Limiter
}

func New(opts Options) *Locator {
    if opts.BaseURL == "" { opts.BaseURL = DefaultBaseURL }
    if opts.Timeout <= 0 { opts.Timeout = 5 * time.Second }
    return &Locator{base: strings.TrimRight(opts.BaseURL, "/"), httpc: &http.Client{Timeout: opts.Timeout}, limiter: opts.Limiter}
}

type response struct {
    Status      string `json:"status"`
    Message     string `json:"message"`
    Query       string `json:"query"`
    Country     string `json:"country"`
    CountryCode string `json:"countryCode"`
    Org         string `json:"org"`
    AS          string `json:"as"`
}

func (l *Locator) Lookup(ctx context.Context, ip string) (geo.Record, error) {
    u := fmt.Sprintf("%s/%s?fields=status,message,query,country,countryCode,org,as", l.base, url.PathEscape(ip))
    var resp response
    if err := geo.GetJSON(ctx, l.httpc, l.limiter, u, &resp); err != nil { return geo.Record{}, err }
    if resp.Status != "success" {
        return geo.Record{}, fmt.Errorf("ip-api %s: %s", ip, resp.Message)
    }
    org := resp.Org
    if org == "" { org = resp.AS }
    return geo.Record{IP: resp.Query, Country: resp.Country, CountryCode: resp.CountryCode, Org: org}, nil
}

var _ geo.Locator = (*Locator)(nil)
