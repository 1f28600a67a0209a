package ipinfo

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

// DefaultBaseURL is the ipinfo.io Lite API, which carries the country name
// and AS owner needed for a record.
const DefaultBaseURL = "https://api.ipinfo.io/lite"

// TokenEnv names the environment variable read when no token is configured.
const TokenEnv = "NODEGEO_IPINFO_TOKEN"

// Options configures the ipinfo.io locator.
type Options struct {
    Token   string
    BaseURL string
    Timeout time.Duration
    Limiter *rate.Limiter
}

// Locator resolves addresses with ipinfo.io.
type Locator struct {
    base    string
    token   string
    httpc   *http.Client
    limiter *rate.Limiter
}

func New(opts Options) *Locator {
    if opts.BaseURL == "" { opts.BaseURL = DefaultBaseURL }
    if opts.Timeout <= 0 { opts.Timeout = 5 * time.Second }
    return &Locator{base: strings.TrimRight(opts.BaseURL, "/"), token: opts.Token, httpc: &http.Client{Timeout: opts.Timeout}, limiter: opts.Limiter}
}

type response struct {
    IP          string `json:"ip"`
    ASN         string `json:"asn"`
    ASName      string `json:"as_name"`
    Country     string `json:"country"`
    CountryCode string `json:"country_code"`
}

func (l *Locator) Lookup(ctx context.Context, ip string) (geo.Record, error) {
    u := fmt.Sprintf("%s/%s", l.base, url.PathEscape(ip))
    if l.token != "" { u += "?token=" + url.QueryEscape(l.token) }
    var resp response
    if err := geo.GetJSON(ctx, l.httpc, l.limiter, u, &resp); err != nil {
        return geo.Record{}, fmt.Errorf("ipinfo %s: %w", ip, err)
    }
    return geo.Record{IP: resp.IP, Country: resp.Country, CountryCode: resp.CountryCode, Org: org(resp.ASN, resp.ASName)}, nil
}

// org renders the owner like ipinfo's classic "org" field: "AS15169 Google LLC".
func org(asn, name string) string {
    return strings.TrimSpace(asn + " " + name)
}

var _ geo.Locator = (*Locator)(nil)
