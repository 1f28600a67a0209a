package geo

import (
    "context"
    "errors"
)

// ErrLookup wraps failures of the external geolocation service.
var ErrLookup = errors.New("geo: lookup failed")

// Record is the resolved location and network owner of one address.
type Record struct {
    IP          string `json:"ip"`
    Country     string `json:"country"`
    CountryCode string `json:"countryCode"`
    Org         string `json:"org"`
}

// Locator looks up a single address with an external geolocation service.
type Locator interface {
    Lookup(ctx context.Context, ip string) (Record, error)
}

// Store persists a complete result set. Load reports ok=false when nothing
// has been stored yet.
type Store interface {
    Load() (recs []Record, ok bool, err error)
    Save(recs []Record) error
}
