package aggregate

import (
    "sort"

    "github.com/amirimatin/go-nodegeo/pkg/geo"
)

// Unknown is the key records without a country, country code or org are
// counted under.
const Unknown = "unknown"

// Counts maps a key (country name, ISO alpha-2 code or org) to the number of
// nodes carrying it.
type Counts map[string]int

// Result holds the three frequency tables of a run.
type Result struct {
    Countries    Counts `json:"countries"`
    CountryCodes Counts `json:"countryCodes"`
    Orgs         Counts `json:"orgs"`
}

// Aggregate counts records by country, by country code and by org in a
// single pass. Keys are compared verbatim; only empty values are folded
// into Unknown.
func Aggregate(recs []geo.Record) Result {
    res := Result{Countries: Counts{}, CountryCodes: Counts{}, Orgs: Counts{}}
    for _, r := range recs {
        res.Countries[key(r.Country)]++
        res.CountryCodes[key(r.CountryCode)]++
        res.Orgs[key(r.Org)]++
    }
    return res
}

func key(v string) string {
    if v == "" { return Unknown }
    return v
}

// Entry is one row of a sorted table.
type Entry struct {
    Key   string `json:"key"`
    Count int    `json:"count"`
}

// Sorted returns the table ordered by count descending, then key.
func (c Counts) Sorted() []Entry {
    out := make([]Entry, 0, len(c))
    for k, v := range c { out = append(out, Entry{Key: k, Count: v}) }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Count != out[j].Count { return out[i].Count > out[j].Count }
        return out[i].Key < out[j].Key
    })
    return out
}

// Total sums all counts.
func (c Counts) Total() int {
    n := 0
    for _, v := range c { n += v }
    return n
}
