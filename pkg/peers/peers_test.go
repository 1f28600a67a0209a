package peers

import (
    "encoding/json"
    "testing"
)

const sample = `{"jsonrpc":"2.0","id":1,"result":{"active":4,"connected":5,"max":50,"peers":[
 {"id":"a","network":{"remoteAddress":"10.0.0.1:30303"},"protocols":{"pip":{"version":1}}},
 {"id":"b","network":{"remoteAddress":"Handshake"},"protocols":{"pip":{}}},
 {"id":"c","network":{"remoteAddress":""},"protocols":{"pip":{}}},
 {"id":"d","network":{"remoteAddress":"10.0.0.2:30303"},"protocols":{"eth":{}}},
 {"id":"e","protocols":{"pip":{}}},
 {"id":"f","network":{},"protocols":{"pip":{}}},
 {"id":"g","network":{"remoteAddress":":abcd"},"protocols":{"pip":{}}},
 {"id":"h","network":{"remoteAddress":"10.0.0.3"},"protocols":{"pip":null}},
 {"id":"i","network":{"remoteAddress":"10.0.0.4"}},
 {"id":"j","network":{"remoteAddress":"10.0.0.1:40404"},"protocols":{"pip":{}}}
]}}`

func TestExtractAddressesFiltersAndStripsPort(t *testing.T) {
    var doc Document
    if err := json.Unmarshal([]byte(sample), &doc); err != nil { t.Fatal(err) }
    got := ExtractAddresses(doc.Result.Peers)
    want := []string{"10.0.0.1", ":abcd", "10.0.0.1"}
    if len(got) != len(want) {
        t.Fatalf("len mismatch: got %d want %d (%#v)", len(got), len(want), got)
    }
    for i := range want {
        if got[i] != want[i] {
            t.Fatalf("item %d: got %q want %q (%#v)", i, got[i], want[i], got)
        }
    }
}

func TestExtractAddressesEmpty(t *testing.T) {
    if got := ExtractAddresses(nil); len(got) != 0 {
        t.Fatalf("expected no addresses, got %#v", got)
    }
}

func TestNewRecordIsUsable(t *testing.T) {
    got := ExtractAddresses([]Record{NewRecord("1.2.3.4:30303"), NewRecord("")})
    if len(got) != 1 || got[0] != "1.2.3.4" {
        t.Fatalf("unexpected addresses: %#v", got)
    }
}

func TestAddressSet(t *testing.T) {
    s := NewAddressSet("b", "a", "b", "")
    if s.Len() != 2 { t.Fatalf("expected 2 members, got %d", s.Len()) }
    if !s.Has("a") || s.Has("") { t.Fatalf("unexpected membership: %#v", s) }
    got := s.Sorted()
    if got[0] != "a" || got[1] != "b" { t.Fatalf("unexpected order: %#v", got) }
}

func TestMalformedRecordsAreDropped(t *testing.T) {
    doc := `{"result":{"peers":[
     {"network":{"remoteAddress":"5.6.7.8:30303"},"protocols":{"pip":{}}},
     {"network":{"remoteAddress":null},"protocols":[]},
     {"network":{"remoteAddress":12345},"protocols":{"pip":{}}},
     "garbage",
     {"network":{"remoteAddress":"9.9.9.9"},"protocols":{"pip":{}}}]}}`
    var d Document
    if err := json.Unmarshal([]byte(doc), &d); err != nil { t.Fatalf("decode: %v", err) }
    got := ExtractAddresses(d.Result.Peers)
    if len(got) != 2 || got[0] != "5.6.7.8" || got[1] != "9.9.9.9" {
        t.Fatalf("unexpected addresses %#v", got)
    }
}

func TestFalsyProtocolIsAbsent(t *testing.T) {
    cases := map[string]bool{`{}`: true, `{"version":1}`: true, `1`: true, `"x"`: true, `true`: true,
        `null`: false, `false`: false, `0`: false, `""`: false, `0.0`: false}
    for raw, want := range cases {
        r := Record{Protocols: map[string]json.RawMessage{"pip": json.RawMessage(raw)}}
        if got := r.HasProtocol("pip"); got != want {
            t.Fatalf("pip=%s: got %v want %v", raw, got, want)
        }
    }
}
