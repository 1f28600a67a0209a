package peers

import (
    "encoding/json"
    "sort"
    "strings"
)

// HandshakeSentinel is reported as remoteAddress by peers still negotiating.
const HandshakeSentinel = "Handshake"

// Network carries the connection details of a peer as reported by the node.
type Network struct {
    RemoteAddress *string `json:"remoteAddress,omitempty"`
    LocalAddress  string  `json:"localAddress,omitempty"`
}

// Record is a single entry of a parity_netPeers peer list. Only the fields
// used for address extraction are typed; protocol payloads stay raw so that
// presence can be checked without caring about their shape.
type Record struct {
    ID        string                     `json:"id,omitempty"`
    Name      string                     `json:"name,omitempty"`
    Network   *Network                   `json:"network,omitempty"`
    Protocols map[string]json.RawMessage `json:"protocols,omitempty"`
}

// HasProtocol reports whether the peer advertises the named protocol.
// Falsy JSON values (null, false, 0, "") count as absent.
func (r Record) HasProtocol(name string) bool {
    raw, ok := r.Protocols[name]
    if !ok { return false }
    switch s := strings.TrimSpace(string(raw)); s {
    case "", "null", "false", `""`:
        return false
    default:
        var f float64
        if err := json.Unmarshal(raw, &f); err == nil { return f != 0 }
        return true
    }
}

// NetPeers is the result object of parity_netPeers.
type NetPeers struct {
    Active    int      `json:"active"`
    Connected int      `json:"connected"`
    Max       int      `json:"max"`
    Peers     []Record `json:"peers"`
}

// UnmarshalJSON decodes the peer list record by record. A record of an
// unexpected shape is dropped; its siblings are kept.
func (n *NetPeers) UnmarshalJSON(b []byte) error {
    var raw struct {
        Active    int               `json:"active"`
        Connected int               `json:"connected"`
        Max       int               `json:"max"`
        Peers     []json.RawMessage `json:"peers"`
    }
    if err := json.Unmarshal(b, &raw); err != nil { return err }
    *n = NetPeers{Active: raw.Active, Connected: raw.Connected, Max: raw.Max, Peers: DecodeRecords(raw.Peers)}
    return nil
}

// DecodeRecords decodes each raw peer record, skipping malformed ones.
func DecodeRecords(raw []json.RawMessage) []Record {
    out := make([]Record, 0, len(raw))
    for _, m := range raw {
        var r Record
        if err := json.Unmarshal(m, &r); err != nil { continue }
        out = append(out, r)
    }
    return out
}

// Document is a full JSON-RPC response carrying a peer list, the format the
// seed file is captured in.
type Document struct {
    ID      json.RawMessage `json:"id,omitempty"`
    JSONRPC string          `json:"jsonrpc,omitempty"`
    Result  NetPeers        `json:"result"`
}

// NewRecord builds a usable record for a bare host, e.g. for seeds that do
// not come from a peer list.
func NewRecord(host string) Record {
    h := host
    return Record{
        Network:   &Network{RemoteAddress: &h},
        Protocols: map[string]json.RawMessage{"pip": json.RawMessage("{}")},
    }
}

// ExtractAddresses returns the bare host of every usable peer in input order.
// Peers without a network section, without a remote address, still in
// handshake or without pip support are skipped. A ":port" suffix is removed
// when the first colon is not at position 0. Duplicates are kept.
func ExtractAddresses(records []Record) []string {
    out := make([]string, 0, len(records))
    for _, r := range records {
        if r.Network == nil || r.Network.RemoteAddress == nil { continue }
        addr := *r.Network.RemoteAddress
        if addr == HandshakeSentinel || addr == "" { continue }
        if !r.HasProtocol("pip") { continue }
        if i := strings.IndexByte(addr, ':'); i > 0 {
            addr = addr[:i]
        }
        out = append(out, addr)
    }
    return out
}

// AddressSet is an unordered set of bare peer addresses.
type AddressSet map[string]struct{}

// NewAddressSet returns a set holding the given addresses.
func NewAddressSet(addrs ...string) AddressSet {
    s := make(AddressSet, len(addrs))
    s.Add(addrs...)
    return s
}

func (s AddressSet) Add(addrs ...string) {
    for _, a := range addrs {
        if a == "" { continue }
        s[a] = struct{}{}
    }
}

func (s AddressSet) Has(addr string) bool { _, ok := s[addr]; return ok }

func (s AddressSet) Len() int { return len(s) }

// Sorted returns the members in lexical order.
func (s AddressSet) Sorted() []string {
    out := make([]string, 0, len(s))
    for a := range s { out = append(out, a) }
    sort.Strings(out)
    return out
}
