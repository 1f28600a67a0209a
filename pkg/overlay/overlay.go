package overlay

import (
    "bytes"
    "encoding/json"
    "fmt"
    "os"

    "github.com/amirimatin/go-nodegeo/pkg/aggregate"
    "github.com/amirimatin/go-nodegeo/pkg/internal/fileutil"
)

// DefaultISOKey is the feature property holding the ISO alpha-2 code in the
// datasets/geo-countries dataset.
const DefaultISOKey = "ISO_A2"

// NodesKey is the property set on every kept feature.
const NodesKey = "nodes"

// Feature is one GeoJSON feature. Properties are kept raw and every other
// member (type, geometry, id...) passes through untouched.
type Feature struct {
    Properties map[string]json.RawMessage
    members    map[string]json.RawMessage
}

// Property returns the string value of a property, "" when absent or not a
// string.
func (f Feature) Property(key string) string {
    raw, ok := f.Properties[key]
    if !ok { return "" }
    var s string
    if err := json.Unmarshal(raw, &s); err != nil { return "" }
    return s
}

// Nodes returns the node count annotated on the feature.
func (f Feature) Nodes() int {
    var n int
    _ = json.Unmarshal(f.Properties[NodesKey], &n)
    return n
}

func (f *Feature) UnmarshalJSON(b []byte) error {
    var m map[string]json.RawMessage
    if err := json.Unmarshal(b, &m); err != nil { return err }
    f.Properties = nil
    if raw, ok := m["properties"]; ok {
        if !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
            if err := json.Unmarshal(raw, &f.Properties); err != nil { return fmt.Errorf("overlay: properties: %w", err) }
        }
        delete(m, "properties")
    }
    f.members = m
    return nil
}

func (f Feature) MarshalJSON() ([]byte, error) {
    m := make(map[string]interface{}, len(f.members)+1)
    for k, v := range f.members { m[k] = v }
    if f.Properties != nil {
        m["properties"] = f.Properties
    } else {
        m["properties"] = nil
    }
    return json.Marshal(m)
}

// Collection is a GeoJSON FeatureCollection. Members other than features
// pass through untouched.
type Collection struct {
    Features []Feature
    members  map[string]json.RawMessage
}

func (c *Collection) UnmarshalJSON(b []byte) error {
    var m map[string]json.RawMessage
    if err := json.Unmarshal(b, &m); err != nil { return err }
    c.Features = nil
    if raw, ok := m["features"]; ok {
        if err := json.Unmarshal(raw, &c.Features); err != nil { return fmt.Errorf("overlay: features: %w", err) }
        delete(m, "features")
    }
    c.members = m
    return nil
}

func (c Collection) MarshalJSON() ([]byte, error) {
    m := make(map[string]interface{}, len(c.members)+1)
    for k, v := range c.members { m[k] = v }
    features := c.Features
    if features == nil { features = []Feature{} }
    m["features"] = features
    return json.Marshal(m)
}

// Build returns a copy of world holding only the features whose isoKey
// property has a positive count, each annotated with that count under
// "nodes". Feature order follows world; world itself is not modified.
func Build(world Collection, counts aggregate.Counts, isoKey string) Collection {
    if isoKey == "" { isoKey = DefaultISOKey }
    out := Collection{Features: make([]Feature, 0), members: world.members}
    for _, f := range world.Features {
        n := counts[f.Property(isoKey)]
        if n <= 0 { continue }
        props := make(map[string]json.RawMessage, len(f.Properties)+1)
        for k, v := range f.Properties { props[k] = v }
        props[NodesKey] = json.RawMessage(fmt.Sprintf("%d", n))
        out.Features = append(out.Features, Feature{Properties: props, members: f.members})
    }
    return out
}

// Decode parses a GeoJSON document.
func Decode(data []byte) (Collection, error) {
    var c Collection
    if err := json.Unmarshal(data, &c); err != nil { return Collection{}, fmt.Errorf("overlay: decode: %w", err) }
    return c, nil
}

// Load reads the reference world geometry.
func Load(path string) (Collection, error) {
    data, err := os.ReadFile(path)
    if err != nil { return Collection{}, fmt.Errorf("overlay: %w", err) }
    return Decode(data)
}

// Save writes c as a single JSON document.
func Save(path string, c Collection) error {
    data, err := json.Marshal(c)
    if err != nil { return err }
    return fileutil.WriteAtomic(path, data)
}
