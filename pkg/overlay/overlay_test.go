package overlay

import (
    "encoding/json"
    "path/filepath"
    "testing"

    "github.com/amirimatin/go-nodegeo/pkg/aggregate"
)

const world = `{"type":"FeatureCollection","name":"countries","features":[
 {"type":"Feature","properties":{"ADMIN":"United States","ISO_A2":"US"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
 {"type":"Feature","properties":{"ADMIN":"Germany","ISO_A2":"DE"},"geometry":{"type":"Polygon","coordinates":[[[2,2],[3,2],[3,3],[2,2]]]}},
 {"type":"Feature","properties":{"ADMIN":"France","ISO_A2":"FR"},"geometry":{"type":"MultiPolygon","coordinates":[[[[4,4],[5,4],[5,5],[4,4]]]]}},
 {"type":"Feature","properties":null,"geometry":null}
]}`

func TestBuildFiltersAndAnnotates(t *testing.T) {
    w, err := Decode([]byte(world))
    if err != nil { t.Fatal(err) }
    got := Build(w, aggregate.Counts{"US": 3, "FR": 1, "DE": 0}, "")
    if len(got.Features) != 2 {
        t.Fatalf("expected 2 features, got %d", len(got.Features))
    }
    if got.Features[0].Property("ISO_A2") != "US" || got.Features[0].Nodes() != 3 {
        t.Fatalf("unexpected first feature %#v", got.Features[0].Properties)
    }
    if got.Features[1].Property("ISO_A2") != "FR" || got.Features[1].Nodes() != 1 {
        t.Fatalf("unexpected second feature %#v", got.Features[1].Properties)
    }
    // input untouched
    if len(w.Features) != 4 || w.Features[0].Nodes() != 0 {
        t.Fatalf("world was modified")
    }
}

func TestBuildPassesThroughMembers(t *testing.T) {
    w, err := Decode([]byte(world))
    if err != nil { t.Fatal(err) }
    data, err := json.Marshal(Build(w, aggregate.Counts{"DE": 2}, DefaultISOKey))
    if err != nil { t.Fatal(err) }
    var doc struct {
        Type     string `json:"type"`
        Name     string `json:"name"`
        Features []struct {
            Type       string                 `json:"type"`
            Properties map[string]interface{} `json:"properties"`
            Geometry   struct {
                Type        string          `json:"type"`
                Coordinates json.RawMessage `json:"coordinates"`
            } `json:"geometry"`
        } `json:"features"`
    }
    if err := json.Unmarshal(data, &doc); err != nil { t.Fatal(err) }
    if doc.Type != "FeatureCollection" || doc.Name != "countries" || len(doc.Features) != 1 {
        t.Fatalf("unexpected document %s", data)
    }
    f := doc.Features[0]
    if f.Type != "Feature" || f.Properties["ADMIN"] != "Germany" || f.Properties["nodes"] != float64(2) {
        t.Fatalf("unexpected feature %s", data)
    }
    if f.Geometry.Type != "Polygon" || string(f.Geometry.Coordinates) != "[[[2,2],[3,2],[3,3],[2,2]]]" {
        t.Fatalf("geometry not passed through: %s", data)
    }
}

func TestBuildCustomKeyAndEmpty(t *testing.T) {
    w, err := Decode([]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"ISO3166-1-Alpha-2":"US"},"geometry":null}]}`))
    if err != nil { t.Fatal(err) }
    if got := Build(w, aggregate.Counts{"US": 1}, "ISO3166-1-Alpha-2"); len(got.Features) != 1 {
        t.Fatalf("custom key not used")
    }
    got := Build(w, aggregate.Counts{}, "")
    data, _ := json.Marshal(got)
    if string(data) != `{"features":[],"type":"FeatureCollection"}` {
        t.Fatalf("unexpected empty overlay %s", data)
    }
}

func TestSaveLoad(t *testing.T) {
    w, err := Decode([]byte(world))
    if err != nil { t.Fatal(err) }
    p := filepath.Join(t.TempDir(), "output", "nodes.geojson")
    if err := Save(p, Build(w, aggregate.Counts{"US": 5}, "")); err != nil { t.Fatal(err) }
    back, err := Load(p)
    if err != nil { t.Fatal(err) }
    if len(back.Features) != 1 || back.Features[0].Nodes() != 5 {
        t.Fatalf("unexpected reloaded overlay %#v", back.Features)
    }
}
