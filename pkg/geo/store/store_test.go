package store

import (
    "os"
    "path/filepath"
    "testing"

    "github.com/amirimatin/go-nodegeo/pkg/geo"
)

var sample = []geo.Record{
    {IP: "1.2.3.4", Country: "United States", CountryCode: "US", Org: "AS1 Example"},
    {IP: "5.6.7.8", Country: "Germany", CountryCode: "DE", Org: "AS2 Beispiel"},
}

func checkStore(t *testing.T, s geo.Store) {
    t.Helper()
    if _, ok, err := s.Load(); err != nil || ok {
        t.Fatalf("expected empty store, ok=%v err=%v", ok, err)
    }
    if err := s.Save(sample); err != nil { t.Fatalf("save: %v", err) }
    got, ok, err := s.Load()
    if err != nil || !ok { t.Fatalf("load: ok=%v err=%v", ok, err) }
    if len(got) != len(sample) {
        t.Fatalf("len mismatch: got %d want %d", len(got), len(sample))
    }
    for i := range sample {
        if got[i] != sample[i] { t.Fatalf("item %d: got %#v want %#v", i, got[i], sample[i]) }
    }
}

func TestFileStore(t *testing.T) {
    checkStore(t, NewFile(filepath.Join(t.TempDir(), "output", "geo_results.json")))
}

func TestFileStoreFormat(t *testing.T) {
    p := filepath.Join(t.TempDir(), "geo_results.json")
    if err := NewFile(p).Save(sample[:1]); err != nil { t.Fatal(err) }
    data, err := os.ReadFile(p)
    if err != nil { t.Fatal(err) }
    want := `[{"ip":"1.2.3.4","country":"United States","countryCode":"US","org":"AS1 Example"}]`
    if string(data) != want { t.Fatalf("unexpected file:\n got: %s\nwant: %s", data, want) }
}

func TestFileStoreCorrupt(t *testing.T) {
    p := filepath.Join(t.TempDir(), "geo_results.json")
    if err := os.WriteFile(p, []byte("{not json"), 0o644); err != nil { t.Fatal(err) }
    if _, _, err := NewFile(p).Load(); err == nil { t.Fatalf("expected decode error") }
}

func TestEmptyResultSetIsAHit(t *testing.T) {
    s := NewFile(filepath.Join(t.TempDir(), "geo_results.json"))
    if err := s.Save(nil); err != nil { t.Fatal(err) }
    got, ok, err := s.Load()
    if err != nil || !ok || len(got) != 0 { t.Fatalf("expected empty hit, got %v ok=%v err=%v", got, ok, err) }
}

func TestBoltStore(t *testing.T) {
    checkStore(t, NewBolt(filepath.Join(t.TempDir(), "geo.db")))
}
