package ipapi

import (
    "context"
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"
)

func TestLookup(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/json/1.2.3.4" { t.Errorf("unexpected path %s", r.URL.Path) }
        _, _ = w.Write([]byte(`{"status":"success","query":"1.2.3.4","country":"Germany","countryCode":"DE","org":"","as":"AS24940 Hetzner Online GmbH"}`))
    }))
    defer srv.Close()

    rec, err := New(Options{BaseURL: srv.URL + "/json"}).Lookup(context.Background(), "1.2.3.4")
    if err != nil { t.Fatalf("lookup: %v", err) }
    if rec.IP != "1.2.3.4" || rec.Country != "Germany" || rec.CountryCode != "DE" || rec.Org != "AS24940 Hetzner Online GmbH" {
        t.Fatalf("unexpected record %#v", rec)
    }
}

func TestLookupFailStatus(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _, _ = w.Write([]byte(`{"status":"fail","message":"private range","query":"10.0.0.1"}`))
    }))
    defer srv.Close()

    if _, err := New(Options{BaseURL: srv.URL}).Lookup(context.Background(), "10.0.0.1"); err == nil {
        t.Fatalf("expected error for failed lookup")
    }
}

func TestLookupRetriesRateLimited(t *testing.T) {
    var calls atomic.Int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if calls.Add(1) == 1 {
            w.WriteHeader(http.StatusTooManyRequests)
            return
        }
        _, _ = w.Write([]byte(`{"status":"success","query":"1.2.3.4","country":"France","countryCode":"FR","org":"OVH SAS"}`))
    }))
    defer srv.Close()

    rec, err := New(Options{BaseURL: srv.URL}).Lookup(context.Background(), "1.2.3.4")
    if err != nil { t.Fatalf("lookup: %v", err) }
    if rec.CountryCode != "FR" || calls.Load() != 2 {
        t.Fatalf("unexpected record %#v after %d calls", rec, calls.Load())
    }
}
