package logutil

import (
    "bytes"
    "encoding/json"
    "log"
    "strings"
    "testing"
)

func TestPlainPrefix(t *testing.T) {
    SetJSON(false)
    var buf bytes.Buffer
    l := log.New(&buf, "", 0)
    Warnf(l, "peer %s unreachable", "1.2.3.4")
    if got := buf.String(); got != "WARN peer 1.2.3.4 unreachable\n" {
        t.Fatalf("unexpected line %q", got)
    }
}

func TestJSONMode(t *testing.T) {
    SetJSON(true)
    defer SetJSON(false)
    var buf bytes.Buffer
    l := log.New(&buf, "", 0)
    Errorf(l, "lookup %d failed", 3)
    var evt map[string]string
    if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &evt); err != nil {
        t.Fatalf("not json: %q (%v)", buf.String(), err)
    }
    if evt["level"] != "error" || evt["msg"] != "lookup 3 failed" || evt["ts"] == "" {
        t.Fatalf("unexpected event %#v", evt)
    }
}
