package store

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"

    raftboltdb "github.com/hashicorp/raft-boltdb"

    "github.com/amirimatin/go-nodegeo/pkg/geo"
)

var resultsKey = []byte("geo_results")

// BoltStore keeps the result set under a single key of a bolt database. The
// database is opened per call so the file is not held between runs.
type BoltStore struct {
    Path string
}

func NewBolt(path string) *BoltStore { return &BoltStore{Path: path} }

func (s *BoltStore) open() (*raftboltdb.BoltStore, error) {
    if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil { return nil, err }
    return raftboltdb.NewBoltStore(s.Path)
}

func (s *BoltStore) Load() ([]geo.Record, bool, error) {
    if _, err := os.Stat(s.Path); os.IsNotExist(err) { return nil, false, nil }
    db, err := s.open()
    if err != nil { return nil, false, err }
    defer db.Close()
    data, err := db.Get(resultsKey)
    if err != nil {
        if errors.Is(err, raftboltdb.ErrKeyNotFound) { return nil, false, nil }
        return nil, false, err
    }
    var recs []geo.Record
    if err := json.Unmarshal(data, &recs); err != nil {
        return nil, false, fmt.Errorf("store: decode %s: %w", s.Path, err)
    }
    return recs, true, nil
}

func (s *BoltStore) Save(recs []geo.Record) error {
    if recs == nil { recs = []geo.Record{} }
    data, err := json.Marshal(recs)
    if err != nil { return err }
    db, err := s.open()
    if err != nil { return err }
    defer db.Close()
    return db.Set(resultsKey, data)
}

var _ geo.Store = (*BoltStore)(nil)
