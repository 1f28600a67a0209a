package store

import (
    "encoding/json"
    "fmt"
    "os"

    "github.com/amirimatin/go-nodegeo/pkg/geo"
    "github.com/amirimatin/go-nodegeo/pkg/internal/fileutil"
)

// FileStore keeps the result set as a flat JSON list in a single file.
type FileStore struct {
    Path string
}

func NewFile(path string) *FileStore { return &FileStore{Path: path} }

// Load returns ok=false when the file does not exist.
func (s *FileStore) Load() ([]geo.Record, bool, error) {
    data, err := os.ReadFile(s.Path)
    if err != nil {
        if os.IsNotExist(err) { return nil, false, nil }
        return nil, false, err
    }
    var recs []geo.Record
    if err := json.Unmarshal(data, &recs); err != nil {
        return nil, false, fmt.Errorf("store: decode %s: %w", s.Path, err)
    }
    return recs, true, nil
}

// Save writes the result set through a temp file and rename so a crash
// never leaves a truncated cache behind.
func (s *FileStore) Save(recs []geo.Record) error {
    if recs == nil { recs = []geo.Record{} }
    data, err := json.Marshal(recs)
    if err != nil { return err }
    return fileutil.WriteAtomic(s.Path, data)
}

var _ geo.Store = (*FileStore)(nil)
