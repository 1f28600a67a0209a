package fileutil

import (
    "os"
    "path/filepath"
)

// WriteAtomic writes data to path through a temp file in the same
// directory and a rename, creating parent directories as needed.
func WriteAtomic(path string, data []byte) error {
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { return err }
    tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
    if err != nil { return err }
    defer os.Remove(tmp.Name())
    if _, err := tmp.Write(data); err != nil { tmp.Close(); return err }
    if err := tmp.Close(); err != nil { return err }
    if err := os.Chmod(tmp.Name(), 0o644); err != nil { return err }
    return os.Rename(tmp.Name(), path)
}
