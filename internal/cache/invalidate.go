package cache

import (
    "encoding/json"
    "errors"
    "io/fs"
    "os"
    "path/filepath"
    "strings"
    "time"
)

// ClearDir removes the directory and all contents. It recreates the directory
// afterwards to leave a valid empty cache location.
func ClearDir(dir string) error {
    if strings.TrimSpace(dir) == "" {
        return errors.New("empty dir")
    }
    if err := os.RemoveAll(dir); err != nil {
        return err
    }
    return os.MkdirAll(dir, 0o755)
}

// PurgeByAge removes disk entries saved more than maxAge ago, regardless of
// their TTL.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
    if maxAge <= 0 {
        return 0, nil
    }
    now := time.Now().UTC()
    return purgeEntries(dir, func(e diskEntry, info os.FileInfo) bool {
        saved := e.SavedAt
        if saved.IsZero() {
            saved = info.ModTime().UTC()
        }
        return now.Sub(saved) > maxAge
    })
}

// purgeEntries walks dir and deletes every cache file for which drop returns
// true. Unreadable and malformed files are skipped.
func purgeEntries(dir string, drop func(diskEntry, os.FileInfo) bool) (int, error) {
    removed := 0
    err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
        if err != nil {
            return err
        }
        if d.IsDir() {
            return nil
        }
        if !strings.HasSuffix(d.Name(), ".json") {
            return nil
        }
        b, err := os.ReadFile(path)
        if err != nil {
            return nil
        }
        var e diskEntry
        if err := json.Unmarshal(b, &e); err != nil {
            return nil
        }
        info, err := d.Info()
        if err != nil {
            return nil
        }
        if !drop(e, info) {
            return nil
        }
        if err := os.Remove(path); err == nil {
            removed++
        }
        return nil
    })
    return removed, err
}
