package cache

import (
    "context"
    "encoding/json"
    "errors"
    "os"
    "path/filepath"
    "time"
)

// DiskStore keeps one JSON file per key under Dir. File names are the digest
// of the key so arbitrary keys are safe on any filesystem.
type DiskStore struct {
    Dir         string
    // StrictPerms, when true, enforces 0700 on cache directories and 0600 on
    // files to provide at-rest protection via restricted permissions.
    StrictPerms bool

    now func() time.Time
}

// diskEntry is the on-disk envelope.
type diskEntry struct {
    Key       string    `json:"key"`
    SavedAt   time.Time `json:"saved_at"`
    ExpiresAt time.Time `json:"expires_at,omitempty"`
    Value     []byte    `json:"value"`
}

func (c *DiskStore) clock() time.Time {
    if c.now != nil {
        return c.now()
    }
    return time.Now()
}

func (c *DiskStore) ensureDir() error {
    if c == nil || c.Dir == "" {
        return errors.New("cache dir not configured")
    }
    perm := os.FileMode(0o755)
    if c.StrictPerms {
        perm = 0o700
    }
    if err := os.MkdirAll(c.Dir, perm); err != nil {
        return err
    }
    // If directory already existed and StrictPerms is on, tighten perms
    if c.StrictPerms {
        if info, err := os.Stat(c.Dir); err == nil {
            if info.Mode()&0o777 != 0o700 {
                _ = os.Chmod(c.Dir, 0o700)
            }
        }
    }
    return nil
}

// PathFor returns the file that holds key.
func (c *DiskStore) PathFor(key string) string {
    return filepath.Join(c.Dir, Digest(key)+".json")
}

// Get returns cached bytes if present and unexpired.
func (c *DiskStore) Get(_ context.Context, key string) ([]byte, bool, error) {
    if err := c.ensureDir(); err != nil {
        return nil, false, err
    }
    p := c.PathFor(key)
    b, err := os.ReadFile(p)
    if err != nil {
        return nil, false, nil
    }
    var e diskEntry
    if err := json.Unmarshal(b, &e); err != nil || e.Key != key {
        return nil, false, nil
    }
    if expired(c.clock(), e.ExpiresAt) {
        _ = os.Remove(p)
        return nil, false, nil
    }
    return e.Value, true, nil
}

// Set writes the entry through a temp file so readers never observe a
// partial envelope.
func (c *DiskStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
    if err := c.ensureDir(); err != nil {
        return err
    }
    now := c.clock()
    b, err := json.Marshal(diskEntry{Key: key, SavedAt: now.UTC(), ExpiresAt: expiry(now, ttl).UTC(), Value: value})
    if err != nil {
        return err
    }
    mode := os.FileMode(0o644)
    if c.StrictPerms {
        mode = 0o600
    }
    p := c.PathFor(key)
    tmp, err := os.CreateTemp(c.Dir, ".tmp-*")
    if err != nil {
        return err
    }
    tmpName := tmp.Name()
    if _, err := tmp.Write(b); err != nil {
        tmp.Close()
        os.Remove(tmpName)
        return err
    }
    if err := tmp.Close(); err != nil {
        os.Remove(tmpName)
        return err
    }
    if err := os.Chmod(tmpName, mode); err != nil {
        os.Remove(tmpName)
        return err
    }
    return os.Rename(tmpName, p)
}

// PurgeExpired removes entries whose envelope has expired.
func (c *DiskStore) PurgeExpired(_ context.Context) (int, error) {
    if c == nil || c.Dir == "" {
        return 0, errors.New("cache dir not configured")
    }
    now := c.clock()
    return purgeEntries(c.Dir, func(e diskEntry, _ os.FileInfo) bool {
        return expired(now, e.ExpiresAt)
    })
}
