package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ClearDir removes every cache entry under dir. Missing dir is not an error.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".meta.json") && !strings.HasSuffix(name, ".body") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// PurgeByAge removes entries whose recorded SavedAt is older than maxAge.
// A meta file and its body are always removed together so an entry can
// never be left with validators but no body. Returns the number of files
// removed.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
	if strings.TrimSpace(dir) == "" || maxAge <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".meta.json") {
			continue
		}
		key := strings.TrimSuffix(name, ".meta.json")
		metaPath := filepath.Join(dir, name)
		bodyPath := filepath.Join(dir, key+".body")

		b, err := os.ReadFile(metaPath)
		expired := false
		if err != nil {
			expired = true
		} else {
			var meta Entry
			if err := json.Unmarshal(b, &meta); err != nil || meta.SavedAt.IsZero() {
				expired = true
			} else {
				expired = meta.SavedAt.Before(cutoff)
			}
		}
		if !expired {
			continue
		}
		if err := os.Remove(metaPath); err == nil {
			removed++
		}
		if err := os.Remove(bodyPath); err == nil {
			removed++
		}
	}
	// Bodies with no meta can never be served; sweep them too.
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".body") {
			continue
		}
		key := strings.TrimSuffix(name, ".body")
		if _, err := os.Stat(filepath.Join(dir, key+".meta.json")); os.IsNotExist(err) {
			if err := os.Remove(filepath.Join(dir, name)); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
