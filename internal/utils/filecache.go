package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileCache stores analyzer output on local disk so repeated ingestions in
// local development skip the remote analysis call. It is a no-op unless
// enabled.
type FileCache struct {
	dir     string
	enabled bool
}

func NewFileCache(dir string, enabled bool) (*FileCache, error) {
	if enabled {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
		}
	}
	return &FileCache{dir: dir, enabled: enabled}, nil
}

func (c *FileCache) Key(collectionID, fileName, leaseHash string) string {
	sanitized := strings.NewReplacer("/", "_", "\\", "_").Replace(fileName)
	return fmt.Sprintf("%s-%s-%s.json", collectionID, sanitized, leaseHash)
}

// Read returns (nil, nil) on a miss or when the cache is disabled.
func (c *FileCache) Read(key string, out any) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	raw, err := os.ReadFile(filepath.Join(c.dir, key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *FileCache) Write(key string, data any) error {
	if !c.enabled {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), raw, 0o644)
}
