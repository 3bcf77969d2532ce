package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a ValueStore persisted as a small JSON file, so the user id
// survives process restarts the way localStorage does for browser hosts.
type FileStore struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// NewFileStore loads the store at path, creating an empty one if the file
// does not exist. A corrupt file is treated as empty rather than failing the
// host application.
func NewFileStore(path string) *FileStore {
	fs := &FileStore{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err == nil {
		json.Unmarshal(data, &fs.values)
		if fs.values == nil {
			fs.values = make(map[string]string)
		}
	}
	return fs
}

func (fs *FileStore) Get(key string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.values[key]
	return v, ok
}

func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.values[key] = value

	data, err := json.Marshal(fs.values)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(fs.path, data, 0o644)
}
