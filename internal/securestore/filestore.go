package securestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a Backend kept in a JSON file readable only by the owner.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type fileStoreData struct {
	Entries map[string]string `json:"entries"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) load() (fileStoreData, error) {
	data := fileStoreData{Entries: make(map[string]string)}
	raw, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return data, err
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, err
	}
	if data.Entries == nil {
		data.Entries = make(map[string]string)
	}
	return data, nil
}

func (fs *FileStore) save(data fileStoreData) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, fs.path)
}

func entryKey(service, user string) string {
	return service + ":" + user
}

func (fs *FileStore) Get(service, user string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := fs.load()
	if err != nil {
		return "", err
	}
	v, ok := data.Entries[entryKey(service, user)]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (fs *FileStore) Set(service, user, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := fs.load()
	if err != nil {
		return err
	}
	data.Entries[entryKey(service, user)] = value
	return fs.save(data)
}

func (fs *FileStore) Delete(service, user string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := fs.load()
	if err != nil {
		return err
	}
	key := entryKey(service, user)
	if _, ok := data.Entries[key]; !ok {
		return ErrNotFound
	}
	delete(data.Entries, key)
	return fs.save(data)
}
