package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type localConfig struct {
	Dir string `json:"dir"`
}

type localStore struct {
	dir string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	return &localStore{dir: config.Dir}, nil
}

func (s *localStore) Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error {
	_ = ctx
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	out, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err = io.Copy(out, r)
	return err
}

func validKey(key string) error {
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid file key")
	}
	return nil
}
