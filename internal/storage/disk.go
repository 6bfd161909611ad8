package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DiskStorage 本地目录存储，文件通过 /media/ 静态路由对外提供
type DiskStorage struct {
	// BasePath 当前进程可写的目录
	BasePath  string
	BaseURL   string
	dirs      map[string]bool
	dirsMutex sync.Mutex
}

func NewDiskStorage(basePath, baseURL string) *DiskStorage {
	return &DiskStorage{
		BasePath: basePath,
		BaseURL:  baseURL,
		dirs:     make(map[string]bool, 4),
	}
}

var errBadPath = errors.New("storage: path escapes base directory")

func (s *DiskStorage) fullPath(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if strings.Contains(clean, "..") {
		return "", errBadPath
	}
	return filepath.Join(s.BasePath, clean), nil
}

func (s *DiskStorage) createDir(dir string) error {
	s.dirsMutex.Lock()
	defer s.dirsMutex.Unlock()

	if s.dirs[dir] {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	s.dirs[dir] = true
	return nil
}

func (s *DiskStorage) Save(_ context.Context, path string, r io.Reader, _ string) error {
	fileName, err := s.fullPath(path)
	if err != nil {
		return err
	}
	if err := s.createDir(filepath.Dir(fileName)); err != nil {
		return err
	}
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	if _, err = io.Copy(file, r); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (s *DiskStorage) Delete(_ context.Context, path string) error {
	fileName, err := s.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fileName); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *DiskStorage) URL(path string) string {
	if path == "" {
		return ""
	}
	return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}
