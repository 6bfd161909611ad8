package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/d60-Lab/gin-blog/config"
)

// Storage 帖子图片存储；path 为相对路径，如 posts/<uuid>.gif
type Storage interface {
	Save(ctx context.Context, path string, r io.Reader, contentType string) error
	Delete(ctx context.Context, path string) error
	// URL 返回可直接放进 <img src> 的地址
	URL(path string) string
}

// New 按配置创建存储后端
func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "disk":
		return NewDiskStorage(cfg.Dir, cfg.BaseURL), nil
	case "s3":
		return NewS3Storage(cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
