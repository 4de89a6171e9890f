package service

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// BlobStore 文件落盘的抽象：文档版本组件只依赖这个接口
// 写顺序约定：先存文件，再写元数据；元数据失败时调用方负责 Remove 补偿
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (url string, err error)
	Remove(ctx context.Context, key string) error
}

// MinioStore 基于 MinIO 的实现
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("minio upload failed: %w", err)
	}
	return fmt.Sprintf("minio://%s/%s", s.bucket, key), nil
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
