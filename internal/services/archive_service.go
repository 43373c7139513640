package services

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveStorage is the object store the audit archiver exports
// entitlement-change batches to.
type ArchiveStorage interface {
	EnsureBucketExists(ctx context.Context, bucketName string) error
	PutJSON(ctx context.Context, bucketName, objectName string, payload any) error
}

type minioArchiveStorage struct {
	client *minio.Client
}

func NewMinioArchiveStorage(endpoint, accessKey, secretKey string, useSSL bool) (ArchiveStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioArchiveStorage{client: client}, nil
}

func (m *minioArchiveStorage) EnsureBucketExists(ctx context.Context, bucketName string) error {
	found, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *minioArchiveStorage) PutJSON(ctx context.Context, bucketName, objectName string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = m.client.PutObject(ctx, bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}
