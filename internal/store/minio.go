package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioSheetStore keeps each user's sheet as a JSON object in a bucket.
type MinioSheetStore struct {
	client *minio.Client
	bucket string
}

func NewMinioSheetStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioSheetStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return newMinioSheetStore(client, bucket), nil
}

func newMinioSheetStore(client *minio.Client, bucket string) *MinioSheetStore {
	return &MinioSheetStore{client: client, bucket: bucket}
}

// sheetKey escapes the username so it cannot introduce path segments.
func sheetKey(username string) string {
	return "sheets/" + url.PathEscape(username) + ".json"
}

func (s *MinioSheetStore) SaveSheet(ctx context.Context, username string, doc []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, sheetKey(username), bytes.NewReader(doc), int64(len(doc)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("minio save sheet: %w", err)
	}
	return nil
}

func (s *MinioSheetStore) LoadSheet(ctx context.Context, username string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, sheetKey(username), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio load sheet: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, fmt.Errorf("minio load sheet: %w", err)
	}
	return data, nil
}
