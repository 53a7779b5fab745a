package store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore holds appointment confirmation slips in a MinIO bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
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

	return &MinioStore{client: client, bucket: bucket}, nil
}

// SlipKey is the object key of an appointment's confirmation slip.
func SlipKey(patientID, appointmentID int64) string {
	return fmt.Sprintf("appointments/%d/%d.txt", patientID, appointmentID)
}

// PutSlip stores a plain-text confirmation slip and returns its key.
func (s *MinioStore) PutSlip(ctx context.Context, patientID, appointmentID int64, body []byte) (string, error) {
	key := SlipKey(patientID, appointmentID)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	return key, nil
}

// GetSlip fetches a slip. A missing object is reported as ErrNotFound.
func (s *MinioStore) GetSlip(ctx context.Context, patientID, appointmentID int64) ([]byte, error) {
	key := SlipKey(patientID, appointmentID)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, slipErr(key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, slipErr(key, err)
	}
	return data, nil
}

func slipErr(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("minio get %s: %w", key, ErrNotFound)
	}
	return fmt.Errorf("minio get %s: %w", key, err)
}
