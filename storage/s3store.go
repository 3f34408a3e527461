package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/minio/minio-go/v7"
)

/*
Storage provider for S3-compatible object storage. We use the minio client
library.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	minioErrNoSuchKey = "NoSuchKey"
)

type S3Store struct {
	mc     *minio.Client
	bucket string
}

func NewS3Store(mc *minio.Client, bucket string) *S3Store {
	return &S3Store{
		mc:     mc,
		bucket: bucket,
	}
}

// Put stores the data in the object store.
func (s *S3Store) Put(ctx context.Context, id string, data []byte) error {
	n := int64(len(data))
	_, err := s.mc.PutObject(
		ctx,
		s.bucket,
		id,
		bytes.NewReader(data),
		n,
		minio.PutObjectOptions{},
	)
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// Get opens an object in the object store. The object is streamed as it is
// read.
func (s *S3Store) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == minioErrNoSuchKey {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return obj, nil
}

// Stat describes an object in the object store. The version is its ETag.
func (s *S3Store) Stat(ctx context.Context, id string) (ObjectInfo, error) {
	info, err := s.mc.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == minioErrNoSuchKey {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}
	return ObjectInfo{Size: info.Size, Version: info.ETag}, nil
}

// List returns the sorted IDs of objects with the given prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	ids := []string{}
	for info := range s.mc.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", info.Err)
		}
		ids = append(ids, info.Key)
	}
	slices.Sort(ids)
	return ids, nil
}

// Delete removes an object from the object store.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if err := s.mc.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == minioErrNoSuchKey {
			return nil
		}
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

func (s *S3Store) String() string {
	return fmt.Sprintf("s3(%s)", s.bucket)
}
