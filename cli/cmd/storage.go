package cmd

import (
	"errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/wkalt/colq/storage"
)

// storageFlags selects the storage provider tables are read from and written
// to: a local directory or an S3 bucket.
type storageFlags struct {
	dataDir string

	s3Endpoint  string
	s3AccessKey string
	s3SecretKey string
	s3Bucket    string
	s3UseTLS    bool
	s3Region    string
}

func (f *storageFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&f.dataDir, "data-dir", "d", "", "Data directory (for directory storage)")
	cmd.PersistentFlags().StringVar(&f.s3Endpoint, "s3-endpoint", "", "S3 endpoint (for S3 storage)")
	cmd.PersistentFlags().StringVar(&f.s3AccessKey, "s3-access-key-id", "", "S3 access key ID (for S3 storage)")
	cmd.PersistentFlags().StringVar(&f.s3SecretKey, "s3-secret-key", "", "S3 secret key (for S3 storage)")
	cmd.PersistentFlags().StringVar(&f.s3Bucket, "s3-bucket", "", "S3 bucket (for S3 storage)")
	cmd.PersistentFlags().BoolVarP(&f.s3UseTLS, "s3-tls", "t", false, "Use TLS (for S3 storage)")
	cmd.PersistentFlags().StringVar(&f.s3Region, "s3-region", "", "S3 region")
}

func (f *storageFlags) open() (storage.Provider, error) {
	s3requested := f.s3Endpoint != "" ||
		f.s3AccessKey != "" ||
		f.s3SecretKey != "" ||
		f.s3Bucket != ""
	if f.dataDir != "" && s3requested {
		return nil, errors.New("cannot specify both --data-dir and S3 options")
	}
	if f.dataDir == "" && !s3requested {
		return nil, errors.New("must specify either --data-dir or S3 options")
	}
	if f.dataDir != "" {
		return storage.NewDirectoryStore(f.dataDir), nil
	}
	mc, err := minio.New(f.s3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(f.s3AccessKey, f.s3SecretKey, ""),
		Secure: f.s3UseTLS,
		Region: f.s3Region,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewS3Store(mc, f.s3Bucket), nil
}
