package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound is returned by Bucket.Get when no object exists at key.
var ErrObjectNotFound = errors.New("objectstore: object not found")

// Bucket is the object storage surface used by Store.
type Bucket interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// List yields every key under prefix in lexical order. Listing stops
	// when the consumer stops ranging.
	List(ctx context.Context, prefix string) iter.Seq2[string, error]
}

// ClientConfig holds the connection settings for NewMinioClient.
type ClientConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool
}

// NewMinioClient builds a MinIO client with static credentials.
func NewMinioClient(cfg ClientConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("objectstore: endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: minio client: %w", err)
	}
	return client, nil
}

// MinioBucket implements Bucket with a MinIO client.
type MinioBucket struct {
	client *minio.Client
	bucket string
}

var _ Bucket = (*MinioBucket)(nil)

// NewMinioBucket returns a Bucket reading and writing objects in bucket.
func NewMinioBucket(client *minio.Client, bucket string) *MinioBucket {
	return &MinioBucket{
		client: client,
		bucket: bucket,
	}
}

// EnsureBucket creates the bucket when it does not exist.
func (b *MinioBucket) EnsureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("objectstore: bucket %s: %w", b.bucket, err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("objectstore: make bucket %s: %w", b.bucket, err)
	}
	return nil
}

func (b *MinioBucket) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapMinioError(err)
	}
	return data, nil
}

func (b *MinioBucket) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/markdown; charset=utf-8",
	})
	return err
}

func (b *MinioBucket) List(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				yield("", obj.Err)
				return
			}
			if !yield(obj.Key, nil) {
				return
			}
		}
	}
}

func mapMinioError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
		return ErrObjectNotFound
	}
	return err
}
