package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/raphaelgruber/docforge/internal/models"
)

// ObjectConfig configures an S3 compatible bucket.
type ObjectConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectStore keeps artifacts in a bucket under <project>/<variant dir>/<slug>.
type ObjectStore struct {
	client *minio.Client
	bucket string
	region string

	initOnce sync.Once
	initErr  error
	mu       sync.Mutex
}

var _ Store = (*ObjectStore)(nil)

// NewObjectStore creates a client. The bucket is created on first use.
func NewObjectStore(cfg ObjectConfig) (*ObjectStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("object store access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}
	return &ObjectStore{client: client, bucket: bucket, region: region}, nil
}

func (s *ObjectStore) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// projectPrefix is the key prefix of a project, with a trailing slash.
func projectPrefix(project string) string {
	return slugOrDefault(project, "project") + "/"
}

// Save uploads a, replacing an earlier artifact with the same title.
func (s *ObjectStore) Save(ctx context.Context, a models.Artifact) error {
	rel, err := relPath(a)
	if err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := projectPrefix(a.Project) + rel
	order, err := s.documentOrder(ctx, a, key)
	if err != nil {
		return err
	}
	data, err := encode(a, order)
	if err != nil {
		return fmt.Errorf("encode %s: %w", rel, err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(a),
		UserMetadata: map[string]string{
			"agent":   a.Agent,
			"variant": string(a.Variant),
		},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *ObjectStore) documentOrder(ctx context.Context, a models.Artifact, key string) (int, error) {
	if a.Variant != models.VariantTextDocument {
		return 0, nil
	}
	if data, err := s.get(ctx, key); err == nil {
		if item, err := decode(a.Project, strings.TrimPrefix(key, projectPrefix(a.Project)), data); err == nil && item.order > 0 {
			return item.order, nil
		}
	}

	n := 0
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    projectPrefix(a.Project) + "docs/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return 0, obj.Err
		}
		if path.Ext(obj.Key) == ".md" {
			n++
		}
	}
	return n + 1, nil
}

func (s *ObjectStore) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return data, nil
}

// List downloads every artifact of a project.
func (s *ObjectStore) List(ctx context.Context, project string) ([]models.Artifact, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	prefix := projectPrefix(project)
	var items []stored
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key == "" {
			continue
		}
		data, err := s.get(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		item, err := decode(project, strings.TrimPrefix(obj.Key, prefix), data)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return sortStored(items), nil
}
