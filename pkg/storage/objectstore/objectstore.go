package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config contains the information required to talk to an object store.
type Config struct {
	Provider  string
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Object is what gets archived.
type Object struct {
	Key         string
	ContentType string
	Metadata    map[string]string
}

// Client represents the capabilities the clip archive expects.
type Client interface {
	Put(ctx context.Context, obj Object, reader io.Reader, size int64) error
	Close() error
}

// Enabled reports whether cfg names a real provider.
func Enabled(cfg Config) bool {
	return cfg.Provider != "" && cfg.Provider != "none"
}

// New creates an object store client based on the given configuration.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case "minio", "s3":
		return newMinioClient(ctx, cfg)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported object store provider: %s", cfg.Provider)
	}
}

type minioClient struct {
	client *minio.Client
	bucket string
}

func newMinioClient(ctx context.Context, cfg Config) (Client, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	exists, err := cl.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cl.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &minioClient{client: cl, bucket: cfg.Bucket}, nil
}

func (m *minioClient) Put(ctx context.Context, obj Object, reader io.Reader, size int64) error {
	opts := minio.PutObjectOptions{
		ContentType:  obj.ContentType,
		UserMetadata: obj.Metadata,
	}
	_, err := m.client.PutObject(ctx, m.bucket, obj.Key, reader, size, opts)
	return err
}

func (m *minioClient) Close() error {
	return nil
}

// Memory keeps objects in process. Used for local runs and tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string]memoryObject
}

type memoryObject struct {
	Object
	data []byte
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{objects: map[string]memoryObject{}}
}

func (m *Memory) Put(ctx context.Context, obj Object, reader io.Reader, size int64) error {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, reader)
	if err != nil {
		return err
	}
	if size >= 0 && n != size {
		return fmt.Errorf("put %s: read %d bytes, expected %d", obj.Key, n, size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj.Key] = memoryObject{Object: obj, data: buf.Bytes()}
	return nil
}

// Get returns a stored object and its bytes.
func (m *Memory) Get(key string) (Object, []byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o.Object, o.data, ok
}

// Keys lists stored keys in no particular order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

func (m *Memory) Close() error {
	return nil
}
