package receipts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"trip-expenses/internal/config"
)

// ErrNotConfigured is returned by Upload when storage credentials are missing.
var ErrNotConfigured = errors.New("receipt storage is not configured: set STORAGE_ENDPOINT, STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY")

const keyPrefix = "comprovantes"

// ObjectPutter stores a blob under key in bucket.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
}

// Receipt is an uploaded file as received from a form.
type Receipt struct {
	Body        io.Reader
	Size        int64
	Filename    string
	ContentType string
}

// Uploader streams receipts to object storage and returns their public URL.
type Uploader struct {
	store      ObjectPutter
	bucket     string
	publicBase string
	now        func() time.Time
}

// NewUploader builds an Uploader from configuration. Missing credentials do
// not fail here; Upload reports ErrNotConfigured when it is first used.
func NewUploader(cfg config.Storage) (*Uploader, error) {
	if !cfg.Configured() {
		return &Uploader{bucket: cfg.Bucket, now: time.Now}, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	base := cfg.PublicURL
	if base == "" {
		scheme := "https"
		if !cfg.UseSSL {
			scheme = "http"
		}
		base = scheme + "://" + cfg.Endpoint + "/" + cfg.Bucket
	}
	return NewWithStore(&minioStore{client: client}, cfg.Bucket, base), nil
}

// NewWithStore builds an Uploader around an arbitrary ObjectPutter.
func NewWithStore(store ObjectPutter, bucket, publicBase string) *Uploader {
	return &Uploader{
		store:      store,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		now:        time.Now,
	}
}

// Upload stores r under a key derived from the trip, the user and the current
// time, and returns the public URL of the stored object.
func (u *Uploader) Upload(ctx context.Context, r Receipt, tripID, userID int64) (string, error) {
	if u == nil || u.store == nil {
		return "", ErrNotConfigured
	}
	contentType := r.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := ObjectKey(tripID, userID, u.now(), r.Filename)
	if err := u.store.PutObject(ctx, u.bucket, key, r.Body, r.Size, contentType); err != nil {
		return "", fmt.Errorf("upload receipt %s: %w", key, err)
	}
	return u.publicBase + "/" + escapeKey(key), nil
}

// ObjectKey builds comprovantes/{trip}/{user}-{unix}-{filename}. Path
// separators in the filename are replaced so the key cannot escape its prefix.
func ObjectKey(tripID, userID int64, at time.Time, filename string) string {
	return fmt.Sprintf("%s/%d/%d-%d-%s", keyPrefix, tripID, userID, at.Unix(), SanitizeFilename(filename))
}

// SanitizeFilename replaces path separators and falls back to "arquivo".
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "arquivo"
	}
	return name
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

type minioStore struct {
	client *minio.Client
}

func (m *minioStore) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}
