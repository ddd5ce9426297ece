package util

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"shopback/internal/config"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// GCSClient stores item images as objects in a single, publicly readable bucket.
type GCSClient struct {
	client        *storage.Client
	bucket        string
	folder        string
	publicBaseURL string
}

func NewGCSClient(ctx context.Context, cfg *config.Config) (*GCSClient, error) {
	if strings.TrimSpace(cfg.GCSBucket) == "" {
		return nil, errors.New("GCS_BUCKET is not configured")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gcs client: %w", err)
	}

	return &GCSClient{
		client:        client,
		bucket:        strings.TrimSpace(cfg.GCSBucket),
		folder:        strings.Trim(cfg.GCSFolder, "/"),
		publicBaseURL: strings.TrimRight(cfg.GCSPublicBaseURL, "/"),
	}, nil
}

// Upload writes data to a new object and returns its public URL.
func (g *GCSClient) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	objectPath := uuid.New().String() + ext
	if g.folder != "" {
		objectPath = g.folder + "/" + objectPath
	}

	if err := g.put(ctx, objectPath, data); err != nil {
		return "", err
	}
	return GCSPublicURL(g.publicBaseURL, g.bucket, objectPath), nil
}

// Overwrite rewrites the object behind existingURL; the URL is unchanged.
func (g *GCSClient) Overwrite(ctx context.Context, data []byte, existingURL string) (string, error) {
	objectPath, err := GCSObjectPath(g.publicBaseURL, g.bucket, existingURL)
	if err != nil {
		return "", err
	}
	if err := g.put(ctx, objectPath, data); err != nil {
		return "", err
	}
	return existingURL, nil
}

// Delete removes the object behind url. An object that is already gone
// counts as deleted.
func (g *GCSClient) Delete(ctx context.Context, url string) bool {
	objectPath, err := GCSObjectPath(g.publicBaseURL, g.bucket, url)
	if err != nil {
		log.Printf("GCS delete skipped: %v", err)
		return false
	}
	err = g.client.Bucket(g.bucket).Object(objectPath).Delete(ctx)
	if !gcsDeleted(err) {
		log.Printf("GCS delete failed for %s: %v", objectPath, err)
		return false
	}
	return true
}

func gcsDeleted(err error) bool {
	return err == nil || errors.Is(err, storage.ErrObjectNotExist)
}

// Close releases the underlying storage client.
func (g *GCSClient) Close() error {
	return g.client.Close()
}

func (g *GCSClient) put(ctx context.Context, objectPath string, data []byte) error {
	if len(data) == 0 {
		return errors.New("empty image data")
	}

	w := g.client.Bucket(g.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = http.DetectContentType(data)
	w.Metadata = map[string]string{
		"uploadedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("error uploading to gcs: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("error uploading to gcs: %w", err)
	}
	return nil
}

// GCSPublicURL builds the public URL for an object, escaping each path segment.
func GCSPublicURL(baseURL, bucket, objectPath string) string {
	parts := strings.Split(objectPath, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(baseURL, "/"), bucket, strings.Join(parts, "/"))
}

// GCSObjectPath is the inverse of GCSPublicURL.
func GCSObjectPath(baseURL, bucket, rawURL string) (string, error) {
	prefix := strings.TrimRight(baseURL, "/") + "/" + bucket + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", fmt.Errorf("url %q is not in bucket %s", rawURL, bucket)
	}
	objectPath, err := url.PathUnescape(strings.TrimPrefix(rawURL, prefix))
	if err != nil {
		return "", fmt.Errorf("invalid object path in %q: %w", rawURL, err)
	}
	if objectPath == "" {
		return "", fmt.Errorf("missing object path in %q", rawURL)
	}
	return objectPath, nil
}
