package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// GCS stores assets in a Cloud Storage bucket.
type GCS struct {
	client  *storage.Client
	bucket  string
	baseURL string
	owned   bool
}

// NewGCS opens a client with application default credentials. baseURL
// prefixes object keys in returned URLs; empty means
// https://storage.googleapis.com/<bucket>.
func NewGCS(ctx context.Context, bucket, baseURL string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	g := NewGCSWithClient(client, bucket, baseURL)
	g.owned = true
	return g, nil
}

// NewGCSWithClient wraps an existing client.
func NewGCSWithClient(client *storage.Client, bucket, baseURL string) *GCS {
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCS{client: client, bucket: bucket, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Put implements Store. Existing keys are never overwritten.
func (g *GCS) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	w := g.client.Bucket(g.bucket).Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000, immutable"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return g.baseURL + "/" + key, nil
}

// Delete implements Store. Missing objects are not an error.
func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

// Close releases the client if NewGCS created it.
func (g *GCS) Close() error {
	if g.owned {
		return g.client.Close()
	}
	return nil
}
