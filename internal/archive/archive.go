// Package archive keeps audit copies of ingested receipts and raw model
// replies in a GCS bucket. It is a best-effort collaborator: callers log
// failures and carry on, so nothing here participates in the persist-iff-
// extracted guarantee.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const uploadTimeout = 2 * time.Minute

// GCS archives artifacts into a bucket. Application Default Credentials are
// assumed, same as the rest of the Google Cloud stack.
type GCS struct {
	bucket string
}

// NewGCS creates an archiver for the given bucket.
func NewGCS(bucket string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCS: bucket is required")
	}
	return &GCS{bucket: bucket}, nil
}

// ArchiveReceipt stores a receipt image and returns its gs:// URI.
func (g *GCS) ArchiveReceipt(ctx context.Context, data []byte, mimeType string) (string, error) {
	object := fmt.Sprintf("receipts/%s/%s%s", time.Now().Format("2006/01/02"), uuid.NewString(), extensionFor(mimeType))
	return g.upload(ctx, object, mimeType, data)
}

// ArchiveReply stores a raw model reply and returns its gs:// URI.
func (g *GCS) ArchiveReply(ctx context.Context, reply string) (string, error) {
	object := fmt.Sprintf("replies/%s/%s.txt", time.Now().Format("2006/01/02"), uuid.NewString())
	return g.upload(ctx, object, "text/plain; charset=utf-8", []byte(reply))
}

func (g *GCS) upload(ctx context.Context, object, contentType string, data []byte) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("upload: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload: writing object %q: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload: finalize %q: %w", object, err)
	}

	return fmt.Sprintf("gs://%s/%s", g.bucket, object), nil
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
