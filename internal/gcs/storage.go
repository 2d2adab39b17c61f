// Package gcs stores media objects in a Google Cloud Storage bucket.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"linelogger/internal/domain"
)

// Store implements object uploads against a single GCS bucket.
type Store struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
	logger        *slog.Logger
}

// New creates the storage client. publicBaseURL overrides the default
// storage.googleapis.com link base when objects are served through a CDN.
func New(ctx context.Context, bucket, publicBaseURL string, logger *slog.Logger, opts ...option.ClientOption) (*Store, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Put writes data to the bucket under name and returns the public URL of the
// object.
func (s *Store) Put(ctx context.Context, data []byte, name, owner string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentTypeForKey(name)
	if owner != "" {
		w.Metadata = map[string]string{"owner": owner}
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", name, err)
	}
	return s.publicURL(name), nil
}

// GrantPublicRead marks the object readable by anyone with the link.
func (s *Store) GrantPublicRead(ctx context.Context, name string) error {
	acl := s.client.Bucket(s.bucket).Object(name).ACL()
	if err := acl.Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return fmt.Errorf("set public acl on %s: %w", name, err)
	}
	return nil
}

func (s *Store) publicURL(name string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + name
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, name)
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".m4a":
		return "audio/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

var _ domain.Storage = (*Store)(nil)
