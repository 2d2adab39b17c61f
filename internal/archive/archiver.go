// Package archive uploads media bytes to object storage with a
// degrade-on-failure policy.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"linelogger/internal/domain"
)

// Archiver puts media into a Storage and resolves every call to an
// ArchiveResult. A single attempt only: uploads are too expensive to retry
// blindly, and the caller has a textual fallback either way.
type Archiver struct {
	storage domain.Storage
	enabled bool
	prefix  string
	logger  *slog.Logger

	uploadTimeout time.Duration
}

func New(storage domain.Storage, enabled bool, prefix string, logger *slog.Logger) *Archiver {
	return &Archiver{
		storage:       storage,
		enabled:       enabled,
		prefix:        prefix,
		logger:        logger,
		uploadTimeout: 2 * time.Minute,
	}
}

// Enabled reports whether archiving is configured on.
func (a *Archiver) Enabled() bool {
	return a.enabled && a.storage != nil
}

// Upload stores data under a unique key derived from suggestedName and the
// owner. When the upload succeeds but the public-read grant fails, the upload
// still counts as success; the link just may not be shareable.
func (a *Archiver) Upload(ctx context.Context, data []byte, suggestedName, ownerID string) domain.ArchiveResult {
	if !a.enabled {
		return domain.ArchiveFailed("archiving disabled by configuration")
	}
	if a.storage == nil {
		return domain.ArchiveFailed("storage client not configured")
	}

	key := a.objectKey(suggestedName, ownerID)

	ctx, cancel := context.WithTimeout(ctx, a.uploadTimeout)
	defer cancel()

	url, err := a.storage.Put(ctx, data, key, ownerID)
	if err != nil {
		a.logger.Warn("media upload failed",
			"key", key,
			"size", len(data),
			"error", err,
		)
		return domain.ArchiveFailed(fmt.Sprintf("upload failed: %v", err))
	}

	if err := a.storage.GrantPublicRead(ctx, key); err != nil {
		// Logged, not surfaced: the object is stored either way.
		a.logger.Warn("public-read grant failed", "key", key, "error", err)
	}

	a.logger.Info("media archived", "key", key, "size", len(data), "url", url)
	return domain.Uploaded(url)
}

func (a *Archiver) objectKey(suggestedName, ownerID string) string {
	return path.Join(a.prefix, ownerID, uuid.NewString()+"-"+suggestedName)
}
