package wordpress

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-wpsync/internal/logging"
	"github.com/goliatone/go-wpsync/internal/syncerr"
	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

// MediaAPI is the slice of the REST client used for media.
type MediaAPI interface {
	SearchMedia(ctx context.Context, term string, perPage int) ([]MediaRecord, error)
	UploadMedia(ctx context.Context, filename, contentType string, body io.Reader) (*MediaRecord, error)
	DeleteMedia(ctx context.Context, id int64) error
}

// RemoteName namespaces a local filename by article so two articles that
// both ship featured.webp never share a media item.
func RemoteName(slug, filename string) string {
	if slug == "" {
		return filename
	}
	return slug + "-" + filename
}

// ContentType maps a filename to the MIME type sent on upload. Only the
// extension is consulted; unknown extensions are sent as PNG.
func ContentType(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/png"
	}
}

// MediaResolver finds media that was already uploaded for an article.
type MediaResolver struct {
	api    MediaAPI
	logger interfaces.Logger
}

// NewMediaResolver returns a resolver over api.
func NewMediaResolver(api MediaAPI, logger interfaces.Logger) *MediaResolver {
	return &MediaResolver{api: api, logger: logging.Or(logger)}
}

// Resolve looks up {slug}-{filename}. The first search hit whose source_url
// ends with that name is a match. When localSize and the remote filesize are
// both known and differ the remote item is stale: it is force deleted and
// Resolve reports absence so the caller uploads again.
//
// Lookup failures are logged and reported as absence; Resolve never returns
// an error.
func (r *MediaResolver) Resolve(ctx context.Context, filename, slug string, localSize *int64) (*MediaRecord, bool) {
	name := RemoteName(slug, filename)
	logger := logging.WithFields(r.logger, map[string]any{"slug": slug, "media": name})

	records, err := r.api.SearchMedia(ctx, name, 1)
	if err != nil {
		warn := syncerr.Recoverable(err, goerrors.CategoryExternal, syncerr.TextCodeMediaLookupFailed, "media lookup failed")
		logger.Warn("media.lookup.failed", "error", warn)
		return nil, false
	}

	for _, rec := range records {
		if !strings.HasSuffix(rec.SourceURL, name) {
			continue
		}
		if localSize != nil && rec.FileSize != nil && *rec.FileSize != *localSize {
			logger.Info("media.stale", "media_id", rec.ID, "remote_size", *rec.FileSize, "local_size", *localSize)
			if err := r.api.DeleteMedia(ctx, rec.ID); err != nil {
				warn := syncerr.Recoverable(err, goerrors.CategoryExternal, syncerr.TextCodeMediaDeleteFailed, "stale media delete failed")
				logger.Warn("media.delete.failed", "media_id", rec.ID, "error", warn)
			}
			return nil, false
		}
		logger.Debug("media.reused", "media_id", rec.ID)
		found := rec
		return &found, true
	}
	return nil, false
}

// MediaPublisher uploads local images.
type MediaPublisher struct {
	api    MediaAPI
	logger interfaces.Logger
}

// NewMediaPublisher returns a publisher over api.
func NewMediaPublisher(api MediaAPI, logger interfaces.Logger) *MediaPublisher {
	return &MediaPublisher{api: api, logger: logging.Or(logger)}
}

// Publish uploads localPath as {slug}-{base name}. A failed upload is logged
// and returned as a recoverable error; callers treat it as absence. alt is
// only used in log output.
func (p *MediaPublisher) Publish(ctx context.Context, localPath, alt, slug string) (*MediaRecord, error) {
	name := RemoteName(slug, filepath.Base(localPath))
	logger := logging.WithFields(p.logger, map[string]any{"slug": slug, "media": name})

	file, err := os.Open(localPath)
	if err != nil {
		warn := syncerr.Recoverable(err, goerrors.CategoryExternal, syncerr.TextCodeMediaUploadFailed,
			fmt.Sprintf("open image %s", localPath))
		logger.Warn("media.upload.failed", "alt", alt, "error", warn)
		return nil, warn
	}
	defer file.Close()

	rec, err := p.api.UploadMedia(ctx, name, ContentType(name), file)
	if err != nil {
		warn := syncerr.Recoverable(err, goerrors.CategoryExternal, syncerr.TextCodeMediaUploadFailed,
			fmt.Sprintf("image upload failed for %s", name))
		logger.Warn("media.upload.failed", "alt", alt, "error", warn)
		return nil, warn
	}
	logger.Info("media.uploaded", "media_id", rec.ID, "url", rec.SourceURL)
	return rec, nil
}
