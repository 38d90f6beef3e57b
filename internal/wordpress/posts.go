package wordpress

import (
	"context"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-slug"

	"github.com/goliatone/go-wpsync/internal/identity"
	"github.com/goliatone/go-wpsync/internal/logging"
	"github.com/goliatone/go-wpsync/internal/markdown"
	"github.com/goliatone/go-wpsync/internal/syncerr"
	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

const defaultPostStatus = "publish"

// PostAPI is the slice of the REST client used for posts.
type PostAPI interface {
	CreatePost(ctx context.Context, payload PostPayload, idempotencyKey string) (*PostRecord, error)
	UpdatePost(ctx context.Context, id string, payload PostPayload) (*PostRecord, error)
}

// SyncOutcome is what Sync did remotely.
type SyncOutcome struct {
	Post    PostRecord
	Created bool
}

// PostSynchronizer creates or updates the remote post backing an article.
type PostSynchronizer struct {
	api    PostAPI
	logger interfaces.Logger
}

// NewPostSynchronizer returns a synchronizer over api.
func NewPostSynchronizer(api PostAPI, logger interfaces.Logger) *PostSynchronizer {
	return &PostSynchronizer{api: api, logger: logging.Or(logger)}
}

// Sync pushes html as the content of the article's post. A truthy postId in
// fm selects PUT /posts/{postId} (expects 200); otherwise POST /posts
// (expects 201). Any other outcome is a fatal POST_SYNC_FAILED error.
func (s *PostSynchronizer) Sync(ctx context.Context, articleSlug string, fm *markdown.Frontmatter, html string, featuredMediaID int64) (*SyncOutcome, error) {
	payload := BuildPostPayload(articleSlug, fm, html, featuredMediaID)
	logger := logging.WithFields(s.logger, map[string]any{"slug": articleSlug})

	var (
		rec     *PostRecord
		err     error
		created bool
	)
	if fm.Truthy("postId") {
		postID := fm.String("postId")
		logger.Debug("post.update", "post_id", postID)
		rec, err = s.api.UpdatePost(ctx, postID, payload)
	} else {
		created = true
		logger.Debug("post.create")
		rec, err = s.api.CreatePost(ctx, payload, identity.PostCreateKey(articleSlug))
	}
	if err != nil {
		return nil, postSyncError(err)
	}

	logger.Info("post.synced", "post_id", rec.ID, "created", created)
	return &SyncOutcome{Post: *rec, Created: created}, nil
}

// BuildPostPayload maps frontmatter onto the REST payload. status defaults to
// "publish"; slug falls back to the normalized article slug; categories and
// featured_media are omitted when unset.
func BuildPostPayload(articleSlug string, fm *markdown.Frontmatter, html string, featuredMediaID int64) PostPayload {
	payload := PostPayload{
		Title:         fm.String("title"),
		Content:       html,
		Excerpt:       fm.String("metaDescription"),
		Status:        fm.String("status"),
		Slug:          fm.String("slug"),
		FeaturedMedia: featuredMediaID,
	}
	if payload.Status == "" {
		payload.Status = defaultPostStatus
	}
	if payload.Slug == "" {
		if normalized, err := slug.Normalize(articleSlug); err == nil && normalized != "" {
			payload.Slug = normalized
		} else {
			payload.Slug = articleSlug
		}
	}
	if fm.Truthy("categoryId") {
		category, _ := fm.Get("categoryId")
		payload.Categories = []any{category}
	}
	return payload
}

func postSyncError(err error) error {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return syncerr.Fatal(err, goerrors.CategoryExternal, syncerr.TextCodePostSyncFailed,
			fmt.Sprintf("WordPress API %d: %s", httpErr.StatusCode, httpErr.Body))
	}
	return syncerr.Fatal(err, goerrors.CategoryExternal, syncerr.TextCodePostSyncFailed, "post sync failed")
}
