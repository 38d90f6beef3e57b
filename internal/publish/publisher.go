// Package publish pushes one article to WordPress and records the result in
// the article's frontmatter.
package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-wpsync/internal/logging"
	"github.com/goliatone/go-wpsync/internal/markdown"
	"github.com/goliatone/go-wpsync/internal/syncerr"
	"github.com/goliatone/go-wpsync/internal/wordpress"
	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

const (
	stageParse    = "parse"
	stageFeatured = "featured_image"
	stageImages   = "body_images"
	stageRender   = "render"
	stageSync     = "sync_post"
	stageWrite    = "writeback"
)

var ErrMissingDependency = errors.New("publish: missing dependency")

// ArticleStore reads, writes and locks articles.
type ArticleStore interface {
	Read(slug string) (*markdown.Article, error)
	Write(slug string, fm *markdown.Frontmatter, body string) error
	Lock(slug string) (func() error, error)
}

// MediaResolver finds already uploaded media.
type MediaResolver interface {
	Resolve(ctx context.Context, filename, slug string, localSize *int64) (*wordpress.MediaRecord, bool)
}

// MediaPublisher uploads media the resolver did not find.
type MediaPublisher interface {
	Publish(ctx context.Context, localPath, alt, slug string) (*wordpress.MediaRecord, error)
}

// PostSynchronizer creates or updates the remote post.
type PostSynchronizer interface {
	Sync(ctx context.Context, articleSlug string, fm *markdown.Frontmatter, html string, featuredMediaID int64) (*wordpress.SyncOutcome, error)
}

// Config wires the collaborators of a Publisher.
type Config struct {
	Store    ArticleStore
	Resolver MediaResolver
	Media    MediaPublisher
	Posts    PostSynchronizer
	Renderer interfaces.MarkdownParser
	Logger   interfaces.Logger
}

// Result summarises one publish run.
type Result struct {
	Slug            string
	Title           string
	PostID          int64
	URL             string
	Created         bool
	FeaturedMediaID int64
	ImagesResolved  int
	ImagesUploaded  int
	ImagesFailed    int
}

// Option customises a Publisher.
type Option func(*Publisher)

// WithArticleLock holds the article's advisory lock for the whole run.
func WithArticleLock(enabled bool) Option {
	return func(p *Publisher) {
		p.lockArticles = enabled
	}
}

// WithClock overrides the source of lastModified timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// Publisher runs the publish pipeline for one article at a time: parse,
// featured image, body images, rewrite and render, post sync, writeback.
type Publisher struct {
	store    ArticleStore
	resolver MediaResolver
	media    MediaPublisher
	posts    PostSynchronizer
	renderer interfaces.MarkdownParser
	logger   interfaces.Logger

	lockArticles bool
	now          func() time.Time
}

// NewPublisher validates cfg and returns a Publisher.
func NewPublisher(cfg Config, opts ...Option) (*Publisher, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("article store"))
	case cfg.Resolver == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("media resolver"))
	case cfg.Media == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("media publisher"))
	case cfg.Posts == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("post synchronizer"))
	case cfg.Renderer == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("renderer"))
	}

	p := &Publisher{
		store:    cfg.Store,
		resolver: cfg.Resolver,
		media:    cfg.Media,
		posts:    cfg.Posts,
		renderer: cfg.Renderer,
		logger:   logging.Or(cfg.Logger),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish syncs slug. Parse, render, post sync and writeback failures are
// fatal and returned; image failures are logged and counted in the Result.
// Nothing is written back unless the post sync succeeded.
func (p *Publisher) Publish(ctx context.Context, slug string) (*Result, error) {
	slug = markdown.CleanSlug(slug)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.lockArticles {
		release, lockErr := p.store.Lock(slug)
		if lockErr != nil {
			return nil, lockErr
		}
		defer func() {
			if releaseErr := release(); releaseErr != nil {
				p.logger.Warn("publish.lock.release_failed", "slug", slug, "error", releaseErr)
			}
		}()
	}

	article, err := p.store.Read(slug)
	if err != nil {
		logging.WithArticleContext(p.logger, slug, stageParse).Error("publish.parse.failed", "error", err)
		return nil, err
	}
	fm := article.Frontmatter

	result := &Result{Slug: slug, Title: fm.String("title")}
	if result.Title == "" {
		result.Title = slug
	}

	result.FeaturedMediaID = p.publishFeatured(ctx, article, result)
	mapping := p.publishBodyImages(ctx, article, result)

	rewritten := markdown.RewriteImageLinks(article.Body, mapping)
	html, err := p.renderer.Parse([]byte(rewritten))
	if err != nil {
		logging.WithArticleContext(p.logger, slug, stageRender).Error("publish.render.failed", "error", err)
		return nil, syncerr.Fatal(err, goerrors.CategoryInternal, syncerr.TextCodeRenderFailed, "render article")
	}

	outcome, err := p.posts.Sync(ctx, slug, fm, string(html), result.FeaturedMediaID)
	if err != nil {
		logging.WithArticleContext(p.logger, slug, stageSync).Error("publish.sync.failed", "error", err)
		return nil, err
	}
	result.PostID = outcome.Post.ID
	result.URL = outcome.Post.Link
	result.Created = outcome.Created

	fm.Set("postId", outcome.Post.ID)
	fm.Set("publishedUrl", outcome.Post.Link)
	fm.Set("lastModified", p.now().UTC().Format(markdown.TimestampLayout))
	if err := p.store.Write(slug, fm, article.Body); err != nil {
		logging.WithArticleContext(p.logger, slug, stageWrite).Error("publish.writeback.failed", "post_id", result.PostID, "error", err)
		return nil, err
	}

	logging.WithArticleContext(p.logger, slug, stageWrite).Info("publish.completed",
		"post_id", result.PostID,
		"created", result.Created,
		"images_resolved", result.ImagesResolved,
		"images_uploaded", result.ImagesUploaded,
		"images_failed", result.ImagesFailed,
	)
	return result, nil
}

// FeaturedImage returns the featured image path from images.featured, falling
// back to featuredImage.
func FeaturedImage(fm *markdown.Frontmatter) string {
	if images := fm.Mapping("images"); images != nil {
		if featured := images.String("featured"); featured != "" {
			return featured
		}
	}
	return fm.String("featuredImage")
}

func (p *Publisher) publishFeatured(ctx context.Context, article *markdown.Article, result *Result) int64 {
	featured := FeaturedImage(article.Frontmatter)
	if featured == "" {
		return 0
	}
	logger := logging.WithArticleContext(p.logger, article.Slug, stageFeatured)

	path := filepath.Join(article.Dir, filepath.FromSlash(featured))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		logger.Warn("publish.featured.missing", "path", path)
		return 0
	}

	rec := p.resolveOrUpload(ctx, article.Slug, path, info.Size(), result.Title, result)
	if rec == nil {
		return 0
	}
	return rec.ID
}

func (p *Publisher) publishBodyImages(ctx context.Context, article *markdown.Article, result *Result) map[string]string {
	mapping := map[string]string{}
	for _, ref := range markdown.ExtractImageReferences(article.Body, article.Dir) {
		info, err := os.Stat(ref.FullPath)
		if err != nil {
			logging.WithArticleContext(p.logger, article.Slug, stageImages).Warn("publish.image.missing", "path", ref.FullPath, "error", err)
			result.ImagesFailed++
			continue
		}
		rec := p.resolveOrUpload(ctx, article.Slug, ref.FullPath, info.Size(), ref.Alt, result)
		if rec == nil || rec.SourceURL == "" {
			continue
		}
		mapping[ref.Path] = rec.SourceURL
	}
	return mapping
}

func (p *Publisher) resolveOrUpload(ctx context.Context, slug, path string, size int64, alt string, result *Result) *wordpress.MediaRecord {
	if rec, ok := p.resolver.Resolve(ctx, filepath.Base(path), slug, &size); ok {
		result.ImagesResolved++
		return rec
	}
	rec, err := p.media.Publish(ctx, path, alt, slug)
	if err != nil {
		result.ImagesFailed++
		return nil
	}
	result.ImagesUploaded++
	return rec
}
