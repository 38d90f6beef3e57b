// Package index derives a JSON index of every article's frontmatter. The
// index is a materialized view: it is rebuilt from scratch on every run.
package index

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-wpsync/internal/fsutil"
	"github.com/goliatone/go-wpsync/internal/logging"
	"github.com/goliatone/go-wpsync/internal/markdown"
	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

// ArticleSource lists and reads articles.
type ArticleSource interface {
	List(ctx context.Context) ([]string, error)
	Read(slug string) (*markdown.Article, error)
}

// Mirror receives every rebuilt artifact, for example a database table.
type Mirror interface {
	Replace(ctx context.Context, artifact *Artifact) error
}

// Skipped records an article left out of the index.
type Skipped struct {
	Slug string
	Err  error
}

// RebuildResult summarises a Rebuild.
type RebuildResult struct {
	Output    string
	Articles  int
	Skipped   int
	RebuiltAt string
}

// Option customises a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for skip warnings.
func WithLogger(logger interfaces.Logger) Option {
	return func(b *Builder) {
		b.logger = logging.Or(logger)
	}
}

// WithClock overrides the rebuiltAt time source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithRenameFunc replaces os.Rename when the artifact is moved into place.
func WithRenameFunc(fn fsutil.RenameFunc) Option {
	return func(b *Builder) {
		if fn != nil {
			b.rename = fn
		}
	}
}

// WithMirror copies every rebuilt artifact into m.
func WithMirror(m Mirror) Option {
	return func(b *Builder) {
		b.mirror = m
	}
}

// Builder scans articles and writes the index artifact.
type Builder struct {
	source ArticleSource
	logger interfaces.Logger
	now    func() time.Time
	rename fsutil.RenameFunc
	mirror Mirror
}

// NewBuilder returns a Builder reading from source.
func NewBuilder(source ArticleSource, opts ...Option) *Builder {
	b := &Builder{
		source: source,
		logger: logging.NoOp(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ParseFields splits a comma separated field list. Blank items are dropped;
// an empty result means "all fields".
func ParseFields(raw string) []string {
	var fields []string
	for _, field := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			fields = append(fields, trimmed)
		}
	}
	return fields
}

// Build returns one entry per parsable article in slug order. Articles that
// fail to parse are logged, reported in skipped and left out. With fields,
// entries keep only those keys, in filter order; slug is always present and
// defaults to the directory name.
func (b *Builder) Build(ctx context.Context, fields []string) ([]*markdown.Frontmatter, []Skipped, error) {
	slugs, err := b.source.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]*markdown.Frontmatter, 0, len(slugs))
	var skipped []Skipped
	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		article, err := b.source.Read(slug)
		if err != nil {
			b.logger.Warn("index.article.skipped", "slug", slug, "error", err)
			skipped = append(skipped, Skipped{Slug: slug, Err: err})
			continue
		}
		entries = append(entries, Project(slug, article.Frontmatter, fields))
	}
	return entries, skipped, nil
}

// Rebuild builds the index and writes it atomically to output, then to the
// mirror when one is configured.
func (b *Builder) Rebuild(ctx context.Context, output string, fields []string) (*RebuildResult, error) {
	entries, skipped, err := b.Build(ctx, fields)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{
		Articles:  entries,
		RebuiltAt: b.now().UTC().Format(markdown.TimestampLayout),
	}
	if err := WriteArtifact(output, artifact, b.rename); err != nil {
		b.logger.Error("index.write.failed", "output", output, "error", err)
		return nil, err
	}

	if b.mirror != nil {
		if err := b.mirror.Replace(ctx, artifact); err != nil {
			b.logger.Error("index.mirror.failed", "error", err)
			return nil, err
		}
	}

	b.logger.Info("index.rebuilt", "output", output, "articles", len(entries), "skipped", len(skipped))
	return &RebuildResult{
		Output:    output,
		Articles:  len(entries),
		Skipped:   len(skipped),
		RebuiltAt: artifact.RebuiltAt,
	}, nil
}

// Project copies fm into an index entry, keeping only fields when any are
// given and defaulting slug to dirSlug.
func Project(dirSlug string, fm *markdown.Frontmatter, fields []string) *markdown.Frontmatter {
	var entry *markdown.Frontmatter
	if len(fields) == 0 {
		entry = fm.Clone()
	} else {
		entry = markdown.NewFrontmatter()
		for _, field := range fields {
			if value, ok := fm.Get(field); ok {
				entry.Set(field, value)
			}
		}
	}
	if !entry.Has("slug") {
		entry.Set("slug", dirSlug)
	}
	return entry
}
