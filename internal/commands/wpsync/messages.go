package wpsynccmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-wpsync/internal/markdown"
)

const (
	publishArticleMessageType = "wpsync.publish_article"
	rebuildIndexMessageType   = "wpsync.rebuild_index"
)

// PublishArticleCommand publishes the article stored under content/<Slug>.
type PublishArticleCommand struct {
	// Slug names the article directory, not the remote post slug.
	Slug string `json:"slug"`
}

// Type implements command.Message.
func (PublishArticleCommand) Type() string { return publishArticleMessageType }

// Validate ensures the slug names a single directory.
func (cmd PublishArticleCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Slug, validation.Required, validation.By(func(value any) error {
			slug, _ := value.(string)
			trimmed := markdown.CleanSlug(slug)
			if trimmed == "" {
				return validation.NewError("wpsync.publish_article.slug_required", "slug is required")
			}
			if trimmed == "." || trimmed == ".." || strings.ContainsAny(trimmed, `/\`) {
				return validation.NewError("wpsync.publish_article.slug_invalid", "slug must be a single directory name")
			}
			return nil
		})),
	)
}

// RebuildIndexCommand regenerates the index artifact at Output. Empty Fields
// keeps every frontmatter key.
type RebuildIndexCommand struct {
	Output string   `json:"output"`
	Fields []string `json:"fields,omitempty"`
}

// Type implements command.Message.
func (RebuildIndexCommand) Type() string { return rebuildIndexMessageType }

// Validate ensures an output path is present.
func (cmd RebuildIndexCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Output, validation.Required, validation.By(func(value any) error {
			output, _ := value.(string)
			if strings.TrimSpace(output) == "" {
				return validation.NewError("wpsync.rebuild_index.output_required", "output is required")
			}
			return nil
		})),
		validation.Field(&cmd.Fields, validation.Each(validation.By(func(value any) error {
			field, _ := value.(string)
			if strings.TrimSpace(field) == "" {
				return validation.NewError("wpsync.rebuild_index.field_blank", "field names cannot be blank")
			}
			return nil
		}))),
	)
}
