// Package markdown owns the on-disk article format: one directory per slug
// holding index.md, a "---" delimited YAML frontmatter block followed by a
// Markdown body. It parses and atomically rewrites those documents, finds
// and rewrites local image references, and renders bodies to HTML.
package markdown
