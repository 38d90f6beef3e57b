package markdown

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var imagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)

// ImageReference is a local image found in an article body.
type ImageReference struct {
	Alt string
	// Path is the link target exactly as written in the body.
	Path string
	// FullPath is Path resolved against the article directory.
	FullPath string
	// Markdown is the whole matched ![alt](path) text.
	Markdown string
}

// ExtractImageReferences returns the ![alt](path) references in body whose
// target is not an http(s) URL and exists under articleDir, in body order.
// Repeated targets are reported once per occurrence.
func ExtractImageReferences(body, articleDir string) []ImageReference {
	var refs []ImageReference
	for _, match := range imagePattern.FindAllStringSubmatch(body, -1) {
		target := match[2]
		if isRemoteURL(target) {
			continue
		}
		fullPath := filepath.Join(articleDir, filepath.FromSlash(target))
		if info, err := os.Stat(fullPath); err != nil || info.IsDir() {
			continue
		}
		refs = append(refs, ImageReference{
			Alt:      match[1],
			Path:     target,
			FullPath: fullPath,
			Markdown: match[0],
		})
	}
	return refs
}

// RewriteImageLinks replaces each "](local)" occurrence with "](remote)" for
// every entry in mapping. The substitution is purely textual; references
// without a mapping entry are left as they are.
func RewriteImageLinks(body string, mapping map[string]string) string {
	if len(mapping) == 0 {
		return body
	}
	pairs := make([]string, 0, len(mapping)*2)
	for local, remote := range mapping {
		pairs = append(pairs, "]("+local+")", "]("+remote+")")
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

func isRemoteURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}
