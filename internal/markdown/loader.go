package markdown

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
)

// List returns the slugs under the store root that hold an index.md, in
// lexicographic order. A missing root yields an empty list.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(s.root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	matches, err := fs.Glob(os.DirFS(s.root), path.Join("*", ArticleFile))
	if err != nil {
		return nil, fmt.Errorf("list articles in %s: %w", s.root, err)
	}

	slugs := make([]string, 0, len(matches))
	for _, match := range matches {
		slugs = append(slugs, path.Dir(match))
	}
	sort.Strings(slugs)
	return slugs, nil
}
