package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/frontmatter"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-wpsync/internal/fsutil"
	"github.com/goliatone/go-wpsync/internal/logging"
	"github.com/goliatone/go-wpsync/internal/syncerr"
	"github.com/goliatone/go-wpsync/pkg/interfaces"
)

const (
	// ArticleFile is the document every article directory holds.
	ArticleFile = "index.md"
	lockFile    = ".publish.lock"
	delimiter   = "---"
)

var (
	ErrArticleNotFound  = errors.New("article not found")
	ErrMalformedContent = errors.New("malformed article content")
	ErrInvalidSlug      = errors.New("invalid article slug")
	ErrArticleLocked    = errors.New("article is locked by another publish run")
)

// yamlFormat restricts detection to "---" delimited YAML decoded by yaml.v3,
// which keeps key order and returns timestamps as time.Time.
var yamlFormat = frontmatter.NewFormat(delimiter, delimiter, yaml.Unmarshal)

// Article is one parsed document.
type Article struct {
	Slug        string
	Dir         string
	Path        string
	Frontmatter *Frontmatter
	Body        string
}

// Store reads and writes articles laid out as <root>/<slug>/index.md.
type Store struct {
	root   string
	rename fsutil.RenameFunc
	logger interfaces.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRenameFunc replaces os.Rename for the final step of Write.
func WithRenameFunc(fn fsutil.RenameFunc) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.rename = fn
		}
	}
}

// WithStoreLogger sets the logger used for write diagnostics.
func WithStoreLogger(logger interfaces.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logging.Or(logger)
	}
}

// NewStore returns a store rooted at root.
func NewStore(root string, opts ...StoreOption) *Store {
	s := &Store{
		root:   root,
		rename: os.Rename,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the content directory.
func (s *Store) Root() string {
	return s.root
}

// ArticleDir returns the directory holding slug's document and images.
func (s *Store) ArticleDir(slug string) string {
	return filepath.Join(s.root, slug)
}

// ArticlePath returns the path of slug's index.md.
func (s *Store) ArticlePath(slug string) string {
	return filepath.Join(s.root, slug, ArticleFile)
}

// Read loads and parses slug's document. Failures are fatal: a missing file
// maps to ErrArticleNotFound and unparsable content to ErrMalformedContent.
func (s *Store) Read(slug string) (*Article, error) {
	slug = CleanSlug(slug)
	if err := validateSlug(slug); err != nil {
		return nil, err
	}

	path := s.ArticlePath(slug)
	source, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, syncerr.Fatal(fmt.Errorf("%w: %s", ErrArticleNotFound, path),
				goerrors.CategoryNotFound, syncerr.TextCodeArticleNotFound, "article not found")
		}
		return nil, syncerr.Fatal(err, goerrors.CategoryInternal, syncerr.TextCodeArticleNotFound, "read article")
	}

	fm, body, err := ParseDocument(source)
	if err != nil {
		return nil, syncerr.Fatal(fmt.Errorf("%s: %w", path, err),
			goerrors.CategoryBadInput, syncerr.TextCodeMalformedContent, "malformed article")
	}

	return &Article{
		Slug:        slug,
		Dir:         s.ArticleDir(slug),
		Path:        path,
		Frontmatter: fm,
		Body:        body,
	}, nil
}

// Write replaces slug's document with fm and body. The document is written
// to index.tmp and renamed over index.md; when the rename fails index.tmp is
// kept and index.md is left as it was.
func (s *Store) Write(slug string, fm *Frontmatter, body string) error {
	slug = CleanSlug(slug)
	if err := validateSlug(slug); err != nil {
		return err
	}

	data, err := EncodeDocument(fm, body)
	if err != nil {
		return syncerr.Fatal(err, goerrors.CategoryInternal, syncerr.TextCodeWriteFailed, "encode article")
	}

	path := s.ArticlePath(slug)
	if err := fsutil.WriteFileAtomic(path, data, 0, s.rename); err != nil {
		s.logger.Error("article.write.failed", "slug", slug, "path", path, "error", err)
		return syncerr.Fatal(err, goerrors.CategoryInternal, syncerr.TextCodeWriteFailed, "write article")
	}
	s.logger.Debug("article.write.completed", "slug", slug, "bytes", len(data))
	return nil
}

// Lock takes an advisory per-article lock by creating .publish.lock with
// O_EXCL. It returns ErrArticleLocked while another holder exists.
func (s *Store) Lock(slug string) (func() error, error) {
	slug = CleanSlug(slug)
	if err := validateSlug(slug); err != nil {
		return nil, err
	}

	path := filepath.Join(s.ArticleDir(slug), lockFile)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, syncerr.Fatal(fmt.Errorf("%w: %s", ErrArticleLocked, path),
				goerrors.CategoryConflict, syncerr.TextCodeArticleLocked, "article locked")
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, syncerr.Fatal(fmt.Errorf("%w: %s", ErrArticleNotFound, s.ArticleDir(slug)),
				goerrors.CategoryNotFound, syncerr.TextCodeArticleNotFound, "article not found")
		}
		return nil, syncerr.Fatal(err, goerrors.CategoryInternal, syncerr.TextCodeArticleLocked, "acquire article lock")
	}
	_, _ = file.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	_ = file.Close()

	return func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}, nil
}

// ParseDocument splits source into frontmatter and body. The document must
// open with a "---" line and close the block with another; the block must
// hold a YAML mapping. The body is returned without surrounding whitespace.
func ParseDocument(source []byte) (*Frontmatter, string, error) {
	if !bytes.HasPrefix(source, []byte(delimiter)) {
		return nil, "", fmt.Errorf("%w: document does not start with %q", ErrMalformedContent, delimiter)
	}

	fm := &Frontmatter{}
	body, err := frontmatter.MustParse(bytes.NewReader(source), fm, yamlFormat)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: missing closing %q", ErrMalformedContent, delimiter)
		}
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}
	if fm.values == nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedContent, errNotMapping)
	}
	return fm, strings.TrimSpace(string(body)), nil
}

// EncodeDocument renders fm as a block YAML mapping between "---" lines,
// followed by a blank line, body and a trailing newline.
func EncodeDocument(fm *Frontmatter, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")

	if fm.Len() > 0 {
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(fm); err != nil {
			return nil, err
		}
		if err := encoder.Close(); err != nil {
			return nil, err
		}
	}

	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// CleanSlug trims whitespace and trailing path separators, so a slug typed
// with shell completion ("my-post/") names the same article.
func CleanSlug(slug string) string {
	return strings.TrimRight(strings.TrimSpace(slug), `/\`)
}

func validateSlug(slug string) error {
	if slug == "" || slug == "." || slug == ".." || strings.ContainsAny(slug, `/\`) {
		return syncerr.Fatal(fmt.Errorf("%w: %q", ErrInvalidSlug, slug),
			goerrors.CategoryBadInput, syncerr.TextCodeArticleNotFound, "invalid slug")
	}
	return nil
}
