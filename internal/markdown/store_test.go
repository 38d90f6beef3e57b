package markdown

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-wpsync/internal/syncerr"
)

func copyFixture(t *testing.T, slugs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, slug := range slugs {
		data, err := os.ReadFile(filepath.Join("testdata", "content", slug, ArticleFile))
		if err != nil {
			t.Fatalf("read fixture %s: %v", slug, err)
		}
		writeArticle(t, root, slug, string(data))
	}
	return root
}

func writeArticle(t *testing.T, root, slug, content string) {
	t.Helper()
	dir := filepath.Join(root, slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, ArticleFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", slug, err)
	}
}

func TestStoreReadParsesFrontmatterAndBody(t *testing.T) {
	store := NewStore(copyFixture(t, "my-post"))

	article, err := store.Read("my-post")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if article.Frontmatter.String("title") != "My Post" {
		t.Fatalf("unexpected title %q", article.Frontmatter.String("title"))
	}
	if article.Frontmatter.Mapping("images").String("featured") != "hero.png" {
		t.Fatalf("expected nested images.featured")
	}
	if !strings.HasPrefix(article.Body, "# My Post") || !strings.HasSuffix(article.Body, "![Diagram](diagram.png)") {
		t.Fatalf("expected trimmed body, got %q", article.Body)
	}
	if article.Dir != filepath.Join(store.Root(), "my-post") {
		t.Fatalf("unexpected article dir %s", article.Dir)
	}
}

func TestStoreReadAcceptsTrailingSeparator(t *testing.T) {
	store := NewStore(copyFixture(t, "my-post"))

	for _, slug := range []string{"my-post/", `my-post\`, " my-post// "} {
		article, err := store.Read(slug)
		if err != nil {
			t.Fatalf("Read(%q): %v", slug, err)
		}
		if article.Slug != "my-post" {
			t.Fatalf("Read(%q): expected slug my-post, got %q", slug, article.Slug)
		}
	}
	if _, err := store.Read("/"); !errors.Is(err, ErrInvalidSlug) {
		t.Fatalf("expected a bare separator to be rejected, got %v", err)
	}
}

func TestStoreRoundTripIsByteIdentical(t *testing.T) {
	for _, slug := range []string{"my-post", "café-notes"} {
		t.Run(slug, func(t *testing.T) {
			root := copyFixture(t, slug)
			store := NewStore(root)
			original, err := os.ReadFile(store.ArticlePath(slug))
			if err != nil {
				t.Fatalf("read original: %v", err)
			}

			article, err := store.Read(slug)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if err := store.Write(slug, article.Frontmatter, article.Body); err != nil {
				t.Fatalf("Write: %v", err)
			}

			rewritten, err := os.ReadFile(store.ArticlePath(slug))
			if err != nil {
				t.Fatalf("read rewritten: %v", err)
			}
			if string(rewritten) != string(original) {
				t.Fatalf("round trip changed the document\nwant:\n%s\ngot:\n%s", original, rewritten)
			}
		})
	}
}

func TestStoreWriteOnlyChangesSetKeys(t *testing.T) {
	root := copyFixture(t, "my-post")
	store := NewStore(root)

	article, err := store.Read("my-post")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	article.Frontmatter.Set("postId", 42)
	if err := store.Write("my-post", article.Frontmatter, article.Body); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, _ := os.ReadFile(store.ArticlePath("my-post"))
	if !strings.Contains(string(data), "  social: social.jpg\npostId: 42\n---\n\n# My Post") {
		t.Fatalf("expected postId appended after existing keys, got:\n%s", data)
	}
	if !strings.Contains(string(data), "metaDescription: 'A short: quoted description'\n") {
		t.Fatalf("expected untouched scalar to keep its quoting, got:\n%s", data)
	}
}

func TestStoreReadMissingArticleIsFatalNotFound(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Read("nope")
	if !errors.Is(err, ErrArticleNotFound) {
		t.Fatalf("expected ErrArticleNotFound, got %v", err)
	}
	if !syncerr.IsFatal(err) || !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Fatalf("expected fatal not-found error, got %v", err)
	}
}

func TestStoreReadMalformedDocuments(t *testing.T) {
	cases := map[string]string{
		"no-delimiter":   "title: x\n\nbody\n",
		"leading-text":   "intro\n---\ntitle: x\n---\nbody\n",
		"unterminated":   "---\ntitle: x\nbody\n",
		"scalar-block":   "---\njust text\n---\nbody\n",
		"empty-block":    "---\n---\nbody\n",
		"invalid-yaml":   "---\ntitle: [unclosed\n---\nbody\n",
		"sequence-block": "---\n- a\n- b\n---\nbody\n",
	}
	root := t.TempDir()
	for slug, content := range cases {
		writeArticle(t, root, slug, content)
	}
	store := NewStore(root)

	for slug := range cases {
		_, err := store.Read(slug)
		if !errors.Is(err, ErrMalformedContent) {
			t.Fatalf("%s: expected ErrMalformedContent, got %v", slug, err)
		}
		if !syncerr.HasTextCode(err, syncerr.TextCodeMalformedContent) {
			t.Fatalf("%s: expected malformed text code, got %v", slug, err)
		}
	}
}

func TestStoreWriteRenameFailureLeavesOriginalIntact(t *testing.T) {
	root := copyFixture(t, "my-post")
	injected := errors.New("rename failed")
	store := NewStore(root, WithRenameFunc(func(string, string) error { return injected }))

	original, _ := os.ReadFile(store.ArticlePath("my-post"))
	article, err := store.Read("my-post")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	article.Frontmatter.Set("postId", 99)

	err = store.Write("my-post", article.Frontmatter, article.Body)
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected rename error, got %v", err)
	}

	current, _ := os.ReadFile(store.ArticlePath("my-post"))
	if string(current) != string(original) {
		t.Fatalf("canonical document changed after failed rename")
	}
	if _, err := NewStore(root).Read("my-post"); err != nil {
		t.Fatalf("original should remain readable: %v", err)
	}

	tmp, err := os.ReadFile(filepath.Join(root, "my-post", "index.tmp"))
	if err != nil {
		t.Fatalf("expected temp file to be left for diagnosis: %v", err)
	}
	if !strings.Contains(string(tmp), "postId: 99") {
		t.Fatalf("expected temp file to hold the new document, got:\n%s", tmp)
	}
}

func TestStoreRejectsPathLikeSlugs(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, slug := range []string{"", ".", "..", "a/b", `a\b`} {
		if _, err := store.Read(slug); !errors.Is(err, ErrInvalidSlug) {
			t.Fatalf("slug %q: expected ErrInvalidSlug, got %v", slug, err)
		}
	}
}

func TestStoreLockIsExclusive(t *testing.T) {
	store := NewStore(copyFixture(t, "my-post"))

	unlock, err := store.Lock("my-post")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := store.Lock("my-post"); !errors.Is(err, ErrArticleLocked) {
		t.Fatalf("expected ErrArticleLocked, got %v", err)
	}
	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	unlockAgain, err := store.Lock("my-post")
	if err != nil {
		t.Fatalf("expected lock to be free after unlock: %v", err)
	}
	_ = unlockAgain()
}

func TestStoreListReturnsSortedSlugs(t *testing.T) {
	root := t.TempDir()
	writeArticle(t, root, "b-post", "---\ntitle: B\n---\n")
	writeArticle(t, root, "a-post", "---\ntitle: A\n---\n")
	if err := os.MkdirAll(filepath.Join(root, "no-index"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	slugs, err := NewStore(root).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if strings.Join(slugs, ",") != "a-post,b-post" {
		t.Fatalf("unexpected slugs %v", slugs)
	}

	missing, err := NewStore(filepath.Join(root, "absent")).List(context.Background())
	if err != nil || len(missing) != 0 {
		t.Fatalf("expected empty list for missing root, got %v (%v)", missing, err)
	}
}
