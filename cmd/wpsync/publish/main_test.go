package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-wpsync/cmd/wpsync/internal/bootstrap"
	"github.com/goliatone/go-wpsync/internal/logging"
	"github.com/goliatone/go-wpsync/internal/markdown"
	"github.com/goliatone/go-wpsync/internal/publish"
	"github.com/goliatone/go-wpsync/internal/syncerr"
	"github.com/goliatone/go-wpsync/pkg/testsupport"
)

type stubPublisher struct {
	slugs  []string
	result *publish.Result
}

func (s *stubPublisher) Publish(_ context.Context, slug string) (*publish.Result, error) {
	s.slugs = append(s.slugs, slug)
	return s.result, nil
}

func TestRunPublishUsesCommandHandler(t *testing.T) {
	original := moduleBuilder
	defer func() { moduleBuilder = original }()

	stub := &stubPublisher{result: &publish.Result{Slug: "hello-world", PostID: 7, URL: "https://blog.example.com/hello-world/"}}
	var got bootstrap.Options
	moduleBuilder = func(opts bootstrap.Options) (*bootstrap.PublishModule, error) {
		got = opts
		return &bootstrap.PublishModule{Publisher: stub, Logger: logging.NoOp()}, nil
	}

	var out bytes.Buffer
	if err := runPublish([]string{"-content-dir", "posts", "-lock", "hello-world"}, &out); err != nil {
		t.Fatalf("runPublish returned error: %v", err)
	}
	if len(stub.slugs) != 1 || stub.slugs[0] != "hello-world" {
		t.Fatalf("expected publish of hello-world, got %v", stub.slugs)
	}
	if got.Config.ContentDir != "posts" || !got.Config.Publish.LockArticles {
		t.Fatalf("flags not forwarded: %+v", got.Config)
	}
	want := "Updated: hello-world\n  Post ID: 7\n  URL: https://blog.example.com/hello-world/\n"
	if out.String() != want {
		t.Fatalf("unexpected output\nwant %q\ngot  %q", want, out.String())
	}
}

func TestRunPublishRequiresSlug(t *testing.T) {
	if err := runPublish(nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected usage error without slug")
	}
}

func writeCredentialsFile(t *testing.T, baseURL string) string {
	t.Helper()
	data, err := json.Marshal(map[string]string{
		"baseURL":             baseURL,
		"username":            testsupport.FakeUsername,
		"applicationPassword": testsupport.FakePassword,
	})
	if err != nil {
		t.Fatalf("marshal credentials: %v", err)
	}
	path := filepath.Join(t.TempDir(), "wordpress.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	return path
}

func TestRunPublishAgainstFakeWordPress(t *testing.T) {
	fake := testsupport.NewFakeWordPress(t, "/wp-json/wp/v2")
	root := t.TempDir()
	articleDir := testsupport.WriteArticle(t, root, "hello-world", "---\ntitle: Hello\n---\n\nFirst post.\n", nil)
	articlePath := filepath.Join(articleDir, markdown.ArticleFile)
	creds := writeCredentialsFile(t, fake.BaseURL())
	args := []string{"-content-dir", root, "-config", creds, "-log-level", "error", "hello-world"}

	var out bytes.Buffer
	if err := runPublish(args, &out); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Created: Hello\n  Post ID: ") {
		t.Fatalf("unexpected first output %q", out.String())
	}
	if fake.PostCount() != 1 {
		t.Fatalf("expected one post, got %d", fake.PostCount())
	}
	if !strings.Contains(testsupport.ReadFile(t, articlePath), "postId: ") {
		t.Fatalf("expected postId to be written back")
	}

	out.Reset()
	completed := append(args[:len(args)-1:len(args)-1], "hello-world/")
	if err := runPublish(completed, &out); err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Updated: Hello\n") {
		t.Fatalf("unexpected second output %q", out.String())
	}
	if fake.PostCount() != 1 {
		t.Fatalf("expected republish to update in place, got %d posts", fake.PostCount())
	}
}

func TestRunPublishMissingCredentialsIsFatal(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteArticle(t, root, "hello-world", "---\ntitle: Hello\n---\n", nil)

	err := runPublish([]string{"-content-dir", root, "-config", filepath.Join(root, "absent.json"), "hello-world"}, &bytes.Buffer{})
	if !syncerr.HasTextCode(err, syncerr.TextCodeConfigNotFound) {
		t.Fatalf("expected CONFIG_NOT_FOUND, got %v", err)
	}
}

func TestRunPublishMissingArticleIsFatal(t *testing.T) {
	fake := testsupport.NewFakeWordPress(t, "")
	creds := writeCredentialsFile(t, fake.BaseURL())

	var out bytes.Buffer
	err := runPublish([]string{"-content-dir", t.TempDir(), "-config", creds, "-log-level", "error", "missing"}, &out)
	if !syncerr.HasTextCode(err, syncerr.TextCodeArticleNotFound) {
		t.Fatalf("expected ARTICLE_NOT_FOUND, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no stdout output, got %q", out.String())
	}
	if len(fake.Requests()) != 0 {
		t.Fatalf("expected no remote calls, got %d", len(fake.Requests()))
	}
}
