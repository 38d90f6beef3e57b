package wordpress

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-wpsync/internal/identity"
	"github.com/goliatone/go-wpsync/internal/markdown"
	"github.com/goliatone/go-wpsync/internal/syncerr"
	"github.com/goliatone/go-wpsync/pkg/testsupport"
)

func newFrontmatter(pairs ...any) *markdown.Frontmatter {
	fm := markdown.NewFrontmatter()
	for i := 0; i+1 < len(pairs); i += 2 {
		fm.Set(pairs[i].(string), pairs[i+1])
	}
	return fm
}

func TestBuildPostPayloadDefaults(t *testing.T) {
	fm := newFrontmatter("title", "Hello")
	payload := BuildPostPayload("Hello World", fm, "<p>hi</p>", 0)

	if payload.Status != "publish" {
		t.Fatalf("expected default status publish, got %q", payload.Status)
	}
	if payload.Slug != "hello-world" {
		t.Fatalf("expected normalized slug fallback, got %q", payload.Slug)
	}
	if payload.Categories != nil || payload.FeaturedMedia != 0 {
		t.Fatalf("expected optional fields to be empty, got %+v", payload)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(encoded), "categories") || strings.Contains(string(encoded), "featured_media") {
		t.Fatalf("expected optional keys to be omitted, got %s", encoded)
	}
}

func TestBuildPostPayloadCarriesFrontmatter(t *testing.T) {
	fm := newFrontmatter(
		"title", "My Post",
		"slug", "custom-slug",
		"status", "draft",
		"categoryId", 7,
		"metaDescription", "Summary",
	)
	payload := BuildPostPayload("my-post", fm, "<p>body</p>", 55)

	if payload.Title != "My Post" || payload.Excerpt != "Summary" || payload.Status != "draft" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Slug != "custom-slug" {
		t.Fatalf("expected frontmatter slug, got %q", payload.Slug)
	}
	if len(payload.Categories) != 1 || payload.Categories[0] != 7 {
		t.Fatalf("expected categories [7], got %v", payload.Categories)
	}
	if payload.FeaturedMedia != 55 {
		t.Fatalf("expected featured media 55, got %d", payload.FeaturedMedia)
	}
}

func TestSyncCreatesPostWithoutPostID(t *testing.T) {
	fake := testsupport.NewFakeWordPress(t, "")
	syncer := NewPostSynchronizer(newTestClient(t, fake), nil)

	fm := newFrontmatter("title", "My Post", "slug", "my-post")
	outcome, err := syncer.Sync(context.Background(), "my-post", fm, "<p>hi</p>", 0)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !outcome.Created {
		t.Fatalf("expected create")
	}
	post, ok := fake.Post(outcome.Post.ID)
	if !ok {
		t.Fatalf("expected post %d to exist", outcome.Post.ID)
	}
	if post.IdempotencyKey != identity.PostCreateKey("my-post") {
		t.Fatalf("expected idempotency key, got %q", post.IdempotencyKey)
	}
	if post.Payload["content"] != "<p>hi</p>" {
		t.Fatalf("unexpected content %v", post.Payload["content"])
	}
	if !strings.HasPrefix(outcome.Post.Link, fake.BaseURL()) {
		t.Fatalf("expected link under base url, got %q", outcome.Post.Link)
	}
}

func TestSyncUpdatesExistingPost(t *testing.T) {
	fake := testsupport.NewFakeWordPress(t, "")
	fake.AddPost(42, "my-post")
	syncer := NewPostSynchronizer(newTestClient(t, fake), nil)

	fm := newFrontmatter("title", "My Post", "postId", 42)
	outcome, err := syncer.Sync(context.Background(), "my-post", fm, "<p>v2</p>", 0)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if outcome.Created || outcome.Post.ID != 42 {
		t.Fatalf("expected update of post 42, got %+v", outcome)
	}
	if fake.Count(http.MethodPut, "posts/:id") != 1 || fake.Count(http.MethodPost, "posts") != 0 {
		t.Fatalf("expected a single PUT")
	}
	if fake.PostCount() != 1 {
		t.Fatalf("expected no duplicate post")
	}
}

func TestSyncFalsyPostIDCreates(t *testing.T) {
	fake := testsupport.NewFakeWordPress(t, "")
	syncer := NewPostSynchronizer(newTestClient(t, fake), nil)

	fm := newFrontmatter("title", "My Post", "postId", nil)
	outcome, err := syncer.Sync(context.Background(), "my-post", fm, "", 0)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !outcome.Created {
		t.Fatalf("expected a null postId to create")
	}
}

func TestSyncUnexpectedStatusIsFatal(t *testing.T) {
	fake := testsupport.NewFakeWordPress(t, "")
	syncer := NewPostSynchronizer(newTestClient(t, fake), nil)

	fm := newFrontmatter("title", "Gone", "postId", 999)
	_, err := syncer.Sync(context.Background(), "gone", fm, "", 0)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !syncerr.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if !syncerr.HasTextCode(err, syncerr.TextCodePostSyncFailed) {
		t.Fatalf("expected POST_SYNC_FAILED, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryExternal) {
		t.Fatalf("expected external category, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status in message, got %q", err.Error())
	}
}

func TestSyncCreateRejectsNonCreatedStatus(t *testing.T) {
	fake := testsupport.NewFakeWordPress(t, "")
	fake.FailWith("POST posts", http.StatusOK)
	syncer := NewPostSynchronizer(newTestClient(t, fake), nil)

	_, err := syncer.Sync(context.Background(), "my-post", newFrontmatter("title", "x"), "", 0)
	if !syncerr.IsFatal(err) {
		t.Fatalf("expected 200 on create to be fatal, got %v", err)
	}
}
