package index_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-wpsync/internal/index"
	"github.com/goliatone/go-wpsync/internal/logging/console"
	"github.com/goliatone/go-wpsync/internal/markdown"
	"github.com/goliatone/go-wpsync/internal/syncerr"
	"github.com/goliatone/go-wpsync/pkg/testsupport"
)

var rebuiltAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func seedCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testsupport.WriteArticle(t, root, "beta", "---\ntitle: Beta\nslug: beta-custom\nstatus: publish\npostId: 42\n---\n\nBeta body\n", nil)
	testsupport.WriteArticle(t, root, "alpha", "---\ntitle: Alpha\ndate: 2024-01-15\n---\n\nAlpha body\n", nil)
	testsupport.WriteArticle(t, root, "broken", "no frontmatter here\n", nil)
	testsupport.WriteArticle(t, root, "unclosed", "---\ntitle: Unclosed\n", nil)
	testsupport.WriteArticle(t, root, "listy", "---\n- a\n- b\n---\n\nbody\n", nil)
	if err := os.MkdirAll(filepath.Join(root, "no-index"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return root
}

func newBuilder(root string, logBuf *bytes.Buffer, opts ...index.Option) *index.Builder {
	logger := console.NewProvider(console.Options{Writer: logBuf, MinLevel: console.LevelWarn}).GetLogger("wpsync.index")
	opts = append([]index.Option{
		index.WithLogger(logger),
		index.WithClock(func() time.Time { return rebuiltAt }),
	}, opts...)
	return index.NewBuilder(markdown.NewStore(root), opts...)
}

func TestBuildSkipsMalformedArticles(t *testing.T) {
	var logs bytes.Buffer
	builder := newBuilder(seedCorpus(t), &logs)

	entries, skipped, err := builder.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if len(skipped) != 3 {
		t.Fatalf("expected 3 skipped articles, got %d", len(skipped))
	}
	if got := strings.Count(logs.String(), "index.article.skipped"); got != 3 {
		t.Fatalf("expected 3 warnings, got %d\n%s", got, logs.String())
	}
	for _, skip := range skipped {
		if !errors.Is(skip.Err, markdown.ErrMalformedContent) {
			t.Fatalf("expected malformed content for %s, got %v", skip.Slug, skip.Err)
		}
	}

	if got := entries[0].String("slug"); got != "alpha" {
		t.Fatalf("expected slug defaulted to directory name, got %q", got)
	}
	if got := entries[1].String("slug"); got != "beta-custom" {
		t.Fatalf("expected frontmatter slug to win, got %q", got)
	}
	if keys := entries[0].Keys(); !reflect.DeepEqual(keys, []string{"title", "date", "slug"}) {
		t.Fatalf("unexpected key order %v", keys)
	}
}

func TestBuildMissingRootIsEmpty(t *testing.T) {
	var logs bytes.Buffer
	builder := newBuilder(filepath.Join(t.TempDir(), "missing"), &logs)

	entries, skipped, err := builder.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(entries) != 0 || len(skipped) != 0 {
		t.Fatalf("expected empty build, got %d entries %d skipped", len(entries), len(skipped))
	}
}

func TestBuildProjectsFields(t *testing.T) {
	var logs bytes.Buffer
	builder := newBuilder(seedCorpus(t), &logs)

	entries, _, err := builder.Build(context.Background(), index.ParseFields("status, title,,missing"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if keys := entries[0].Keys(); !reflect.DeepEqual(keys, []string{"title", "slug"}) {
		t.Fatalf("unexpected alpha keys %v", keys)
	}
	if keys := entries[1].Keys(); !reflect.DeepEqual(keys, []string{"status", "title", "slug"}) {
		t.Fatalf("unexpected beta keys %v", keys)
	}
	if got := entries[1].String("slug"); got != "beta" {
		t.Fatalf("expected directory slug when slug is filtered out, got %q", got)
	}
}

func TestParseFields(t *testing.T) {
	if got := index.ParseFields(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	want := []string{"title", "date"}
	if got := index.ParseFields(" title ,date, "); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRebuildWritesArtifact(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteArticle(t, root, "alpha", strings.Join([]string{
		"---",
		"title: Alpha <One> & café",
		"date: 2024-01-15",
		"published: 2024-02-01T09:30:00Z",
		"meta:",
		"  updated: 2024-02-02",
		"  stamps:",
		"    - 2024-02-03",
		"---",
		"",
		"Body",
		"",
	}, "\n"), nil)

	output := filepath.Join(t.TempDir(), "_index.json")
	var logs bytes.Buffer
	result, err := newBuilder(root, &logs).Rebuild(context.Background(), output, nil)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if result.Articles != 1 || result.Skipped != 0 || result.Output != output {
		t.Fatalf("unexpected result %+v", result)
	}

	want := `{
  "articles": [
    {
      "title": "Alpha <One> & café",
      "date": "2024-01-15",
      "published": "2024-02-01T09:30:00Z",
      "meta": {
        "updated": "2024-02-02",
        "stamps": [
          "2024-02-03"
        ]
      },
      "slug": "alpha"
    }
  ],
  "rebuiltAt": "2024-03-01T10:00:00.000000Z"
}
`
	if got := testsupport.ReadFile(t, output); got != want {
		t.Fatalf("unexpected artifact\nwant:\n%s\ngot:\n%s", want, got)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(output), "_index.tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away, stat err %v", err)
	}
}

func TestRebuildEmptyCorpus(t *testing.T) {
	output := filepath.Join(t.TempDir(), "_index.json")
	var logs bytes.Buffer
	if _, err := newBuilder(t.TempDir(), &logs).Rebuild(context.Background(), output, nil); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	var doc struct {
		Articles  []map[string]any `json:"articles"`
		RebuiltAt string           `json:"rebuiltAt"`
	}
	if err := testsupport.LoadJSON(output, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Articles == nil || len(doc.Articles) != 0 {
		t.Fatalf("expected empty articles array, got %v", doc.Articles)
	}
	if !strings.HasSuffix(doc.RebuiltAt, "Z") {
		t.Fatalf("expected Z timestamp, got %q", doc.RebuiltAt)
	}
}

func TestRebuildKeepsPreviousArtifactWhenRenameFails(t *testing.T) {
	root := seedCorpus(t)
	output := filepath.Join(t.TempDir(), "_index.json")
	if err := os.WriteFile(output, []byte("{\"previous\":true}\n"), 0o644); err != nil {
		t.Fatalf("seed output: %v", err)
	}

	failRename := func(string, string) error { return errors.New("disk unplugged") }
	var logs bytes.Buffer
	_, err := newBuilder(root, &logs, index.WithRenameFunc(failRename)).Rebuild(context.Background(), output, nil)
	if !syncerr.HasTextCode(err, syncerr.TextCodeIndexWriteFailed) {
		t.Fatalf("expected INDEX_WRITE_FAILED, got %v", err)
	}
	if got := testsupport.ReadFile(t, output); got != "{\"previous\":true}\n" {
		t.Fatalf("expected previous artifact to survive, got %q", got)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(output), "_index.tmp")); err != nil {
		t.Fatalf("expected temp file to be kept for inspection: %v", err)
	}
}

type recordingMirror struct {
	artifacts []*index.Artifact
}

func (m *recordingMirror) Replace(_ context.Context, artifact *index.Artifact) error {
	m.artifacts = append(m.artifacts, artifact)
	return nil
}

func TestRebuildFeedsMirror(t *testing.T) {
	mirror := &recordingMirror{}
	var logs bytes.Buffer
	builder := newBuilder(seedCorpus(t), &logs, index.WithMirror(mirror))

	if _, err := builder.Rebuild(context.Background(), filepath.Join(t.TempDir(), "_index.json"), nil); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if len(mirror.artifacts) != 1 || len(mirror.artifacts[0].Articles) != 2 {
		t.Fatalf("expected mirror to receive the artifact, got %+v", mirror.artifacts)
	}
}

func TestProjectKeepsTimeOfMidnightDatetimes(t *testing.T) {
	fm, _, err := markdown.ParseDocument([]byte("---\npublished: 2024-02-01T00:00:00Z\ndate: 2024-02-01\n---\nx\n"))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	data, err := index.Project("a", fm, nil).MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	want := `{"published":"2024-02-01T00:00:00Z","date":"2024-02-01","slug":"a"}`
	if string(data) != want {
		t.Fatalf("unexpected entry\nwant: %s\ngot:  %s", want, data)
	}
}
