package identity

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDIsStable(t *testing.T) {
	first := UUID("wpsync:test:my-post")
	second := UUID("  wpsync:test:my-post ")
	if first == uuid.Nil {
		t.Fatalf("expected non-nil uuid")
	}
	if first != second {
		t.Fatalf("expected trimmed keys to match: %s != %s", first, second)
	}
}

func TestUUIDEmptyKey(t *testing.T) {
	if got := UUID("   "); got != uuid.Nil {
		t.Fatalf("expected nil uuid for blank key, got %s", got)
	}
}

func TestHelpersAreNamespaced(t *testing.T) {
	if PostCreateKey("my-post") == IndexEntryID("my-post").String() {
		t.Fatalf("expected post key and index id to differ")
	}
	if PostCreateKey("my-post") != PostCreateKey("my-post") {
		t.Fatalf("expected post create key to be deterministic")
	}
	if PostCreateKey("my-post") == PostCreateKey("other-post") {
		t.Fatalf("expected distinct keys per slug")
	}
}

func TestCorrelationIDIsUnique(t *testing.T) {
	if CorrelationID() == CorrelationID() {
		t.Fatalf("expected distinct correlation ids")
	}
}
