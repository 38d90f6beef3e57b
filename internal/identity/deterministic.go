package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Keys are namespaced by the helpers below so an article slug never collides
// with an index row for the same slug.
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// PostCreateKey is sent as the Idempotency-Key of a post create request.
// Two runs that both see no postId for the same slug send the same key.
func PostCreateKey(slug string) string {
	return UUID("wpsync:post_create:" + strings.TrimSpace(slug)).String()
}

// IndexEntryID is the primary key of slug's row in the index mirror.
func IndexEntryID(slug string) uuid.UUID {
	return UUID("wpsync:index_entry:" + strings.TrimSpace(slug))
}

// CorrelationID returns a fresh request id for remote calls.
func CorrelationID() string {
	return uuid.NewString()
}
