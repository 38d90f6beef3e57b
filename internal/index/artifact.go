package index

import (
	"bytes"
	"encoding/json"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-wpsync/internal/fsutil"
	"github.com/goliatone/go-wpsync/internal/markdown"
	"github.com/goliatone/go-wpsync/internal/syncerr"
)

// Artifact is the on-disk index document.
type Artifact struct {
	Articles  []*markdown.Frontmatter `json:"articles"`
	RebuiltAt string                  `json:"rebuiltAt"`
}

// Encode renders the artifact as 2-space indented JSON with a trailing
// newline. Non-ASCII and HTML characters are written as is.
func (a *Artifact) Encode() ([]byte, error) {
	doc := *a
	if doc.Articles == nil {
		doc.Articles = []*markdown.Frontmatter{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteArtifact writes artifact to <output stem>.tmp and renames it over
// output. A nil rename uses os.Rename.
func WriteArtifact(output string, artifact *Artifact, rename fsutil.RenameFunc) error {
	data, err := artifact.Encode()
	if err != nil {
		return syncerr.Fatal(err, goerrors.CategoryInternal, syncerr.TextCodeIndexWriteFailed, "encode index")
	}
	if err := fsutil.WriteFileAtomic(output, data, 0, rename); err != nil {
		return syncerr.Fatal(err, goerrors.CategoryInternal, syncerr.TextCodeIndexWriteFailed, "write index")
	}
	return nil
}
