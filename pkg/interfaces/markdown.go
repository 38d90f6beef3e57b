package interfaces

// MarkdownParser converts article bodies into the HTML sent to the remote
// backend. Implementations must be pure: the same input yields the same
// output and no state is retained between calls.
type MarkdownParser interface {
	// Parse converts Markdown into HTML using the parser's default settings.
	Parse(markdown []byte) ([]byte, error)
	// ParseWithOptions converts Markdown into HTML using the supplied overrides.
	ParseWithOptions(markdown []byte, opts ParseOptions) ([]byte, error)
}

// ParseOptions customises rendering per call. Names stay readable so they can
// be bound from configuration files and CLI flags.
type ParseOptions struct {
	Extensions []string
	HardWraps  bool
	SafeMode   bool
}
