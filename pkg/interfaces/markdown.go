package interfaces

// MarkdownParser converts raw Markdown bytes into HTML.
type MarkdownParser interface {
	// Parse converts Markdown into HTML using the parser's default settings.
	Parse(markdown []byte) ([]byte, error)
	// ParseWithOptions converts Markdown into HTML using the supplied overrides.
	ParseWithOptions(markdown []byte, opts ParseOptions) ([]byte, error)
}

// ParseOptions customises Markdown rendering. Field names stay readable so they
// can be unmarshalled from configuration.
type ParseOptions struct {
	Extensions []string `mapstructure:"extensions"`
	Sanitize   bool     `mapstructure:"sanitize"`
	HardWraps  bool     `mapstructure:"hard_wraps"`
	SafeMode   bool     `mapstructure:"safe_mode"`
}
