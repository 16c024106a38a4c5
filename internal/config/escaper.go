package config

// EscaperRule maps a set of file extensions (lowercase, no leading dot) to an
// escaper identifier.
type EscaperRule struct {
	Extensions []string
	Escaper    string
}

// Matches reports whether ext belongs to the rule's extension set.
func (r EscaperRule) Matches(ext string) bool {
	for _, e := range r.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// EscaperFor returns the escaper of the first rule containing ext.
func (c *Config) EscaperFor(ext string) (string, bool) {
	for _, r := range c.Escapers {
		if r.Matches(ext) {
			return r.Escaper, true
		}
	}
	return "", false
}
