package config

// Default configuration values.
const (
	// ConfigFileName is the configuration document looked up at the project root.
	ConfigFileName = "tmplc.toml"
	// DefaultTemplatesDir is the search directory used when none are configured.
	DefaultTemplatesDir = "templates"
	// DefaultSyntaxName names the built-in syntax.
	DefaultSyntaxName = "default"
)

// configFileNames are tried in order when no explicit document is given.
var configFileNames = []string{ConfigFileName, "tmplc.yaml", "tmplc.yml"}

// Escaper identifiers of the built-in rules.
const (
	EscaperHTML = "Html"
	EscaperText = "Text"
)

// defaultEscapers are appended after any user rules, in this order.
var defaultEscapers = []EscaperRule{
	{Extensions: []string{"html", "htm", "xml"}, Escaper: EscaperHTML},
	{Extensions: []string{"md", "none", "txt", "yml", ""}, Escaper: EscaperText},
	{Extensions: []string{"j2", "jinja", "jinja2"}, Escaper: EscaperHTML},
}

// DefaultEscapers returns a copy of the built-in escaper rules.
func DefaultEscapers() []EscaperRule {
	out := make([]EscaperRule, len(defaultEscapers))
	for i, r := range defaultEscapers {
		out[i] = EscaperRule{
			Extensions: append([]string(nil), r.Extensions...),
			Escaper:    r.Escaper,
		}
	}
	return out
}
