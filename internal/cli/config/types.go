// Package config provides configuration management for the tmplc CLI.
//
// CLI settings are layered with koanf: built-in defaults, then TMPLC_
// environment variables, then explicitly set flags. They are distinct from
// the project's template configuration document (tmplc.toml), which is
// resolved by internal/config for every declaration.
package config

// Config holds all CLI configuration options.
type Config struct {
	// ProjectRoot is the directory declarations are compiled against. It is
	// inferred, not read from a key.
	ProjectRoot string `koanf:"-"`

	Root         string `koanf:"root"`
	ConfigFile   string `koanf:"config"`
	Whitespace   string `koanf:"whitespace"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
}

// Output formats of the config command.
const (
	OutputTable = "table"
	OutputYAML  = "yaml"
	OutputJSON  = "json"
)

// Default configuration values.
const (
	DefaultOutput = OutputTable
	EnvPrefix     = "TMPLC_"
)

// OutputFormats lists the accepted values of the output setting.
func OutputFormats() []string {
	return []string{OutputTable, OutputYAML, OutputJSON}
}
