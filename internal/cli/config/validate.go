package config

import (
	"fmt"
	"slices"

	intconfig "github.com/leapstack-labs/tmplc/internal/config"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(OutputFormats(), c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (want one of %v)", c.OutputFormat, OutputFormats())
	}
	if c.Whitespace != "" {
		if _, err := intconfig.ParseWhitespace(c.Whitespace); err != nil {
			return err
		}
	}
	return nil
}
