// Package config resolves the template-engine configuration of a project:
// search directories, delimiter syntaxes, escaper rules and the whitespace
// policy. A project document (tmplc.toml by default) is merged over built-in
// defaults; an absent document yields the defaults alone.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/tmplc/internal/diag"
)

// Config is a resolved configuration. It is not modified after New returns.
type Config struct {
	Root          string
	Dirs          []string
	Syntaxes      map[string]Syntax
	DefaultSyntax string
	Escapers      []EscaperRule
	Whitespace    Whitespace
}

// Document is a configuration document as read from disk. Path is empty when
// no document exists.
type Document struct {
	Path string
	Text string
}

type rawConfig struct {
	General *rawGeneral  `koanf:"general"`
	Syntax  []RawSyntax  `koanf:"syntax"`
	Escaper []rawEscaper `koanf:"escaper"`
}

type rawGeneral struct {
	Dirs          *[]string `koanf:"dirs"`
	DefaultSyntax *string   `koanf:"default_syntax"`
	Whitespace    *string   `koanf:"whitespace"`
}

type rawEscaper struct {
	Path       string   `koanf:"path"`
	Extensions []string `koanf:"extensions"`
}

// New resolves doc over the built-in defaults for the project at root.
// A non-empty whitespace overrides the document's whitespace policy.
func New(root string, doc Document, whitespace string) (*Config, error) {
	raw, err := parseDocument(doc)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Root:          root,
		Dirs:          []string{filepath.Join(root, DefaultTemplatesDir)},
		Syntaxes:      map[string]Syntax{DefaultSyntaxName: DefaultSyntax()},
		DefaultSyntax: DefaultSyntaxName,
		Whitespace:    WhitespacePreserve,
	}

	if g := raw.General; g != nil {
		if g.Dirs != nil {
			cfg.Dirs = make([]string, 0, len(*g.Dirs))
			for _, dir := range *g.Dirs {
				cfg.Dirs = append(cfg.Dirs, resolvePathRelativeTo(dir, root))
			}
		}
		if g.DefaultSyntax != nil {
			cfg.DefaultSyntax = *g.DefaultSyntax
		}
		if g.Whitespace != nil {
			ws, err := ParseWhitespace(*g.Whitespace)
			if err != nil {
				return nil, diag.New(&diag.MalformedConfigError{File: documentName(doc), Err: err})
			}
			cfg.Whitespace = ws
		}
	}

	if whitespace != "" {
		ws, err := ParseWhitespace(whitespace)
		if err != nil {
			return nil, diag.New(&diag.DeclarationError{Msg: err.Error()})
		}
		cfg.Whitespace = ws
	}

	for _, rs := range raw.Syntax {
		if rs.Name == "" {
			return nil, diag.New(&diag.MalformedConfigError{
				File: documentName(doc),
				Err:  errors.New("syntax entry without a name"),
			})
		}
		if _, dup := cfg.Syntaxes[rs.Name]; dup {
			return nil, diag.New(&diag.DuplicateSyntaxError{Name: rs.Name})
		}
		s, err := rs.Validate()
		if err != nil {
			return nil, err
		}
		cfg.Syntaxes[rs.Name] = s
	}

	if _, ok := cfg.Syntaxes[cfg.DefaultSyntax]; !ok {
		return nil, diag.New(&diag.UnknownDefaultSyntaxError{Name: cfg.DefaultSyntax})
	}

	for i, re := range raw.Escaper {
		if re.Path == "" {
			return nil, diag.New(&diag.MalformedConfigError{
				File: documentName(doc),
				Err:  fmt.Errorf("escaper entry %d without a path", i+1),
			})
		}
		cfg.Escapers = append(cfg.Escapers, EscaperRule{
			Extensions: append([]string{}, re.Extensions...),
			Escaper:    re.Path,
		})
	}
	cfg.Escapers = append(cfg.Escapers, DefaultEscapers()...)

	return cfg, nil
}

// Syntax returns the named syntax, or the default syntax when name is empty.
func (c *Config) Syntax(name string) (Syntax, bool) {
	if name == "" {
		name = c.DefaultSyntax
	}
	s, ok := c.Syntaxes[name]
	return s, ok
}

// parseDocument decodes doc into its raw sections. Empty text yields an
// all-absent document.
func parseDocument(doc Document) (rawConfig, error) {
	var raw rawConfig
	if strings.TrimSpace(doc.Text) == "" {
		return raw, nil
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider([]byte(doc.Text)), parserFor(doc.Path)); err != nil {
		return raw, diag.New(&diag.MalformedConfigError{File: documentName(doc), Err: err})
	}

	err := k.UnmarshalWithConf("", &raw, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: false,
		},
	})
	if err != nil {
		return raw, diag.New(&diag.MalformedConfigError{File: documentName(doc), Err: err})
	}
	return raw, nil
}

// parserFor picks the document parser from the file extension; TOML unless
// the document is YAML.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return toml.Parser()
	}
}

func documentName(doc Document) string {
	if doc.Path == "" {
		return ConfigFileName
	}
	return filepath.Base(doc.Path)
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}
