package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a failure variant.
type Kind int

// Kind constants, one per failure variant.
const (
	KindUnknown Kind = iota
	KindConfigMalformed
	KindDuplicateSyntax
	KindUnknownDefaultSyntax
	KindDelimiterLength
	KindAmbiguousDelimiters
	KindConfigMissing
	KindTemplateNotFound
	KindSourceRead
	KindUnresolvedBlock
	KindDiscovery
	KindGeneration
	KindDeclaration
	KindNoEscaper
)

func (k Kind) String() string {
	switch k {
	case KindConfigMalformed:
		return "config-malformed"
	case KindDuplicateSyntax:
		return "duplicate-syntax"
	case KindUnknownDefaultSyntax:
		return "unknown-default-syntax"
	case KindDelimiterLength:
		return "delimiter-length"
	case KindAmbiguousDelimiters:
		return "ambiguous-delimiters"
	case KindConfigMissing:
		return "config-missing"
	case KindTemplateNotFound:
		return "template-not-found"
	case KindSourceRead:
		return "source-read"
	case KindUnresolvedBlock:
		return "unresolved-block"
	case KindDiscovery:
		return "discovery"
	case KindGeneration:
		return "generation"
	case KindDeclaration:
		return "declaration"
	case KindNoEscaper:
		return "no-escaper"
	default:
		return "unknown"
	}
}

// Cause is implemented by every failure variant of this package. The set is
// closed: only types declared here satisfy it.
type Cause interface {
	error
	Kind() Kind
	sealed()
}

type sealedCause struct{}

func (sealedCause) sealed() {}

// MalformedConfigError reports a configuration document that could not be
// parsed or decoded.
type MalformedConfigError struct {
	sealedCause
	File string
	Err  error
}

func (e *MalformedConfigError) Kind() Kind    { return KindConfigMalformed }
func (e *MalformedConfigError) Unwrap() error { return e.Err }
func (e *MalformedConfigError) Error() string {
	return fmt.Sprintf("invalid configuration in %s: %v", e.File, e.Err)
}

// DuplicateSyntaxError reports a syntax name declared twice.
type DuplicateSyntaxError struct {
	sealedCause
	Name string
}

func (e *DuplicateSyntaxError) Kind() Kind { return KindDuplicateSyntax }
func (e *DuplicateSyntaxError) Error() string {
	return fmt.Sprintf("syntax %q is already defined", e.Name)
}

// UnknownDefaultSyntaxError reports a default syntax name with no definition.
type UnknownDefaultSyntaxError struct {
	sealedCause
	Name string
}

func (e *UnknownDefaultSyntaxError) Kind() Kind { return KindUnknownDefaultSyntax }
func (e *UnknownDefaultSyntaxError) Error() string {
	return fmt.Sprintf("default syntax %q not found", e.Name)
}

// DelimiterLengthError reports a delimiter that is not exactly two bytes long.
type DelimiterLengthError struct {
	sealedCause
	Syntax string
}

func (e *DelimiterLengthError) Kind() Kind { return KindDelimiterLength }
func (e *DelimiterLengthError) Error() string {
	if e.Syntax == "" {
		return "length of delimiters must be two"
	}
	return fmt.Sprintf("syntax %q: length of delimiters must be two", e.Syntax)
}

// AmbiguousDelimitersError reports opening delimiters that share neither
// their first nor their second character.
type AmbiguousDelimitersError struct {
	sealedCause
	BlockStart   string
	CommentStart string
	ExprStart    string
}

func (e *AmbiguousDelimitersError) Kind() Kind { return KindAmbiguousDelimiters }
func (e *AmbiguousDelimitersError) Error() string {
	return fmt.Sprintf("bad delimiters block_start: %s, comment_start: %s, expr_start: %s, needs one of the two characters in common",
		e.BlockStart, e.CommentStart, e.ExprStart)
}

// ConfigMissingError reports an explicitly requested configuration document
// that does not exist under the project root.
type ConfigMissingError struct {
	sealedCause
	Path string
	Root string
}

func (e *ConfigMissingError) Kind() Kind { return KindConfigMissing }
func (e *ConfigMissingError) Error() string {
	return fmt.Sprintf("config file %q does not exist in project root %q", e.Path, e.Root)
}

// TemplateNotFoundError reports a template name found neither next to its
// caller nor in any search directory.
type TemplateNotFoundError struct {
	sealedCause
	Name string
	Dirs []string
}

func (e *TemplateNotFoundError) Kind() Kind { return KindTemplateNotFound }
func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %q not found in directories [%s]", e.Name, strings.Join(e.Dirs, ", "))
}

// SourceReadError reports a file that exists but could not be read.
type SourceReadError struct {
	sealedCause
	Path string
	Err  error
}

func (e *SourceReadError) Kind() Kind    { return KindSourceRead }
func (e *SourceReadError) Unwrap() error { return e.Err }
func (e *SourceReadError) Error() string {
	return fmt.Sprintf("unable to read %q: %v", e.Path, e.Err)
}

// UnresolvedBlockError reports a requested block missing from the merged
// inheritance graph.
type UnresolvedBlockError struct {
	sealedCause
	Name string
}

func (e *UnresolvedBlockError) Kind() Kind { return KindUnresolvedBlock }
func (e *UnresolvedBlockError) Error() string {
	return fmt.Sprintf("cannot find block `%s`", e.Name)
}

// DiscoveryError reports a failure while parsing a template or following its
// references.
type DiscoveryError struct {
	sealedCause
	Msg string
}

func (e *DiscoveryError) Kind() Kind    { return KindDiscovery }
func (e *DiscoveryError) Error() string { return e.Msg }

// GenerationError reports a failure raised by the code generator.
type GenerationError struct {
	sealedCause
	Msg string
}

func (e *GenerationError) Kind() Kind    { return KindGeneration }
func (e *GenerationError) Error() string { return e.Msg }

// DeclarationError reports an invalid template declaration.
type DeclarationError struct {
	sealedCause
	Msg string
}

func (e *DeclarationError) Kind() Kind    { return KindDeclaration }
func (e *DeclarationError) Error() string { return e.Msg }

// NoEscaperError reports an extension no escaper rule matches.
type NoEscaperError struct {
	sealedCause
	Extension string
}

func (e *NoEscaperError) Kind() Kind { return KindNoEscaper }
func (e *NoEscaperError) Error() string {
	return fmt.Sprintf("no escaper defined for extension %q", e.Extension)
}

// Error is the compilation failure: a cause plus an optional location.
type Error struct {
	Cause    Cause
	Location *Location
}

// New wraps a cause without location.
func New(c Cause) *Error {
	return &Error{Cause: c}
}

// NewAt wraps a cause and resolves its location from fi.
func NewAt(c Cause, fi FileInfo) *Error {
	return &Error{Cause: c, Location: Locate(fi)}
}

// Generationf is shorthand for a located generation failure.
func Generationf(fi FileInfo, format string, args ...any) *Error {
	return NewAt(&GenerationError{Msg: fmt.Sprintf(format, args...)}, fi)
}

// From converts err into an *Error. An *Error anywhere in the chain is
// returned as is, a bare Cause is wrapped, and any other error becomes a
// generation failure.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var c Cause
	if errors.As(err, &c) {
		return &Error{Cause: c}
	}
	return &Error{Cause: &GenerationError{Msg: err.Error()}}
}

// At returns e with location context attached. A failure that already has a
// location keeps it.
func (e *Error) At(fi FileInfo) *Error {
	if e.Location != nil {
		return e
	}
	return &Error{Cause: e.Cause, Location: Locate(fi)}
}

// Kind reports the failure variant.
func (e *Error) Kind() Kind {
	if e.Cause == nil {
		return KindUnknown
	}
	return e.Cause.Kind()
}

// Message returns the failure text without location.
func (e *Error) Message() string {
	if e.Cause == nil {
		return "unknown failure"
	}
	return e.Cause.Error()
}

func (e *Error) Error() string {
	if e.Location == nil {
		return e.Message()
	}
	return e.Message() + e.Location.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a compilation failure of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind() == k
	}
	var c Cause
	return errors.As(err, &c) && c.Kind() == k
}
