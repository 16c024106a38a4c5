package template

import "fmt"

// Error is implemented by every lex and parse failure. Position().Offset
// points into the template source so callers can excerpt it.
type Error interface {
	error
	Position() Position
	// Message is the error text without the position prefix.
	Message() string
}

type posError struct {
	pos Position
	msg string
}

func (e *posError) Position() Position { return e.pos }
func (e *posError) Message() string    { return e.msg }

func (e *posError) Error() string {
	at := fmt.Sprintf("%d:%d", e.pos.Line, e.pos.Column)
	if e.pos.File != "" {
		at = e.pos.File + ":" + at
	}
	return at + ": " + e.msg
}

// LexError reports a tag that could not be tokenized.
type LexError struct{ posError }

// NewLexError creates a lexer error at pos.
func NewLexError(pos Position, msg string) *LexError {
	return &LexError{posError{pos: pos, msg: msg}}
}

// ParseError reports a malformed statement.
type ParseError struct{ posError }

// NewParseError creates a parser error at pos.
func NewParseError(pos Position, msg string) *ParseError {
	return &ParseError{posError{pos: pos, msg: msg}}
}

// NewParseErrorf creates a parser error at pos with a formatted message.
func NewParseErrorf(pos Position, format string, args ...any) *ParseError {
	return NewParseError(pos, fmt.Sprintf(format, args...))
}

// UnmatchedBlockError reports an opening statement that is never closed,
// or a closing one with nothing to close.
type UnmatchedBlockError struct {
	posError
	BlockKind StmtKind
}

var unmatched = map[StmtKind]string{
	StmtFor:      "unclosed 'for' block (missing 'endfor')",
	StmtIf:       "unclosed 'if' block (missing 'endif')",
	StmtBlock:    "unclosed 'block' (missing 'endblock')",
	StmtEndFor:   "'endfor' without matching 'for'",
	StmtEndIf:    "'endif' without matching 'if'",
	StmtEndBlock: "'endblock' without matching 'block'",
	StmtElse:     "'else' without matching 'if'",
	StmtElif:     "'elif' without matching 'if'",
}

// NewUnmatchedBlockError creates the error for an unbalanced statement of
// the given kind.
func NewUnmatchedBlockError(pos Position, kind StmtKind) *UnmatchedBlockError {
	msg, ok := unmatched[kind]
	if !ok {
		msg = fmt.Sprintf("unmatched statement: %s", kind)
	}
	return &UnmatchedBlockError{posError: posError{pos: pos, msg: msg}, BlockKind: kind}
}
