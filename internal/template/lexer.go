package template

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/tmplc/internal/config"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for template token types.
const (
	TokenText    TokenType = iota // Literal text
	TokenExpr                     // Expression content (between expr delimiters)
	TokenStmt                     // Statement content (between block delimiters)
	TokenComment                  // Comment content (between comment delimiters)
	TokenEOF                      // End of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenExpr:
		return "EXPR"
	case TokenStmt:
		return "STMT"
	case TokenComment:
		return "COMMENT"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

func (t TokenType) describe() string {
	switch t {
	case TokenExpr:
		return "expression"
	case TokenStmt:
		return "statement"
	case TokenComment:
		return "comment"
	default:
		return "text"
	}
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string // Content with delimiters, markers and surrounding spaces removed
	Src   string // Raw source of the token
	Ws    Ws
	Pos   Position
}

// Lexer tokenizes a template string.
type Lexer struct {
	input    string
	file     string
	syntax   config.Syntax
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastPos  int // offset at start of current token
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
}

// NewLexer creates a new lexer for the given input using the delimiters of
// syntax.
func NewLexer(input, file string, syntax config.Syntax) *Lexer {
	return &Lexer{
		input:  input,
		file:   file,
		syntax: syntax,
		pos:    0,
		line:   1,
		col:    1,
	}
}

// Tokenize converts the input into a slice of tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}

// nextToken returns the next token from the input.
func (l *Lexer) nextToken() (Token, error) {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.position()}, nil
	}

	switch {
	case l.matchString(l.syntax.CommentStart):
		return l.scanTag(TokenComment, l.syntax.CommentStart, l.syntax.CommentEnd)
	case l.matchString(l.syntax.BlockStart):
		return l.scanTag(TokenStmt, l.syntax.BlockStart, l.syntax.BlockEnd)
	case l.matchString(l.syntax.ExprStart):
		return l.scanTag(TokenExpr, l.syntax.ExprStart, l.syntax.ExprEnd)
	}

	// Otherwise, scan text until we hit a delimiter or EOF
	return l.scanText()
}

func (l *Lexer) atTagStart() bool {
	return l.matchString(l.syntax.CommentStart) ||
		l.matchString(l.syntax.BlockStart) ||
		l.matchString(l.syntax.ExprStart)
}

// scanText scans literal text until a delimiter or EOF.
func (l *Lexer) scanText() (Token, error) {
	l.markStart()
	start := l.pos

	for l.pos < len(l.input) && !l.atTagStart() {
		l.advance()
	}

	if l.pos == start {
		// No text consumed, something is wrong
		return Token{}, NewLexError(l.position(), "unexpected state in lexer")
	}

	return Token{
		Type:  TokenText,
		Value: l.input[start:l.pos],
		Src:   l.input[start:l.pos],
		Pos:   l.startPosition(),
	}, nil
}

// scanTag scans a tag opened by open up to its closing delimiter. Quoted
// strings inside expressions and statements may contain the closing
// delimiter.
func (l *Lexer) scanTag(typ TokenType, open, closing string) (Token, error) {
	l.markStart()
	start := l.pos
	l.skip(len(open))

	var ws Ws
	if l.pos < len(l.input) {
		if m, ok := markerFor(l.input[l.pos]); ok {
			ws.Left = m
			l.skip(1)
		}
	}

	contentStart := l.pos
	for l.pos < len(l.input) {
		if l.matchString(closing) {
			content := l.input[contentStart:l.pos]
			if n := len(content); n > 0 {
				if m, ok := markerFor(content[n-1]); ok {
					ws.Right = m
					content = content[:n-1]
				}
			}
			l.skip(len(closing))

			return Token{
				Type:  typ,
				Value: strings.TrimSpace(content),
				Src:   l.input[start:l.pos],
				Ws:    ws,
				Pos:   l.startPosition(),
			}, nil
		}

		if typ != TokenComment && l.peek() == '"' {
			if !l.skipString() {
				break
			}
			continue
		}
		l.advance()
	}

	return Token{}, NewLexError(l.startPosition(),
		fmt.Sprintf("unclosed %s: missing '%s'", typ.describe(), closing))
}

// Helper methods

// skipString skips a double-quoted string with backslash escapes. It reports
// false when the string is not terminated.
func (l *Lexer) skipString() bool {
	l.advance() // opening quote
	for l.pos < len(l.input) {
		switch l.peek() {
		case '\\':
			l.advance()
		case '"':
			l.advance()
			return true
		case '\n':
			return false
		}
		l.advance()
	}
	return false
}

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// skip advances over n bytes.
func (l *Lexer) skip(n int) {
	for end := l.pos + n; l.pos < end; {
		l.advance()
	}
}

// matchString checks if the input at current position matches s.
func (l *Lexer) matchString(s string) bool {
	return s != "" && strings.HasPrefix(l.input[l.pos:], s)
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.lastPos = l.pos
	l.lastLine = l.line
	l.lastCol = l.col
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{File: l.file, Line: l.line, Column: l.col, Offset: l.pos}
}

// startPosition returns the position where the current token started.
func (l *Lexer) startPosition() Position {
	return Position{File: l.file, Line: l.lastLine, Column: l.lastCol, Offset: l.lastPos}
}
