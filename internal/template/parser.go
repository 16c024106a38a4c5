package template

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/leapstack-labs/tmplc/internal/config"
)

// ParseString tokenizes and parses input using the delimiters of syntax.
func ParseString(input, file string, syntax config.Syntax) (*Template, error) {
	tokens, err := NewLexer(input, file, syntax).Tokenize()
	if err != nil {
		return nil, err
	}

	nodes, err := NewParser(tokens).Parse()
	if err != nil {
		return nil, err
	}

	return &Template{Nodes: nodes, File: file, Source: input}, nil
}

// Parser builds the node tree from a token stream.
type Parser struct {
	tokens  []Token
	pos     int
	extends *ExtendsNode
}

// NewParser creates a parser over tokens. The stream must end with TokenEOF.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the whole token stream.
func (p *Parser) Parse() ([]Node, error) {
	nodes, end, err := p.parseNodes(true)
	if err != nil {
		return nil, err
	}
	if end != nil {
		return nil, NewUnmatchedBlockError(end.pos, end.Kind)
	}
	return nodes, nil
}

// parseNodes parses nodes until EOF or a statement that closes or continues
// an enclosing block. That statement is returned to the caller.
func (p *Parser) parseNodes(top bool) ([]Node, *StmtNode, error) {
	var nodes []Node

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++

		base := nodeBase{pos: tok.Pos, src: tok.Src}
		switch tok.Type {
		case TokenEOF:
			return nodes, nil, nil
		case TokenText:
			nodes = append(nodes, &TextNode{nodeBase: base, Text: tok.Value})
		case TokenComment:
			nodes = append(nodes, &CommentNode{nodeBase: base, Ws: tok.Ws})
		case TokenExpr:
			nodes = append(nodes, &ExprNode{nodeBase: base, Ws: tok.Ws, Expr: tok.Value})
		case TokenStmt:
			stmt, err := parseStmt(tok)
			if err != nil {
				return nil, nil, err
			}

			switch stmt.Kind {
			case StmtExtends:
				if !top {
					return nil, nil, NewParseError(stmt.pos, "extends is only allowed at the top level")
				}
				if p.extends != nil {
					return nil, nil, NewParseError(stmt.pos, "multiple extends statements")
				}
				p.extends = &ExtendsNode{nodeBase: stmt.nodeBase, Path: stmt.Expr}
				nodes = append(nodes, p.extends)
			case StmtInclude:
				nodes = append(nodes, &IncludeNode{nodeBase: stmt.nodeBase, Ws: stmt.Ws, Path: stmt.Expr})
			case StmtImport:
				nodes = append(nodes, &ImportNode{nodeBase: stmt.nodeBase, Ws: stmt.Ws, Path: stmt.Expr, Scope: stmt.VarName})
			case StmtBlock:
				block, err := p.parseBlock(stmt)
				if err != nil {
					return nil, nil, err
				}
				nodes = append(nodes, block)
			case StmtFor:
				loop, err := p.parseFor(stmt)
				if err != nil {
					return nil, nil, err
				}
				nodes = append(nodes, loop)
			case StmtIf:
				cond, err := p.parseIf(stmt)
				if err != nil {
					return nil, nil, err
				}
				nodes = append(nodes, cond)
			default:
				return nodes, stmt, nil
			}
		}
	}

	return nodes, nil, nil
}

func (p *Parser) parseBlock(open *StmtNode) (*BlockNode, error) {
	body, end, err := p.parseNodes(false)
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, NewUnmatchedBlockError(open.pos, StmtBlock)
	}
	if end.Kind != StmtEndBlock {
		return nil, NewUnmatchedBlockError(end.pos, end.Kind)
	}
	if end.Expr != "" && end.Expr != open.Expr {
		return nil, NewParseErrorf(end.pos, "endblock %q does not match block %q", end.Expr, open.Expr)
	}

	return &BlockNode{
		nodeBase: open.nodeBase,
		Ws:       open.Ws,
		Name:     open.Expr,
		Body:     body,
		EndWs:    end.Ws,
	}, nil
}

func (p *Parser) parseFor(open *StmtNode) (*ForBlock, error) {
	body, end, err := p.parseNodes(false)
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, NewUnmatchedBlockError(open.pos, StmtFor)
	}
	if end.Kind != StmtEndFor {
		return nil, NewUnmatchedBlockError(end.pos, end.Kind)
	}

	return &ForBlock{
		nodeBase: open.nodeBase,
		Ws:       open.Ws,
		VarName:  open.VarName,
		IterExpr: open.Expr,
		Body:     body,
		EndWs:    end.Ws,
	}, nil
}

func (p *Parser) parseIf(open *StmtNode) (*IfBlock, error) {
	block := &IfBlock{nodeBase: open.nodeBase, Ws: open.Ws, Condition: open.Expr}
	var current *Branch

	for {
		body, end, err := p.parseNodes(false)
		if err != nil {
			return nil, err
		}
		if current == nil {
			block.Body = body
		} else {
			current.Body = body
		}
		if end == nil {
			return nil, NewUnmatchedBlockError(open.pos, StmtIf)
		}

		switch end.Kind {
		case StmtElif:
			if block.Else != nil {
				return nil, NewParseError(end.pos, "'elif' after 'else'")
			}
			current = &Branch{nodeBase: end.nodeBase, Ws: end.Ws, Condition: end.Expr}
			block.ElseIfs = append(block.ElseIfs, current)
		case StmtElse:
			if block.Else != nil {
				return nil, NewParseError(end.pos, "multiple 'else' branches")
			}
			current = &Branch{nodeBase: end.nodeBase, Ws: end.Ws}
			block.Else = current
		case StmtEndIf:
			block.EndWs = end.Ws
			return block, nil
		default:
			return nil, NewUnmatchedBlockError(end.pos, end.Kind)
		}
	}
}

// parseStmt splits a statement token into its keyword and arguments.
// A trailing colon is accepted after for, if, elif and else.
func parseStmt(tok Token) (*StmtNode, error) {
	stmt := &StmtNode{nodeBase: nodeBase{pos: tok.Pos, src: tok.Src}, Ws: tok.Ws}

	keyword, rest, _ := strings.Cut(tok.Value, " ")
	rest = strings.TrimSpace(rest)

	switch keyword {
	case "extends", "include":
		path, err := parseQuoted(tok, rest)
		if err != nil {
			return nil, err
		}
		stmt.Kind = StmtInclude
		if keyword == "extends" {
			stmt.Kind = StmtExtends
		}
		stmt.Expr = path
	case "import":
		quoted, scope, ok := strings.Cut(rest, " as ")
		scope = strings.TrimSpace(scope)
		if !ok || !isIdent(scope) {
			return nil, NewParseError(tok.Pos, `expected: import "path" as name`)
		}
		path, err := parseQuoted(tok, strings.TrimSpace(quoted))
		if err != nil {
			return nil, err
		}
		stmt.Kind = StmtImport
		stmt.Expr = path
		stmt.VarName = scope
	case "block":
		if !isIdent(rest) {
			return nil, NewParseErrorf(tok.Pos, "invalid block name %q", rest)
		}
		stmt.Kind = StmtBlock
		stmt.Expr = rest
	case "endblock":
		if rest != "" && !isIdent(rest) {
			return nil, NewParseErrorf(tok.Pos, "invalid block name %q", rest)
		}
		stmt.Kind = StmtEndBlock
		stmt.Expr = rest
	case "for":
		rest = strings.TrimSuffix(rest, ":")
		name, iter, ok := strings.Cut(rest, " in ")
		name = strings.TrimSpace(name)
		iter = strings.TrimSpace(iter)
		if !ok || !isIdent(name) || iter == "" {
			return nil, NewParseError(tok.Pos, "expected: for name in expression")
		}
		stmt.Kind = StmtFor
		stmt.VarName = name
		stmt.Expr = iter
	case "if", "elif":
		cond := strings.TrimSpace(strings.TrimSuffix(rest, ":"))
		if cond == "" {
			return nil, NewParseErrorf(tok.Pos, "'%s' requires a condition", keyword)
		}
		stmt.Kind = StmtIf
		if keyword == "elif" {
			stmt.Kind = StmtElif
		}
		stmt.Expr = cond
	case "else", "else:", "endfor", "endif":
		if rest != "" && rest != ":" {
			return nil, NewParseErrorf(tok.Pos, "unexpected %q after '%s'", rest, strings.TrimSuffix(keyword, ":"))
		}
		switch keyword {
		case "endfor":
			stmt.Kind = StmtEndFor
		case "endif":
			stmt.Kind = StmtEndIf
		default:
			stmt.Kind = StmtElse
		}
	default:
		return nil, NewParseErrorf(tok.Pos, "unknown statement %q", keyword)
	}

	return stmt, nil
}

func parseQuoted(tok Token, s string) (string, error) {
	if !strings.HasPrefix(s, `"`) {
		return "", NewParseErrorf(tok.Pos, "expected a quoted template path, found %q", s)
	}
	path, err := strconv.Unquote(s)
	if err != nil || path == "" {
		return "", NewParseErrorf(tok.Pos, "invalid template path %s", s)
	}
	return path, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
