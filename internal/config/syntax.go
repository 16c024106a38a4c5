package config

import "github.com/leapstack-labs/tmplc/internal/diag"

// Syntax is a validated delimiter set.
type Syntax struct {
	BlockStart   string
	BlockEnd     string
	ExprStart    string
	ExprEnd      string
	CommentStart string
	CommentEnd   string
}

// DefaultSyntax returns the canonical delimiters.
func DefaultSyntax() Syntax {
	return Syntax{
		BlockStart:   "{%",
		BlockEnd:     "%}",
		ExprStart:    "{{",
		ExprEnd:      "}}",
		CommentStart: "{#",
		CommentEnd:   "#}",
	}
}

// RawSyntax is a syntax entry as declared in the configuration document.
// Absent delimiters inherit the canonical default.
type RawSyntax struct {
	Name         string  `koanf:"name"`
	BlockStart   *string `koanf:"block_start"`
	BlockEnd     *string `koanf:"block_end"`
	ExprStart    *string `koanf:"expr_start"`
	ExprEnd      *string `koanf:"expr_end"`
	CommentStart *string `koanf:"comment_start"`
	CommentEnd   *string `koanf:"comment_end"`
}

// Validate fills absent delimiters from the defaults and checks the result.
// Every delimiter must be two bytes long, and the three opening delimiters
// must share either their first or their second byte.
func (r RawSyntax) Validate() (Syntax, error) {
	def := DefaultSyntax()
	s := Syntax{
		BlockStart:   orDefault(r.BlockStart, def.BlockStart),
		BlockEnd:     orDefault(r.BlockEnd, def.BlockEnd),
		ExprStart:    orDefault(r.ExprStart, def.ExprStart),
		ExprEnd:      orDefault(r.ExprEnd, def.ExprEnd),
		CommentStart: orDefault(r.CommentStart, def.CommentStart),
		CommentEnd:   orDefault(r.CommentEnd, def.CommentEnd),
	}

	for _, d := range []string{s.BlockStart, s.BlockEnd, s.ExprStart, s.ExprEnd, s.CommentStart, s.CommentEnd} {
		if len(d) != 2 {
			return Syntax{}, diag.New(&diag.DelimiterLengthError{Syntax: r.Name})
		}
	}

	bs, be := s.BlockStart[0], s.BlockStart[1]
	cs, ce := s.CommentStart[0], s.CommentStart[1]
	es, ee := s.ExprStart[0], s.ExprStart[1]
	if !((bs == cs && bs == es) || (be == ce && be == ee)) {
		return Syntax{}, diag.New(&diag.AmbiguousDelimitersError{
			BlockStart:   s.BlockStart,
			CommentStart: s.CommentStart,
			ExprStart:    s.ExprStart,
		})
	}

	return s, nil
}

func orDefault(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}
