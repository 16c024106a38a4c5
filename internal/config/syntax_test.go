package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tmplc/internal/diag"
)

func ptr(s string) *string { return &s }

func TestRawSyntax_Validate(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawSyntax
		want    Syntax
		wantErr diag.Kind
	}{
		{
			name: "all defaults",
			raw:  RawSyntax{Name: "plain"},
			want: DefaultSyntax(),
		},
		{
			name: "shared first character",
			raw:  RawSyntax{Name: "dollar", BlockStart: ptr("$%"), CommentStart: ptr("$#"), ExprStart: ptr("${")},
			want: Syntax{BlockStart: "$%", BlockEnd: "%}", ExprStart: "${", ExprEnd: "}}", CommentStart: "$#", CommentEnd: "#}"},
		},
		{
			name: "shared second character",
			raw:  RawSyntax{Name: "angle", BlockStart: ptr("%<"), CommentStart: ptr("#<"), ExprStart: ptr("=<")},
			want: Syntax{BlockStart: "%<", BlockEnd: "%}", ExprStart: "=<", ExprEnd: "}}", CommentStart: "#<", CommentEnd: "#}"},
		},
		{
			name:    "closing delimiter too short",
			raw:     RawSyntax{Name: "bad", ExprEnd: ptr("}")},
			wantErr: diag.KindDelimiterLength,
		},
		{
			name:    "multibyte counts bytes",
			raw:     RawSyntax{Name: "bad", BlockStart: ptr("{é")},
			wantErr: diag.KindDelimiterLength,
		},
		{
			name:    "nothing in common",
			raw:     RawSyntax{Name: "bad", BlockStart: ptr("<%"), CommentStart: ptr("{#"), ExprStart: ptr("[[")},
			wantErr: diag.KindAmbiguousDelimiters,
		},
		{
			name:    "two of three share",
			raw:     RawSyntax{Name: "bad", BlockStart: ptr("{%"), CommentStart: ptr("{#"), ExprStart: ptr("[[")},
			wantErr: diag.KindAmbiguousDelimiters,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.raw.Validate()
			if tt.wantErr != diag.KindUnknown {
				require.Error(t, err)
				assert.True(t, diag.IsKind(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmbiguousDelimiters_Message(t *testing.T) {
	_, err := RawSyntax{Name: "x", BlockStart: ptr("<%"), CommentStart: ptr("{#"), ExprStart: ptr("[[")}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad delimiters block_start: <%, comment_start: {#, expr_start: [[")
}
