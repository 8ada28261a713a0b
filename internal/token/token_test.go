package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		line  string
		text  string
		start int
		end   int
	}{
		{"double quoted", `"Networking support" if NET`, "Networking support", 0, 20},
		{"single quoted", `  'Intel'`, "Intel", 2, 9},
		{"escaped quote", `"say \"hi\""`, `say "hi"`, 0, 12},
		{"escaped single", `'it\'s'`, "it's", 0, 7},
		{"bare token", `foo bar`, "foo", 0, 3},
		{"empty quotes", `""`, "", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tok, c, err := String(At(tt.line, 0))
			require.NoError(t, err)
			assert.Equal(t, tt.text, tok.Text)
			assert.Equal(t, tt.start, tok.Start)
			assert.Equal(t, tt.end, tok.End)
			assert.Equal(t, tt.end, c.Pos)
		})
	}
}

func TestStringErrors(t *testing.T) {
	t.Parallel()

	_, _, err := String(At("   ", 0))
	assert.EqualError(t, err, "expected string")

	_, _, err = String(At(`prompt "unterminated`, 7))
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "unterminated string", se.Msg)
	assert.Equal(t, 7, se.Start)
	assert.Equal(t, 20, se.End)
}

func TestSymbol(t *testing.T) {
	t.Parallel()

	tok, c, err := Symbol(At("config  FOO_BAR1 extra", 6))
	require.NoError(t, err)
	assert.Equal(t, "FOO_BAR1", tok.Text)
	assert.Equal(t, 8, tok.Start)
	assert.Equal(t, 16, c.Pos)

	tok, _, err = Symbol(At("$(ARCH)_SPECIFIC", 0))
	require.NoError(t, err)
	assert.Equal(t, "$(ARCH)_SPECIFIC", tok.Text)

	tok, _, err = Symbol(At("A$(f,$(x))B", 0))
	require.NoError(t, err)
	assert.Equal(t, "A$(f,$(x))B", tok.Text)

	_, _, err = Symbol(At(`"quoted"`, 0))
	assert.EqualError(t, err, "expected symbol name")

	_, _, err = Symbol(At("", 0))
	assert.EqualError(t, err, "expected symbol name")

	_, _, err = Symbol(At("$(ARCH", 0))
	assert.EqualError(t, err, "unterminated macro placeholder")
}

func TestNumber(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"0", "42", "-12", "0x1F", "0XdeadBEEF"} {
		tok, c, err := Number(At(in+" 7", 0))
		require.NoError(t, err, in)
		assert.Equal(t, in, tok.Text)
		assert.Equal(t, len(in), c.Pos)
	}
	for _, in := range []string{"", "x", "12abc", "0x", "-", "0xZZ"} {
		_, _, err := Number(At(in, 0))
		assert.EqualError(t, err, "expected number", in)
	}
}

func TestExpression(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line string
		text string
		end  int
	}{
		{"A", "A", 1},
		{"A && (B || !C)", "A && (B || !C)", 14},
		{"!(A=y)", "!(A=y)", 6},
		{`FOO != "bar baz"`, `FOO != "bar baz"`, 16},
		{"X >= -1", "X >= -1", 7},
		{"X < 0x10 || Y <= 3", "X < 0x10 || Y <= 3", 18},
		{"A if B", "A", 1},
		{"A  if B", "A", 1},
		{"y if (A || B)", "y", 1},
		{"A B", "A", 1},
		{"$(ARCH) = x86", "$(ARCH) = x86", 13},
		{"  IFFY", "IFFY", 6},
	}
	for _, tt := range tests {
		tok, c, err := Expression(At(tt.line, 0))
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.text, tok.Text, tt.line)
		assert.Equal(t, tt.end, c.Pos, tt.line)
	}
}

func TestExpressionErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line string
		msg  string
	}{
		{"", "expected expression"},
		{"   ", "expected expression"},
		{"if A", "expected expression"},
		{"A &&", "incomplete expression"},
		{"A =", "incomplete expression"},
		{"(A || B", "unbalanced '(' in expression"},
		{"A)", "unbalanced ')' in expression"},
		{"&& A", `unexpected "&" in expression`},
		{`"open`, "unterminated string"},
		{"$(X", "unterminated macro placeholder"},
	}
	for _, tt := range tests {
		_, _, err := Expression(At(tt.line, 0))
		assert.EqualError(t, err, tt.msg, tt.line)
	}
}

func TestExpressionErrorSpan(t *testing.T) {
	t.Parallel()

	_, _, err := Expression(At("depends on A && (B || C", 11))
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 16, se.Start)
	assert.Equal(t, 23, se.End)
}

func TestIf(t *testing.T) {
	t.Parallel()

	tok, c, err := If(At("   ", 0))
	require.NoError(t, err)
	assert.Nil(t, tok)
	assert.Equal(t, 3, c.Pos)

	tok, _, err = If(At(" if A && B", 0))
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "A && B", tok.Text)

	tok, _, err = If(At("if(A)", 0))
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "(A)", tok.Text)

	_, _, err = If(At("iffy", 0))
	assert.EqualError(t, err, `unexpected "iffy"`)

	_, _, err = If(At("if   ", 0))
	assert.EqualError(t, err, "missing condition after 'if'")

	_, _, err = If(At("unless A", 0))
	assert.EqualError(t, err, `unexpected "unless"`)
}

func TestExprIf(t *testing.T) {
	t.Parallel()

	expr, cond, c, err := ExprIf(At("y if NET && !EXPERT", 0))
	require.NoError(t, err)
	assert.Equal(t, "y", expr.Text)
	assert.Equal(t, "NET && !EXPERT", Text(cond))
	assert.NoError(t, End(c))

	expr, cond, _, err = ExprIf(At("NET", 0))
	require.NoError(t, err)
	assert.Equal(t, "NET", expr.Text)
	assert.Nil(t, cond)
	assert.Equal(t, "", Text(cond))

	_, _, _, err = ExprIf(At("NET garbage", 0))
	assert.EqualError(t, err, `unexpected "garbage"`)
}

func TestEnd(t *testing.T) {
	t.Parallel()

	assert.NoError(t, End(At("bool  \t", 4)))

	err := End(At("bool extra tokens", 4))
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, `unexpected "extra"`, se.Msg)
	assert.Equal(t, 5, se.Start)
	assert.Equal(t, 10, se.End)
}

func TestCursor(t *testing.T) {
	t.Parallel()

	c := At("  value  ", 0)
	assert.Equal(t, 2, c.Skip().Pos)
	assert.False(t, c.AtEnd())
	assert.Equal(t, "value", c.Rest())
	assert.True(t, At("x   ", 1).AtEnd())
	assert.Equal(t, "", At("x", 5).Rest())
}
