package equation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RecordWithSymbols(t *testing.T) {
	text := "Here are the equations:\n" +
		"  a^2 + b^2 = c^2  -  Pythagorean theorem - <math><mi>a</mi></math> \n" +
		"Symbols: a,  b , c\n"

	eqs, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, eqs, 1)

	eq := eqs[0]
	assert.Equal(t, "a^2 + b^2 = c^2", eq.LaTeX)
	assert.Equal(t, "Pythagorean theorem", eq.Description)
	assert.Equal(t, "<math><mi>a</mi></math>", eq.MathML)
	assert.Equal(t, []string{"a", "b", "c"}, eq.Symbols())
}

func TestParse_SymbolsSplitOnCommaSpace(t *testing.T) {
	eqs := ParseString("E = mc^2 - mass-energy equivalence - <math/>\nSymbols: E, m, c")
	require.Len(t, eqs, 1)
	assert.Equal(t, []string{"E", "c", "m"}, eqs[0].Symbols())
}

func TestParse_SymbolsUnionAcrossLines(t *testing.T) {
	text := "f(x) = x - identity - <math/>\n" +
		"Symbols: f, x\n" +
		"Symbols: x, y\n"
	eqs := ParseString(text)
	require.Len(t, eqs, 1)
	assert.Equal(t, []string{"f", "x", "y"}, eqs[0].Symbols())
}

func TestParse_SymbolsAttachToMostRecent(t *testing.T) {
	text := "a = 1 - first - <m1/>\n" +
		"b = 2 - second - <m2/>\n" +
		"Symbols: b\n"
	eqs := ParseString(text)
	require.Len(t, eqs, 2)
	assert.Empty(t, eqs[0].Symbols())
	assert.Equal(t, []string{"b"}, eqs[1].Symbols())
}

func TestParse_SymbolsBeforeAnyEquationIgnored(t *testing.T) {
	text := "Symbols: x, y\n" +
		"y = mx + b - line - <math/>\n"
	eqs := ParseString(text)
	require.Len(t, eqs, 1)
	assert.Empty(t, eqs[0].Symbols())
}

func TestParse_NoDelimiterLines(t *testing.T) {
	eqs, err := Parse(strings.NewReader("The Pythagorean theorem states that...\nNothing else."))
	require.NoError(t, err)
	assert.NotNil(t, eqs)
	assert.Empty(t, eqs)
}

func TestParse_WrongFieldCountIgnored(t *testing.T) {
	text := "only - two fields\n" +
		"a - b - c - d\n" +
		"x^2 - square - <math/>\n"
	eqs := ParseString(text)
	require.Len(t, eqs, 1)
	assert.Equal(t, "x^2", eqs[0].LaTeX)
}

func TestParse_EmptyEdgeFields(t *testing.T) {
	text := "x^2 - square - \n" +
		" - empty latex - <math/>\n" +
		"Symbols: y\n"
	eqs := ParseString(text)
	require.Len(t, eqs, 2)

	assert.Equal(t, "x^2", eqs[0].LaTeX)
	assert.Equal(t, "square", eqs[0].Description)
	assert.Empty(t, eqs[0].MathML)

	assert.Empty(t, eqs[1].LaTeX)
	assert.Equal(t, "empty latex", eqs[1].Description)
	assert.Equal(t, "<math/>", eqs[1].MathML)
	assert.Equal(t, []string{"y"}, eqs[1].Symbols())
}

func TestParse_OverlongLineSkipped(t *testing.T) {
	text := "a^2 - square - <math/>\n" +
		"Symbols: a\n" +
		strings.Repeat("z", 2<<20) + "\n" +
		"b^2 - another square - <math/>\n"

	eqs, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, eqs, 2)
	assert.Equal(t, "a^2", eqs[0].LaTeX)
	assert.Equal(t, []string{"a"}, eqs[0].Symbols())
	assert.Equal(t, "b^2", eqs[1].LaTeX)

	assert.Len(t, ParseString(text), 2)
}

func TestParse_OverlongFinalLineWithoutNewline(t *testing.T) {
	text := "a^2 - square - <math/>\n" + strings.Repeat("z", 2<<20)
	eqs, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, eqs, 1)
}

func TestParse_CapsAtMaxEquations(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&sb, "x_%d = %d - equation %d - <math/>\n", i, i, i)
		fmt.Fprintf(&sb, "Symbols: x_%d\n", i)
	}

	eqs := ParseString(sb.String())
	require.Len(t, eqs, MaxEquations)
	assert.Equal(t, "x_9 = 9", eqs[MaxEquations-1].LaTeX)
	// Symbols of dropped records must not leak into the last kept one.
	assert.Equal(t, []string{"x_9"}, eqs[MaxEquations-1].Symbols())
}

func TestParse_Garbage(t *testing.T) {
	for _, in := range []string{"", "\n\n\n", "Symbols:", " - - ", "\x00\x01\x02"} {
		eqs, err := Parse(strings.NewReader(in))
		require.NoError(t, err, "input %q", in)
		assert.LessOrEqual(t, len(eqs), 1)
	}
}

func TestParse_NilReader(t *testing.T) {
	_, err := Parse(nil)
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestParse_ReadFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := Parse(iotest.ErrReader(boom))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, boom)
}

func TestAddSymbols_DropsEmptyTokens(t *testing.T) {
	eq := New(" x ", " d ", " m ")
	eq.AddSymbols("", "  ", " x ")
	assert.Equal(t, []string{"x"}, eq.Symbols())
	assert.True(t, eq.HasSymbol("x"))
	assert.Equal(t, "x", eq.LaTeX)
}

func TestEquation_JSON(t *testing.T) {
	eq := New("x^2", "square", "<math/>")
	eq.AddSymbols("x")

	data, err := json.Marshal(eq)
	require.NoError(t, err)
	assert.JSONEq(t, `{"latex":"x^2","description":"square","mathml":"<math/>","symbols":["x"]}`, string(data))

	var back Equation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, eq.Symbols(), back.Symbols())
	assert.Equal(t, eq.LaTeX, back.LaTeX)
}
