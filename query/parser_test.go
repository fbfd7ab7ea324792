package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_Word(t *testing.T) {
	q, err := Parse("foo")
	if assert.NoError(t, err) {
		assert.Equal(t, Word("foo"), q)
	}
}

func TestParse_Or(t *testing.T) {
	q, err := Parse("foo OR bar")
	if assert.NoError(t, err) {
		assert.Equal(t, Or{Word("foo"), Word("bar")}, q)
	}

	q, err = Parse("foo OR bar OR baz")
	if assert.NoError(t, err) {
		assert.Equal(t, Or{Word("foo"), Or{Word("bar"), Word("baz")}}, q)
	}
}

func TestParse_And(t *testing.T) {
	q, err := Parse("foo AND bar")
	if assert.NoError(t, err) {
		assert.Equal(t, And{Word("foo"), Word("bar")}, q)
	}

	q, err = Parse("foo AND bar AND baz")
	if assert.NoError(t, err) {
		assert.Equal(t, And{Word("foo"), And{Word("bar"), Word("baz")}}, q)
	}
}

func TestParse_Paren(t *testing.T) {
	q, err := Parse("(foo)")
	if assert.NoError(t, err) {
		assert.Equal(t, Word("foo"), q)
	}

	q, err = Parse("(foo AND bar)")
	if assert.NoError(t, err) {
		assert.Equal(t, And{Word("foo"), Word("bar")}, q)
	}

	q, err = Parse("(foo AND bar) OR baz")
	if assert.NoError(t, err) {
		assert.Equal(t, Or{And{Word("foo"), Word("bar")}, Word("baz")}, q)
	}

	q, err = Parse("foo AND (bar OR baz)")
	if assert.NoError(t, err) {
		assert.Equal(t, And{Word("foo"), Or{Word("bar"), Word("baz")}}, q)
	}
}

// The parser collects a full OR chain after each primary before it
// looks for an AND, so AND does not uniformly bind tighter than OR.
func TestParse_Precedence(t *testing.T) {
	q, err := Parse("foo AND bar OR baz")
	if assert.NoError(t, err) {
		assert.Equal(t, And{Word("foo"), Or{Word("bar"), Word("baz")}}, q)
	}

	q, err = Parse("foo OR bar AND baz")
	if assert.NoError(t, err) {
		assert.Equal(t, And{Or{Word("foo"), Word("bar")}, Word("baz")}, q)
	}
}

func TestParse_Whitespace(t *testing.T) {
	q, err := Parse("  foo\tAND ( bar OR\n baz )  ")
	if assert.NoError(t, err) {
		assert.Equal(t, And{Word("foo"), Or{Word("bar"), Word("baz")}}, q)
	}
}

func TestParse_Unicode(t *testing.T) {
	q, err := Parse("café OR 42")
	if assert.NoError(t, err) {
		assert.Equal(t, Or{Word("café"), Word("42")}, q)
	}
}

// Operators are recognized by prefix only, so a missing space after
// OR/AND splits the following word.
func TestParse_OperatorPrefix(t *testing.T) {
	q, err := Parse("foo ORbar")
	if assert.NoError(t, err) {
		assert.Equal(t, Or{Word("foo"), Word("bar")}, q)
	}

	q, err = Parse("foo ANDbar")
	if assert.NoError(t, err) {
		assert.Equal(t, And{Word("foo"), Word("bar")}, q)
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)
	assert.True(t, IsParseError(err))

	_, err = Parse("   ")
	assert.Error(t, err)
	assert.True(t, IsParseError(err))

	_, err = Parse("()")
	assert.Error(t, err)
	assert.True(t, IsParseError(err))
}

func TestParse_UnmatchedParen(t *testing.T) {
	_, err := Parse("(foo")
	assert.Error(t, err)
	assert.True(t, IsParseError(err))

	_, err = Parse("(foo AND (bar OR baz)")
	assert.Error(t, err)
	assert.True(t, IsParseError(err))
}

func TestParse_TrailingInput(t *testing.T) {
	_, err := Parse("foo bar")
	assert.Error(t, err)
	assert.True(t, IsParseError(err))

	_, err = Parse("foo)")
	assert.Error(t, err)
	assert.True(t, IsParseError(err))
}

func TestParse_TrailingOperator(t *testing.T) {
	_, err := Parse("foo AND")
	assert.Error(t, err)
	assert.True(t, IsParseError(err))

	_, err = Parse("foo OR")
	assert.Error(t, err)
	assert.True(t, IsParseError(err))
}

func TestQuery_String(t *testing.T) {
	q, err := Parse("foo AND bar OR baz")
	if assert.NoError(t, err) {
		assert.Equal(t, `And(Word("foo"), Or(Word("bar"), Word("baz")))`, q.String())
	}
}
