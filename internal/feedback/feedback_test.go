package feedback

import (
	"testing"

	"github.com/dounan/diffle-solver/internal/rules"
	"github.com/dounan/diffle-solver/internal/words"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWord(t *testing.T, text string) *words.Word {
	t.Helper()
	w, err := words.New(text)
	require.NoError(t, err)
	return w
}

func TestParseShorthandRoundTrip(t *testing.T) {
	tests := []struct {
		guess string
		code  string
	}{
		{"crane", "h^txx?"},
		{"crane", "h^tttt$"},
		{"ab", "h$?"},
		{"banana", "xxxxxx"},
		{"word", "??h$x"},
	}
	for _, tt := range tests {
		t.Run(tt.guess+"/"+tt.code, func(t *testing.T) {
			res, err := ParseShorthand(tt.guess, tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.guess, res.Guess)
			assert.Len(t, res.Marks, len(tt.guess))
			assert.Equal(t, tt.code, res.Shorthand())
		})
	}
}

func TestParseShorthandErrors(t *testing.T) {
	tests := []struct {
		name  string
		guess string
		code  string
	}{
		{"too few symbols", "crane", "hxx"},
		{"too many symbols", "cat", "hxxh"},
		{"tail first", "cat", "thh"},
		{"anchor before symbol", "cat", "^hxx"},
		{"anchor on absent", "cat", "x^xx"},
		{"unknown symbol", "cat", "hzx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseShorthand(tt.guess, tt.code)
			assert.Error(t, err)
		})
	}
}

func TestSolved(t *testing.T) {
	solved, err := ParseShorthand("crane", "h^tttt$")
	require.NoError(t, err)
	assert.True(t, solved.Solved())

	unanchored, err := ParseShorthand("crane", "htttt$")
	require.NoError(t, err)
	assert.False(t, unanchored.Solved(), "missing start anchor")

	broken, err := ParseShorthand("crane", "h^ttht$")
	require.NoError(t, err)
	assert.False(t, broken.Solved(), "run restarts in the middle")

	partial, err := ParseShorthand("crane", "h^txx?")
	require.NoError(t, err)
	assert.False(t, partial.Solved())
}

func TestRulesDerivation(t *testing.T) {
	res, err := ParseShorthand("crane", "h^txx?")
	require.NoError(t, err)
	set := res.Rules()

	keep := mustWord(t, "crepe")  // starts with cr, has e, no a or n
	drop1 := mustWord(t, "crate") // contains a
	drop2 := mustWord(t, "reck")  // does not start with c

	assert.True(t, set.Matches(keep), "crepe should satisfy %s", set)
	assert.False(t, set.Matches(drop1), "crate has an absent letter")
	assert.False(t, set.Matches(drop2), "reck misses the start anchor")
}

func TestRulesRepeatedLetterExactCount(t *testing.T) {
	// One n present, the second n absent: the word has exactly one n.
	res, err := ParseShorthand("nanny", "?h^xx?")
	require.NoError(t, err)
	set := res.Rules()

	var nRule *rules.Occurrence
	for _, r := range set {
		if occ, ok := r.(rules.Occurrence); ok && occ.Letter == 'n' {
			nRule = &occ
			break
		}
	}
	require.NotNil(t, nRule, "expected an occurrence rule for n in %s", set)
	assert.True(t, nRule.Exact)
	assert.Equal(t, 1, nRule.Count)

	assert.True(t, set.Matches(mustWord(t, "any")))
	assert.False(t, set.Matches(mustWord(t, "anny")), "two n's should fail the exact bound")
}

func TestRulesMisplacedBreaksRun(t *testing.T) {
	// h t ? t: the misplaced letter cannot extend the run, and the
	// letter after it starts a fresh run even though it is marked tail
	// relative to board order.
	res, err := ParseShorthand("abcd", "ht?t")
	require.NoError(t, err)
	set := res.Rules()

	var seq *rules.Sequence
	for _, r := range set {
		if sq, ok := r.(rules.Sequence); ok {
			seq = &sq
			break
		}
	}
	require.NotNil(t, seq, "expected a sequence rule in %s", set)
	assert.Equal(t, []string{"ab", "d"}, seq.Runs)
	assert.False(t, seq.AnchorStart)
	assert.False(t, seq.AnchorEnd)
}

func TestRulesEndAnchorOnlyOnFinalRun(t *testing.T) {
	// The end-marked letter closes the first run but more present
	// letters follow, so the sequence must not be end-anchored.
	res, err := ParseShorthand("abc", "ht$h")
	require.NoError(t, err)
	set := res.Rules()

	var seq *rules.Sequence
	for _, r := range set {
		if sq, ok := r.(rules.Sequence); ok {
			seq = &sq
			break
		}
	}
	require.NotNil(t, seq)
	assert.False(t, seq.AnchorEnd)

	// The EndsWith anchor still applies.
	var end *rules.EndsWith
	for _, r := range set {
		if e, ok := r.(rules.EndsWith); ok {
			end = &e
			break
		}
	}
	require.NotNil(t, end)
	assert.Equal(t, byte('b'), end.Letter)
}
