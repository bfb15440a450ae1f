package feedback

import (
	"github.com/dounan/diffle-solver/internal/words"
)

// Score computes the marks the game would emit for a guess against a
// known hidden word. Used by simulation and tests.
//
// In-order occurrences are chosen by a longest-common-subsequence
// alignment of guess against hidden, preferring earlier guess letters on
// ties. An aligned letter is a tail when the previous guess letter
// aligned to the immediately preceding hidden position, otherwise a
// head; alignment to the first or last hidden position yields the start
// or end mark. Unaligned occurrences are misplaced while the hidden word
// still has unclaimed occurrences of the letter, absent beyond that.
func Score(guess, hidden *words.Word) Result {
	g, h := guess.Text, hidden.Text
	m, n := len(g), len(h)

	// dp[i][j] = LCS length of g[i:] and h[j:].
	dp := make([][]int16, m+1)
	for i := range dp {
		dp[i] = make([]int16, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if g[i] == h[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	// Backtrack. Skipping hidden letters on ties keeps early guess
	// letters matched, mirroring the game's occurrence-order accounting.
	match := make([]int, m)
	for i := range match {
		match[i] = -1
	}
	i, j := 0, 0
	for i < m && j < n {
		switch {
		case g[i] == h[j] && dp[i][j] == dp[i+1][j+1]+1:
			match[i] = j
			i++
			j++
		case dp[i][j+1] >= dp[i+1][j]:
			j++
		default:
			i++
		}
	}

	// Leftover per-letter budget for misplaced marks.
	var budget [words.AlphabetSize]int
	for k := 0; k < n; k++ {
		budget[h[k]-'a']++
	}
	for k := 0; k < m; k++ {
		if match[k] >= 0 {
			budget[g[k]-'a']--
		}
	}

	marks := make([]Mark, m)
	for k := 0; k < m; k++ {
		mk := Mark{Letter: g[k]}
		switch {
		case match[k] >= 0:
			if k > 0 && match[k-1] == match[k]-1 {
				mk.Tail = true
			} else {
				mk.Head = true
			}
			if match[k] == 0 {
				mk.Start = true
			}
			if match[k] == n-1 {
				mk.End = true
			}
		case budget[g[k]-'a'] > 0:
			mk.Misplaced = true
			budget[g[k]-'a']--
		default:
			mk.Absent = true
		}
		marks[k] = mk
	}
	return Result{Guess: g, Marks: marks}
}
