package grading

import "strings"

// normalize folds case and strips surrounding whitespace. Matching is
// intentionally forgiving about how the student typed the answer, not
// about what they typed.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// levenshtein computes edit distance over code points with unit cost for
// insert, delete and substitute.
func levenshtein(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	n, m := len(ar), len(br)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}
	dp := make([]int, m+1)
	for j := 0; j <= m; j++ {
		dp[j] = j
	}
	for i := 1; i <= n; i++ {
		prev := dp[0]
		dp[0] = i
		for j := 1; j <= m; j++ {
			tmp := dp[j]
			cost := 0
			if ar[i-1] != br[j-1] {
				cost = 1
			}
			ins := dp[j] + 1
			del := dp[j-1] + 1
			sub := prev + cost
			dp[j] = min3(ins, del, sub)
			prev = tmp
		}
	}
	return dp[m]
}

// Similarity returns the normalized edit-distance similarity of two
// strings in [0,1]. Both strings empty is 0, not 1: callers must treat
// an empty submission as incorrect before ever asking for similarity.
func Similarity(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	maxLen := len(ar)
	if len(br) > maxLen {
		maxLen = len(br)
	}
	if maxLen == 0 {
		return 0
	}
	sim := float64(maxLen-levenshtein(a, b)) / float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
