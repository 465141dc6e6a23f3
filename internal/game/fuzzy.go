package game

import "strings"

// similarityThreshold is the minimum normalized edit-distance similarity for
// a typed answer to count as a match against a revealed item description.
const similarityThreshold = 0.6

// ScoreRetroactively reconciles free-text guesses typed during play against
// the authoritative revealed items and returns the bonus points earned.
//
// Each typed answer is matched against the items in order; the first match
// consumes the answer (one typed answer never scores against two items).
// LOGIC rounds are scored exclusively on explicit submission and earn nothing
// here.
func ScoreRetroactively(typed []string, items []RevealedItem, mode Mode) int {
	if mode == ModeLogic || len(typed) == 0 || len(items) == 0 {
		return 0
	}
	points := 0
	for _, answer := range typed {
		a := normalize(answer)
		if a == "" {
			continue
		}
		for _, item := range items {
			if Matches(a, normalize(item.Description)) {
				points += mode.Points()
				break
			}
		}
	}
	return points
}

// Matches reports whether a typed answer and an item description refer to the
// same thing: either one contains the other, or their Levenshtein similarity
// exceeds the threshold. Both inputs are expected case-folded and trimmed.
func Matches(answer, description string) bool {
	if answer == "" || description == "" {
		return false
	}
	if strings.Contains(description, answer) || strings.Contains(answer, description) {
		return true
	}
	return Similarity(answer, description) > similarityThreshold
}

// Similarity is the normalized edit-distance similarity (L-d)/L where L is
// the longer length. 1.0 means identical, 0.0 means nothing in common.
func Similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	l := la
	if lb > l {
		l = lb
	}
	if l == 0 {
		return 1.0
	}
	return float64(l-Levenshtein(a, b)) / float64(l)
}

// Levenshtein computes the classic edit distance between two strings, with
// insertion, deletion and substitution each costing 1. Two-row DP over runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
