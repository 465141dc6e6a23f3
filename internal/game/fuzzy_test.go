package game

import (
	"testing"
)

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"same", "same", 0},
		{"flaw", "lawn", 2},
	}
	for _, c := range cases {
		if got := Levenshtein(c.a, c.b); got != c.want {
			t.Fatalf("Levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("clock", "clock"); got != 1.0 {
		t.Fatalf("identical strings should have similarity 1.0, got %f", got)
	}
	if got := Similarity("", ""); got != 1.0 {
		t.Fatalf("two empty strings should have similarity 1.0, got %f", got)
	}
	if got := Similarity("abc", "xyz"); got != 0.0 {
		t.Fatalf("disjoint strings of equal length should have similarity 0.0, got %f", got)
	}
	// one edit over twelve characters
	if got := Similarity("red bicycle", "red bicycles"); got <= similarityThreshold {
		t.Fatalf("near-identical strings should clear the threshold, got %f", got)
	}
}

func TestMatchesContainment(t *testing.T) {
	desc := "the tree on the left has fewer branches"
	if !Matches("tree", desc) {
		t.Fatal("answer contained in description should match")
	}
	if !Matches("an extra red balloon in the sky", "red balloon") {
		t.Fatal("description contained in answer should match")
	}
	if Matches("", desc) {
		t.Fatal("empty answer should never match")
	}
	if Matches("tree", "") {
		t.Fatal("empty description should never match")
	}
}

func TestScoreRetroactively(t *testing.T) {
	items := []RevealedItem{
		{ID: 1, Description: "The tree on the left has fewer branches"},
		{ID: 2, Description: "Clock displays 13 instead of 12"},
	}

	// "tree" matches item 1 by containment; gibberish matches nothing
	got := ScoreRetroactively([]string{"tree", "purple elephant"}, items, ModeDiff)
	if got != 1 {
		t.Fatalf("expected 1 point for DIFF containment match, got %d", got)
	}

	// WRONG mode weights each match at 2
	got = ScoreRetroactively([]string{"tree"}, items, ModeWrong)
	if got != 2 {
		t.Fatalf("expected 2 points for WRONG match, got %d", got)
	}

	// LOGIC rounds never earn retroactive points
	if got = ScoreRetroactively([]string{"tree"}, items, ModeLogic); got != 0 {
		t.Fatalf("expected 0 points for LOGIC, got %d", got)
	}

	if got = ScoreRetroactively(nil, items, ModeDiff); got != 0 {
		t.Fatalf("expected 0 points for no typed answers, got %d", got)
	}
	if got = ScoreRetroactively([]string{"tree"}, nil, ModeDiff); got != 0 {
		t.Fatalf("expected 0 points with no revealed items, got %d", got)
	}
}

func TestScoreRetroactivelyParaphrase(t *testing.T) {
	// a paraphrase with no containment either way scores only if its
	// edit-distance similarity clears the threshold; this pair sits
	// well below it
	answer := normalize("clock has 13 numbers")
	desc := normalize("Clock displays 13 instead of 12")

	if d := Levenshtein(answer, desc); d != 18 {
		t.Fatalf("expected edit distance 18, got %d", d)
	}
	// 31 runes in the longer string: (31-18)/31
	sim := Similarity(answer, desc)
	if sim < 0.419 || sim > 0.42 {
		t.Fatalf("expected similarity ~0.4194, got %f", sim)
	}
	if sim > similarityThreshold {
		t.Fatalf("similarity %f should not clear threshold %f", sim, similarityThreshold)
	}

	items := []RevealedItem{{ID: 1, Description: desc}}
	if got := ScoreRetroactively([]string{answer}, items, ModeWrong); got != 0 {
		t.Fatalf("expected 0 points for below-threshold paraphrase, got %d", got)
	}
}

func TestScoreRetroactivelyNoDoubleCounting(t *testing.T) {
	// one typed answer scores against at most one item, even when it
	// matches several
	items := []RevealedItem{
		{ID: 1, Description: "small tree added"},
		{ID: 2, Description: "tree house removed"},
	}
	if got := ScoreRetroactively([]string{"tree"}, items, ModeDiff); got != 1 {
		t.Fatalf("expected 1 point for single answer matching two items, got %d", got)
	}
}
