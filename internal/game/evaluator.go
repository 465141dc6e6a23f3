package game

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	msgCorrect       = "Correct answer!"
	msgIncorrect     = "Not quite right. Try again."
	msgAlreadyFound  = "Already discovered!"
	msgVerifyFailure = "Error verifying answer. Please try again."
)

// GuessResult is the per-guess outcome within one submission.
type GuessResult struct {
	Guess        string `json:"guess"`
	Correct      bool   `json:"correct"`
	AlreadyFound bool   `json:"alreadyFound,omitempty"`
	Explanation  string `json:"explanation"`
}

// Evaluation aggregates a whole submission: every comma-separated guess is
// judged independently and the counts roll up here.
type Evaluation struct {
	Results       []GuessResult `json:"results"`
	Correct       int           `json:"correct"`
	Duplicate     int           `json:"duplicate"`
	Incorrect     int           `json:"incorrect"`
	PointsAwarded int           `json:"pointsAwarded"`
	Score         int           `json:"score"`
	Message       string        `json:"message"`
	RoundOver     bool          `json:"roundOver"`
}

// SubmitGuess evaluates one text submission against the active round.
//
// DIFF/WRONG: the text is split on commas and each guess is verified
// concurrently against the external verifier, with guesses already on the
// found list short-circuited locally. LOGIC: the whole text is a single
// attempt; a correct attempt ends the round immediately.
//
// A verifier error marks only that guess incorrect; the round continues.
func (s *Session) SubmitGuess(ctx context.Context, text string) (*Evaluation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyGuess
	}

	s.mu.Lock()
	r := s.round
	if r == nil || r.Phase != PhaseActive {
		s.mu.Unlock()
		return nil, ErrNoActiveRound
	}
	roundID := r.ID
	mode := r.Mode
	content := r.Content
	already := append([]string(nil), r.FoundAnswers...)
	s.mu.Unlock()

	if mode == ModeLogic {
		return s.submitLogic(ctx, roundID, content, text)
	}

	guesses := splitGuesses(text)
	results := make([]GuessResult, len(guesses))
	repeatOf := make(map[int]int) // repeat index -> first occurrence
	var wg sync.WaitGroup
	for i, g := range guesses {
		if containsFold(already, g) {
			results[i] = GuessResult{Guess: g, Correct: true, AlreadyFound: true, Explanation: msgAlreadyFound}
			continue
		}
		if j := indexFold(guesses[:i], g); j >= 0 {
			repeatOf[i] = j
			continue
		}
		wg.Add(1)
		go func(i int, g string) {
			defer wg.Done()
			results[i] = s.verifyOne(ctx, mode, content, g, already)
		}(i, g)
	}
	wg.Wait()

	// an in-batch repeat settles after its first occurrence is judged: a
	// repeat of a correct guess is a duplicate, a repeat of an incorrect
	// one stays incorrect
	for i, j := range repeatOf {
		if results[j].Correct {
			results[i] = GuessResult{Guess: guesses[i], Correct: true, AlreadyFound: true, Explanation: msgAlreadyFound}
		} else {
			results[i] = GuessResult{Guess: guesses[i], Explanation: results[j].Explanation}
		}
	}

	s.mu.Lock()
	r = s.round
	if r == nil || r.ID != roundID || r.Phase != PhaseActive {
		s.mu.Unlock()
		return nil, ErrRoundSuperseded
	}
	ev := &Evaluation{Results: results}
	for i := range results {
		res := &results[i]
		switch {
		case res.Correct && (res.AlreadyFound || r.foundAnswer(res.Guess)):
			res.AlreadyFound = true
			ev.Duplicate++
		case res.Correct:
			r.FoundAnswers = append(r.FoundAnswers, res.Guess)
			r.Score += mode.Points()
			ev.Correct++
			ev.PointsAwarded += mode.Points()
		default:
			ev.Incorrect++
		}
	}
	ev.Score = r.Score
	s.mu.Unlock()

	ev.Message = summaryMessage(ev)
	return ev, nil
}

func (s *Session) verifyOne(ctx context.Context, mode Mode, content Content, guess string, found []string) GuessResult {
	var (
		v   Verdict
		err error
	)
	switch mode {
	case ModeDiff:
		v, err = s.provider.VerifyComparison(ctx, content.Comparison, guess, found)
	case ModeWrong:
		v, err = s.provider.VerifyAnomaly(ctx, content.Anomaly, guess, found)
	}
	if err != nil {
		log.Warn().Err(err).Str("guess", guess).Msg("verify guess failed")
		return GuessResult{Guess: guess, Explanation: msgVerifyFailure}
	}
	expl := CleanText(v.Explanation)
	if expl == "" {
		if v.Correct {
			expl = msgCorrect
		} else {
			expl = msgIncorrect
		}
	}
	return GuessResult{Guess: guess, Correct: v.Correct, AlreadyFound: v.AlreadyFound, Explanation: expl}
}

func (s *Session) submitLogic(ctx context.Context, roundID string, content Content, text string) (*Evaluation, error) {
	v, err := s.provider.VerifyLogic(ctx, content.Logic.Question, text)
	if err != nil {
		log.Warn().Err(err).Msg("verify logic answer failed")
		return &Evaluation{
			Results:   []GuessResult{{Guess: text, Explanation: msgVerifyFailure}},
			Incorrect: 1,
			Message:   msgVerifyFailure,
			Score:     s.View().Score,
		}, nil
	}
	expl := CleanText(v.Explanation)

	if !v.Correct {
		if expl == "" {
			expl = msgIncorrect
		}
		return &Evaluation{
			Results:   []GuessResult{{Guess: text, Explanation: expl}},
			Incorrect: 1,
			Message:   expl,
			Score:     s.View().Score,
		}, nil
	}

	s.mu.Lock()
	r := s.round
	if r == nil || r.ID != roundID || r.Phase != PhaseActive {
		s.mu.Unlock()
		return nil, ErrRoundSuperseded
	}
	r.FoundAnswers = append(r.FoundAnswers, text)
	r.Score += ModeLogic.Points()
	score := r.Score
	s.mu.Unlock()

	s.finish(roundID, StatusCompleted, expl)

	if expl == "" {
		expl = msgCorrect
	}
	return &Evaluation{
		Results:       []GuessResult{{Guess: text, Correct: true, Explanation: expl}},
		Correct:       1,
		PointsAwarded: ModeLogic.Points(),
		Score:         score,
		Message:       expl,
		RoundOver:     true,
	}, nil
}

// splitGuesses breaks a submission on commas, trimming whitespace and
// dropping empty fragments.
func splitGuesses(text string) []string {
	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	return indexFold(list, s) >= 0
}

func indexFold(list []string, s string) int {
	for i, v := range list {
		if strings.EqualFold(normalize(v), normalize(s)) {
			return i
		}
	}
	return -1
}

// summaryMessage condenses a batch outcome into one line. Single-guess
// submissions surface the verifier's explanation directly.
func summaryMessage(ev *Evaluation) string {
	if len(ev.Results) == 1 {
		return ev.Results[0].Explanation
	}
	parts := make([]string, 0, 3)
	if ev.Correct > 0 {
		parts = append(parts, fmt.Sprintf("%d new (+%d pts)", ev.Correct, ev.PointsAwarded))
	}
	if ev.Duplicate > 0 {
		parts = append(parts, fmt.Sprintf("%d already found", ev.Duplicate))
	}
	if ev.Incorrect > 0 {
		parts = append(parts, fmt.Sprintf("%d incorrect", ev.Incorrect))
	}
	if len(parts) == 0 {
		return msgIncorrect
	}
	return strings.Join(parts, ", ")
}
