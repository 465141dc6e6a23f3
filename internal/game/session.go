package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoActiveRound   = errors.New("no active round")
	ErrRoundInProgress = errors.New("round in progress")
	ErrRoundSuperseded = errors.New("round superseded")
	ErrEmptyGuess      = errors.New("empty guess")
	ErrClickIgnored    = errors.New("click ignored")
	ErrUnknownMode     = errors.New("unknown game mode")
	ErrGeneration      = errors.New("puzzle generation failed")
)

// Provider is the external generation/verification service the session
// delegates all puzzle intelligence to.
type Provider interface {
	GenerateComparison(ctx context.Context, subject string) (*ComparisonContent, error)
	GenerateAnomaly(ctx context.Context, subject string) (*AnomalyContent, error)
	GenerateLogic(ctx context.Context, topic string) (*LogicContent, error)

	VerifyComparison(ctx context.Context, c *ComparisonContent, guess string, found []string) (Verdict, error)
	VerifyAnomaly(ctx context.Context, a *AnomalyContent, guess string, found []string) (Verdict, error)
	VerifyLogic(ctx context.Context, question, guess string) (Verdict, error)

	ListDifferences(ctx context.Context, c *ComparisonContent) ([]RevealedItem, error)
	ListAnomalies(ctx context.Context, a *AnomalyContent) ([]RevealedItem, error)
}

// Verdict is the external verifier's judgment of a single guess.
type Verdict struct {
	Correct      bool   `json:"correct"`
	AlreadyFound bool   `json:"alreadyFound,omitempty"`
	Explanation  string `json:"explanation"`
}

// Recorder persists finished rounds. Failures are logged, never surfaced to
// the player.
type Recorder interface {
	SaveRound(ctx context.Context, rec *Record) error
}

// Events receives fire-and-forget notifications for one session. Implemented
// by the socket layer; NopEvents discards everything.
type Events interface {
	Tick(remaining int, zone Zone)
	PhaseChanged(phase Phase)
	Revealed(items []RevealedItem)
}

type NopEvents struct{}

func (NopEvents) Tick(int, Zone)          {}
func (NopEvents) PhaseChanged(Phase)      {}
func (NopEvents) Revealed([]RevealedItem) {}

// Settings tune one session. Zero values fall back to defaults.
type Settings struct {
	RoundSeconds  int
	TickInterval  time.Duration // <= 0 disables the automatic timer (tests)
	DragThreshold float64       // px of press->release movement that makes a click a drag
	RevealTimeout time.Duration
}

const (
	DefaultRoundSeconds  = 75
	defaultDragThreshold = 5.0
	defaultRevealTimeout = 30 * time.Second
)

func (s Settings) withDefaults() Settings {
	if s.RoundSeconds <= 0 {
		s.RoundSeconds = DefaultRoundSeconds
	}
	if s.DragThreshold <= 0 {
		s.DragThreshold = defaultDragThreshold
	}
	if s.RevealTimeout <= 0 {
		s.RevealTimeout = defaultRevealTimeout
	}
	return s
}

// randomThemes seeds image rounds when the player leaves the subject blank.
var randomThemes = []string{
	"A futuristic street market",
	"A cozy medieval tavern",
	"An underwater research base",
	"A steampunk workshop",
	"A magical library in the clouds",
	"A modern penthouse kitchen",
	"A quiet suburban garden",
	"An ancient Egyptian temple interior",
	"A bustling space station lobby",
	"A rustic forest cabin",
}

// CleanText strips markdown bold markers the model sometimes emits despite
// the prompt directives.
func CleanText(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

const unsolvedPlaceholder = "Time's up! The puzzle remains unsolved."

// Session owns at most one live Round for a single user and serializes every
// event (start, tick, guess, click, give-up) through its mutex. External
// calls (generation, verification, reveal, persistence) run outside the lock
// and re-validate round identity before touching state, so a stale response
// can never clobber a newer round.
type Session struct {
	userID   string
	provider Provider
	recorder Recorder
	events   Events
	settings Settings

	mu        sync.Mutex
	round     *Round
	timerStop chan struct{}
}

func NewSession(userID string, provider Provider, recorder Recorder, events Events, settings Settings) *Session {
	if events == nil {
		events = NopEvents{}
	}
	return &Session{
		userID:   userID,
		provider: provider,
		recorder: recorder,
		events:   events,
		settings: settings.withDefaults(),
	}
}

// Start begins a new round: resets all round state, invokes the generator for
// the selected mode and, for image modes, pre-fetches the answer set so
// clicks can be hit-tested during play. Allowed from Idle, Over, and Loading
// (a second start supersedes an in-flight generation); a live Active or
// Revealing round must be given up first.
func (s *Session) Start(ctx context.Context, mode Mode, subject string) (*View, error) {
	if !mode.Valid() {
		return nil, ErrUnknownMode
	}
	subject = strings.TrimSpace(subject)
	if subject == "" && mode != ModeLogic {
		subject = randomThemes[rand.Intn(len(randomThemes))]
	}

	s.mu.Lock()
	if r := s.round; r != nil && (r.Phase == PhaseActive || r.Phase == PhaseRevealing) {
		s.mu.Unlock()
		return nil, ErrRoundInProgress
	}
	s.stopTimerLocked()
	r := &Round{
		ID:          uuid.NewString(),
		Mode:        mode,
		Subject:     subject,
		Phase:       PhaseLoading,
		Remaining:   s.settings.RoundSeconds,
		FoundClicks: make(map[int]bool),
		StartedAt:   time.Now().UTC(),
	}
	s.round = r
	s.mu.Unlock()

	content, items, err := s.generate(ctx, mode, subject)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil || s.round.ID != r.ID {
		// a newer Start superseded this round while generation was in flight
		return nil, ErrRoundSuperseded
	}
	if err != nil {
		s.round = nil // back to Idle; the player retries manually
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	r.Content = content
	r.Items = items
	r.Phase = PhaseActive
	s.startTimerLocked(r.ID)
	view := s.viewLocked()
	go s.events.PhaseChanged(PhaseActive)
	return view, nil
}

func (s *Session) generate(ctx context.Context, mode Mode, subject string) (Content, []RevealedItem, error) {
	switch mode {
	case ModeDiff:
		c, err := s.provider.GenerateComparison(ctx, subject)
		if err != nil {
			return Content{}, nil, err
		}
		items, err := s.provider.ListDifferences(ctx, c)
		if err != nil {
			// degraded round: clicks disabled until the reveal retry
			log.Warn().Err(err).Msg("pre-fetch differences failed")
			items = nil
		}
		return Content{Comparison: c}, items, nil
	case ModeWrong:
		a, err := s.provider.GenerateAnomaly(ctx, subject)
		if err != nil {
			return Content{}, nil, err
		}
		items, err := s.provider.ListAnomalies(ctx, a)
		if err != nil {
			log.Warn().Err(err).Msg("pre-fetch anomalies failed")
			items = nil
		}
		return Content{Anomaly: a}, items, nil
	case ModeLogic:
		l, err := s.provider.GenerateLogic(ctx, subject)
		if err != nil {
			return Content{}, nil, err
		}
		return Content{Logic: l}, nil, nil
	}
	return Content{}, nil, ErrUnknownMode
}

// GiveUp forces the reveal path with status given_up. Same reveal and
// retroactive-scoring behavior as a timeout.
func (s *Session) GiveUp(ctx context.Context) error {
	s.mu.Lock()
	r := s.round
	if r == nil || r.Phase != PhaseActive {
		s.mu.Unlock()
		return ErrNoActiveRound
	}
	id := r.ID
	s.mu.Unlock()
	s.finish(id, StatusGivenUp, "")
	return nil
}

// PlayAgain discards a finished round, returning the session to Idle.
func (s *Session) PlayAgain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round != nil && s.round.Phase != PhaseOver {
		return ErrRoundInProgress
	}
	s.round = nil
	return nil
}

// Click hit-tests a tap against the pre-fetched answer boxes. Clicks are
// ignored outside Active play, in LOGIC mode, and for drag gestures
// (press->release movement beyond the threshold), so pan/zoom never scores.
func (s *Session) Click(press, release Point, frame Frame) (*ClickResult, error) {
	s.mu.Lock()
	r := s.round
	if r == nil || r.Phase != PhaseActive || r.Mode == ModeLogic {
		s.mu.Unlock()
		return nil, ErrClickIgnored
	}
	dx, dy := release.X-press.X, release.Y-press.Y
	if dx*dx+dy*dy > s.settings.DragThreshold*s.settings.DragThreshold {
		s.mu.Unlock()
		return nil, ErrClickIgnored
	}

	hit := HitTest(press, frame, r.Items, r.FoundClicks)
	res := &ClickResult{Outcome: hit.Outcome, Item: hit.Item}
	switch hit.Outcome {
	case HitNewFind:
		r.FoundClicks[hit.Item.ID] = true
		res.PointsDelta = r.Mode.Points()
		r.Score += res.PointsDelta
	case HitMiss:
		res.PointsDelta = -r.Mode.Penalty()
		r.Score += res.PointsDelta
		if r.Score < 0 {
			res.PointsDelta -= r.Score // clamp delta to what was actually deducted
			r.Score = 0
		}
	}
	res.Score = r.Score
	complete := len(r.Items) > 0 && len(r.FoundClicks) == len(r.Items)
	id := r.ID
	s.mu.Unlock()

	if complete {
		res.RoundOver = true
		s.finish(id, StatusCompleted, "")
	}
	return res, nil
}

// ClickResult reports one click's classification and scoring effect.
type ClickResult struct {
	Outcome     HitOutcome    `json:"outcome"`
	Item        *RevealedItem `json:"item,omitempty"`
	PointsDelta int           `json:"pointsDelta"`
	Score       int           `json:"score"`
	RoundOver   bool          `json:"roundOver"`
}

// startTimerLocked begins the 1s countdown for the given round. The ticker
// goroutine is cancelled whenever the round leaves Active; a stale tick can
// never fire against a newer round because ticks carry the round id.
func (s *Session) startTimerLocked(roundID string) {
	if s.settings.TickInterval <= 0 {
		return
	}
	stop := make(chan struct{})
	s.timerStop = stop
	go s.runTimer(roundID, stop)
}

func (s *Session) stopTimerLocked() {
	if s.timerStop != nil {
		close(s.timerStop)
		s.timerStop = nil
	}
}

func (s *Session) runTimer(roundID string, stop chan struct{}) {
	t := time.NewTicker(s.settings.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if s.tick(roundID) {
				return
			}
		}
	}
}

// tick decrements the countdown. Returns true once the round has left Active
// and the timer loop should exit.
func (s *Session) tick(roundID string) bool {
	s.mu.Lock()
	r := s.round
	if r == nil || r.ID != roundID || r.Phase != PhaseActive {
		s.mu.Unlock()
		return true
	}
	r.Remaining--
	rem := r.Remaining
	s.mu.Unlock()

	if rem <= 0 {
		s.finish(roundID, StatusTimeout, "")
		return true
	}
	s.events.Tick(rem, ZoneFor(rem))
	return false
}

// finish drives Active -> Revealing -> Over: stops the timer, fetches (or
// reuses pre-fetched) authoritative answers, applies retroactive scoring for
// image modes, persists the round, and emits the reveal. A reveal failure
// degrades to an empty answer list; a persistence failure is logged only.
func (s *Session) finish(roundID string, status Status, solution string) {
	s.mu.Lock()
	r := s.round
	if r == nil || r.ID != roundID || r.Phase != PhaseActive {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	r.Phase = PhaseRevealing
	r.Status = status
	mode := r.Mode
	content := r.Content
	answers := append([]string(nil), r.FoundAnswers...)
	items := r.Items
	s.mu.Unlock()
	s.events.PhaseChanged(PhaseRevealing)

	ctx, cancel := context.WithTimeout(context.Background(), s.settings.RevealTimeout)
	defer cancel()

	if mode != ModeLogic && len(items) == 0 {
		var err error
		switch mode {
		case ModeDiff:
			items, err = s.provider.ListDifferences(ctx, content.Comparison)
		case ModeWrong:
			items, err = s.provider.ListAnomalies(ctx, content.Anomaly)
		}
		if err != nil {
			log.Warn().Err(err).Str("round", roundID).Msg("reveal fetch failed")
			items = nil
		}
	}
	bonus := ScoreRetroactively(answers, items, mode)

	s.mu.Lock()
	if s.round == nil || s.round.ID != roundID {
		s.mu.Unlock()
		return
	}
	r.Items = items
	r.Score += bonus
	if mode == ModeLogic {
		r.Solution = solution
		if r.Solution == "" && content.Logic != nil {
			r.Solution = CleanText(content.Logic.Solution)
		}
		if r.Solution == "" {
			r.Solution = unsolvedPlaceholder
		}
	}
	r.Phase = PhaseOver
	rec := s.recordLocked(r)
	s.mu.Unlock()

	s.events.Revealed(items)
	s.events.PhaseChanged(PhaseOver)

	if err := s.recorder.SaveRound(ctx, rec); err != nil {
		log.Warn().Err(err).Str("round", roundID).Msg("persist round failed")
	}
}

func (s *Session) recordLocked(r *Round) *Record {
	rec := &Record{
		UserID:        s.userID,
		Mode:          r.Mode,
		Subject:       r.Subject,
		Score:         r.Score,
		TotalPossible: len(r.Items),
		FoundAnswers:  append([]string(nil), r.FoundAnswers...),
		PointsPerItem: r.Mode.Points(),
		TimeRemaining: r.Remaining,
		Status:        r.Status,
		Items:         append([]RevealedItem(nil), r.Items...),
		EndedAt:       time.Now().UTC(),
	}
	if r.Mode == ModeLogic {
		rec.TotalPossible = 1
		if l := r.Content.Logic; l != nil {
			rec.LogicTitle = CleanText(l.Title)
			rec.LogicQuestion = CleanText(l.Question)
		}
		rec.LogicSolution = r.Solution
	}
	return rec
}

// LogicView is the redacted logic payload: the solution is withheld while
// the round is still being played.
type LogicView struct {
	Title    string `json:"title"`
	Question string `json:"question"`
}

// View is the phase-aware snapshot handed to the API layer.
type View struct {
	RoundID       string             `json:"roundId,omitempty"`
	Mode          Mode               `json:"mode,omitempty"`
	Subject       string             `json:"subject,omitempty"`
	Phase         Phase              `json:"phase"`
	Score         int                `json:"score"`
	Remaining     int                `json:"timeRemaining"`
	Zone          Zone               `json:"zone,omitempty"`
	Status        Status             `json:"status,omitempty"`
	FoundAnswers  []string           `json:"foundAnswers"`
	FoundClickIDs []int              `json:"foundClickIds"`
	Comparison    *ComparisonContent `json:"comparison,omitempty"`
	Anomaly       *AnomalyContent    `json:"anomaly,omitempty"`
	Logic         *LogicView         `json:"logic,omitempty"`
	Items         []RevealedItem     `json:"revealedItems,omitempty"`
	Solution      string             `json:"solution,omitempty"`
}

func (s *Session) View() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() *View {
	r := s.round
	if r == nil {
		return &View{Phase: PhaseIdle, FoundAnswers: []string{}, FoundClickIDs: []int{}}
	}
	v := &View{
		RoundID:       r.ID,
		Mode:          r.Mode,
		Subject:       r.Subject,
		Phase:         r.Phase,
		Score:         r.Score,
		Remaining:     r.Remaining,
		Zone:          ZoneFor(r.Remaining),
		Status:        r.Status,
		FoundAnswers:  append([]string{}, r.FoundAnswers...),
		FoundClickIDs: sortedIDs(r.FoundClicks),
		Comparison:    r.Content.Comparison,
		Anomaly:       r.Content.Anomaly,
	}
	if l := r.Content.Logic; l != nil {
		v.Logic = &LogicView{Title: CleanText(l.Title), Question: CleanText(l.Question)}
	}
	if r.Phase == PhaseOver {
		v.Items = append([]RevealedItem{}, r.Items...)
		v.Solution = r.Solution
	}
	return v
}

func sortedIDs(set map[int]bool) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
