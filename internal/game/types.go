package game

import (
	"strings"
	"time"
)

type Mode string

const (
	ModeDiff  Mode = "DIFF"
	ModeWrong Mode = "WRONG"
	ModeLogic Mode = "LOGIC"
)

// Points is the score value of one correct, non-duplicate find in this mode.
func (m Mode) Points() int {
	switch m {
	case ModeLogic:
		return 10
	case ModeWrong:
		return 2
	default:
		return 1
	}
}

// Penalty is the score deduction for a missed click. LOGIC has no clicks.
func (m Mode) Penalty() int {
	switch m {
	case ModeWrong:
		return 2
	case ModeDiff:
		return 1
	default:
		return 0
	}
}

func (m Mode) Valid() bool {
	return m == ModeDiff || m == ModeWrong || m == ModeLogic
}

type Phase string

const (
	PhaseIdle      Phase = "Idle"
	PhaseLoading   Phase = "Loading"
	PhaseActive    Phase = "Active"
	PhaseRevealing Phase = "Revealing"
	PhaseOver      Phase = "Over"
)

// Zone buckets the remaining time for UI urgency cues. Crossing a zone
// boundary is a notification, never a phase change.
type Zone string

const (
	ZoneNormal  Zone = "normal"
	ZoneCaution Zone = "caution"
	ZoneDanger  Zone = "danger"
)

const (
	cautionBelow = 30 // seconds
	dangerBelow  = 10
)

func ZoneFor(remaining int) Zone {
	switch {
	case remaining <= dangerBelow:
		return ZoneDanger
	case remaining <= cautionBelow:
		return ZoneCaution
	default:
		return ZoneNormal
	}
}

type Status string

const (
	StatusTimeout   Status = "timeout"
	StatusCompleted Status = "completed"
	StatusGivenUp   Status = "given_up"
)

// RevealedItem is one authoritative difference/anomaly as reported by the
// puzzle service. Box is [ymin, xmin, ymax, xmax] on the fixed 0-1000 grid,
// independent of rendered image size.
type RevealedItem struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Box         [4]int `json:"box_2d"`
}

// ComparisonContent holds the two base64 PNG images of a DIFF round.
type ComparisonContent struct {
	Original string `json:"original"`
	Modified string `json:"modified"`
}

// AnomalyContent holds the single base64 PNG image of a WRONG round.
type AnomalyContent struct {
	Image string `json:"image"`
}

// LogicContent holds the text payload of a LOGIC round. Solution stays
// server-side until the round is over.
type LogicContent struct {
	Title    string `json:"title"`
	Question string `json:"question"`
	Solution string `json:"solution"`
}

// Content is the mode-specific round payload. Exactly one field is non-nil,
// matching the round's Mode.
type Content struct {
	Comparison *ComparisonContent `json:"comparison,omitempty"`
	Anomaly    *AnomalyContent    `json:"anomaly,omitempty"`
	Logic      *LogicContent      `json:"logic,omitempty"`
}

// Round is the aggregate state of one play-through. It is owned exclusively
// by its Session; nothing outside the session mutates it.
type Round struct {
	ID        string
	Mode      Mode
	Subject   string
	Content   Content
	Phase     Phase
	Score     int
	Remaining int
	Status    Status

	// FoundAnswers is the ordered ledger of accepted free-text guesses.
	FoundAnswers []string
	// FoundClicks is the set of item ids discovered by clicking.
	FoundClicks map[int]bool

	// Items is the answer set, pre-fetched for DIFF/WRONG right after
	// generation so clicks can be hit-tested during play. It is only
	// exposed to callers once Phase reaches Revealing/Over.
	Items []RevealedItem

	// Solution is the logic solution text shown once the round ends.
	Solution string

	StartedAt time.Time
}

func (r *Round) foundAnswer(guess string) bool {
	g := normalize(guess)
	for _, f := range r.FoundAnswers {
		if normalize(f) == g {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Record is the flattened form of a finished round handed to the history
// gateway. Mirrors the persisted schema: per-answer points, per-item boxes.
type Record struct {
	UserID        string
	Mode          Mode
	Subject       string
	Score         int
	TotalPossible int
	FoundAnswers  []string
	PointsPerItem int
	TimeRemaining int
	Status        Status
	LogicTitle    string
	LogicQuestion string
	LogicSolution string
	Items         []RevealedItem
	EndedAt       time.Time
}
