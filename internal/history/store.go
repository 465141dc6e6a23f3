// Package history persists finished rounds and serves the player's past
// games. Implementations may be backed by Postgres (production) or memory
// (development/testing).
package history

import (
	"context"
	"time"

	"github.com/perceptra/braingym/internal/game"
)

// Store is the persistence interface for finished rounds.
type Store interface {
	// SaveRound persists one finished round with its revealed items and
	// accepted answers.
	SaveRound(ctx context.Context, rec *game.Record) error

	// ListRounds returns the user's finished rounds, newest first.
	ListRounds(ctx context.Context, userID string, limit, offset int) ([]Entry, error)
}

// Entry is one finished round as served to the history API, with its
// revealed items and the player's accepted answers nested.
type Entry struct {
	ID            int64               `json:"id"`
	Mode          game.Mode           `json:"gameMode"`
	Subject       string              `json:"subject"`
	Score         int                 `json:"score"`
	TotalPossible int                 `json:"totalPossible"`
	FoundCount    int                 `json:"foundCount"`
	CreatedAt     time.Time           `json:"createdAt"`
	EndedAt       time.Time           `json:"endedAt"`
	TimeRemaining int                 `json:"timeRemaining"`
	Status        game.Status         `json:"completionStatus"`
	LogicTitle    string              `json:"logicTitle,omitempty"`
	LogicQuestion string              `json:"logicQuestion,omitempty"`
	LogicSolution string              `json:"logicSolution,omitempty"`
	Items         []game.RevealedItem `json:"differences"`
	Answers       []Answer            `json:"userAnswers"`
}

// Answer is one accepted free-text guess with the points it earned.
type Answer struct {
	Text          string    `json:"answerText"`
	PointsAwarded int       `json:"pointsAwarded"`
	FoundAt       time.Time `json:"foundAt"`
}
