package history

import (
	"context"
	"sync"

	"github.com/perceptra/braingym/internal/game"
)

// memory is a map-backed Store for development and tests. State is lost on
// restart.
type memory struct {
	mu     sync.RWMutex
	nextID int64
	byUser map[string][]Entry
}

func NewMemoryStore() Store {
	return &memory{byUser: make(map[string][]Entry)}
}

func (m *memory) SaveRound(ctx context.Context, rec *game.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++

	e := Entry{
		ID:            m.nextID,
		Mode:          rec.Mode,
		Subject:       rec.Subject,
		Score:         rec.Score,
		TotalPossible: rec.TotalPossible,
		FoundCount:    len(rec.FoundAnswers),
		CreatedAt:     rec.EndedAt,
		EndedAt:       rec.EndedAt,
		TimeRemaining: rec.TimeRemaining,
		Status:        rec.Status,
		LogicTitle:    rec.LogicTitle,
		LogicQuestion: rec.LogicQuestion,
		LogicSolution: rec.LogicSolution,
		Items:         append([]game.RevealedItem{}, rec.Items...),
		Answers:       make([]Answer, 0, len(rec.FoundAnswers)),
	}
	for _, a := range rec.FoundAnswers {
		e.Answers = append(e.Answers, Answer{Text: a, PointsAwarded: rec.PointsPerItem, FoundAt: rec.EndedAt})
	}

	m.byUser[rec.UserID] = append(m.byUser[rec.UserID], e)
	return nil
}

func (m *memory) ListRounds(ctx context.Context, userID string, limit, offset int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	all := m.byUser[userID]
	out := []Entry{}
	// newest first
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
