package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/perceptra/braingym/internal/game"
	"github.com/perceptra/braingym/internal/history"
)

// stubProvider accepts "tree" as the only correct guess and reveals a single
// item.
type stubProvider struct{}

func (stubProvider) GenerateComparison(ctx context.Context, subject string) (*game.ComparisonContent, error) {
	return &game.ComparisonContent{Original: "orig-png", Modified: "mod-png"}, nil
}

func (stubProvider) GenerateAnomaly(ctx context.Context, subject string) (*game.AnomalyContent, error) {
	return &game.AnomalyContent{Image: "img-png"}, nil
}

func (stubProvider) GenerateLogic(ctx context.Context, topic string) (*game.LogicContent, error) {
	return &game.LogicContent{Title: "Riddle", Question: "Q?", Solution: "S"}, nil
}

func (stubProvider) verdict(guess string) (game.Verdict, error) {
	if guess == "tree" {
		return game.Verdict{Correct: true, Explanation: "Yes, the tree changed."}, nil
	}
	return game.Verdict{Explanation: "Not quite right. Try again."}, nil
}

func (p stubProvider) VerifyComparison(ctx context.Context, c *game.ComparisonContent, guess string, found []string) (game.Verdict, error) {
	return p.verdict(guess)
}

func (p stubProvider) VerifyAnomaly(ctx context.Context, a *game.AnomalyContent, guess string, found []string) (game.Verdict, error) {
	return p.verdict(guess)
}

func (p stubProvider) VerifyLogic(ctx context.Context, question, guess string) (game.Verdict, error) {
	return p.verdict(guess)
}

func (stubProvider) items() []game.RevealedItem {
	return []game.RevealedItem{{ID: 1, Description: "The tree on the left has fewer branches", Box: [4]int{0, 0, 100, 100}}}
}

func (p stubProvider) ListDifferences(ctx context.Context, c *game.ComparisonContent) ([]game.RevealedItem, error) {
	return p.items(), nil
}

func (p stubProvider) ListAnomalies(ctx context.Context, a *game.AnomalyContent) ([]game.RevealedItem, error) {
	return p.items(), nil
}

const testSecret = "test-secret"

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	store := history.NewMemoryStore()
	manager := game.NewManager(stubProvider{}, store, nil, game.Settings{TickInterval: 0})
	New(manager, store, testSecret).Register(r)
	return r
}

func signToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": userID}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestAuthRequired(t *testing.T) {
	r := newTestRouter()

	if w := do(t, r, "GET", "/api/rounds/current", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := do(t, r, "GET", "/api/rounds/current", "not-a-jwt", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with invalid token, got %d", w.Code)
	}
	if w := do(t, r, "GET", "/api/rounds/current", signToken(t, "alice"), nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", w.Code)
	}
}

func TestRoundLifecycle(t *testing.T) {
	r := newTestRouter()
	token := signToken(t, "alice")

	w := do(t, r, "POST", "/api/rounds", token, gin.H{"mode": "DIFF", "subject": "a park"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var view game.View
	decode(t, w, &view)
	if view.Phase != game.PhaseActive || view.Mode != game.ModeDiff {
		t.Fatalf("unexpected view: %+v", view)
	}

	// starting again while active conflicts
	if w := do(t, r, "POST", "/api/rounds", token, gin.H{"mode": "DIFF", "subject": "x"}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second start, got %d", w.Code)
	}

	w = do(t, r, "POST", "/api/rounds/current/guess", token, gin.H{"guess": "tree"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var ev game.Evaluation
	decode(t, w, &ev)
	if ev.Correct != 1 || ev.Score != 1 {
		t.Fatalf("unexpected evaluation: %+v", ev)
	}

	w = do(t, r, "POST", "/api/rounds/current/giveup", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	decode(t, w, &view)
	if view.Status != game.StatusGivenUp || len(view.Items) != 1 {
		t.Fatalf("expected revealed given_up round, got %+v", view)
	}
	// 1 live + 1 retroactive point
	if view.Score != 2 {
		t.Fatalf("expected score 2, got %d", view.Score)
	}

	w = do(t, r, "GET", "/api/history", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var hist struct {
		Sessions []history.Entry `json:"sessions"`
	}
	decode(t, w, &hist)
	if len(hist.Sessions) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(hist.Sessions))
	}
	if hist.Sessions[0].FoundCount != 1 || hist.Sessions[0].Status != game.StatusGivenUp {
		t.Fatalf("unexpected history entry: %+v", hist.Sessions[0])
	}

	// bogus pagination params are clamped, not passed through
	w = do(t, r, "GET", "/api/history?limit=-5&offset=-1", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for negative pagination params, got %d", w.Code)
	}
	decode(t, w, &hist)
	if len(hist.Sessions) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(hist.Sessions))
	}

	w = do(t, r, "POST", "/api/rounds/current/again", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	decode(t, w, &view)
	if view.Phase != game.PhaseIdle {
		t.Fatalf("expected idle after play again, got %s", view.Phase)
	}
}

func TestStartUnknownMode(t *testing.T) {
	r := newTestRouter()
	w := do(t, r, "POST", "/api/rounds", signToken(t, "alice"), gin.H{"mode": "CHESS"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestClickEndpoint(t *testing.T) {
	r := newTestRouter()
	token := signToken(t, "bob")

	if w := do(t, r, "POST", "/api/rounds", token, gin.H{"mode": "WRONG", "subject": "a kitchen"}); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	frame := gin.H{"left": 0, "top": 0, "width": 1000, "height": 1000}
	w := do(t, r, "POST", "/api/rounds/current/click", token, gin.H{
		"press":   gin.H{"x": 50, "y": 50},
		"release": gin.H{"x": 50, "y": 50},
		"frame":   frame,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res game.ClickResult
	decode(t, w, &res)
	if res.Outcome != game.HitNewFind || res.PointsDelta != 2 {
		t.Fatalf("unexpected click result: %+v", res)
	}
	// the single item is found, so the round completed
	if !res.RoundOver {
		t.Fatalf("expected round over after final find, got %+v", res)
	}

	// drags are acknowledged but ignored
	w = do(t, r, "POST", "/api/rounds/current/click", token, gin.H{
		"press":   gin.H{"x": 10, "y": 10},
		"release": gin.H{"x": 80, "y": 10},
		"frame":   frame,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for ignored click, got %d", w.Code)
	}
	var ignored struct {
		Ignored bool `json:"ignored"`
	}
	decode(t, w, &ignored)
	if !ignored.Ignored {
		t.Fatalf("expected ignored click, got %s", w.Body.String())
	}
}

func TestUsersAreIsolated(t *testing.T) {
	r := newTestRouter()
	alice := signToken(t, "alice")
	bob := signToken(t, "bob")

	if w := do(t, r, "POST", "/api/rounds", alice, gin.H{"mode": "LOGIC"}); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	var view game.View
	w := do(t, r, "GET", "/api/rounds/current", bob, nil)
	decode(t, w, &view)
	if view.Phase != game.PhaseIdle {
		t.Fatalf("bob should not see alice's round, got %s", view.Phase)
	}
}
