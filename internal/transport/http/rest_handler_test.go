package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"case-trainer-service/internal/app"
	"case-trainer-service/internal/domain"
)

func TestRESTScoreboardAndSelections(t *testing.T) {
	service := newTestService()
	ctx := context.Background()
	if _, err := service.Join(ctx, "s1", "u1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.StartAttempt(ctx, "s1", "u1", "case-001"); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, key := range []string{"troponin", "sodyum"} {
		if _, err := service.RecordAction(ctx, "s1", "u1", app.ActionRequest{Section: domain.SectionLabs, Key: key}); err != nil {
			t.Fatalf("action %s: %v", key, err)
		}
	}

	server := httptest.NewServer(newTestMux(service))
	defer server.Close()

	var snap domain.SessionSnapshot
	getJSON(t, server.URL+"/sessions/s1/scoreboard", http.StatusOK, &snap)
	if len(snap.Scoreboard.Entries) != 1 || snap.Scoreboard.Entries[0].Score != 84 {
		t.Fatalf("unexpected scoreboard %+v", snap.Scoreboard)
	}

	var selections []domain.Selection
	getJSON(t, server.URL+"/sessions/s1/selections?limit=1", http.StatusOK, &selections)
	if len(selections) != 1 || selections[0].Key != "sodyum" || selections[0].Delta != -11 {
		t.Fatalf("unexpected selections %+v", selections)
	}

	var missing errorPayload
	getJSON(t, server.URL+"/sessions/nope/scoreboard", http.StatusNotFound, &missing)
	if missing.Message != domain.ErrSessionNotFound.Error() {
		t.Fatalf("unexpected error body %+v", missing)
	}

	resp, err := http.Get(server.URL + "/sessions/s1/leaderboard")
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected leaderboard route to be absent, got %d", resp.StatusCode)
	}
}

func TestRESTLeaderboard(t *testing.T) {
	board := &stubLeaderboard{updates: []domain.ScoreUpdate{
		{SessionID: "s1", UserID: "u2", Breakdown: domain.ScoreBreakdown{Total: 90}},
		{SessionID: "s1", UserID: "u1", Breakdown: domain.ScoreBreakdown{Total: 70}},
	}}
	mux := http.NewServeMux()
	NewRESTHandler(newTestService(), board).Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	var top []domain.ScoreUpdate
	getJSON(t, server.URL+"/sessions/s1/leaderboard?limit=5", http.StatusOK, &top)
	if len(top) != 2 || top[0].UserID != "u2" || board.limit != 5 {
		t.Fatalf("unexpected leaderboard %+v (limit %d)", top, board.limit)
	}

	board.err = errors.New("redis down")
	var failure errorPayload
	getJSON(t, server.URL+"/sessions/s1/leaderboard", http.StatusInternalServerError, &failure)
}

func getJSON(t *testing.T, url string, wantStatus int, dst any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("get %s: expected %d, got %d", url, wantStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

type stubLeaderboard struct {
	updates []domain.ScoreUpdate
	limit   int
	err     error
}

func (s *stubLeaderboard) TopScores(_ context.Context, _ string, limit int) ([]domain.ScoreUpdate, error) {
	s.limit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.updates, nil
}
