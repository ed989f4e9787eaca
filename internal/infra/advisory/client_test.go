package advisory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"case-trainer-service/internal/app"
	"case-trainer-service/internal/domain"
)

func TestClientPostsPayloadAndReadsAnswer(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"answer":"Troponin I 2.4 ng/mL"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	answer, err := client.Advise(context.Background(), app.AdvisoryRequest{
		UserID:     "u1",
		CaseID:     "case-001",
		Section:    domain.SectionLabs,
		ActionType: "lab",
		Key:        "troponin",
	})
	if err != nil {
		t.Fatalf("advise: %v", err)
	}
	if answer != "Troponin I 2.4 ng/mL" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if got["caseId"] != "case-001" || got["section"] != "labs" || got["actionType"] != "lab" || got["key"] != "troponin" {
		t.Fatalf("unexpected payload %v", got)
	}
	if _, ok := got["state"]; !ok {
		t.Fatalf("expected state object in payload")
	}
}

func TestClientReportsFailures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	if _, err := NewClient(failing.URL, time.Second).Advise(context.Background(), app.AdvisoryRequest{Key: "ekg"}); err == nil {
		t.Fatalf("expected error for 503")
	}

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer garbage.Close()

	if _, err := NewClient(garbage.URL, time.Second).Advise(context.Background(), app.AdvisoryRequest{Key: "ekg"}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestClientEmptyAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	answer, err := NewClient(server.URL, 0).Advise(context.Background(), app.AdvisoryRequest{Key: "ekg"})
	if err != nil || answer != "" {
		t.Fatalf("expected empty answer without error, got %q %v", answer, err)
	}
}
