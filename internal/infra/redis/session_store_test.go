package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute, 5*time.Minute)

	session := store.GetOrCreate("session-1")
	if !mr.Exists("trainer:session:session-1") {
		t.Fatalf("expected redis key to be set")
	}
	if again := store.GetOrCreate("session-1"); again != session {
		t.Fatalf("expected the same session instance")
	}

	store.DeleteIfEmpty("session-1")
	if mr.Exists("trainer:session:session-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("session-1"); ok {
		t.Fatalf("expected session to be dropped")
	}
}
