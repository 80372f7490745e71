package results

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleRound(reason string, scores ...int) Round {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := Round{
		Session:   "arena",
		Reason:    reason,
		StartedAt: start,
		EndedAt:   start.Add(90 * time.Second),
	}
	for i, sc := range scores {
		r.Participants = append(r.Participants, Participant{
			ID:       string(rune('a' + i)),
			Skin:     "😭",
			Survived: i == 0,
			Award:    sc,
			Score:    sc,
		})
	}
	return r
}

func checkStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.SaveRounds(ctx, []Round{sampleRound("last_standing", 2, 0, 0)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveRounds(ctx, []Round{sampleRound("hazard_cleared", 1, 1), sampleRound("forced")}); err != nil {
		t.Fatalf("save batch: %v", err)
	}

	got, err := s.RecentRounds(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(got))
	}
	if got[0].Reason != "forced" || got[1].Reason != "hazard_cleared" {
		t.Errorf("expected newest first, got %q then %q", got[0].Reason, got[1].Reason)
	}
	if got[0].ID <= got[1].ID {
		t.Errorf("expected descending ids, got %d then %d", got[0].ID, got[1].ID)
	}
	if len(got[1].Participants) != 2 || got[1].Participants[0].Award != 1 {
		t.Errorf("participants not round-tripped: %+v", got[1].Participants)
	}
	if !got[1].Participants[0].Survived || got[1].Participants[1].Survived {
		t.Errorf("survived flags not round-tripped: %+v", got[1].Participants)
	}
	if !got[1].EndedAt.Equal(got[1].StartedAt.Add(90 * time.Second)) {
		t.Errorf("times not round-tripped: %v %v", got[1].StartedAt, got[1].EndedAt)
	}

	all, err := s.RecentRounds(ctx, 0)
	if err != nil {
		t.Fatalf("recent all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 rounds with no limit, got %d", len(all))
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(10)
	defer s.Close()
	checkStore(t, s)
}

func TestMemoryStoreLimit(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.SaveRounds(ctx, []Round{sampleRound("forced")})
	}
	got, _ := s.RecentRounds(ctx, 0)
	if len(got) != 2 {
		t.Fatalf("expected ring of 2, got %d", len(got))
	}
	if got[0].ID != 5 || got[1].ID != 4 {
		t.Errorf("expected ids 5,4, got %d,%d", got[0].ID, got[1].ID)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "rounds.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	checkStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("PUSHME_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("PUSHME_TEST_POSTGRES_URL not set")
	}
	s, err := NewPostgresStore(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	if _, err := s.db.Exec(`TRUNCATE rounds`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	checkStore(t, s)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("mongo", "", "")
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
	s, err := Open("", "", "")
	if err != nil {
		t.Fatalf("default backend: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("expected memory store by default, got %T", s)
	}
}

func TestRecorderFlushesOnStop(t *testing.T) {
	store := NewMemoryStore(10)
	r := newRecorder(store, nil, time.Hour)
	r.Track(sampleRound("last_standing", 1, 0))
	r.Track(sampleRound("forced"))
	r.Stop()

	got, _ := store.RecentRounds(context.Background(), 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 rounds after stop, got %d", len(got))
	}
	r.Stop() // second stop is a no-op
}

func TestRecorderFlushesOnTick(t *testing.T) {
	store := NewMemoryStore(10)
	r := newRecorder(store, nil, 10*time.Millisecond)
	defer r.Stop()
	r.Track(sampleRound("hazard_cleared", 1))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, _ := store.RecentRounds(context.Background(), 0)
		if len(got) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("round was not flushed by the ticker")
}
