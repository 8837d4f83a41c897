package server

import (
	"errors"
	"sync"
	"testing"
	"time"

	"hill-valley/internal/db"
	"hill-valley/internal/trivia"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	now := time.Date(2025, 10, 31, 20, 0, 0, 0, time.UTC)
	return NewStore(openTestDB(t), func() time.Time { return now })
}

func TestMatchGameFillsThenStartsNewGame(t *testing.T) {
	store := newTestStore(t)

	first, marty, err := store.MatchGame("Marty", 2)
	if err != nil {
		t.Fatalf("match marty: %v", err)
	}
	if first.Status != db.GameStatusWaiting {
		t.Fatalf("expected waiting game, got %s", first.Status)
	}
	second, doc, err := store.MatchGame("Doc", 2)
	if err != nil {
		t.Fatalf("match doc: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected doc in game %d, got %d", first.ID, second.ID)
	}
	if second.Status != db.GameStatusActive || second.StartedAt == nil {
		t.Fatalf("expected full game to become active, got %s", second.Status)
	}
	if marty.AuthToken == "" || marty.AuthToken == doc.AuthToken {
		t.Fatalf("expected distinct participant tokens")
	}

	third, _, err := store.MatchGame("Biff", 2)
	if err != nil {
		t.Fatalf("match biff: %v", err)
	}
	if third.ID == first.ID {
		t.Fatalf("expected a new game once the first is full")
	}
}

func TestMatchGameSkipsGamesWithSameName(t *testing.T) {
	store := newTestStore(t)

	first, _, err := store.MatchGame("Marty", 4)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	second, _, err := store.MatchGame("MARTY", 4)
	if err != nil {
		t.Fatalf("match duplicate: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("expected duplicate name to be placed in another game")
	}
	third, _, err := store.MatchGame("Lorraine", 4)
	if err != nil {
		t.Fatalf("match lorraine: %v", err)
	}
	if third.ID != first.ID {
		t.Fatalf("expected oldest waiting game %d, got %d", first.ID, third.ID)
	}
}

func TestJoinGameRejoinAndClosed(t *testing.T) {
	store := newTestStore(t)

	game, err := store.CreateGame("Enchantment Under the Sea", 2)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	_, marty, rejoined, err := store.JoinGame(game.JoinCode, "Marty")
	if err != nil || rejoined {
		t.Fatalf("join: rejoined=%v err=%v", rejoined, err)
	}
	_, again, rejoined, err := store.JoinGame(idString(game.ID), "MARTY")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !rejoined || again.ID != marty.ID || again.AuthToken != marty.AuthToken {
		t.Fatalf("expected rejoin to return participant %d, got %d", marty.ID, again.ID)
	}

	if _, _, _, err := store.JoinGame(game.JoinCode, "Doc"); err != nil {
		t.Fatalf("join doc: %v", err)
	}
	if _, _, _, err := store.JoinGame(game.JoinCode, "Biff"); !errors.Is(err, ErrGameClosed) {
		t.Fatalf("expected ErrGameClosed for full game, got %v", err)
	}
	if _, _, _, err := store.JoinGame("NOPE", "Biff"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

var yearQuestion = trivia.Question{ID: 1, Level: 1, Text: "Year?", Options: []string{"1955", "1985"}, CorrectIndex: 0, Points: 3}

func TestUpdateSessionCompletesGame(t *testing.T) {
	store := newTestStore(t)
	game, err := store.CreateGame("", 3)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	_, marty, _, err := store.JoinGame(game.JoinCode, "Marty")
	if err != nil {
		t.Fatalf("join marty: %v", err)
	}
	_, doc, _, err := store.JoinGame(game.JoinCode, "Doc")
	if err != nil {
		t.Fatalf("join doc: %v", err)
	}

	finish := func(p *db.Participant) *SessionUpdate {
		t.Helper()
		now := time.Now()
		update, err := store.UpdateSession(p.ID, func(session *trivia.Session) error {
			if err := session.SelectLevels([]int{1}, []trivia.Question{yearQuestion}, 0, now); err != nil {
				return err
			}
			if _, err := session.Answer(1, 0, now); err != nil {
				return err
			}
			return session.Next(now)
		})
		if err != nil {
			t.Fatalf("update session: %v", err)
		}
		return update
	}

	update := finish(marty)
	if update.GameCompleted {
		t.Fatalf("game should stay open while doc is playing")
	}
	if update.Participant.Score != 3 || !update.Participant.Completed || update.WasCompleted {
		t.Fatalf("expected marty scored and completed, got %#v", update.Participant)
	}
	if !finish(doc).GameCompleted {
		t.Fatalf("expected game to complete with the last participant")
	}
	reloaded, err := store.FindGame(game.JoinCode)
	if err != nil {
		t.Fatalf("find game: %v", err)
	}
	if reloaded.Status != db.GameStatusCompleted || reloaded.CompletedAt == nil {
		t.Fatalf("expected completed game, got %s", reloaded.Status)
	}
}

func TestUpdateSessionSerializesAnswers(t *testing.T) {
	store := newTestStore(t)
	_, marty, err := store.MatchGame("Marty", 4)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	now := time.Now()
	if _, err := store.UpdateSession(marty.ID, func(session *trivia.Session) error {
		return session.SelectLevels([]int{1}, []trivia.Question{yearQuestion}, 0, now)
	}); err != nil {
		t.Fatalf("select levels: %v", err)
	}

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UpdateSession(marty.ID, func(session *trivia.Session) error {
				_, err := session.Answer(1, 0, now)
				return err
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, trivia.ErrAlreadyAnswered):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one answer to land, got %d", succeeded)
	}

	if _, err := store.UpdateSession(9999, func(*trivia.Session) error { return nil }); !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestSetStatus(t *testing.T) {
	store := newTestStore(t)
	game, err := store.CreateGame("", 4)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	started, err := store.SetStatus(game.ID, db.GameStatusActive)
	if err != nil || started.Status != db.GameStatusActive {
		t.Fatalf("start: status=%v err=%v", started, err)
	}
	if _, err := store.SetStatus(game.ID, db.GameStatusActive); !errors.Is(err, ErrGameClosed) {
		t.Fatalf("expected ErrGameClosed restarting, got %v", err)
	}
	if _, err := store.SetStatus(game.ID, db.GameStatusCompleted); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := store.SetStatus(game.ID, db.GameStatusCompleted); !errors.Is(err, ErrGameClosed) {
		t.Fatalf("expected ErrGameClosed ending twice, got %v", err)
	}
	if _, err := store.SetStatus(9999, db.GameStatusActive); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}
