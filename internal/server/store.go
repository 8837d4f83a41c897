package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"hill-valley/internal/db"
	"hill-valley/internal/trivia"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrGameNotFound        = errors.New("game not found")
	ErrGameFull            = errors.New("game is full")
	ErrGameClosed          = errors.New("game is not accepting participants")
	ErrParticipantNotFound = errors.New("participant not found")
)

// Store owns trivia game membership. Joins are serialized by mu and run
// inside a transaction so concurrent guests cannot overfill a game.
type Store struct {
	db  *gorm.DB
	mu  sync.Mutex
	now func() time.Time
}

func NewStore(conn *gorm.DB, now func() time.Time) *Store {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{db: conn, now: now}
}

func (s *Store) CreateGame(title string, maxParticipants int) (*db.Game, error) {
	var game *db.Game
	err := s.db.Transaction(func(tx *gorm.DB) error {
		created, err := s.createGame(tx, title, maxParticipants)
		game = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

// FindGame looks a game up by numeric id or by join code.
func (s *Store) FindGame(idOrCode string) (*db.Game, error) {
	return findGame(s.db.Preload("Participants", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id asc")
	}), idOrCode)
}

// MatchGame puts name into the oldest waiting game that has room and no
// participant with the same name, creating a new game when none qualifies.
func (s *Store) MatchGame(name string, maxParticipants int) (*db.Game, *db.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var game db.Game
	var participant *db.Participant
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("status = ?", db.GameStatusWaiting).
			Where("(SELECT COUNT(*) FROM participants WHERE participants.game_id = games.id) < games.max_participants").
			Where("NOT EXISTS (SELECT 1 FROM participants WHERE participants.game_id = games.id AND LOWER(participants.name) = ?)", strings.ToLower(name)).
			Order("created_at asc, id asc").
			First(&game).Error
		switch {
		case db.IsNotFound(err):
			created, err := s.createGame(tx, "", maxParticipants)
			if err != nil {
				return err
			}
			game = *created
		case err != nil:
			return err
		}
		added, err := s.addParticipant(tx, &game, name)
		if err != nil {
			return err
		}
		participant = added
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &game, participant, nil
}

// JoinGame adds name to a specific game. Joining again with the same name
// (case-insensitive) returns the existing participant.
func (s *Store) JoinGame(idOrCode, name string) (*db.Game, *db.Participant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var game *db.Game
	var participant *db.Participant
	rejoined := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		found, err := findGame(tx, idOrCode)
		if err != nil {
			return err
		}
		game = found

		var existing db.Participant
		err = tx.Where("game_id = ? AND LOWER(name) = ?", game.ID, strings.ToLower(name)).First(&existing).Error
		if err == nil {
			participant = &existing
			rejoined = true
			return nil
		}
		if !db.IsNotFound(err) {
			return err
		}
		if game.Status != db.GameStatusWaiting {
			return ErrGameClosed
		}
		added, err := s.addParticipant(tx, game, name)
		if err != nil {
			return err
		}
		participant = added
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return game, participant, rejoined, nil
}

func (s *Store) Participant(gameID, participantID uint) (*db.Participant, error) {
	var participant db.Participant
	err := s.db.Where("id = ? AND game_id = ?", participantID, gameID).First(&participant).Error
	if db.IsNotFound(err) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (s *Store) Participants(gameID uint) ([]db.Participant, error) {
	var participants []db.Participant
	if err := s.db.Where("game_id = ?", gameID).Order("id asc").Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

// SessionUpdate is the outcome of one UpdateSession step.
type SessionUpdate struct {
	Participant   *db.Participant
	Session       *trivia.Session
	WasCompleted  bool
	PreviousScore int
	GameCompleted bool
}

// UpdateSession re-reads the participant under mu, applies step to the
// stored session and persists the session and score. Steps for the same
// participant therefore never overwrite each other. When the session
// completes and every participant in the game is done, the game completes
// too. Errors from step are returned unchanged and nothing is saved.
func (s *Store) UpdateSession(participantID uint, step func(*trivia.Session) error) (*SessionUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var update *SessionUpdate
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var participant db.Participant
		if err := tx.First(&participant, participantID).Error; err != nil {
			if db.IsNotFound(err) {
				return ErrParticipantNotFound
			}
			return err
		}
		session, err := trivia.Decode(participant.SessionData)
		if err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		update = &SessionUpdate{
			Participant:   &participant,
			Session:       session,
			WasCompleted:  participant.Completed,
			PreviousScore: participant.Score,
		}
		if err := step(session); err != nil {
			return err
		}
		data, err := session.Encode()
		if err != nil {
			return err
		}
		updates := map[string]any{
			"session_data": datatypes.JSON(data),
			"score":        session.Score,
			"completed":    session.Completed(),
		}
		if err := tx.Model(&db.Participant{}).Where("id = ?", participant.ID).Updates(updates).Error; err != nil {
			return err
		}
		participant.SessionData = data
		participant.Score = session.Score
		participant.Completed = session.Completed()
		if !session.Completed() {
			return nil
		}
		var remaining int64
		if err := tx.Model(&db.Participant{}).
			Where("game_id = ? AND completed = ?", participant.GameID, false).
			Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		result := tx.Model(&db.Game{}).
			Where("id = ? AND status <> ?", participant.GameID, db.GameStatusCompleted).
			Updates(map[string]any{"status": db.GameStatusCompleted, "completed_at": s.now()})
		if result.Error != nil {
			return result.Error
		}
		update.GameCompleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	return update, nil
}

// SetStatus moves a game to active or completed for admin start/end.
func (s *Store) SetStatus(gameID uint, status string) (*db.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var game db.Game
	if err := s.db.First(&game, gameID).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	if game.Status == db.GameStatusCompleted {
		return nil, ErrGameClosed
	}
	now := s.now()
	updates := map[string]any{"status": status}
	switch status {
	case db.GameStatusActive:
		if game.Status != db.GameStatusWaiting {
			return nil, ErrGameClosed
		}
		updates["started_at"] = now
	case db.GameStatusCompleted:
		updates["completed_at"] = now
	default:
		return nil, fmt.Errorf("unsupported game status %q", status)
	}
	if err := s.db.Model(&game).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.FindGame(idString(gameID))
}

func (s *Store) createGame(tx *gorm.DB, title string, maxParticipants int) (*db.Game, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code := newJoinCode()
		var taken int64
		if err := tx.Model(&db.Game{}).Where("join_code = ?", code).Count(&taken).Error; err != nil {
			return nil, err
		}
		if taken > 0 {
			continue
		}
		game := db.Game{
			JoinCode:        code,
			Title:           title,
			Status:          db.GameStatusWaiting,
			MaxParticipants: maxParticipants,
		}
		if err := tx.Create(&game).Error; err != nil {
			return nil, err
		}
		return &game, nil
	}
	return nil, errors.New("could not allocate a join code")
}

func (s *Store) addParticipant(tx *gorm.DB, game *db.Game, name string) (*db.Participant, error) {
	var count int64
	if err := tx.Model(&db.Participant{}).Where("game_id = ?", game.ID).Count(&count).Error; err != nil {
		return nil, err
	}
	if game.MaxParticipants > 0 && int(count) >= game.MaxParticipants {
		return nil, ErrGameFull
	}
	data, err := trivia.NewSession().Encode()
	if err != nil {
		return nil, err
	}
	now := s.now()
	participant := db.Participant{
		GameID:      game.ID,
		Name:        name,
		AuthToken:   newToken(),
		SessionData: datatypes.JSON(data),
		JoinedAt:    now,
	}
	if err := tx.Create(&participant).Error; err != nil {
		if db.IsDuplicate(err) {
			return nil, ErrGameClosed
		}
		return nil, err
	}
	if game.MaxParticipants > 0 && int(count)+1 >= game.MaxParticipants {
		if err := tx.Model(game).Updates(map[string]any{
			"status":     db.GameStatusActive,
			"started_at": now,
		}).Error; err != nil {
			return nil, err
		}
		game.Status = db.GameStatusActive
		game.StartedAt = &now
	}
	return &participant, nil
}

func findGame(query *gorm.DB, idOrCode string) (*db.Game, error) {
	idOrCode = strings.TrimSpace(idOrCode)
	if idOrCode == "" {
		return nil, ErrGameNotFound
	}
	var game db.Game
	var err error
	if id, ok := parseID(idOrCode); ok {
		err = query.First(&game, id).Error
	} else {
		err = query.Where("join_code = ?", strings.ToUpper(idOrCode)).First(&game).Error
	}
	if db.IsNotFound(err) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}
