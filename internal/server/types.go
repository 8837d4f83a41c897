package server

import (
	"sort"
	"strings"
	"time"

	"hill-valley/internal/db"
	"hill-valley/internal/trivia"
)

const (
	headerParticipantToken = "X-Participant-Token"
	headerAccessCode       = "X-Access-Code"
)

const (
	cookieVoter  = "hv_voter"
	cookieAdmin  = "hv_admin"
	cookieAccess = "hv_access"
)

const (
	ctxAdminUser   = "admin_user"
	ctxAdminVia    = "admin_via"
	ctxGame        = "game"
	ctxParticipant = "participant"
	ctxVoter       = "voter"
)

type GameView struct {
	ID              uint              `json:"id"`
	JoinCode        string            `json:"join_code"`
	Title           string            `json:"title"`
	Status          string            `json:"status"`
	MaxParticipants int               `json:"max_participants"`
	Participants    []ParticipantView `json:"participants"`
	CreatedAt       time.Time         `json:"created_at"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

type ParticipantView struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Completed bool   `json:"completed"`
	Answered  int    `json:"answered"`
	Total     int    `json:"total"`
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID uint   `json:"participant_id"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	Completed     bool   `json:"completed"`
}

type CostumeView struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	WearerName string `json:"wearer_name"`
	PhotoURL   string `json:"photo_url,omitempty"`
	Approved   bool   `json:"approved"`
	Votes      *int   `json:"votes,omitempty"`
}

type GuestbookView struct {
	ID          string    `json:"id"`
	GuestName   string    `json:"guest_name"`
	Message     string    `json:"message"`
	VideoURL    string    `json:"video_url"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"created_at"`
}

type PropView struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	ImageURL     string `json:"image_url,omitempty"`
	DisplayOrder int    `json:"display_order"`
	Visible      bool   `json:"visible"`
}

type QuestionView struct {
	ID           uint     `json:"id"`
	Level        int      `json:"level"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Points       int      `json:"points"`
	Category     string   `json:"category"`
	Position     int      `json:"position"`
}

type AdminUserView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	Firebase    bool       `json:"firebase_linked"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func gameView(game db.Game) GameView {
	view := GameView{
		ID:              game.ID,
		JoinCode:        game.JoinCode,
		Title:           game.Title,
		Status:          game.Status,
		MaxParticipants: game.MaxParticipants,
		Participants:    make([]ParticipantView, 0, len(game.Participants)),
		CreatedAt:       game.CreatedAt,
		StartedAt:       game.StartedAt,
		CompletedAt:     game.CompletedAt,
	}
	for _, participant := range game.Participants {
		view.Participants = append(view.Participants, participantView(participant))
	}
	return view
}

func participantView(p db.Participant) ParticipantView {
	view := ParticipantView{
		ID:        p.ID,
		Name:      p.Name,
		Score:     p.Score,
		Completed: p.Completed,
	}
	if session, err := trivia.Decode(p.SessionData); err == nil {
		view.Answered, view.Total = session.Progress()
	}
	return view
}

// leaderboard ranks by score, completed participants first on ties, then by
// name. Equal score and completion share a rank.
func leaderboard(participants []db.Participant) []LeaderboardEntry {
	sorted := append([]db.Participant(nil), participants...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		if sorted[i].Completed != sorted[j].Completed {
			return sorted[i].Completed
		}
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})
	entries := make([]LeaderboardEntry, 0, len(sorted))
	for i, p := range sorted {
		rank := i + 1
		if i > 0 && p.Score == sorted[i-1].Score && p.Completed == sorted[i-1].Completed {
			rank = entries[i-1].Rank
		}
		entries = append(entries, LeaderboardEntry{
			Rank:          rank,
			ParticipantID: p.ID,
			Name:          p.Name,
			Score:         p.Score,
			Completed:     p.Completed,
		})
	}
	return entries
}

func mediaURL(key string) string {
	if key == "" {
		return ""
	}
	return "/media/" + key
}

func costumeView(costume db.Costume, votes *int) CostumeView {
	return CostumeView{
		ID:         costume.ID,
		Name:       costume.Name,
		WearerName: costume.WearerName,
		PhotoURL:   mediaURL(costume.PhotoKey),
		Approved:   costume.Approved,
		Votes:      votes,
	}
}

func guestbookView(m db.GuestbookMessage) GuestbookView {
	return GuestbookView{
		ID:          m.ID.String(),
		GuestName:   m.GuestName,
		Message:     m.Message,
		VideoURL:    mediaURL(m.VideoKey),
		ContentType: m.ContentType,
		SizeBytes:   m.SizeBytes,
		Approved:    m.Approved,
		CreatedAt:   m.CreatedAt,
	}
}

func propView(p db.Prop) PropView {
	return PropView{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		ImageURL:     mediaURL(p.ImageKey),
		DisplayOrder: p.DisplayOrder,
		Visible:      p.Visible,
	}
}

func questionView(q db.Question) QuestionView {
	return QuestionView{
		ID:           q.ID,
		Level:        q.Level,
		Text:         q.Text,
		Options:      append([]string{}, q.Options...),
		CorrectIndex: q.CorrectIndex,
		Points:       q.Points,
		Category:     q.Category,
		Position:     q.Position,
	}
}

func adminUserView(u db.AdminUser) AdminUserView {
	return AdminUserView{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Active:      u.Active,
		Firebase:    u.FirebaseUID != "",
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
