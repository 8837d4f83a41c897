package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"hill-valley/internal/config"
	"hill-valley/internal/db"
	"hill-valley/internal/fbconn"
	"hill-valley/internal/logging"
	"hill-valley/internal/media"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"gorm.io/gorm"
)

// TokenVerifier checks Firebase ID tokens presented by dashboard admins.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (fbconn.Identity, error)
}

// Publisher mirrors live updates to an external feed.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type Server struct {
	db       *gorm.DB
	cfg      config.Config
	store    *Store
	media    media.Store
	ws       *wsHub
	sessions *sessionStore
	verifier TokenVerifier
	mirror   Publisher
	now      func() time.Time
	bg       sync.WaitGroup
}

type Option func(*Server)

func WithMedia(store media.Store) Option {
	return func(s *Server) { s.media = store }
}

func WithTokenVerifier(v TokenVerifier) Option {
	return func(s *Server) { s.verifier = v }
}

func WithPublisher(p Publisher) Option {
	return func(s *Server) { s.mirror = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(conn *gorm.DB, cfg config.Config, opts ...Option) *Server {
	s := &Server{
		db:  conn,
		cfg: cfg,
		ws:  newWSHub(),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = NewStore(conn, s.now)
	s.sessions = newSessionStore(conn, cfg.AdminSessionTTL, s.now)
	return s
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware())
	r.MaxMultipartMemory = multipartMemory

	r.GET("/healthz", s.handleHealth)
	r.GET("/", s.handleHomeView)
	r.GET("/trivia", s.handleTriviaView)
	r.GET("/voting", s.handleVotingView)
	r.GET("/guestbook", s.handleGuestbookView)
	r.GET("/admin", s.handleAdminView)
	r.GET("/admin/login", s.handleAdminLoginView)
	r.GET("/media/*key", s.handleMedia)
	r.Static("/static", "static")

	r.GET("/ws/trivia/:id", s.handleTriviaWebsocket)
	r.GET("/ws/voting", s.handleVotingWebsocket)

	api := r.Group("/api")
	api.POST("/access/verify", s.handleAccessVerify)
	api.GET("/props", s.handleListProps)

	trivia := api.Group("/trivia")
	trivia.GET("/levels", s.handleTriviaLevels)
	trivia.POST("/match", s.requireGuestAccess(), s.handleMatchGame)
	trivia.GET("/games/:id", s.handleGetGame)
	trivia.GET("/games/:id/leaderboard", s.handleLeaderboard)
	trivia.GET("/games/:id/qr.png", s.handleGameQR)
	trivia.POST("/games/:id/join", s.requireGuestAccess(), s.handleJoinGame)
	session := trivia.Group("/games/:id/participants/:pid", s.requireParticipant())
	session.GET("/session", s.handleGetSession)
	session.POST("/session", s.handleGetSession)
	session.POST("/levels", s.handleSelectLevels)
	session.POST("/answers", s.handleAnswer)
	session.POST("/next", s.handleNextQuestion)
	session.POST("/reset", s.handleResetSession)

	api.GET("/costumes", s.handleListCostumes)
	api.POST("/costumes", s.requireGuestAccess(), s.handleSubmitCostume)
	api.GET("/voting/status", s.handleVotingStatus)
	api.GET("/voting/vote", s.handleGetVote)
	api.POST("/voting/vote", s.requireGuestAccess(), s.handleCastVote)
	api.DELETE("/voting/vote", s.requireGuestAccess(), s.handleRetractVote)
	api.GET("/voting/results", s.handlePublicResults)

	api.GET("/guestbook", s.handleListGuestbook)
	api.POST("/guestbook", s.requireGuestAccess(), s.handleSubmitGuestbook)

	admin := api.Group("/admin")
	admin.POST("/login", s.handleAdminLogin)
	admin.POST("/logout", s.handleAdminLogout)
	admin.POST("/signup", s.handleAdminSignup)

	authed := admin.Group("", s.requireAdmin())
	authed.GET("/me", s.handleAdminMe)
	authed.GET("/stats", s.handleAdminStats)
	authed.GET("/events", s.handleAdminEvents)

	authed.GET("/games", s.handleAdminListGames)
	authed.POST("/games", s.handleAdminCreateGame)
	authed.GET("/games/:id", s.handleAdminGetGame)
	authed.PUT("/games/:id", s.handleAdminUpdateGame)
	authed.DELETE("/games/:id", s.handleAdminDeleteGame)
	authed.POST("/games/:id/start", s.handleAdminStartGame)
	authed.POST("/games/:id/end", s.handleAdminEndGame)

	authed.GET("/questions", s.handleAdminListQuestions)
	authed.POST("/questions", s.handleAdminCreateQuestion)
	authed.POST("/questions/import", s.handleAdminImportQuestions)
	authed.PUT("/questions/:id", s.handleAdminUpdateQuestion)
	authed.DELETE("/questions/:id", s.handleAdminDeleteQuestion)

	authed.GET("/props", s.handleAdminListProps)
	authed.POST("/props", s.handleAdminCreateProp)
	authed.PUT("/props/:id", s.handleAdminUpdateProp)
	authed.DELETE("/props/:id", s.handleAdminDeleteProp)
	authed.POST("/props/:id/image", s.handleAdminUploadPropImage)

	authed.GET("/costumes", s.handleAdminListCostumes)
	authed.POST("/costumes", s.handleAdminCreateCostume)
	authed.PUT("/costumes/:id", s.handleAdminUpdateCostume)
	authed.DELETE("/costumes/:id", s.handleAdminDeleteCostume)

	authed.GET("/voting/window", s.handleAdminGetWindow)
	authed.PUT("/voting/window", s.handleAdminSetWindow)
	authed.DELETE("/voting/window", s.handleAdminClearWindow)
	authed.GET("/voting/results", s.handleAdminResults)
	authed.DELETE("/voting/votes", s.handleAdminResetVotes)

	authed.GET("/guestbook", s.handleAdminListGuestbook)
	authed.PUT("/guestbook/:id", s.handleAdminModerateGuestbook)
	authed.DELETE("/guestbook/:id", s.handleAdminDeleteGuestbook)

	owners := authed.Group("", s.requireRole(db.RoleAdmin))
	owners.GET("/users", s.handleAdminListUsers)
	owners.POST("/users", s.handleAdminCreateUser)
	owners.PUT("/users/:id", s.handleAdminUpdateUser)
	owners.DELETE("/users/:id", s.handleAdminDeleteUser)

	owners.GET("/access-codes", s.handleAdminListAccessCodes)
	owners.POST("/access-codes", s.handleAdminCreateAccessCode)
	owners.PUT("/access-codes/:id", s.handleAdminUpdateAccessCode)
	owners.DELETE("/access-codes/:id", s.handleAdminDeleteAccessCode)
	owners.GET("/access-codes/:id/qr.png", s.handleAccessCodeQR)

	if len(s.cfg.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", headerParticipantToken, headerAccessCode},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(r)
}

// Wait blocks until background mirror publishes have finished.
func (s *Server) Wait() {
	s.bg.Wait()
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
