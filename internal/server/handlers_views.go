package server

import (
	"net/http"

	"hill-valley/internal/access"
	"hill-valley/internal/db"
	"hill-valley/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func render(c *gin.Context, component templ.Component) {
	templ.Handler(component).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleHomeView(c *gin.Context) {
	data := web.HomeData{
		AccessRequired: s.cfg.RequireAccessCode,
		Code:           access.Normalize(c.Query("code")),
		VotingState:    "unscheduled",
	}
	if status, err := s.votingStatus(); err == nil {
		data.VotingState = string(status.State)
	} else {
		log.Warn().Err(err).Msg("home view: voting status unavailable")
	}
	var props []db.Prop
	if err := s.db.Where("visible = ?", true).Order("display_order asc, name asc").Find(&props).Error; err != nil {
		log.Warn().Err(err).Msg("home view: props unavailable")
	}
	for _, prop := range props {
		data.Props = append(data.Props, web.PropItem{
			Name:        prop.Name,
			Description: prop.Description,
			Category:    prop.Category,
			ImageURL:    mediaURL(prop.ImageKey),
		})
	}
	render(c, web.Home(data))
}

func (s *Server) handleTriviaView(c *gin.Context) {
	render(c, web.Trivia(web.TriviaData{
		JoinCode:       c.Query("game"),
		AccessRequired: s.cfg.RequireAccessCode,
	}))
}

func (s *Server) handleVotingView(c *gin.Context) {
	state := "unscheduled"
	if status, err := s.votingStatus(); err == nil {
		state = string(status.State)
	}
	render(c, web.Voting(web.VotingData{
		State:          state,
		AccessRequired: s.cfg.RequireAccessCode,
		MaxPhotoMB:     s.cfg.MaxPhotoBytes >> 20,
	}))
}

func (s *Server) handleGuestbookView(c *gin.Context) {
	render(c, web.Guestbook(web.GuestbookData{
		AccessRequired: s.cfg.RequireAccessCode,
		MaxVideoMB:     s.cfg.MaxVideoBytes >> 20,
	}))
}

// handleAdminView serves the dashboard to signed-in admins and sends
// everyone else to the login page.
func (s *Server) handleAdminView(c *gin.Context) {
	user, err := s.sessions.Lookup(c)
	if err != nil || user == nil || !user.Active {
		c.Redirect(http.StatusFound, "/admin/login")
		return
	}
	render(c, web.AdminDashboard(web.AdminData{
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		Via:         "session",
		LastLoginAt: user.LastLoginAt,
		Firebase:    user.FirebaseUID != "",
	}))
}

func (s *Server) handleAdminLoginView(c *gin.Context) {
	if user, err := s.sessions.Lookup(c); err == nil && user != nil && user.Active {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	render(c, web.AdminLogin(web.AdminLoginData{Code: access.Normalize(c.Query("code"))}))
}
