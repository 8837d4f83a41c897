package server

import (
	"net/http"
	"time"

	"hill-valley/internal/db"
	"hill-valley/internal/media"
	"hill-valley/internal/voting"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type castVoteRequest struct {
	CostumeID     uint `json:"costume_id" binding:"required"`
	ConfirmChange bool `json:"confirm_change"`
}

type VotingStatus struct {
	State         voting.State `json:"state"`
	StartsAt      *time.Time   `json:"starts_at"`
	EndsAt        *time.Time   `json:"ends_at"`
	ResultsPublic bool         `json:"results_public"`
	ResultsReady  bool         `json:"results_ready"`
	ServerTime    time.Time    `json:"server_time"`
}

// VotingUpdate is pushed on /ws/voting and mirrored to live/voting. Per
// costume counts ride along only once results are public.
type VotingUpdate struct {
	Type       string       `json:"type"`
	State      voting.State `json:"state"`
	TotalVotes int          `json:"total_votes"`
	Results    []ResultView `json:"results,omitempty"`
}

type ResultView struct {
	CostumeID  uint   `json:"costume_id"`
	Name       string `json:"name"`
	WearerName string `json:"wearer_name"`
	PhotoURL   string `json:"photo_url,omitempty"`
	Votes      int    `json:"votes"`
	Rank       int    `json:"rank"`
	Winner     bool   `json:"winner"`
}

func (s *Server) loadWindow() (voting.Window, error) {
	var record db.VotingWindow
	err := s.db.First(&record, db.VotingWindowID).Error
	if db.IsNotFound(err) {
		return voting.Window{}, nil
	}
	if err != nil {
		return voting.Window{}, err
	}
	return voting.Window{StartsAt: record.StartsAt, EndsAt: record.EndsAt}, nil
}

func (s *Server) votingStatus() (VotingStatus, error) {
	window, err := s.loadWindow()
	if err != nil {
		return VotingStatus{}, err
	}
	now := s.now()
	state := window.State(now)
	return VotingStatus{
		State:         state,
		StartsAt:      window.StartsAt,
		EndsAt:        window.EndsAt,
		ResultsPublic: s.cfg.ResultsPublic,
		ResultsReady:  state == voting.StateClosed && s.cfg.ResultsPublic,
		ServerTime:    now,
	}, nil
}

func (s *Server) votingUpdate() (VotingUpdate, error) {
	status, err := s.votingStatus()
	if err != nil {
		return VotingUpdate{}, err
	}
	update := VotingUpdate{Type: "voting", State: status.State}
	if status.ResultsReady {
		results, total, err := s.tally(false)
		if err != nil {
			return VotingUpdate{}, err
		}
		update.Results = results
		update.TotalVotes = total
		return update, nil
	}
	var total int64
	if err := s.db.Model(&db.Vote{}).Count(&total).Error; err != nil {
		return VotingUpdate{}, err
	}
	update.TotalVotes = int(total)
	return update, nil
}

func (s *Server) broadcastVoting() {
	update, err := s.votingUpdate()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load voting update")
		return
	}
	s.publish(topicVoting, update)
}

// tally counts votes for costumes. Only approved costumes take part unless
// all is set.
func (s *Server) tally(all bool) ([]ResultView, int, error) {
	var costumes []db.Costume
	query := s.db.Order("name asc, id asc")
	if !all {
		query = query.Where("approved = ?", true)
	}
	if err := query.Find(&costumes).Error; err != nil {
		return nil, 0, err
	}
	var votes []uint
	if err := s.db.Model(&db.Vote{}).Pluck("costume_id", &votes).Error; err != nil {
		return nil, 0, err
	}
	entries := make([]voting.Entry, 0, len(costumes))
	for _, costume := range costumes {
		entries = append(entries, voting.Entry{
			CostumeID:  costume.ID,
			Name:       costume.Name,
			WearerName: costume.WearerName,
			PhotoKey:   costume.PhotoKey,
		})
	}
	results := voting.Tally(entries, votes)
	views := make([]ResultView, 0, len(results))
	for _, r := range results {
		views = append(views, ResultView{
			CostumeID:  r.CostumeID,
			Name:       r.Name,
			WearerName: r.WearerName,
			PhotoURL:   mediaURL(r.PhotoKey),
			Votes:      r.Votes,
			Rank:       r.Rank,
			Winner:     r.Winner,
		})
	}
	return views, voting.TotalVotes(results), nil
}

func (s *Server) handleVotingStatus(c *gin.Context) {
	status, err := s.votingStatus()
	if err != nil {
		writeServerError(c, "failed to load voting window", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleListCostumes(c *gin.Context) {
	status, err := s.votingStatus()
	if err != nil {
		writeServerError(c, "failed to load voting window", err)
		return
	}
	var costumes []db.Costume
	if err := s.db.Where("approved = ?", true).Order("name asc, id asc").Find(&costumes).Error; err != nil {
		writeServerError(c, "failed to load costumes", err)
		return
	}
	counts := map[uint]int{}
	if status.ResultsReady {
		results, _, err := s.tally(false)
		if err != nil {
			writeServerError(c, "failed to count votes", err)
			return
		}
		for _, r := range results {
			counts[r.CostumeID] = r.Votes
		}
	}
	views := make([]CostumeView, 0, len(costumes))
	for _, costume := range costumes {
		var votes *int
		if status.ResultsReady {
			count := counts[costume.ID]
			votes = &count
		}
		views = append(views, costumeView(costume, votes))
	}
	c.JSON(http.StatusOK, gin.H{"costumes": views, "voting": status})
}

func (s *Server) handleSubmitCostume(c *gin.Context) {
	if !parseUploadForm(c, s.cfg.MaxPhotoBytes) {
		return
	}
	name, err := validateTitle(c.PostForm("name"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "costume "+err.Error())
		return
	}
	wearer, err := validateName(c.PostForm("wearer_name"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "wearer "+err.Error())
		return
	}
	obj, err := s.saveUpload(c, uploadSpec{
		Field:     "photo",
		Prefix:    "costumes",
		MaxBytes:  s.cfg.MaxPhotoBytes,
		Extension: media.ImageExtension,
	})
	if err != nil {
		s.writeUploadError(c, err)
		return
	}
	costume := db.Costume{
		Name:       name,
		WearerName: wearer,
		PhotoKey:   obj.Key,
		Approved:   !s.cfg.CostumeModeration,
	}
	if err := s.db.Create(&costume).Error; err != nil {
		s.removeObject(c, obj.Key)
		writeServerError(c, "failed to save costume", err)
		return
	}
	log.Info().Uint("costume_id", costume.ID).Str("name", costume.Name).Bool("approved", costume.Approved).Msg("costume submitted")
	s.recordEvent(c, "costume_submitted", "costume", costume.ID, EventPayload{CostumeID: costume.ID, Name: costume.Name})
	c.JSON(http.StatusCreated, costumeView(costume, nil))
}

func (s *Server) handleGetVote(c *gin.Context) {
	voter := s.voterID(c)
	var vote db.Vote
	err := s.db.Where("voter_id = ?", voter).First(&vote).Error
	if db.IsNotFound(err) {
		c.JSON(http.StatusOK, gin.H{"costume_id": nil})
		return
	}
	if err != nil {
		writeServerError(c, "failed to load vote", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"costume_id": vote.CostumeID, "updated_at": vote.UpdatedAt})
}

// requireOpenWindow rejects vote writes outside the voting window.
func (s *Server) requireOpenWindow(c *gin.Context) bool {
	window, err := s.loadWindow()
	if err != nil {
		writeServerError(c, "failed to load voting window", err)
		return false
	}
	if now := s.now(); !window.IsOpen(now) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "voting is not open", "state": window.State(now)})
		return false
	}
	return true
}

func (s *Server) handleCastVote(c *gin.Context) {
	var req castVoteRequest
	if !bindJSON(c, &req, bindMessages{
		"CostumeID": {"required": "costume_id is required"},
	}, "") {
		return
	}
	if !s.requireOpenWindow(c) {
		return
	}
	voter := s.voterID(c)

	var costume db.Costume
	if err := s.db.Where("id = ? AND approved = ?", req.CostumeID, true).First(&costume).Error; err != nil {
		if db.IsNotFound(err) {
			writeError(c, http.StatusNotFound, "costume not found")
			return
		}
		writeServerError(c, "failed to load costume", err)
		return
	}

	var previous uint
	created, changed, conflict := false, false, false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var vote db.Vote
		err := tx.Where("voter_id = ?", voter).First(&vote).Error
		if db.IsNotFound(err) {
			created = true
			return tx.Create(&db.Vote{VoterID: voter, CostumeID: costume.ID}).Error
		}
		if err != nil {
			return err
		}
		if vote.CostumeID == costume.ID {
			return nil
		}
		previous = vote.CostumeID
		if !req.ConfirmChange {
			conflict = true
			return nil
		}
		changed = true
		return tx.Model(&vote).Update("costume_id", costume.ID).Error
	})
	if err != nil {
		if db.IsDuplicate(err) {
			writeError(c, http.StatusConflict, "vote already recorded")
			return
		}
		writeServerError(c, "failed to record vote", err)
		return
	}
	if conflict {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":              "confirmation required",
			"current_costume_id": previous,
		})
		return
	}

	eventType := "vote_cast"
	if changed {
		eventType = "vote_changed"
	}
	if created || changed {
		s.recordEvent(c, eventType, "costume", costume.ID, EventPayload{CostumeID: costume.ID, PreviousID: previous})
		s.broadcastVoting()
	}
	c.JSON(http.StatusOK, gin.H{
		"costume_id":          costume.ID,
		"changed":             changed,
		"previous_costume_id": previous,
	})
}

func (s *Server) handleRetractVote(c *gin.Context) {
	if !s.requireOpenWindow(c) {
		return
	}
	voter := s.voterID(c)
	var vote db.Vote
	if err := s.db.Where("voter_id = ?", voter).First(&vote).Error; err != nil {
		if db.IsNotFound(err) {
			writeError(c, http.StatusNotFound, "no vote to retract")
			return
		}
		writeServerError(c, "failed to load vote", err)
		return
	}
	if err := s.db.Delete(&vote).Error; err != nil {
		writeServerError(c, "failed to retract vote", err)
		return
	}
	s.recordEvent(c, "vote_retracted", "costume", vote.CostumeID, EventPayload{CostumeID: vote.CostumeID})
	s.broadcastVoting()
	c.JSON(http.StatusOK, gin.H{"retracted": true})
}

func (s *Server) handlePublicResults(c *gin.Context) {
	status, err := s.votingStatus()
	if err != nil {
		writeServerError(c, "failed to load voting window", err)
		return
	}
	if !status.ResultsReady {
		writeError(c, http.StatusForbidden, "results are not available")
		return
	}
	results, total, err := s.tally(false)
	if err != nil {
		writeServerError(c, "failed to count votes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "total_votes": total, "voting": status})
}
