package server

import (
	"net/http"
	"strings"

	"hill-valley/internal/db"
	"hill-valley/internal/media"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type propRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	DisplayOrder *int    `json:"display_order"`
	Visible      *bool   `json:"visible"`
}

// apply copies the set fields onto prop after validating them.
func (req propRequest) apply(prop *db.Prop) error {
	if req.Name != nil {
		name, err := validateTitle(*req.Name)
		if err != nil {
			return err
		}
		prop.Name = name
	}
	if req.Description != nil {
		description, err := validateDescription(*req.Description)
		if err != nil {
			return err
		}
		prop.Description = description
	}
	if req.Category != nil {
		category, err := validateCategory(*req.Category)
		if err != nil {
			return err
		}
		prop.Category = category
	}
	if req.DisplayOrder != nil {
		prop.DisplayOrder = *req.DisplayOrder
	}
	if req.Visible != nil {
		prop.Visible = *req.Visible
	}
	return nil
}

func (s *Server) handleAdminListProps(c *gin.Context) {
	var props []db.Prop
	if err := s.db.Order("display_order asc, name asc").Find(&props).Error; err != nil {
		writeServerError(c, "failed to load props", err)
		return
	}
	views := make([]PropView, 0, len(props))
	for _, prop := range props {
		views = append(views, propView(prop))
	}
	c.JSON(http.StatusOK, gin.H{"props": views})
}

func (s *Server) handleAdminCreateProp(c *gin.Context) {
	var req propRequest
	if !bindJSON(c, &req, nil, "invalid prop") {
		return
	}
	if req.Name == nil {
		writeError(c, http.StatusBadRequest, "name is required")
		return
	}
	prop := db.Prop{Visible: true}
	if err := req.apply(&prop); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.db.Create(&prop).Error; err != nil {
		if db.IsDuplicate(err) {
			writeError(c, http.StatusConflict, "a prop with that name already exists")
			return
		}
		writeServerError(c, "failed to save prop", err)
		return
	}
	s.recordEvent(c, "prop_created", "prop", prop.ID, EventPayload{Name: prop.Name})
	c.JSON(http.StatusCreated, propView(prop))
}

func (s *Server) loadProp(c *gin.Context) (db.Prop, bool) {
	var prop db.Prop
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "prop not found")
		return prop, false
	}
	if err := s.db.First(&prop, id).Error; err != nil {
		if db.IsNotFound(err) {
			writeError(c, http.StatusNotFound, "prop not found")
			return prop, false
		}
		writeServerError(c, "failed to load prop", err)
		return prop, false
	}
	return prop, true
}

func (s *Server) handleAdminUpdateProp(c *gin.Context) {
	prop, ok := s.loadProp(c)
	if !ok {
		return
	}
	var req propRequest
	if !bindJSON(c, &req, nil, "invalid prop") {
		return
	}
	if err := req.apply(&prop); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.db.Model(&prop).Updates(map[string]any{
		"name":          prop.Name,
		"description":   prop.Description,
		"category":      prop.Category,
		"display_order": prop.DisplayOrder,
		"visible":       prop.Visible,
	}).Error; err != nil {
		if db.IsDuplicate(err) {
			writeError(c, http.StatusConflict, "a prop with that name already exists")
			return
		}
		writeServerError(c, "failed to update prop", err)
		return
	}
	s.recordEvent(c, "prop_updated", "prop", prop.ID, EventPayload{Name: prop.Name})
	c.JSON(http.StatusOK, propView(prop))
}

func (s *Server) handleAdminDeleteProp(c *gin.Context) {
	prop, ok := s.loadProp(c)
	if !ok {
		return
	}
	if err := s.db.Delete(&prop).Error; err != nil {
		writeServerError(c, "failed to delete prop", err)
		return
	}
	s.removeObject(c, prop.ImageKey)
	s.recordEvent(c, "prop_deleted", "prop", prop.ID, EventPayload{Name: prop.Name})
	c.Status(http.StatusNoContent)
}

// handleAdminUploadPropImage replaces the prop's image and removes the old
// object once the row points at the new one.
func (s *Server) handleAdminUploadPropImage(c *gin.Context) {
	prop, ok := s.loadProp(c)
	if !ok {
		return
	}
	if !parseUploadForm(c, s.cfg.MaxPhotoBytes) {
		return
	}
	obj, err := s.saveUpload(c, uploadSpec{
		Field:     "image",
		Prefix:    "props",
		MaxBytes:  s.cfg.MaxPhotoBytes,
		Extension: media.ImageExtension,
	})
	if err != nil {
		s.writeUploadError(c, err)
		return
	}
	previous := prop.ImageKey
	if err := s.db.Model(&prop).Update("image_key", obj.Key).Error; err != nil {
		s.removeObject(c, obj.Key)
		writeServerError(c, "failed to update prop", err)
		return
	}
	prop.ImageKey = obj.Key
	s.removeObject(c, previous)
	s.recordEvent(c, "prop_image_uploaded", "prop", prop.ID, EventPayload{Name: prop.Name})
	c.JSON(http.StatusOK, propView(prop))
}

type costumeRequest struct {
	Name       *string `json:"name"`
	WearerName *string `json:"wearer_name"`
	Approved   *bool   `json:"approved"`
}

func (s *Server) handleAdminListCostumes(c *gin.Context) {
	var costumes []db.Costume
	query := s.db.Order("created_at desc, id desc")
	switch strings.TrimSpace(c.Query("status")) {
	case "pending":
		query = query.Where("approved = ?", false)
	case "approved":
		query = query.Where("approved = ?", true)
	}
	if err := query.Find(&costumes).Error; err != nil {
		writeServerError(c, "failed to load costumes", err)
		return
	}
	results, _, err := s.tally(true)
	if err != nil {
		writeServerError(c, "failed to count votes", err)
		return
	}
	counts := make(map[uint]int, len(results))
	for _, r := range results {
		counts[r.CostumeID] = r.Votes
	}
	views := make([]CostumeView, 0, len(costumes))
	for _, costume := range costumes {
		count := counts[costume.ID]
		views = append(views, costumeView(costume, &count))
	}
	c.JSON(http.StatusOK, gin.H{"costumes": views})
}

// handleAdminCreateCostume lets staff enter a costume directly; it is
// approved immediately and the photo is optional.
func (s *Server) handleAdminCreateCostume(c *gin.Context) {
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
	costume := db.Costume{Name: name, WearerName: wearer, Approved: true}
	if _, err := c.FormFile("photo"); err == nil {
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
		costume.PhotoKey = obj.Key
	}
	if err := s.db.Create(&costume).Error; err != nil {
		s.removeObject(c, costume.PhotoKey)
		writeServerError(c, "failed to save costume", err)
		return
	}
	s.recordEvent(c, "costume_created", "costume", costume.ID, EventPayload{CostumeID: costume.ID, Name: costume.Name})
	c.JSON(http.StatusCreated, costumeView(costume, nil))
}

func (s *Server) loadCostume(c *gin.Context) (db.Costume, bool) {
	var costume db.Costume
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "costume not found")
		return costume, false
	}
	if err := s.db.First(&costume, id).Error; err != nil {
		if db.IsNotFound(err) {
			writeError(c, http.StatusNotFound, "costume not found")
			return costume, false
		}
		writeServerError(c, "failed to load costume", err)
		return costume, false
	}
	return costume, true
}

func (s *Server) handleAdminUpdateCostume(c *gin.Context) {
	costume, ok := s.loadCostume(c)
	if !ok {
		return
	}
	var req costumeRequest
	if !bindJSON(c, &req, nil, "invalid costume") {
		return
	}
	if req.Name != nil {
		name, err := validateTitle(*req.Name)
		if err != nil {
			writeError(c, http.StatusBadRequest, "costume "+err.Error())
			return
		}
		costume.Name = name
	}
	if req.WearerName != nil {
		wearer, err := validateName(*req.WearerName)
		if err != nil {
			writeError(c, http.StatusBadRequest, "wearer "+err.Error())
			return
		}
		costume.WearerName = wearer
	}
	wasApproved := costume.Approved
	if req.Approved != nil {
		costume.Approved = *req.Approved
	}
	if err := s.db.Model(&costume).Updates(map[string]any{
		"name":        costume.Name,
		"wearer_name": costume.WearerName,
		"approved":    costume.Approved,
	}).Error; err != nil {
		writeServerError(c, "failed to update costume", err)
		return
	}
	eventType := "costume_updated"
	switch {
	case costume.Approved && !wasApproved:
		eventType = "costume_approved"
	case !costume.Approved && wasApproved:
		eventType = "costume_hidden"
	}
	s.recordEvent(c, eventType, "costume", costume.ID, EventPayload{CostumeID: costume.ID, Name: costume.Name})
	s.broadcastVoting()
	c.JSON(http.StatusOK, costumeView(costume, nil))
}

// handleAdminDeleteCostume removes the costume together with its votes and
// photo.
func (s *Server) handleAdminDeleteCostume(c *gin.Context) {
	costume, ok := s.loadCostume(c)
	if !ok {
		return
	}
	var removed int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("costume_id = ?", costume.ID).Delete(&db.Vote{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return tx.Delete(&costume).Error
	})
	if err != nil {
		writeServerError(c, "failed to delete costume", err)
		return
	}
	s.removeObject(c, costume.PhotoKey)
	s.recordEvent(c, "costume_deleted", "costume", costume.ID, EventPayload{CostumeID: costume.ID, Name: costume.Name, Count: int(removed)})
	s.broadcastVoting()
	c.Status(http.StatusNoContent)
}

type moderateRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

func (s *Server) handleAdminListGuestbook(c *gin.Context) {
	page, perPage := parsePagination(c, adminPerPage, adminMaxPerPage)
	query := s.db.Model(&db.GuestbookMessage{})
	switch strings.TrimSpace(c.Query("status")) {
	case "pending":
		query = query.Where("approved = ?", false)
	case "approved":
		query = query.Where("approved = ?", true)
	}
	query = query.Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServerError(c, "failed to count messages", err)
		return
	}
	var messages []db.GuestbookMessage
	if err := query.Order("created_at desc").Limit(perPage).Offset(pageOffset(page, perPage)).Find(&messages).Error; err != nil {
		writeServerError(c, "failed to load messages", err)
		return
	}
	views := make([]GuestbookView, 0, len(messages))
	for _, m := range messages {
		views = append(views, guestbookView(m))
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":   views,
		"pagination": buildPaginationData("/api/admin/guestbook", page, perPage, total),
	})
}

func (s *Server) loadGuestbookMessage(c *gin.Context) (db.GuestbookMessage, bool) {
	var message db.GuestbookMessage
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusNotFound, "message not found")
		return message, false
	}
	if err := s.db.First(&message, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			writeError(c, http.StatusNotFound, "message not found")
			return message, false
		}
		writeServerError(c, "failed to load message", err)
		return message, false
	}
	return message, true
}

func (s *Server) handleAdminModerateGuestbook(c *gin.Context) {
	message, ok := s.loadGuestbookMessage(c)
	if !ok {
		return
	}
	var req moderateRequest
	if !bindJSON(c, &req, bindMessages{"Approved": {"required": "approved is required"}}, "") {
		return
	}
	if err := s.db.Model(&message).Update("approved", *req.Approved).Error; err != nil {
		writeServerError(c, "failed to update message", err)
		return
	}
	message.Approved = *req.Approved
	eventType := "guestbook_hidden"
	if message.Approved {
		eventType = "guestbook_approved"
	}
	s.recordEvent(c, eventType, "guestbook", message.ID, EventPayload{Name: message.GuestName})
	c.JSON(http.StatusOK, guestbookView(message))
}

func (s *Server) handleAdminDeleteGuestbook(c *gin.Context) {
	message, ok := s.loadGuestbookMessage(c)
	if !ok {
		return
	}
	if err := s.db.Delete(&message).Error; err != nil {
		writeServerError(c, "failed to delete message", err)
		return
	}
	s.removeObject(c, message.VideoKey)
	s.recordEvent(c, "guestbook_deleted", "guestbook", message.ID, EventPayload{Name: message.GuestName})
	c.Status(http.StatusNoContent)
}
