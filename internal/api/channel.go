package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChannelHandler covers channel CRUD and membership routes.
type ChannelHandler struct {
	*Deps
}

func NewChannelHandler(deps *Deps) *ChannelHandler {
	return &ChannelHandler{Deps: deps}
}

// createChannelRequest is the expected JSON body for POST /v1/channels.
//
// A separate struct, not models.Channel: the client controls name and
// privacy, never id, tenant_id, created_by, or created_at.
type createChannelRequest struct {
	Name      string `json:"name" binding:"required"`
	IsPrivate bool   `json:"is_private"`
}

// Create handles POST /v1/channels
func (h *ChannelHandler) Create(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	ch, err := s.CreateChannel(c.Request.Context(), req.Name, req.IsPrivate)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ch)
}

// List handles GET /v1/channels and GET /v1/channels?mine=true
func (h *ChannelHandler) List(c *gin.Context) {
	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	var err error
	var channels any
	if c.Query("mine") == "true" {
		channels, err = s.ListMyChannels(c.Request.Context())
	} else {
		channels, err = s.ListChannels(c.Request.Context())
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, channels)
}

// GetByID handles GET /v1/channels/:id
func (h *ChannelHandler) GetByID(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	ch, err := s.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ch)
}

// ListMembers handles GET /v1/channels/:id/members
//
// Uses the strict membership path inside the facade: the roster is only
// for members, even on public channels.
func (h *ChannelHandler) ListMembers(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	members, err := s.ListChannelMembers(c.Request.Context(), channelID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, members)
}

// Join handles POST /v1/channels/:id/join — a user action on themselves.
func (h *ChannelHandler) Join(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	if err := s.JoinChannel(c.Request.Context(), channelID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Leave handles POST /v1/channels/:id/leave
func (h *ChannelHandler) Leave(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	s, ident, ok := h.scoped(c)
	if !ok {
		return
	}

	if err := s.RemoveChannelMember(c.Request.Context(), channelID, ident.UserID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type addMemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// AddMember handles POST /v1/channels/:id/members — an admin/owner action
// on someone else, distinct from self-join.
func (h *ChannelHandler) AddMember(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	if err := s.AddChannelMember(c.Request.Context(), channelID, req.UserID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveMember handles DELETE /v1/channels/:id/members/:userID
func (h *ChannelHandler) RemoveMember(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}
	targetID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	if err := s.RemoveChannelMember(c.Request.Context(), channelID, targetID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
