package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teamstream-hq/teamstream/internal/models"
)

// MessageHandler covers channel messages, edits, deletes, and replies.
type MessageHandler struct {
	*Deps
}

func NewMessageHandler(deps *Deps) *MessageHandler {
	return &MessageHandler{Deps: deps}
}

type createMessageRequest struct {
	Body            string `json:"body" binding:"required"`
	ParentMessageID *int64 `json:"parent_message_id"`
}

// Create handles POST /v1/channels/:id/messages
func (h *MessageHandler) Create(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	s, ident, ok := h.scoped(c)
	if !ok {
		return
	}

	msg, err := s.PostChannelMessage(c.Request.Context(), channelID, req.Body, req.ParentMessageID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Broadcast happens after the guarded write succeeded, so subscribers
	// only ever hear about messages that really exist.
	h.Hub.Publish(c.Request.Context(), realtimeMessageEvent(ident.TenantID, msg))

	c.JSON(http.StatusCreated, msg)
}

// List handles GET /v1/channels/:id/messages?before=123&limit=50
//
// Cursor pagination: "before" is a message ID, 0 means latest page.
func (h *MessageHandler) List(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	before, limit, ok := pageParams(c)
	if !ok {
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	messages, err := s.ListChannelMessages(c.Request.Context(), channelID, before, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

type editMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// Edit handles PATCH /v1/messages/:messageID
func (h *MessageHandler) Edit(c *gin.Context) {
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	msg, err := s.EditMessage(c.Request.Context(), messageID, req.Body)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

// Delete handles DELETE /v1/messages/:messageID — soft delete, author only.
func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	if err := s.DeleteMessage(c.Request.Context(), messageID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Get handles GET /v1/messages/:messageID — returns the message together
// with its resolved container so clients don't make a second round trip.
func (h *MessageHandler) Get(c *gin.Context) {
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	msg, ref, err := s.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg, "container": ref})
}

// ListReplies handles GET /v1/messages/:messageID/replies
func (h *MessageHandler) ListReplies(c *gin.Context) {
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	replies, err := s.ListReplies(c.Request.Context(), messageID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, replies)
}

// ThreadSummaries handles GET /v1/threads?target_type=channel&target_id=...
//
// The container discriminant comes from the caller, not from a message —
// the facade dispatches the matching membership guard on it.
func (h *MessageHandler) ThreadSummaries(c *gin.Context) {
	ref, ok := containerParams(c)
	if !ok {
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	summaries, err := s.ThreadSummaries(c.Request.Context(), ref)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// ---------------------------------------------------------------
// Shared param helpers
// ---------------------------------------------------------------

func messageIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("messageID"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (before int64, limit int, ok bool) {
	var err error
	if b := c.Query("before"); b != "" {
		before, err = strconv.ParseInt(b, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'before' parameter"})
			return 0, 0, false
		}
	}

	limit = 50
	if l := c.Query("limit"); l != "" {
		limit, err = strconv.Atoi(l)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter"})
			return 0, 0, false
		}
		if limit > 100 {
			limit = 100
		}
	}
	return before, limit, true
}

func containerParams(c *gin.Context) (models.ContainerRef, bool) {
	kind := models.ContainerKind(c.Query("target_type"))
	if kind != models.ContainerChannel && kind != models.ContainerDm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_type must be 'channel' or 'dm'"})
		return models.ContainerRef{}, false
	}
	id, err := uuid.Parse(c.Query("target_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target_id"})
		return models.ContainerRef{}, false
	}
	return models.ContainerRef{Kind: kind, ID: id}, true
}
