package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DmHandler covers direct-message threads.
type DmHandler struct {
	*Deps
}

func NewDmHandler(deps *Deps) *DmHandler {
	return &DmHandler{Deps: deps}
}

// List handles GET /v1/dms — the caller's own threads only; there is no
// "all threads" listing, DMs have no directory.
func (h *DmHandler) List(c *gin.Context) {
	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	threads, err := s.ListDmThreads(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, threads)
}

type openDmRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// Open handles POST /v1/dms — find-or-create the thread with another user.
func (h *DmHandler) Open(c *gin.Context) {
	var req openDmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	thread, err := s.OpenDmThread(c.Request.Context(), req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, thread)
}

// ListMessages handles GET /v1/dms/:id/messages?before=&limit=
func (h *DmHandler) ListMessages(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
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

	messages, err := s.ListDmMessages(c.Request.Context(), threadID, before, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// CreateMessage handles POST /v1/dms/:id/messages
func (h *DmHandler) CreateMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}

	s, ident, ok := h.scoped(c)
	if !ok {
		return
	}

	msg, err := s.PostDmMessage(c.Request.Context(), threadID, req.Body, req.ParentMessageID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Hub.Publish(c.Request.Context(), realtimeMessageEvent(ident.TenantID, msg))

	c.JSON(http.StatusCreated, msg)
}
