package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UnreadHandler covers read cursors and first-unread lookups.
type UnreadHandler struct {
	*Deps
}

func NewUnreadHandler(deps *Deps) *UnreadHandler {
	return &UnreadHandler{Deps: deps}
}

// FirstUnread handles GET /v1/unread?target_type=channel&target_id=...
//
// Responds with the first unread message ID, or 0 when caught up.
func (h *UnreadHandler) FirstUnread(c *gin.Context) {
	ref, ok := containerParams(c)
	if !ok {
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	first, err := s.FirstUnread(c.Request.Context(), ref)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"first_unread_id": first})
}

type markReadRequest struct {
	MessageID int64 `json:"message_id" binding:"required"`
}

// MarkRead handles POST /v1/read?target_type=channel&target_id=...
func (h *UnreadHandler) MarkRead(c *gin.Context) {
	ref, ok := containerParams(c)
	if !ok {
		return
	}

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	if err := s.MarkRead(c.Request.Context(), ref, req.MessageID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
