package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PinHandler covers pinned messages. Pinning is gated by channel owner or
// tenant admin authority — a stricter policy than the membership checks
// the rest of the facade uses.
type PinHandler struct {
	*Deps
}

func NewPinHandler(deps *Deps) *PinHandler {
	return &PinHandler{Deps: deps}
}

// List handles GET /v1/channels/:id/pins
func (h *PinHandler) List(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	pins, err := s.ListPins(c.Request.Context(), channelID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pins)
}

type pinRequest struct {
	MessageID int64 `json:"message_id" binding:"required"`
}

// Create handles POST /v1/channels/:id/pins
func (h *PinHandler) Create(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	pin, err := s.PinMessage(c.Request.Context(), channelID, req.MessageID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, pin)
}

// Delete handles DELETE /v1/channels/:id/pins/:messageID
func (h *PinHandler) Delete(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	if err := s.UnpinMessage(c.Request.Context(), channelID, messageID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
