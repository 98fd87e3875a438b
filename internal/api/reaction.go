package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReactionHandler covers emoji reactions on messages.
type ReactionHandler struct {
	*Deps
}

func NewReactionHandler(deps *Deps) *ReactionHandler {
	return &ReactionHandler{Deps: deps}
}

type reactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// Add handles POST /v1/messages/:messageID/reactions
func (h *ReactionHandler) Add(c *gin.Context) {
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	if err := s.AddReaction(c.Request.Context(), messageID, req.Emoji); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Remove handles DELETE /v1/messages/:messageID/reactions — removes the
// caller's own reaction with the given emoji.
func (h *ReactionHandler) Remove(c *gin.Context) {
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	if err := s.RemoveReaction(c.Request.Context(), messageID, req.Emoji); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// List handles GET /v1/messages/:messageID/reactions
func (h *ReactionHandler) List(c *gin.Context) {
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}

	s, _, ok := h.scoped(c)
	if !ok {
		return
	}

	reactions, err := s.ListReactions(c.Request.Context(), messageID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reactions)
}
