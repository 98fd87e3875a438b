package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/teamstream-hq/teamstream/internal/apperr"
	"github.com/teamstream-hq/teamstream/internal/chat"
	"github.com/teamstream-hq/teamstream/internal/guard"
	"github.com/teamstream-hq/teamstream/internal/middleware"
	"github.com/teamstream-hq/teamstream/internal/realtime"
)

// Deps bundles what every chat handler needs. Handlers never touch the
// repositories directly — each request goes through a freshly constructed
// chat.Scoped so no route can skip authorization.
type Deps struct {
	Guard  *guard.Guard
	Repos  chat.Repos
	Hub    *realtime.Hub
	Logger *zap.Logger
}

// scoped extracts the request identity and builds the per-request facade.
// On failure it has already written the response; callers just return.
func (d *Deps) scoped(c *gin.Context) (*chat.Scoped, middleware.Identity, bool) {
	ident, err := middleware.RequireIdentity(c)
	if err != nil {
		d.respondError(c, err)
		return nil, middleware.Identity{}, false
	}
	return chat.NewScoped(ident.TenantID, ident.UserID, d.Guard, d.Repos), ident, true
}

// respondError is the mechanical failure-kind → status mapping.
//
// It must stay mechanical: upgrading a NotFound to a Forbidden (or the
// reverse) here would undo the guards' leak-avoidance design, because the
// choice of kind IS the contract. Anything unclassified is an internal
// error — logged in full, reported generically.
func (d *Deps) respondError(c *gin.Context, err error) {
	switch apperr.Classify(err) {
	case apperr.KindTenantRequired:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperr.KindBadRequest:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		d.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
