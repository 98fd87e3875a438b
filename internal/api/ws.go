package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teamstream-hq/teamstream/internal/middleware"
	"github.com/teamstream-hq/teamstream/internal/models"
	"github.com/teamstream-hq/teamstream/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth is token-based, not cookie-based, so cross-origin upgrades carry
	// no ambient credentials worth rejecting here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WsHandler upgrades connections and binds them to one container's events.
type WsHandler struct {
	*Deps
}

func NewWsHandler(deps *Deps) *WsHandler {
	return &WsHandler{Deps: deps}
}

// Serve handles GET /v1/ws?target_type=channel&target_id=...
//
// The membership guard runs BEFORE the upgrade: a caller who may not see
// the container gets the same NotFound they would get from any read, and
// no socket is ever opened for them.
func (h *WsHandler) Serve(c *gin.Context) {
	ref, ok := containerParams(c)
	if !ok {
		return
	}

	ident, err := middleware.RequireIdentity(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.Guard.RequireContainerMember(c.Request.Context(), ident.TenantID, ident.UserID, ref); err != nil {
		h.respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the response.
		return
	}

	client := realtime.NewClient(h.Hub, conn, ident.TenantID, ident.UserID)
	client.Subscribe(ref)
	client.Serve()
}

// realtimeMessageEvent shapes the broadcast for a freshly created message.
func realtimeMessageEvent(tenantID uuid.UUID, msg *models.Message) realtime.Event {
	ref, _ := msg.Container()
	return realtime.Event{
		Type:      "message.created",
		TenantID:  tenantID,
		Container: ref,
		Message:   msg,
	}
}
