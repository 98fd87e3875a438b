package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/teamstream-hq/teamstream/internal/apperr"
	"github.com/teamstream-hq/teamstream/internal/guard"
	"github.com/teamstream-hq/teamstream/internal/middleware"
	"github.com/teamstream-hq/teamstream/internal/models"
	"github.com/teamstream-hq/teamstream/internal/repository"
)

// UserHandler handles user-related operations.
type UserHandler struct {
	repo   repository.UserRepository
	guard  *guard.Guard
	logger *zap.Logger
}

func NewUserHandler(repo repository.UserRepository, g *guard.Guard, logger *zap.Logger) *UserHandler {
	return &UserHandler{repo: repo, guard: g, logger: logger}
}

// GetMe handles GET /v1/users/me
//
// Returns the currently authenticated user's profile. The lookup is
// tenant-scoped even though the id comes from the caller's own token, so a
// token minted in one tenant can never read a row from another.
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := middleware.GetUserID(c)
	tenantID := middleware.GetTenantID(c)

	user, err := h.repo.GetByID(c.Request.Context(), tenantID, userID)
	if err != nil {
		h.logger.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}

	// A user present in the JWT but missing from the DB means the account
	// was deleted after the token was issued. 404, not 500.
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

type inviteRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
}

// Invite handles POST /v1/users
//
// A tenant admin creates another account in their own workspace. Invited
// users always start as plain members; there is no way to mint an admin
// through this endpoint.
func (h *UserHandler) Invite(c *gin.Context) {
	ident, err := middleware.RequireIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.guard.IsAdmin(c.Request.Context(), ident.TenantID, ident.UserID)
	if err != nil {
		h.logger.Error("failed to check admin role", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invite failed"})
		return
	}
	if !admin {
		c.JSON(http.StatusForbidden, gin.H{"error": apperr.Forbidden("Only workspace admins can invite users").Error()})
		return
	}

	existing, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to check existing user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invite failed"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invite failed"})
		return
	}

	user, err := h.repo.Create(
		c.Request.Context(),
		ident.TenantID,
		req.Email,
		req.DisplayName,
		models.RoleMember,
		string(hash),
	)
	if err != nil {
		h.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invite failed"})
		return
	}

	c.JSON(http.StatusCreated, user)
}
