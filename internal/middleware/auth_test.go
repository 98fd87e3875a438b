package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamstream-hq/teamstream/internal/apperr"
	"github.com/teamstream-hq/teamstream/internal/auth"
	"github.com/teamstream-hq/teamstream/internal/middleware"
)

func testContext(t *testing.T) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/channels", nil)
	return c
}

// RequireIdentity must fail closed: any request on which a tenant cannot
// be resolved gets TenantRequired before a guard ever runs. "No claims at
// all", "half the claims", and "garbage in the claim slot" are all the
// same answer.
func TestRequireIdentityFailsClosed(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	tests := []struct {
		name string
		seed func(c *gin.Context)
	}{
		{"no claims at all", func(c *gin.Context) {}},
		{"user but no tenant", func(c *gin.Context) {
			c.Set(middleware.ContextKeyUserID, userID)
		}},
		{"tenant but no user", func(c *gin.Context) {
			c.Set(middleware.ContextKeyTenantID, tenantID)
		}},
		{"tenant claim holds the wrong type", func(c *gin.Context) {
			c.Set(middleware.ContextKeyUserID, userID)
			c.Set(middleware.ContextKeyTenantID, tenantID.String())
		}},
		{"tenant claim is the nil uuid", func(c *gin.Context) {
			c.Set(middleware.ContextKeyUserID, userID)
			c.Set(middleware.ContextKeyTenantID, uuid.Nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testContext(t)
			tt.seed(c)

			_, err := middleware.RequireIdentity(c)
			require.Error(t, err)
			assert.Equal(t, apperr.KindTenantRequired, apperr.Classify(err))
		})
	}
}

func TestRequireIdentityHappyPath(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	c := testContext(t)
	c.Set(middleware.ContextKeyUserID, userID)
	c.Set(middleware.ContextKeyTenantID, tenantID)

	ident, err := middleware.RequireIdentity(c)
	require.NoError(t, err)
	assert.Equal(t, userID, ident.UserID)
	assert.Equal(t, tenantID, ident.TenantID)
}

// End to end through AuthMiddleware: a valid token populates the context
// so RequireIdentity succeeds in the handler; a missing or garbage token
// never reaches it.
func TestAuthMiddlewareRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "test-secret"
	userID := uuid.New()
	tenantID := uuid.New()

	router := gin.New()
	router.Use(middleware.AuthMiddleware(secret))
	router.GET("/v1/users/me", func(c *gin.Context) {
		ident, err := middleware.RequireIdentity(c)
		require.NoError(t, err)
		assert.Equal(t, userID, ident.UserID)
		assert.Equal(t, tenantID, ident.TenantID)
		c.Status(http.StatusOK)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := auth.GenerateToken(userID, tenantID, "alice@acme.test", secret, time.Hour)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		token, err := auth.GenerateToken(userID, tenantID, "alice@acme.test", "other-secret", time.Hour)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
