package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestInspectVerifiedToken(t *testing.T) {
	inspector := NewTokenInspector("top-secret")
	raw := signToken(t, "top-secret", jwt.MapClaims{"sub": "u1", "role": "customer"})

	identity, err := inspector.Inspect(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, "customer", identity.Role)
	assert.False(t, identity.IsStaff())
}

func TestInspectRejectsWrongSignature(t *testing.T) {
	inspector := NewTokenInspector("top-secret")
	raw := signToken(t, "other-secret", jwt.MapClaims{"sub": "u1"})

	_, err := inspector.Inspect(raw)
	assert.Error(t, err)
}

func TestInspectUnverifiedWithoutSecret(t *testing.T) {
	inspector := NewTokenInspector("")
	raw := signToken(t, "whatever", jwt.MapClaims{"user_id": "u2", "role": "staff"})

	identity, err := inspector.Inspect(raw)
	require.NoError(t, err)
	assert.Equal(t, "u2", identity.UserID)
	assert.True(t, identity.IsStaff())
}

func TestInspectRejectsTokenWithoutSubject(t *testing.T) {
	inspector := NewTokenInspector("")
	raw := signToken(t, "whatever", jwt.MapClaims{"role": "customer"})

	_, err := inspector.Inspect(raw)
	assert.Error(t, err)
}

func TestBearerTokenSources(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(header, query string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		target := "/ws"
		if query != "" {
			target += "?token=" + query
		}
		c.Request = httptest.NewRequest(http.MethodGet, target, nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		return c
	}

	assert.Equal(t, "abc", BearerToken(newCtx("Bearer abc", "")))
	assert.Equal(t, "abc", BearerToken(newCtx("bearer abc", "")))
	assert.Equal(t, "", BearerToken(newCtx("Basic abc", "")))
	assert.Equal(t, "qry", BearerToken(newCtx("", "qry")))
	// header wins over query
	assert.Equal(t, "abc", BearerToken(newCtx("Bearer abc", "qry")))
}

func TestAuthRequiredMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	inspector := NewTokenInspector("top-secret")

	router := gin.New()
	router.GET("/protected", AuthRequired(inspector), func(c *gin.Context) {
		identity := IdentityFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID, "role": identity.Role})
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		raw := signToken(t, "top-secret", jwt.MapClaims{"sub": "u1", "role": "staff"})
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":"u1","role":"staff"}`, rec.Body.String())
	})
}
