package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue("sess-1", "wedding-site", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(tok.AccessToken, "secret", "wedding-site")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)

	_, err = Parse(tok.AccessToken, "other", "wedding-site")
	assert.Error(t, err)
	_, err = Parse(tok.AccessToken, "secret", "elsewhere")
	assert.Error(t, err)

	expired, err := Issue("sess-1", "wedding-site", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired.AccessToken, "secret", "wedding-site")
	assert.Error(t, err)
}

func TestGuestAuth(t *testing.T) {
	sessions := NewMemorySessions()
	a := NewAuthorizer(nil, sessions, nil, nil, zerolog.Nop())
	require.NoError(t, sessions.Save(context.Background(), "sess-1", validCredential()))

	r := gin.New()
	r.GET("/me", GuestAuth(a, "secret", "iss"), func(c *gin.Context) {
		cred, ok := CredentialFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"email": cred.Email, "sid": SessionIDFrom(c)})
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	tok, err := Issue("sess-1", "iss", "secret", time.Hour)
	require.NoError(t, err)
	w := do("Bearer " + tok.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"ann@x.com","sid":"sess-1"}`, w.Body.String())

	require.NoError(t, a.Logout(context.Background(), "sess-1"))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+tok.AccessToken).Code)
}

func TestAdminAuth(t *testing.T) {
	handler := func(token string) *gin.Engine {
		r := gin.New()
		r.GET("/admin", AdminAuth(token), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return r
	}
	do := func(r *gin.Engine, header string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusServiceUnavailable, do(handler(""), "Bearer x"))
	r := handler("op-token")
	assert.Equal(t, http.StatusUnauthorized, do(r, ""))
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer wrong"))
	assert.Equal(t, http.StatusNoContent, do(r, "Bearer op-token"))
}
