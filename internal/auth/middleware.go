package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxCredential = "credential"
	ctxSessionID  = "session_id"
)

func bearer(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(authz[len("bearer "):]), true
}

// authenticate resolves the request's bearer token to a stored credential.
// It returns the HTTP status to fail with when no credential is available.
func authenticate(c *gin.Context, a *Authorizer, signingKey, issuer string) (string, *Credential, int, string) {
	tokenStr, ok := bearer(c)
	if !ok {
		return "", nil, http.StatusUnauthorized, "missing bearer token"
	}
	claims, err := Parse(tokenStr, signingKey, issuer)
	if err != nil {
		return "", nil, http.StatusUnauthorized, "invalid token"
	}
	cred, err := a.Restore(c.Request.Context(), claims.SessionID)
	if err != nil {
		return "", nil, http.StatusInternalServerError, MsgFailure
	}
	if cred == nil {
		return "", nil, http.StatusUnauthorized, "session expired"
	}
	return claims.SessionID, cred, http.StatusOK, ""
}

// GuestAuth enforces a bearer session token and loads its credential.
func GuestAuth(a *Authorizer, signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, cred, status, msg := authenticate(c, a, signingKey, issuer)
		if cred == nil {
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		c.Set(ctxSessionID, sid)
		c.Set(ctxCredential, *cred)
		c.Next()
	}
}

// OptionalGuest loads the credential when a valid token is present and
// lets the request through either way.
func OptionalGuest(a *Authorizer, signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sid, cred, _, _ := authenticate(c, a, signingKey, issuer); cred != nil {
			c.Set(ctxSessionID, sid)
			c.Set(ctxCredential, *cred)
		}
		c.Next()
	}
}

// CredentialFrom returns the credential GuestAuth attached to the request.
func CredentialFrom(c *gin.Context) (Credential, bool) {
	v, ok := c.Get(ctxCredential)
	if !ok {
		return Credential{}, false
	}
	cred, ok := v.(Credential)
	return cred, ok
}

// SessionIDFrom returns the session id GuestAuth attached to the request.
func SessionIDFrom(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}

// AdminAuth requires the static operator token.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin access not configured"})
			return
		}
		got, ok := bearer(c)
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
			return
		}
		c.Next()
	}
}
