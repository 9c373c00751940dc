package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/party-queue-system/pkg/jwt"
	"github.com/party-queue-system/pkg/models"
)

// CookieName mirrors the key the browser client keeps its identity under.
const CookieName = "partyqueue_user"

const currentUserKey = "current_user"

// IdentityMiddleware loads the CurrentUser from the identity cookie, or from an
// "Authorization: Bearer" header for non-browser clients. Requests without a
// valid identity continue anonymously.
func IdentityMiddleware(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(CookieName)
		if token == "" {
			if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}
		}

		if token != "" {
			if claims, err := tokens.ValidateToken(token); err == nil {
				c.Set(currentUserKey, claims.User())
			}
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.CurrentUser, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.CurrentUser{}, false
	}
	user, ok := v.(models.CurrentUser)
	return user, ok
}

// RequireSession rejects requests whose identity does not belong to the
// session named by the route parameter. Clients should send the user back to
// the entry screen on 401.
func RequireSession(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Join or create a session first"})
			return
		}
		if !strings.EqualFold(strings.TrimSpace(c.Param(param)), user.SessionCode) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "You have not joined this session"})
			return
		}
		c.Next()
	}
}

// Issuer writes identities back to the browser as a signed cookie.
type Issuer struct {
	tokens *jwt.Manager
	secure bool
}

func NewIssuer(tokens *jwt.Manager, secureCookie bool) *Issuer {
	return &Issuer{tokens: tokens, secure: secureCookie}
}

// For binds the issuer to one request.
func (i *Issuer) For(c *gin.Context) *CookieIdentity {
	return &CookieIdentity{issuer: i, c: c}
}

func (i *Issuer) clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CookieIdentity is the per-request identity writer handed to the session service.
type CookieIdentity struct {
	issuer *Issuer
	c      *gin.Context
	token  string
}

func (ci *CookieIdentity) SaveUser(_ context.Context, user models.CurrentUser) error {
	token, err := ci.issuer.tokens.GenerateToken(user)
	if err != nil {
		return err
	}

	http.SetCookie(ci.c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   ci.issuer.secure,
		SameSite: http.SameSiteLaxMode,
	})
	ci.c.Set(currentUserKey, user)
	ci.token = token
	return nil
}

// Token returns the token written by the last SaveUser call.
func (ci *CookieIdentity) Token() string {
	return ci.token
}
