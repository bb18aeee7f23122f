package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"go-album-center/internal/config"
	"go-album-center/internal/utils"
)

const (
	authorizedKey = "authorized"
	userKey       = "user"
)

// Authenticator resolves the user behind a request. ok is false when the
// request carries no valid proof.
type Authenticator interface {
	Authenticate(r *http.Request) (user string, ok bool)
}

// TokenAuthenticator accepts signed tokens, either as a bearer token or as
// the basic auth user name with an empty password.
type TokenAuthenticator struct {
	Secret string
}

func (a TokenAuthenticator) Authenticate(r *http.Request) (string, bool) {
	token := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	} else if user, pass, ok := r.BasicAuth(); ok && pass == "" {
		token = user
	}
	if token == "" {
		return "", false
	}

	claims, err := utils.ParseToken(token, a.Secret)
	if err != nil {
		return "", false
	}
	return claims.Username, true
}

// CredentialAuthenticator checks basic auth credentials against bcrypt
// hashes.
type CredentialAuthenticator struct {
	Users map[string]string
}

func (a CredentialAuthenticator) Authenticate(r *http.Request) (string, bool) {
	user, pass, ok := r.BasicAuth()
	if !ok || pass == "" {
		return "", false
	}
	hash, found := a.Users[strings.ToLower(user)]
	if !found {
		return "", false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)); err != nil {
		return "", false
	}
	return user, true
}

// Chain tries each authenticator in turn.
type Chain []Authenticator

func (c Chain) Authenticate(r *http.Request) (string, bool) {
	for _, a := range c {
		if user, ok := a.Authenticate(r); ok {
			return user, true
		}
	}
	return "", false
}

// NewChain builds the token-then-credentials chain from configuration.
func NewChain(cfg config.AuthConfig) Chain {
	return Chain{
		TokenAuthenticator{Secret: cfg.Secret},
		CredentialAuthenticator{Users: cfg.Users},
	}
}

// Auth annotates every request with the authorization predicate. It never
// rejects a request; see RequireAuth.
func Auth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := a.Authenticate(c.Request)
		c.Set(authorizedKey, ok)
		if ok {
			c.Set(userKey, user)
		}
		c.Next()
	}
}

// RequireAuth aborts unauthorized requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Authorized(c) {
			c.Header("WWW-Authenticate", `Basic realm="album-center"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		c.Next()
	}
}

// Authorized reports the predicate set by Auth.
func Authorized(c *gin.Context) bool {
	return c.GetBool(authorizedKey)
}

// User returns the authenticated user name, if any.
func User(c *gin.Context) string {
	return c.GetString(userKey)
}
