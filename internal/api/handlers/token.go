package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-album-center/internal/api/middleware"
	"go-album-center/internal/apperr"
	"go-album-center/internal/utils"
)

// IssueToken handles GET /token. Only credentials are accepted, so a token
// cannot be used to extend itself.
func (h *Handler) IssueToken(c *gin.Context) {
	user, ok := middleware.CredentialAuthenticator{Users: h.auth.Users}.Authenticate(c.Request)
	if !ok {
		c.Header("WWW-Authenticate", `Basic realm="album-center"`)
		h.fail(c, apperr.ErrUnauthorized)
		return
	}
	token, err := utils.GenerateToken(user, h.auth.Secret, h.auth.TokenTTL, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(h.auth.TokenTTL.Seconds()),
	})
}
