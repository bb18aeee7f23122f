package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-album-center/internal/config"
	"go-album-center/internal/logger"
	"go-album-center/internal/utils"
)

const secret = "test-secret-value"

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("wonderland"), bcrypt.MinCost)
	require.NoError(t, err)

	metrics := NewMetrics()
	r := gin.New()
	r.Use(RequestLogger(logger.Nop()), metrics.Middleware())
	r.Use(Auth(NewChain(config.AuthConfig{Secret: secret, Users: map[string]string{"alice": string(hash)}})))
	r.GET("/open", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authorized": Authorized(c), "user": User(c)})
	})
	r.POST("/closed", RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := testRouter(t)

	w := do(r, httptest.NewRequest(http.MethodPost, "/closed", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/closed", nil)
	req.SetBasicAuth("alice", "wonderland")
	assert.Equal(t, http.StatusNoContent, do(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/closed", nil)
	req.SetBasicAuth("alice", "wrong")
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
}

func TestTokenForms(t *testing.T) {
	r := testRouter(t)
	token, err := utils.GenerateToken("alice", secret, time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/closed", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, do(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/closed", nil)
	req.SetBasicAuth(token, "")
	assert.Equal(t, http.StatusNoContent, do(r, req).Code)

	forged, err := utils.GenerateToken("alice", "another-secret", time.Hour, time.Now())
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/closed", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
}

func TestAnnotation(t *testing.T) {
	r := testRouter(t)

	w := do(r, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.JSONEq(t, `{"authorized":false,"user":""}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.SetBasicAuth("alice", "wonderland")
	w = do(r, req)
	assert.JSONEq(t, `{"authorized":true,"user":"alice"}`, w.Body.String())
}

func TestMetricsExposed(t *testing.T) {
	r := testRouter(t)
	do(r, httptest.NewRequest(http.MethodGet, "/open", nil))

	w := do(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `album_http_requests_total{method="GET",route="/open",status="200"} 1`))
}
