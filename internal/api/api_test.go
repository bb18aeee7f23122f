package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"go-album-center/database/migrations"
	"go-album-center/internal/api/handlers"
	"go-album-center/internal/api/middleware"
	"go-album-center/internal/config"
	"go-album-center/internal/database"
	"go-album-center/internal/logger"
	"go-album-center/internal/models"
	"go-album-center/internal/service"
	"go-album-center/internal/storage"
	"go-album-center/internal/store"
	"go-album-center/internal/utils"
)

const (
	baseURL  = "http://albums.test"
	secret   = "test-secret-key"
	password = "s3cret"
)

type APITestSuite struct {
	suite.Suite
	ctx    context.Context
	router *gin.Engine
	lib    *service.Library
	token  string
}

func TestAPITestSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	db, err := database.OpenMemory(uuid.NewString(), logger.Nop())
	s.Require().NoError(err)
	s.Require().NoError(migrations.Migrate(db))
	s.T().Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	blobs, err := storage.NewLocal(s.T().TempDir())
	s.Require().NoError(err)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	s.Require().NoError(err)

	cfg := &config.Config{
		Server: config.ServerConfig{BaseURL: baseURL},
		Auth: config.AuthConfig{
			Secret:   secret,
			TokenTTL: time.Hour,
			Users:    map[string]string{"alice": string(hash)},
		},
		Storage: config.StorageConfig{MaxUploadSize: 4 << 20},
	}

	s.ctx = context.Background()
	s.lib = service.NewLibrary(store.New(db), blobs, nil, service.Options{MaxUploadSize: cfg.Storage.MaxUploadSize}, logger.Nop())
	s.router = NewRouter(Deps{
		Handler:       handlers.New(s.lib, cfg, logger.Nop()),
		Authenticator: middleware.NewChain(cfg.Auth),
		Metrics:       middleware.NewMetrics(),
		Log:           logger.Nop(),
	})

	s.token, err = utils.GenerateToken("alice", secret, time.Hour, time.Now())
	s.Require().NoError(err)
}

func (s *APITestSuite) do(method, path, body string, authorized bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *APITestSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *APITestSuite) album(name string, parent *models.Item) *models.Item {
	var parentID *uint
	if parent != nil {
		parentID = &parent.ID
	}
	a, err := s.lib.CreateAlbum(s.ctx, name, parentID)
	s.Require().NoError(err)
	return a
}

func jpegContent(w, h int) []byte {
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 120, B: 40, A: 255})
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func (s *APITestSuite) TestMutationsRequireAuthorization() {
	rec := s.do(http.MethodPost, "/albums", `{"name": "Holidays"}`, false)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.NotEmpty(rec.Header().Get("WWW-Authenticate"))

	rec = s.do(http.MethodDelete, "/albums/1", "", false)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/albums", "", false)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`[]`, rec.Body.String())
}

func (s *APITestSuite) TestCreateAndGetAlbum() {
	rec := s.do(http.MethodPost, "/albums", `{"name": "Holidays"}`, true)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Equal(baseURL+"/albums/1", rec.Header().Get("Location"))

	var created map[string]any
	s.decode(rec, &created)
	s.Equal("album", created["type"])
	s.Equal("Holidays", created["name"])
	s.Equal("published", created["status"])
	s.Nil(created["parent_id"])
	s.Equal([]any{}, created["children"])

	rec = s.do(http.MethodPost, "/albums", `{"name": "Summer 2024", "parent_id": 1}`, true)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/albums/1", "", false)
	s.Require().Equal(http.StatusOK, rec.Code)
	var got map[string]any
	s.decode(rec, &got)
	s.Equal([]any{baseURL + "/albums/2"}, got["children"])
	s.Equal([]any{"Holidays"}, got["path"])

	rec = s.do(http.MethodGet, "/albums/2", "", false)
	s.decode(rec, &got)
	s.Equal([]any{"Holidays", "Summer_2024"}, got["path"])
	s.EqualValues(1, got["parent_id"])
}

func (s *APITestSuite) TestCreateValidation() {
	rec := s.do(http.MethodPost, "/albums", `{}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/albums", `{"name": "x", "author": "y"}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/albums", `{"name": "x"`, true)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/albums", `{"name": "x", "parent_id": 42}`, true)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/albums/abc", "", false)
	s.Equal(http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodGet, "/albums/7", "", false)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APITestSuite) TestUpdateWhitelists() {
	s.album("Holidays", nil)

	rec := s.do(http.MethodPut, "/albums/1", `{"name": "Trips"}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/albums/1", `{"name": "Trips", "parent_id": null, "status": "archived"}`, true)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var got map[string]any
	s.decode(rec, &got)
	s.Equal("Trips", got["name"])
	s.Equal("archived", got["status"])
	s.NotNil(got["modified_at"])

	rec = s.do(http.MethodPatch, "/albums/1", `{"name": "Travels"}`, true)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &got)
	s.Equal("Travels", got["name"])
	s.Equal("archived", got["status"])

	rec = s.do(http.MethodPatch, "/albums/1", `{"author": "bob"}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, "/albums/1", `{"status": "hidden"}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APITestSuite) TestRootPagination() {
	for i := 1; i <= 19; i++ {
		s.album(fmt.Sprintf("Album %02d", i), nil)
	}

	rec := s.do(http.MethodGet, "/albums?per_page=5", "", false)
	s.Require().Equal(http.StatusOK, rec.Code)
	link := rec.Header().Get("Link")
	s.NotContains(link, `rel="first"`)
	s.NotContains(link, `rel="previous"`)
	s.Contains(link, `<`+baseURL+`/albums?page=2&per_page=5>; rel="next"`)
	s.Contains(link, `<`+baseURL+`/albums?page=4&per_page=5>; rel="last"`)
	var locations []string
	s.decode(rec, &locations)
	s.Equal([]string{
		baseURL + "/albums/1", baseURL + "/albums/2", baseURL + "/albums/3",
		baseURL + "/albums/4", baseURL + "/albums/5",
	}, locations)

	rec = s.do(http.MethodGet, "/albums?page=4&per_page=5", "", false)
	s.Require().Equal(http.StatusOK, rec.Code)
	link = rec.Header().Get("Link")
	s.Contains(link, `rel="first"`)
	s.Contains(link, `<`+baseURL+`/albums?page=3&per_page=5>; rel="previous"`)
	s.NotContains(link, `rel="next"`)
	s.NotContains(link, `rel="last"`)
	s.decode(rec, &locations)
	s.Len(locations, 4)

	for _, query := range []string{"per_page=0", "per_page=1000", "page=abc", "page=-1", "page=5&per_page=5"} {
		rec = s.do(http.MethodGet, "/albums?"+query, "", false)
		s.Equal(http.StatusBadRequest, rec.Code, query)
	}
}

func (s *APITestSuite) TestArchivedBranchVisibility() {
	archived := s.album("Private", nil)
	inner := s.album("Inner", archived)
	s.Require().NoError(s.lib.UpdateItem(s.ctx, archived, map[string]any{"status": "archived"}))

	rec := s.do(http.MethodGet, fmt.Sprintf("/albums/%d", archived.ID), "", false)
	s.Equal(http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodGet, fmt.Sprintf("/albums/%d", inner.ID), "", false)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/albums", "", false)
	s.JSONEq(`[]`, rec.Body.String())
	rec = s.do(http.MethodGet, "/albums?children=archived", "", false)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/albums?children=archived", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(fmt.Sprintf(`["%s/albums/%d"]`, baseURL, archived.ID), rec.Body.String())

	rec = s.do(http.MethodGet, fmt.Sprintf("/albums/%d", archived.ID), "", true)
	s.Require().Equal(http.StatusOK, rec.Code)
	var got map[string]any
	s.decode(rec, &got)
	s.Equal([]any{fmt.Sprintf("%s/albums/%d", baseURL, inner.ID)}, got["children"])
}

func (s *APITestSuite) TestUpdateHonoursChildrenFilter() {
	parent := s.album("Holidays", nil)
	shown := s.album("Shown", parent)
	old := s.album("Old", parent)
	s.Require().NoError(s.lib.UpdateItem(s.ctx, old, map[string]any{"status": "archived"}))
	path := fmt.Sprintf("/albums/%d", parent.ID)
	all := []any{
		fmt.Sprintf("%s/albums/%d", baseURL, shown.ID),
		fmt.Sprintf("%s/albums/%d", baseURL, old.ID),
	}

	rec := s.do(http.MethodPatch, path+"?children=all", `{"name": "Trips"}`, true)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var got map[string]any
	s.decode(rec, &got)
	s.Equal("Trips", got["name"])
	s.Equal(all, got["children"])

	rec = s.do(http.MethodGet, path+"?children=all", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)
	var fetched map[string]any
	s.decode(rec, &fetched)
	s.Equal(got["children"], fetched["children"])

	rec = s.do(http.MethodPatch, path, `{"name": "Travels"}`, true)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &got)
	s.Equal([]any{all[0]}, got["children"])

	rec = s.do(http.MethodPatch, path+"?children=bogus", `{"name": "Ignored"}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)
	reloaded, err := s.lib.Lookup(s.ctx, models.KindAlbum, parent.ID, true)
	s.Require().NoError(err)
	s.Equal("Travels", reloaded.Name)
}

func (s *APITestSuite) TestReorder() {
	a := s.album("A", nil)
	b := s.album("B", nil)
	c := s.album("C", nil)

	rec := s.do(http.MethodPut, "/order", fmt.Sprintf("[%d, %d, %d]", c.ID, a.ID, b.ID), true)
	s.Require().Equal(http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/albums", "", false)
	var locations []string
	s.decode(rec, &locations)
	s.Equal([]string{
		fmt.Sprintf("%s/albums/%d", baseURL, c.ID),
		fmt.Sprintf("%s/albums/%d", baseURL, a.ID),
		fmt.Sprintf("%s/albums/%d", baseURL, b.ID),
	}, locations)

	for _, body := range []string{
		fmt.Sprintf("[%d, %d]", a.ID, b.ID),
		fmt.Sprintf("[%d, %d, %d, %d]", a.ID, b.ID, c.ID, c.ID),
		`{"ids": []}`,
	} {
		rec = s.do(http.MethodPut, "/order", body, true)
		s.Equal(http.StatusBadRequest, rec.Code, body)
	}

	rec = s.do(http.MethodPut, fmt.Sprintf("/albums/%d/order", a.ID), `[]`, true)
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *APITestSuite) createMedia(content []byte) map[string]any {
	body := fmt.Sprintf(`{"name": "My Image", "author": "alice", "parent_id": null, "keywords": ["sea"], "content": %q}`,
		base64.StdEncoding.EncodeToString(content))
	rec := s.do(http.MethodPost, "/media", body, true)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var got map[string]any
	s.decode(rec, &got)
	return got
}

func (s *APITestSuite) TestMediaAndDerivatives() {
	content := jpegContent(640, 480)
	media := s.createMedia(content)
	s.Equal("media", media["type"])
	s.Equal("My_Image.jpg", media["filename"])
	s.Equal([]any{"sea"}, media["keywords"])
	s.Equal(baseURL+"/media/1/content", media["content"])

	rec := s.do(http.MethodGet, "/media/1/content", "", false)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("image/jpeg", rec.Header().Get("Content-Type"))
	s.Equal(`inline; filename="My_Image.jpg"`, rec.Header().Get("Content-Disposition"))
	s.Equal(content, rec.Body.Bytes())

	rec = s.do(http.MethodPost, "/media/1/derivatives",
		`{"operations": [["crop", {"left": "10%", "top": "20%", "width": "30%", "height": "40%"}]]}`, true)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Equal(baseURL+"/media/1/derivatives/1", rec.Header().Get("Location"))

	rec = s.do(http.MethodGet, "/media/1/derivatives/1", "", false)
	s.Require().Equal(http.StatusOK, rec.Code)
	var d struct {
		MediaID    uint            `json:"media_id"`
		ID         uint            `json:"id"`
		Operations json.RawMessage `json:"operations"`
	}
	s.decode(rec, &d)
	s.Equal(uint(1), d.MediaID)
	s.Equal(uint(1), d.ID)
	s.JSONEq(`[["crop", {"height": "40%", "left": "10%", "top": "20%", "width": "30%"}]]`, string(d.Operations))

	rec = s.do(http.MethodGet, "/media/1/derivatives/1/content", "", false)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("image/jpeg", rec.Header().Get("Content-Type"))
	cfg, format, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	s.Require().NoError(err)
	s.Equal("jpeg", format)
	s.InDelta(192, cfg.Width, 1)
	s.InDelta(192, cfg.Height, 1)

	rec = s.do(http.MethodPost, "/media/1/derivatives", `{"operations": [["sharpen", {}]]}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, "/media/1/derivatives/1", `{"operations": [["rotate", [90]]]}`, true)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.decode(rec, &d)
	s.JSONEq(`[["rotate", {"degrees": 90}]]`, string(d.Operations))

	rec = s.do(http.MethodGet, "/media/1/derivatives", "", false)
	s.JSONEq(`["`+baseURL+`/media/1/derivatives/1"]`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/media/1", "", true)
	s.Equal(http.StatusNoContent, rec.Code)
	s.Empty(rec.Body.String())

	for _, path := range []string{"/media/1", "/media/1/content", "/media/1/derivatives/1"} {
		rec = s.do(http.MethodGet, path, "", true)
		s.Equal(http.StatusNotFound, rec.Code, path)
	}
}

func (s *APITestSuite) TestMediaCreateValidation() {
	rec := s.do(http.MethodPost, "/media", `{"name": "x", "author": "y", "parent_id": null}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/media", `{"name": "x", "author": "y", "parent_id": null, "content": "***"}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/media", `{"name": "x", "author": "y", "parent_id": 9, "content": "aGVsbG8="}`, true)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APITestSuite) TestReplaceContent() {
	s.createMedia(jpegContent(32, 32))
	replacement := jpegContent(16, 8)

	rec := s.do(http.MethodPut, "/media/1/content", fmt.Sprintf("%q", base64.StdEncoding.EncodeToString(replacement)), true)
	s.Require().Equal(http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/media/1/content", "", false)
	s.Equal(replacement, rec.Body.Bytes())

	rec = s.do(http.MethodGet, "/media/1", "", false)
	var got map[string]any
	s.decode(rec, &got)
	s.NotNil(got["modified_at"])
}

func (s *APITestSuite) TestCascadeDelete() {
	top := s.album("Top", nil)
	middle := s.album("Middle", top)
	m, err := s.lib.CreateMedia(s.ctx, service.MediaInput{
		Name: "Leaf", Author: "alice", ParentID: &middle.ID, Content: jpegContent(8, 8),
	})
	s.Require().NoError(err)

	rec := s.do(http.MethodDelete, fmt.Sprintf("/albums/%d", top.ID), "", true)
	s.Require().Equal(http.StatusNoContent, rec.Code, rec.Body.String())

	for _, path := range []string{
		fmt.Sprintf("/albums/%d", top.ID),
		fmt.Sprintf("/albums/%d", middle.ID),
		fmt.Sprintf("/media/%d", m.ID),
	} {
		rec = s.do(http.MethodGet, path, "", true)
		s.Equal(http.StatusNotFound, rec.Code, path)
	}

	rec = s.do(http.MethodDelete, fmt.Sprintf("/albums/%d", top.ID), "", true)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APITestSuite) TestGetIsIdempotent() {
	top := s.album("Top", nil)
	s.album("Child", top)

	path := fmt.Sprintf("/albums/%d", top.ID)
	first := s.do(http.MethodGet, path, "", false)
	second := s.do(http.MethodGet, path, "", false)
	s.Require().Equal(http.StatusOK, first.Code)
	s.Equal(first.Body.Bytes(), second.Body.Bytes())
}

func (s *APITestSuite) TestToken() {
	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	req.SetBasicAuth("alice", password)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	s.decode(rec, &body)
	s.NotEmpty(body.Token)

	req = httptest.NewRequest(http.MethodPost, "/albums", strings.NewReader(`{"name": "With token"}`))
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/token", nil)
	req.SetBasicAuth("alice", "wrong")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/token", "", true)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *APITestSuite) TestHTMLRepresentation() {
	s.album("Holidays", nil)

	req := httptest.NewRequest(http.MethodGet, "/albums", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get("Content-Type"), "text/html")
	s.Contains(rec.Body.String(), `<a href="`+baseURL+`/albums/1">Holidays</a>`)

	req = httptest.NewRequest(http.MethodGet, "/albums/9", nil)
	req.Header.Set("Accept", "text/html")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "<h1>404</h1>")
}

func (s *APITestSuite) TestExportAndOperations() {
	top := s.album("Top", nil)
	s.album("Child", top)

	rec := s.do(http.MethodGet, "/export/csv", "", false)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/export/csv", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("id,type,name,status,parent_id,path,filename\n"+
		"1,album,Top,published,,Top,\n"+
		"2,album,Child,published,1,Top/Child,\n", rec.Body.String())

	rec = s.do(http.MethodGet, "/export/json", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)
	var entries []map[string]any
	s.decode(rec, &entries)
	s.Len(entries, 2)

	rec = s.do(http.MethodGet, "/health", "", false)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status": "ok"}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/metrics", "", false)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `album_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
