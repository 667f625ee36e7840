package controller

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github/itish2003/retrieval/models"
	"github/itish2003/retrieval/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop().Sugar()
	manager := services.NewConnectionManager(func(ctx context.Context) (services.RetrievalBackend, error) {
		return services.NewBackendClient("http://localhost:0", &http.Client{Timeout: time.Second}), nil
	})
	resolver := services.NewResolverService(&http.Client{Timeout: time.Second}, logger)
	sessionService := services.NewSessionService(manager, resolver, logger)
	catalogService := services.NewCatalogService(filepath.Join(t.TempDir(), "catalog.json"), logger)
	sessionController := NewSessionController(sessionService, resolver, catalogService)

	router := gin.New()
	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/catalog", sessionController.GetCatalog)
		apiV1.POST("/sessions", sessionController.CreateSession)
		apiV1.GET("/sessions/:id/state", sessionController.GetState)
		apiV1.POST("/sessions/:id/configure", sessionController.Configure)
		apiV1.POST("/sessions/:id/search", sessionController.SearchByExample)
		apiV1.POST("/sessions/:id/search/upload", sessionController.SearchByUpload)
		apiV1.POST("/sessions/:id/search/paste", sessionController.SearchByPaste)
		apiV1.GET("/previews/:id", sessionController.GetPreview)
	}
	return router
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, recorder.Code)

	var created models.CreateSessionResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	return created.SessionID
}

func TestGetCatalog(t *testing.T) {
	router := newTestRouter(t)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	var catalog models.Catalog
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &catalog))
	assert.NotEmpty(t, catalog.Datasets)
}

func TestCreateSessionAndGetState(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/state", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	var state models.SessionState
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &state))
	assert.Equal(t, services.StatusIdle, state.Status)
}

func TestGetState_UnknownSession(t *testing.T) {
	router := newTestRouter(t)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope/state", nil))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestConfigure_InvalidBody(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/configure", bytes.NewBufferString(`{"size":"b"}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSearchByExample_KOutOfRange(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	body := `{"image_url":"http://backend/img/1.jpg","k":100}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/search", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSearchByExample_RequiresConfiguration(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	body := `{"image_url":"http://backend/img/1.jpg","k":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/search", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestSearchByPaste_RejectsNonImageMIME(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	body, err := json.Marshal(models.SearchByPasteRequest{
		DataBase64: base64.StdEncoding.EncodeToString([]byte("hello")),
		MimeType:   "text/plain",
		K:          10,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/search/paste", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "not an image")
}

func TestSearchByPaste_InvalidBase64(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	body := `{"data_base64":"%%%not-base64%%%","mime_type":"image/png","k":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/search/paste", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSearchByUpload_MissingK(t *testing.T) {
	router := newTestRouter(t)
	id := createSession(t, router)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "query.png")
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/search/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetPreview_RoundtripThroughResolver(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop().Sugar()
	resolver := services.NewResolverService(&http.Client{Timeout: time.Second}, logger)

	manager := services.NewConnectionManager(func(ctx context.Context) (services.RetrievalBackend, error) {
		return services.NewBackendClient("http://localhost:0", &http.Client{Timeout: time.Second}), nil
	})
	sessionService := services.NewSessionService(manager, resolver, logger)
	catalogService := services.NewCatalogService(filepath.Join(t.TempDir(), "catalog.json"), logger)
	sessionController := NewSessionController(sessionService, resolver, catalogService)

	router := gin.New()
	router.GET("/api/v1/previews/:id", sessionController.GetPreview)

	url := resolver.RegisterPreview([]byte("png-bytes"), "image/png")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, url, nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "image/png", recorder.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", recorder.Body.String())
}

func TestGetPreview_Unknown(t *testing.T) {
	router := newTestRouter(t)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/previews/nope", nil))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
