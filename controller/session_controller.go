package controller

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github/itish2003/retrieval/models"
	"github/itish2003/retrieval/services"
)

// maxUploadBytes caps uploaded query images at 32 MB.
const maxUploadBytes = 32 << 20

// SessionController handles the HTTP requests for the retrieval API. It
// depends on the session service for the actual session logic and stays thin:
// bind, delegate, map errors.
type SessionController struct {
	sessions services.SessionService
	resolver *services.ResolverService
	catalog  *services.CatalogService
}

// NewSessionController creates a new SessionController. Called from main.go to
// inject the service dependencies.
func NewSessionController(sessions services.SessionService, resolver *services.ResolverService, catalog *services.CatalogService) *SessionController {
	return &SessionController{
		sessions: sessions,
		resolver: resolver,
		catalog:  catalog,
	}
}

// GetCatalog is the handler for GET /api/v1/catalog.
func (c *SessionController) GetCatalog(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.catalog.Catalog())
}

// CreateSession is the handler for POST /api/v1/sessions.
func (c *SessionController) CreateSession(ctx *gin.Context) {
	ctx.JSON(http.StatusCreated, c.sessions.CreateSession())
}

// GetState is the handler for GET /api/v1/sessions/:id/state. The UI polls it
// while async operations run.
func (c *SessionController) GetState(ctx *gin.Context) {
	state, err := c.sessions.State(ctx.Param("id"))
	if err != nil {
		c.writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// Configure is the handler for POST /api/v1/sessions/:id/configure. It kicks
// off the async load cycle and returns immediately; progress is visible in the
// state snapshot.
func (c *SessionController) Configure(ctx *gin.Context) {
	var req models.ConfigureRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	cfg := models.Configuration{Dataset: req.Dataset, Size: req.Size, Finetuned: req.Finetuned}
	if err := c.sessions.Configure(ctx.Request.Context(), ctx.Param("id"), cfg); err != nil {
		c.writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"message": "Configuration change accepted"})
}

// RefreshExamples is the handler for POST /api/v1/sessions/:id/examples/refresh.
func (c *SessionController) RefreshExamples(ctx *gin.Context) {
	if err := c.sessions.RefreshExamples(ctx.Request.Context(), ctx.Param("id")); err != nil {
		c.writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"message": "Example refresh started"})
}

// SearchByExample is the handler for POST /api/v1/sessions/:id/search. The
// query is a reference to an existing image (typically a clicked example).
func (c *SessionController) SearchByExample(ctx *gin.Context) {
	var req models.SearchByExampleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	accepted, err := c.sessions.SearchByReference(ctx.Request.Context(), ctx.Param("id"), req.ImageURL, req.K)
	if err != nil {
		c.writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, accepted)
}

// SearchByUpload is the handler for POST /api/v1/sessions/:id/search/upload.
// The query image arrives as a multipart file together with a k form value.
func (c *SessionController) SearchByUpload(ctx *gin.Context) {
	k, err := strconv.Atoi(ctx.PostForm("k"))
	if err != nil || k < 1 || k > 50 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "k must be an integer between 1 and 50"})
		return
	}

	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing image file: " + err.Error()})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Image file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not open uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	accepted, err := c.sessions.SearchByUpload(ctx.Request.Context(), ctx.Param("id"), data, mimeType, k)
	if err != nil {
		c.writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, accepted)
}

// SearchByPaste is the handler for POST /api/v1/sessions/:id/search/paste.
// Clipboard pastes are filtered to image MIME types; anything else is rejected
// before touching the session.
func (c *SessionController) SearchByPaste(ctx *gin.Context) {
	var req models.SearchByPasteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if !services.IsImageMIME(req.MimeType) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Pasted data is not an image"})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.DataBase64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid base64 image data"})
		return
	}

	accepted, err := c.sessions.SearchByUpload(ctx.Request.Context(), ctx.Param("id"), data, req.MimeType, req.K)
	if err != nil {
		c.writeServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, accepted)
}

// GetPreview is the handler for GET /api/v1/previews/:id. It serves the bytes
// of a previously submitted query image.
func (c *SessionController) GetPreview(ctx *gin.Context) {
	preview, found := c.resolver.Preview(ctx.Param("id"))
	if !found {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Preview not found"})
		return
	}
	ctx.Data(http.StatusOK, preview.MimeType, preview.Data)
}

func (c *SessionController) writeServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, services.ErrNotConfigured):
		ctx.JSON(http.StatusConflict, gin.H{"error": "Load a dataset configuration before searching"})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
