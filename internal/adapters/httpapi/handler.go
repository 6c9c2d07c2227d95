// Package httpapi serves the entity store, transfer, backups and preferences
// over a local JSON HTTP API.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"sizes/internal/backup"
	"sizes/internal/core"
	"sizes/internal/prefs"
	"sizes/pkg/domain"
	"sizes/pkg/share"
)

// DefaultMaxUploadBytes bounds photo uploads and import bodies when the
// handler is not configured otherwise.
const DefaultMaxUploadBytes = 10 << 20

// Handler wires HTTP routes to the service layer. Service is required; the
// other dependencies enable their routes when set.
type Handler struct {
	Service        *core.Service
	Prefs          *prefs.Manager
	Archive        *backup.Archive
	Gatherer       prometheus.Gatherer
	Logger         core.Logger
	PublicBaseURL  string
	MaxUploadBytes int64
}

// NewHandler constructs a handler for svc.
func NewHandler(svc *core.Service) *Handler {
	return &Handler{Service: svc}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.logRequests())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/share/:token", h.decodeShare)
	if h.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	profiles := api.Group("/profiles")
	{
		profiles.GET("", h.listProfiles)
		profiles.POST("", h.createProfile)
		profiles.GET("/:id", h.getProfile)
		profiles.PATCH("/:id", h.updateProfile)
		profiles.DELETE("/:id", h.deleteProfile)
		profiles.POST("/:id/check", h.checkProfile)
		profiles.GET("/:id/share", h.shareProfile)
		profiles.GET("/:id/recommendations", h.recommendations)
		profiles.GET("/:id/brands", h.listBrands)
		profiles.POST("/:id/brands", h.createBrand)
	}
	api.GET("/reviews", h.reviews)

	brands := api.Group("/brands")
	{
		brands.GET("/:id", h.getBrand)
		brands.PATCH("/:id", h.updateBrand)
		brands.DELETE("/:id", h.deleteBrand)
		brands.GET("/:id/sizes", h.listSizes)
		brands.POST("/:id/sizes", h.createSize)
	}

	sizes := api.Group("/sizes")
	{
		sizes.GET("/:id", h.getSize)
		sizes.PATCH("/:id", h.updateSize)
		sizes.DELETE("/:id", h.deleteSize)
		sizes.GET("/:id/photo", h.getPhoto)
		sizes.POST("/:id/photo", h.uploadPhoto)
		sizes.DELETE("/:id/photo", h.deletePhoto)
	}

	api.DELETE("/records/:id", h.deleteRecord)
	api.GET("/export", h.exportDocument)
	api.POST("/import", h.importDocument)

	if h.Archive != nil {
		api.GET("/backups", h.listBackups)
		api.POST("/backups", h.saveBackup)
		api.GET("/backups/link", h.backupLink)
		api.POST("/backups/restore", h.restoreBackup)
	}
	if h.Prefs != nil {
		api.GET("/preferences", h.getPreferences)
		api.PUT("/preferences", h.updatePreferences)
	}
	return r
}

// WithCORS wraps next so that browsers on allowedOrigins may call the API.
func WithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(next)
}

func (h *Handler) logger() core.Logger {
	if h.Logger == nil {
		return nopLogger{}
	}
	return h.Logger
}

func (h *Handler) maxUpload() int64 {
	if h.MaxUploadBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return h.MaxUploadBytes
}

func (h *Handler) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		h.logger().Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(started),
		)
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func writeJSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// writeFailure maps service errors onto status codes.
func (h *Handler) writeFailure(c *gin.Context, err error) {
	var violation domain.RuleViolationError
	switch {
	case errors.Is(err, share.ErrInvalidLink):
		writeError(c, http.StatusBadRequest, "invalid_link")
	case errors.Is(err, domain.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidFormat):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &violation):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, share.ErrTokenTooLong):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger().Error("request failed", "path", c.FullPath(), "error", err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// bindJSON decodes the request body into dst, reporting malformed input as
// an invalid format error.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
