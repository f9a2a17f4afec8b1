// Package httpapi wires the HTTP transport (Gin) to the student service,
// middleware and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, access logging, panic recovery, metrics,
// CORS, security headers, idempotency and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/student-records/internal/config"
	"github.com/tbourn/student-records/internal/domain"
	"github.com/tbourn/student-records/internal/http/handlers"
	"github.com/tbourn/student-records/internal/http/middleware"
	"github.com/tbourn/student-records/internal/repo"
	"github.com/tbourn/student-records/internal/services"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// studentRepoShim adapts the repository free functions to the
// services.StudentRepo interface.
type studentRepoShim struct{}

func (studentRepoShim) CreateStudent(ctx context.Context, db *gorm.DB, s *domain.Student) error {
	return repo.CreateStudent(ctx, db, s)
}

func (studentRepoShim) GetStudent(ctx context.Context, db *gorm.DB, controlID string) (*domain.Student, error) {
	return repo.GetStudent(ctx, db, controlID)
}

func (studentRepoShim) ListStudents(ctx context.Context, db *gorm.DB) ([]domain.Student, error) {
	return repo.ListStudents(ctx, db)
}

func (studentRepoShim) ExistsByControlID(ctx context.Context, db *gorm.DB, controlID string) (bool, error) {
	return repo.ExistsByControlID(ctx, db, controlID)
}

func (studentRepoShim) ExistsByFullName(ctx context.Context, db *gorm.DB, first, paternal, maternal string) (bool, error) {
	return repo.ExistsByFullName(ctx, db, first, paternal, maternal)
}

func (studentRepoShim) UpdateStudentFields(ctx context.Context, db *gorm.DB, controlID string, fields map[string]any) error {
	return repo.UpdateStudentFields(ctx, db, controlID, fields)
}

func (studentRepoShim) DeleteStudent(ctx context.Context, db *gorm.DB, controlID string) error {
	return repo.DeleteStudent(ctx, db, controlID)
}

func (studentRepoShim) StudentsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.StudentsStats(ctx, db)
}

// idempotencyStore backs handlers.IdempotencyStore with the idempotency table.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup implements handlers.IdempotencyStore.
func (s idempotencyStore) Lookup(ctx context.Context, key string, now time.Time) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.ControlID, true, nil
}

// Remember implements handlers.IdempotencyStore. A concurrent request that
// stored the same key first wins.
func (s idempotencyStore) Remember(ctx context.Context, key, controlID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.db, key, controlID, status, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// exists adapts Lookup to middleware.IdempotencyLookup.
func (s idempotencyStore) exists(ctx context.Context, key string, now time.Time) (bool, error) {
	_, found, err := s.Lookup(ctx, key, now)
	return found, err
}

// RegisterRoutes attaches all middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. access log (redacting or plain, per LOG_REDACT)
//  4. Recovery, after the logger so panics carry the request logger
//  5. body size limit
//  6. gzip (optional)
//  7. Metrics
//  8. Idempotency validator, before the limiter so replays bypass it
//  9. rate limiter per client IP
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key"},
		}))
	} else {
		r.Use(middleware.Logger())
	}
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression))
	}

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	idem := idempotencyStore{db: db, ttl: cfg.IdempotencyTTL}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idem.exists))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	r.Use(corsHandler(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	svc := services.NewStudentService(db, studentRepoShim{})
	h := handlers.New(svc, idem, cfg.APIBasePath)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/students", h.ListStudents)
		api.POST("/students", h.CreateStudent)
		api.GET("/students/:id", h.GetStudent)
		api.PATCH("/students/:id", h.UpdateStudent)
		api.DELETE("/students/:id", h.DeleteStudent)
	}
}

// corsHandler allows every origin when none are configured, otherwise only
// the listed ones. Credentials are never allowed.
func corsHandler(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length", "Location", "ETag", "Idempotency-Replayed"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}

// limitBody caps the request body at maxBytes. Reads past the cap fail with
// *http.MaxBytesError, which handlers report as 413.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
