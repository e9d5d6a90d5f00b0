// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	"github.com/rigwild/soft-skills/cloudflare"
	"github.com/rigwild/soft-skills/db"
	"github.com/rigwild/soft-skills/middleware"
	"github.com/rigwild/soft-skills/security"
	"github.com/rigwild/soft-skills/service"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB     *gorm.DB
	Router *gin.Engine
	Argon  *security.ArgonHash
	Runner *service.Runner
	R2     *cloudflare.R2Client
}

func NewRouter() (*API, error) {
	a := &API{}

	d, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = d

	makeLogger()

	r2, err := cloudflare.NewR2()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize R2 archive client, %w", err)
	}
	a.R2 = r2

	a.Argon = security.New()
	a.Runner = service.NewRunner(d, r2)

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:8080", "http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("requestID", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = 5 << 20

	jwt := middleware.NewJWTMiddleware(d)
	authRate := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             5,
	})
	maxUploadSize := viper.GetInt64("uploads.max_size")

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat			-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// GET /api/statistics			-> Returns the global service counters
		main.GET("/statistics", cacheFor(30), a.StatisticsFetch)
	}

	auth := main.Group("/auth", middleware.BodySizeLimiter(1<<20), authRate)
	{
		// POST /api/auth/register		-> Registers a new user
		auth.POST("/register", a.UserRegister)

		// POST /api/auth/login 		-> Logs in a user and returns a JWT token
		auth.POST("/login", a.UserLogin)
	}

	profile := main.Group("/profile", jwt, middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/profile			-> Returns the logged-in user's profile
		profile.GET("", a.ProfileFetch)

		// PATCH /api/profile			-> Edits the logged-in user's profile
		profile.PATCH("", a.ProfileEdit)

		// DELETE /api/profile			-> Deletes the logged-in user's account
		profile.DELETE("", a.ProfileDelete)
	}

	uploads := main.Group("/uploads", jwt)
	{
		// POST /api/uploads			-> Uploads a file and starts its background analysis
		uploads.POST("", middleware.BodySizeLimiter(maxUploadSize), a.UploadCreate)

		// GET /api/uploads			-> Lists the user's uploads, most recent first
		uploads.GET("", a.UploadList)

		// POST /api/uploads/:uploadId/retry	-> Retries a previously failed analysis
		uploads.POST("/:uploadId/retry", a.UploadRetry)

		// DELETE /api/uploads/:uploadId	-> Deletes an upload (and its analysis if any)
		uploads.DELETE("/:uploadId", a.UploadDelete)
	}

	analysis := main.Group("/analysis", jwt)
	{
		// GET /api/analysis/:analysisId	-> Returns an analysis with its numeric series
		analysis.GET("/:analysisId", a.AnalysisFetch)

		// PATCH /api/analysis/:analysisId	-> Renames an analysis
		analysis.PATCH("/:analysisId", middleware.BodySizeLimiter(1<<20), a.AnalysisRename)

		// DELETE /api/analysis/:analysisId	-> Deletes an analysis and its upload record
		analysis.DELETE("/:analysisId", a.AnalysisDelete)

		// GET /api/analysis/:analysisId/:file	-> Serves an analysis artifact file
		analysis.GET("/:analysisId/:file", a.AnalysisFileServe)
	}

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	if level, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
