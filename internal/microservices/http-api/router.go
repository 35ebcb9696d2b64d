// Package httpapi assembles the REST API: repositories, services,
// handlers and the realtime endpoint on one gin engine.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cinelist/internal/config"
	"cinelist/internal/microservices/http-api/handler"
	"cinelist/internal/microservices/http-api/middleware"
	"cinelist/internal/microservices/http-api/repository"
	"cinelist/internal/microservices/http-api/service"
	"cinelist/internal/microservices/realtime"
)

// NewRouter wires every layer on top of db. publisher receives change
// events after commits; hub serves the websocket clients.
func NewRouter(cfg *config.Config, db *gorm.DB, publisher realtime.Publisher, hub *realtime.Hub, logger *slog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	recRepo := repository.NewRecommendationRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	ratingRepo := repository.NewRatingRepository(db)

	authService := service.NewAuthService(userRepo, refreshTokenRepo, cfg)
	recService := service.NewRecommendationService(recRepo, userRepo, publisher, logger)
	commentService := service.NewCommentService(commentRepo, recRepo, publisher, logger)
	ratingService := service.NewRatingService(ratingRepo, recRepo)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.GET("/check-conn", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "realtime_clients": hub.Count()})
	})

	api := r.Group("/api")
	handler.NewAuthHandler(authService).RegisterRoutes(api)

	protected := api.Group("", middleware.AuthMiddleware(authService))
	handler.NewRecommendationHandler(recService).RegisterRoutes(protected)
	handler.NewCommentHandler(commentService).RegisterRoutes(protected)
	handler.NewRatingHandler(ratingService).RegisterRoutes(protected)
	protected.GET("/realtime", realtime.NewHandler(hub, cfg.CORSOrigins, logger).Serve)

	return r
}
