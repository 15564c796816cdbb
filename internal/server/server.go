package server

import (
	"net/http"
	"time"

	"tasklist-backend/internal/aiclient"
	"tasklist-backend/internal/config"
	"tasklist-backend/internal/handler"
	"tasklist-backend/internal/middleware"
	"tasklist-backend/internal/models"
	"tasklist-backend/internal/repository"
	"tasklist-backend/internal/service"
	"tasklist-backend/internal/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	cfg    *config.Config
	logger *zap.Logger
	log    *logrus.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, logger *zap.Logger, log *logrus.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		db:     db,
		cfg:    cfg,
		logger: logger,
		log:    log,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(corsMiddleware(s.cfg))

	// Auth components
	userRepo := repository.NewUserRepository(s.db, s.logger)
	codec := token.NewCodec(s.cfg.Auth.Secret, time.Duration(s.cfg.Auth.TokenMaxAgeSecs)*time.Second)
	authService := service.NewAuthService(userRepo, codec, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.log)

	// Task components
	taskRepo := repository.NewTaskRepository(s.db, s.logger)
	taskService := service.NewTaskService(taskRepo, s.logger)
	taskHandler := handler.NewTaskHandler(taskService, s.logger)

	// Advisory components (best-effort external generation API)
	ai := aiclient.NewClient(aiclient.Config{
		APIKey:  s.cfg.AI.APIKey,
		BaseURL: s.cfg.AI.BaseURL,
		Model:   s.cfg.AI.Model,
	}, s.logger)
	adviceHandler := handler.NewAdviceHandler(ai, s.log)
	fortuneHandler := handler.NewFortuneHandler(ai, s.log)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	api := s.router.Group("/api")

	// Public routes
	api.POST("/auth/login", authHandler.Login)
	api.POST("/bmi/advice", adviceHandler.GenerateBMIAdvice)
	api.POST("/fortune/generate", fortuneHandler.Generate)

	// Authenticated routes
	authRequired := api.Group("")
	authRequired.Use(middleware.RequireAuth(codec, userRepo, s.logger))
	{
		authRequired.GET("/auth/me", authHandler.Me)
		authRequired.POST("/auth/change-password", authHandler.ChangePassword)

		authRequired.GET("/tasks", taskHandler.List)
		authRequired.POST("/tasks", taskHandler.Create)
		authRequired.GET("/tasks/:id", taskHandler.Get)
		authRequired.PUT("/tasks/:id", taskHandler.Update)
		authRequired.PATCH("/tasks/:id/status", taskHandler.UpdateStatus)
		authRequired.DELETE("/tasks/:id", taskHandler.Delete)

		// Admin-only routes
		adminRequired := authRequired.Group("")
		adminRequired.Use(middleware.RequireRole(models.RoleAdmin))
		{
			adminRequired.POST("/auth/users", authHandler.CreateUser)
		}
	}
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	return cors.New(corsConfig)
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
