// Package server contains the HTTP handlers and route wiring for the API.
package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"discourse/internal/config"
	"discourse/internal/database"
	"discourse/internal/index"
	"discourse/internal/middleware"
	"discourse/internal/repository"
	"discourse/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	store          *index.Store
	promMiddleware *fiberprometheus.FiberPrometheus

	userService       *service.UserService
	discussionService *service.DiscussionService
	commentService    *service.CommentService
	likeService       *service.LikeService
	followService     *service.FollowService
}

// NewServer creates a server with freshly initialized dependencies. The index
// store is optional: when Redis is unreachable the server still starts, writes
// keep working and projections degrade to logged failures.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	store, err := index.New(cfg.RedisURL)
	if err != nil {
		middleware.Logger.Warn("index store unavailable, continuing without it",
			"error", err.Error())
		store = nil
	}

	return NewServerWithDeps(cfg, db, store), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Used by tests and by any bootstrap layer that establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, store *index.Store) *Server {
	userRepo := repository.NewUserRepository(db)
	discussionRepo := repository.NewDiscussionRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	targetRepo := repository.NewTargetRepository(db)
	followRepo := repository.NewFollowRepository(db)

	projector := index.NewProjector(store)
	queries := index.NewQueries(store)

	// The like service goes first: discussion and comment deletion lean on it
	// to clean up likes, and user deletion composes all three cascades.
	likeService := service.NewLikeService(likeRepo, targetRepo, discussionRepo, commentRepo, projector, queries)
	discussionService := service.NewDiscussionService(discussionRepo, commentRepo, likeService, projector, queries)
	commentService := service.NewCommentService(commentRepo, discussionRepo, likeService, projector, queries)

	return &Server{
		config:            cfg,
		db:                db,
		store:             store,
		promMiddleware:    middleware.InitMetrics("discourse-api"),
		userService:       service.NewUserService(userRepo, followRepo, discussionService, commentService, likeService, projector, queries),
		discussionService: discussionService,
		commentService:    commentService,
		likeService:       likeService,
		followService:     service.NewFollowService(followRepo, userRepo, projector, queries),
	}
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", s.Signup)
	auth.Post("/login", s.Login)

	protected := api.Group("", s.AuthRequired())

	discussions := protected.Group("/discussions")
	discussions.Post("/", s.CreateDiscussion)
	discussions.Get("/", s.GetDiscussions)
	// Specific routes before the generic /:id ones.
	discussions.Get("/me", s.GetMyDiscussions)
	discussions.Get("/search", s.SearchDiscussions)
	discussions.Get("/:id/comments", s.GetDiscussionComments)
	discussions.Post("/:id/comments", s.CreateComment)
	discussions.Get("/:id", s.GetDiscussion)
	discussions.Put("/:id", s.UpdateDiscussion)
	discussions.Delete("/:id", s.DeleteDiscussion)

	comments := protected.Group("/comments")
	comments.Get("/me", s.GetMyComments)
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	likes := protected.Group("/likes")
	likes.Post("/", s.CreateLike)
	likes.Get("/me", s.GetMyLikes)
	likes.Delete("/:id", s.DeleteLike)

	users := protected.Group("/users")
	users.Get("/", s.GetUsers)
	users.Get("/search", s.SearchUsers)
	users.Put("/me", s.UpdateMyProfile)
	users.Delete("/me", s.DeleteMyAccount)
	users.Post("/:id/follow", s.FollowUser)
	users.Delete("/:id/follow", s.UnfollowUser)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Get("/:id", s.GetUserProfile)

	protected.Get("/search", s.SearchByHashtag)
}

// AuthRequired enforces a valid bearer token. Every authentication failure is
// a 403; the acting user id ends up in Locals("userID").
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusForbidden, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid token claims",
			})
		}

		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid token subject",
			})
		}

		userID, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid user ID in token",
			})
		}

		c.Locals("userID", uint(userID))
		return c.Next()
	}
}

func (s *Server) generateToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": "discourse-api",
		"aud": "discourse-client",
		"jti": uuid.NewString(),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// Shutdown releases server-held resources after the HTTP listener stops.
func (s *Server) Shutdown() error {
	if err := s.store.Close(); err != nil {
		middleware.Logger.Error("index store close failed", "error", err.Error())
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LivenessCheck reports process liveness.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ReadinessCheck reports whether both stores are reachable. The index being
// down degrades the answer but writes still work, so it reports as degraded
// rather than failing outright.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(c.Context()) != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":       "unavailable",
			"record_store": "down",
		})
	}

	indexStatus := "ok"
	if s.store.Ping(c.Context()) != nil {
		indexStatus = "down"
	}

	return c.JSON(fiber.Map{
		"status":       "ok",
		"record_store": "ok",
		"index":        indexStatus,
	})
}
