package server

import (
	"errors"
	"fmt"

	"github.com/nephh/twitter-clone/internal/auth"
	"github.com/nephh/twitter-clone/internal/config"
	"github.com/nephh/twitter-clone/internal/directory"
	"github.com/nephh/twitter-clone/internal/logs"
	"github.com/nephh/twitter-clone/internal/ratelimit"
	"github.com/nephh/twitter-clone/internal/social"
	"github.com/nephh/twitter-clone/internal/store/memory"
	"github.com/nephh/twitter-clone/internal/store/postgres"
	"github.com/nephh/twitter-clone/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var log = logs.Get("server")

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Social *social.Service

	posts   social.PostStore
	users   social.UserDirectory
	closers []func() error
}

// Option overrides a component normally chosen from configuration.
type Option func(*Server)

func WithPostStore(store social.PostStore) Option {
	return func(s *Server) { s.posts = store }
}

func WithDirectory(dir social.UserDirectory) Option {
	return func(s *Server) { s.users = dir }
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, opts ...Option) (*Server, error) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:   app,
		Cfg:   cfg,
		DB:    db,
		Redis: redisClient,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.posts == nil {
		posts, err := s.openPostStore()
		if err != nil {
			return nil, err
		}
		s.posts = posts
	}
	if s.users == nil {
		users, err := s.openDirectory()
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.users = users
	}

	limiter, err := ratelimit.New(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.Stream = stream.NewHub(redisClient)
	s.closers = append(s.closers, s.Stream.Close)

	s.Social = social.NewService(
		s.posts,
		s.users,
		limiter,
		social.Options{
			MissingAuthor: social.ParseAuthorPolicy(cfg.FeedMissingAuthor),
			Publisher:     s.Stream,
		},
	)

	registerRoutes(s)
	return s, nil
}

func (s *Server) openPostStore() (social.PostStore, error) {
	switch s.Cfg.StoreDriver {
	case "", "postgres":
		if s.DB == nil {
			return nil, errors.New("postgres store selected but no database connection")
		}
		return postgres.NewStore(s.DB), nil
	case "memory":
		store, err := memory.Open(":memory:")
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		log.Notice("using in-memory post store")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", s.Cfg.StoreDriver)
	}
}

func (s *Server) openDirectory() (social.UserDirectory, error) {
	switch s.Cfg.DirectoryDriver {
	case "", "clerk":
		if s.Cfg.ClerkSecretKey == "" {
			log.Warning("CLERK_SECRET_KEY is empty; directory requests will be rejected")
		}
		return directory.NewClerk(s.Cfg.ClerkAPIURL, s.Cfg.ClerkSecretKey), nil
	case "postgres":
		if s.DB == nil {
			return nil, errors.New("postgres directory selected but no database connection")
		}
		return directory.NewPostgres(s.DB), nil
	default:
		return nil, fmt.Errorf("unknown directory driver %q", s.Cfg.DirectoryDriver)
	}
}

// Close releases what NewServer opened. Database and Redis clients passed in
// by the caller stay open.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	social.RegisterRoutes(s.App.Group("/api"), s.Social, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		log.Error("unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}
