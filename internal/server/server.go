package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/amruno/internal/auth"
	"github.com/nfrund/amruno/internal/chat"
	"github.com/nfrund/amruno/internal/config"
	"github.com/nfrund/amruno/internal/database"
	"github.com/nfrund/amruno/internal/filestore"
	"github.com/nfrund/amruno/internal/handlers"
	"github.com/nfrund/amruno/internal/hub"
	appmiddleware "github.com/nfrund/amruno/internal/middleware"
	"github.com/nfrund/amruno/internal/presence"
	"github.com/nfrund/amruno/internal/storage"
	"github.com/nfrund/amruno/internal/websocket"
)

// multipart framing allowance on top of MaxUploadSize.
const bodyOverhead = 1 << 20

// Dependencies holds the external resources a Server is built from.
type Dependencies struct {
	Config *config.Config
	Stores *database.Stores
	Files  storage.Store
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	E      *echo.Echo
	Cfg    *config.Config
	Stores *database.Stores
	Hub    *hub.Hub

	files           storage.Store
	tokens          *auth.Tokens
	wsHandler       *websocket.Handler
	authHandler     *handlers.AuthHandler
	chatHandler     *handlers.ChatHandler
	fileHandler     *handlers.FileHandler
	presenceHandler *handlers.PresenceHandler
}

// New creates a new Server instance from already opened dependencies.
func New(deps Dependencies) (*Server, error) {
	if deps.Config == nil || deps.Stores == nil || deps.Files == nil {
		return nil, fmt.Errorf("server: config, stores and files are required")
	}
	cfg := deps.Config

	h := hub.New(hub.WithLogger(slog.Default()))
	notifier := presence.NewService(h)
	router := websocket.NewRouter(h, notifier, deps.Stores.Messages,
		websocket.WithSendBuffer(cfg.WSSendBuffer),
		websocket.WithReadLimit(cfg.WSReadLimit),
	)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	s := &Server{
		E:               echo.New(),
		Cfg:             cfg,
		Stores:          deps.Stores,
		Hub:             h,
		files:           deps.Files,
		tokens:          tokens,
		wsHandler:       websocket.NewHandler(router, cfg.AllowedOrigin),
		authHandler:     handlers.NewAuthHandler(deps.Stores.Users, tokens),
		chatHandler:     handlers.NewChatHandler(chat.NewService(deps.Stores.Users, deps.Stores.Messages)),
		fileHandler:     handlers.NewFileHandler(filestore.NewService(deps.Files, cfg.PublicBaseURL, cfg.MaxUploadSize)),
		presenceHandler: handlers.NewPresenceHandler(h),
	}
	s.setupMiddleware()
	return s, nil
}

// Open connects to the configured database, applies the schema and prepares
// the upload directory before building the Server.
func Open(ctx context.Context, cfg *config.Config) (*Server, error) {
	stores, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := stores.Migrate(ctx); err != nil {
		_ = stores.Close(ctx)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	files, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		_ = stores.Close(ctx)
		return nil, fmt.Errorf("failed to prepare upload directory: %w", err)
	}
	return New(Dependencies{Config: cfg, Stores: stores, Files: files})
}

func (s *Server) setupMiddleware() {
	e := s.E
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	setupErrorHandling(e)

	e.Use(middleware.RequestID())
	e.Use(appmiddleware.Logger)
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.Cfg.AllowedOrigin,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", s.Cfg.MaxUploadSize+bodyOverhead)))
}

func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = handlers.HTTPErrorHandler
}
