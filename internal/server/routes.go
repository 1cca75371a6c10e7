package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/amruno/internal/filestore"
	"github.com/nfrund/amruno/internal/handlers"
	"github.com/nfrund/amruno/internal/middleware"
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	requireAuth := middleware.Auth(s.tokens, s.Stores.Users)
	rateLimiter := middleware.RateLimiter(s.Cfg.LoginRateLimit)

	s.E.GET("/", handlers.Root)
	s.E.GET("/health", handlers.Health)

	s.E.POST("/register", s.authHandler.Register, rateLimiter)
	s.E.POST("/login", s.authHandler.Login, rateLimiter)

	s.E.GET("/users", s.authHandler.Users, requireAuth)
	s.E.GET("/users/me", s.authHandler.Me, requireAuth)

	s.E.GET("/chat/:recipient_mobile", s.chatHandler.History, requireAuth)
	s.E.GET("/my-chats", s.chatHandler.MyChats, requireAuth)
	s.E.POST("/read-messages/:sender_mobile", s.chatHandler.MarkRead, requireAuth)

	s.E.POST("/upload-file", s.fileHandler.UploadFile, requireAuth)
	s.E.GET(filestore.URLPrefix+"*", echo.WrapHandler(
		http.StripPrefix(filestore.URLPrefix, http.FileServer(s.files.HTTP())),
	))

	s.E.GET("/presence", s.presenceHandler.GetPresence, requireAuth)
	s.E.GET("/ws/:client_id", s.wsHandler.Serve)
}
