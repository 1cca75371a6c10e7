package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/amruno/internal/chat"
	"github.com/nfrund/amruno/internal/middleware"
)

// ChatHandler serves conversation history and chat lists.
type ChatHandler struct {
	chats *chat.Service
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chats *chat.Service) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// History returns the messages between the caller and a partner, newest
// first (GET /chat/:recipient_mobile).
func (h *ChatHandler) History(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	msgs, err := h.chats.History(c.Request().Context(), user.MobileNumber, c.Param("recipient_mobile"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msgs)
}

// MyChats lists the caller's conversations (GET /my-chats).
func (h *ChatHandler) MyChats(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	chats, err := h.chats.Chats(c.Request().Context(), user.MobileNumber)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chats)
}

// MarkRead marks the messages a sender sent to the caller as read
// (POST /read-messages/:sender_mobile).
func (h *ChatHandler) MarkRead(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	sender := c.Param("sender_mobile")
	n, err := h.chats.MarkRead(c.Request().Context(), user.MobileNumber, sender)
	if err != nil {
		return err
	}
	middleware.FromContext(c.Request().Context()).Debug("Marked messages read", "sender", sender, "count", n)
	return c.JSON(http.StatusOK, MessageResponse{Message: fmt.Sprintf("All messages from %s marked as read", sender)})
}
