package httpserver

import (
	"net/http"

	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/labstack/echo/v4"
)

const flashMessageSent = "Your message has been sent."

func (s *Server) registerMessageRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.GET("/messages", s.handleMessages, csrfMiddleware, s.requireAuth)
	s.echo.GET("/message_user/:userID", s.handleMessageUserPage, csrfMiddleware, s.requireAuth)
	s.echo.POST("/message_user/:userID", s.handleSendMessage, csrfMiddleware, s.requireAuth)
	s.echo.GET("/view_message/:id", s.handleViewMessage, csrfMiddleware, s.requireAuth)
}

func (s *Server) handleMessages(c echo.Context) error {
	ctx := c.Request().Context()
	id := identityFrom(c)

	inbox, err := s.app.Inbox(ctx, id)
	if err != nil {
		return domainError(err, "failed to load inbox")
	}
	sent, err := s.app.Sent(ctx, id)
	if err != nil {
		return domainError(err, "failed to load sent messages")
	}

	return s.renderTemplate(c, "messages.html", map[string]any{
		"Inbox": inbox,
		"Sent":  sent,
	})
}

func (s *Server) handleMessageUserPage(c echo.Context) error {
	receiverID, err := pathUUID(c, "userID", "user")
	if err != nil {
		return err
	}

	recipient, err := s.app.Recipient(c.Request().Context(), identityFrom(c), receiverID)
	if err != nil {
		return domainError(err, "failed to load recipient")
	}
	return s.renderTemplate(c, "message_user.html", map[string]any{
		"Recipient": recipient,
	})
}

func (s *Server) handleSendMessage(c echo.Context) error {
	ctx := c.Request().Context()
	id := identityFrom(c)

	receiverID, err := pathUUID(c, "userID", "user")
	if err != nil {
		return err
	}

	body := c.FormValue("body")
	_, err = s.app.SendMessage(ctx, id, receiverID, body)
	if domain.IsValidation(err) {
		recipient, rerr := s.app.Recipient(ctx, id, receiverID)
		if rerr != nil {
			return domainError(rerr, "failed to load recipient")
		}
		return s.render(c, http.StatusBadRequest, "message_user.html", map[string]any{
			"Recipient": recipient,
			"Flash":     err.Error(),
			"Body":      body,
		})
	}
	if err != nil {
		return domainError(err, "failed to send message")
	}

	s.setFlash(c, flashMessageSent)
	return redirect(c, "/messages")
}

func (s *Server) handleViewMessage(c echo.Context) error {
	messageID, err := pathUUID(c, "id", "message")
	if err != nil {
		return err
	}

	msg, err := s.app.GetMessage(c.Request().Context(), identityFrom(c), messageID)
	if err != nil {
		return domainError(err, "failed to load message")
	}
	return s.renderTemplate(c, "view_message.html", map[string]any{
		"Message": msg,
	})
}
