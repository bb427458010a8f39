package cozycurated

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klipach/cozycurated/apperror"
	"github.com/klipach/cozycurated/auth"
	"github.com/klipach/cozycurated/contract"
	"github.com/klipach/cozycurated/log"
	"github.com/klipach/cozycurated/newsletter"
	"github.com/klipach/cozycurated/profile"
	"github.com/klipach/cozycurated/shell"
)

const (
	invalidEmailMessage    = "Valid email is required"
	subscribeFailedMessage = "Failed to subscribe to newsletter"
	invalidRequestMessage  = "Invalid request body"
)

func (s *Server) apiNewsletter(c *gin.Context) {
	ctx := c.Request.Context()
	logger := log.LoggerFromContext(ctx)

	// decoded loosely so a non-string email is a 400, not a decode error
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		logger.Warn("error while decoding newsletter request", slog.String(log.ErrorMsgLogField, err.Error()))
		c.JSON(http.StatusBadRequest, contract.ErrorResponse{Error: invalidEmailMessage})
		return
	}
	email, ok := body["email"].(string)
	if !ok || email == "" {
		c.JSON(http.StatusBadRequest, contract.ErrorResponse{Error: invalidEmailMessage})
		return
	}

	res, err := s.newsletter.Subscribe(ctx, email)
	if err != nil {
		logger.Error("error while subscribing to newsletter", slog.String(log.ErrorMsgLogField, err.Error()))
		details := map[string]any{}
		var apiErr *newsletter.APIError
		if errors.As(err, &apiErr) {
			details = apiErr.Details
		}
		c.JSON(http.StatusInternalServerError, contract.NewsletterErrorResponse{
			Error:   subscribeFailedMessage,
			Details: details,
		})
		return
	}
	c.JSON(http.StatusOK, contract.NewsletterResponse{Success: true, Message: res.Message})
}

func (s *Server) apiContact(c *gin.Context) {
	ctx := c.Request.Context()
	logger := log.LoggerFromContext(ctx)

	var req contract.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("error while decoding contact request", slog.String(log.ErrorMsgLogField, err.Error()))
		c.JSON(http.StatusBadRequest, contract.ErrorResponse{Error: invalidRequestMessage})
		return
	}

	id, err := s.contact.Submit(ctx, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract.ContactResponse{Success: true, ID: id})
}

func (s *Server) apiController(c *gin.Context) (*profile.Controller, bool) {
	identity, _ := auth.FromGin(c)
	ctrl, err := s.sessions.Get(c.Request.Context(), identity)
	if err != nil {
		log.LoggerFromContext(c.Request.Context()).Error("error while opening profile", slog.String(log.ErrorMsgLogField, err.Error()))
		abortWithError(c, err)
		return nil, false
	}
	return ctrl, true
}

func (s *Server) apiProfile(c *gin.Context) {
	ctrl, ok := s.apiController(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctrl.State().Response())
}

// apiProfileUpdate saves the profile. A profile in view mode is switched to
// edit mode first so API clients need a single call.
func (s *Server) apiProfileUpdate(c *gin.Context) {
	ctrl, ok := s.apiController(c)
	if !ok {
		return
	}

	var fields contract.ProfileRequest
	if err := c.ShouldBindJSON(&fields); err != nil {
		log.LoggerFromContext(c.Request.Context()).Warn("error while decoding profile request", slog.String(log.ErrorMsgLogField, err.Error()))
		c.JSON(http.StatusBadRequest, contract.ErrorResponse{Error: invalidRequestMessage})
		return
	}

	if ctrl.State().Mode == profile.ModeViewing {
		if err := ctrl.Edit(); err != nil {
			abortWithError(c, err)
			return
		}
	}
	if err := ctrl.Submit(c.Request.Context(), fields); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.State().Response())
}

// abortWithError answers with the status for err's kind. Unclassified errors
// get the generic banner text instead of the internal message.
func abortWithError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	message := shell.ErrorBanner
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	c.AbortWithStatusJSON(status, contract.ErrorResponse{Error: message})
}
