package cozycurated

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klipach/cozycurated/apperror"
	"github.com/klipach/cozycurated/auth"
	"github.com/klipach/cozycurated/contract"
	"github.com/klipach/cozycurated/log"
	"github.com/klipach/cozycurated/profile"
	"github.com/klipach/cozycurated/shell"
)

const (
	homeTemplate    = "home.tmpl"
	contactTemplate = "contact.tmpl"
	profileTemplate = "profile.tmpl"
	loginTemplate   = "login.tmpl"
	errorTemplate   = "error.tmpl"

	profilePath = "/profile"
)

type page struct {
	Title       string
	Path        string
	SiteName    string
	Description string
	Nav         []shell.NavLink
	Identity    *auth.Identity
}

func newPage(c *gin.Context, title string) page {
	p := page{
		Title:       title,
		Path:        c.Request.URL.Path,
		SiteName:    shell.SiteName,
		Description: shell.Description,
		Nav:         shell.Nav(),
	}
	if identity, ok := auth.FromGin(c); ok {
		p.Identity = &identity
	}
	return p
}

type homeView struct {
	page
	Carousel shell.Carousel
}

type contactView struct {
	page
	Form        contract.ContactRequest
	Sent        bool
	Error       string
	BannerDelay time.Duration
}

type profileView struct {
	page
	State       profile.State
	Editing     bool
	Saving      bool
	BannerDelay time.Duration
}

type loginView struct {
	page
	SignUp        bool
	Email         string
	Error         string
	GoogleEnabled bool
}

type errorView struct {
	page
	Message string
}

func (s *Server) home(c *gin.Context) {
	index, _ := strconv.Atoi(c.Query("quote"))
	c.HTML(http.StatusOK, homeTemplate, homeView{
		page:     newPage(c, "Home"),
		Carousel: shell.NewCarousel(index),
	})
}

func (s *Server) contactPage(c *gin.Context) {
	c.HTML(http.StatusOK, contactTemplate, contactView{
		page:        newPage(c, "Contact"),
		Sent:        c.Query("sent") == "1",
		BannerDelay: shell.ContactBannerDelay,
	})
}

func (s *Server) contactForm(c *gin.Context) {
	logger := log.LoggerFromContext(c.Request.Context())

	var req contract.ContactRequest
	if err := c.ShouldBind(&req); err != nil {
		logger.Warn("error while decoding contact form", slog.String(log.ErrorMsgLogField, err.Error()))
		s.renderContactError(c, http.StatusBadRequest, req, shell.ErrorBanner)
		return
	}

	if _, err := s.contact.Submit(c.Request.Context(), req); err != nil {
		status := apperror.HTTPStatus(err)
		message := shell.ErrorBanner
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && status == http.StatusBadRequest {
			message = appErr.Message
		}
		s.renderContactError(c, status, req, message)
		return
	}
	c.Redirect(http.StatusSeeOther, "/contact?sent=1")
}

func (s *Server) renderContactError(c *gin.Context, status int, form contract.ContactRequest, message string) {
	c.HTML(status, contactTemplate, contactView{
		page:        newPage(c, "Contact"),
		Form:        form,
		Error:       message,
		BannerDelay: shell.ContactBannerDelay,
	})
}

func (s *Server) renderError(c *gin.Context, status int) {
	c.HTML(status, errorTemplate, errorView{
		page:    newPage(c, http.StatusText(status)),
		Message: shell.ErrorBanner,
	})
}

func (s *Server) renderLogin(c *gin.Context, status int, view loginView) {
	view.page = newPage(c, "Profile")
	view.GoogleEnabled = s.google != nil
	c.HTML(status, loginTemplate, view)
}

func (s *Server) renderProfile(c *gin.Context, status int, state profile.State) {
	c.HTML(status, profileTemplate, profileView{
		page:        newPage(c, "Your Profile"),
		State:       state,
		Editing:     state.Mode == profile.ModeEditing || state.Mode == profile.ModeSaving,
		Saving:      state.Mode == profile.ModeSaving,
		BannerDelay: shell.ProfileBannerDelay,
	})
}

// pageController resolves the signed-in user's profile session for form
// routes. Anonymous visitors are sent back to the sign-in page.
func (s *Server) pageController(c *gin.Context) (*profile.Controller, bool) {
	identity, ok := auth.FromGin(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, profilePath)
		return nil, false
	}
	ctrl, err := s.sessions.Get(c.Request.Context(), identity)
	if err != nil {
		log.LoggerFromContext(c.Request.Context()).Error("error while opening profile", slog.String(log.ErrorMsgLogField, err.Error()))
		s.renderError(c, apperror.HTTPStatus(err))
		return nil, false
	}
	return ctrl, true
}

func (s *Server) profilePage(c *gin.Context) {
	if _, ok := auth.FromGin(c); !ok {
		s.renderLogin(c, http.StatusOK, loginView{SignUp: c.Query("mode") == "signup"})
		return
	}
	ctrl, ok := s.pageController(c)
	if !ok {
		return
	}
	s.renderProfile(c, http.StatusOK, ctrl.State())
}

func (s *Server) profileSave(c *gin.Context) {
	ctrl, ok := s.pageController(c)
	if !ok {
		return
	}

	var fields contract.ProfileRequest
	if err := c.ShouldBind(&fields); err != nil {
		log.LoggerFromContext(c.Request.Context()).Warn("error while decoding profile form", slog.String(log.ErrorMsgLogField, err.Error()))
		s.renderProfile(c, http.StatusBadRequest, ctrl.State())
		return
	}

	if err := ctrl.Submit(c.Request.Context(), fields); err != nil {
		state := ctrl.State()
		if state.Mode == profile.ModeEditing {
			// keep what the user typed
			state.Fields = fields
		}
		s.renderProfile(c, apperror.HTTPStatus(err), state)
		return
	}
	c.Redirect(http.StatusSeeOther, profilePath)
}

func (s *Server) profileEdit(c *gin.Context) {
	ctrl, ok := s.pageController(c)
	if !ok {
		return
	}
	if err := ctrl.Edit(); err != nil {
		log.LoggerFromContext(c.Request.Context()).Warn("error while entering edit mode", slog.String(log.ErrorMsgLogField, err.Error()))
	}
	c.Redirect(http.StatusSeeOther, profilePath)
}

func (s *Server) profileCancel(c *gin.Context) {
	ctrl, ok := s.pageController(c)
	if !ok {
		return
	}
	if err := ctrl.Cancel(); err != nil {
		log.LoggerFromContext(c.Request.Context()).Warn("error while cancelling edit", slog.String(log.ErrorMsgLogField, err.Error()))
	}
	c.Redirect(http.StatusSeeOther, profilePath)
}

// profileEvents streams profile state changes as server-sent events.
func (s *Server) profileEvents(c *gin.Context) {
	ctx := c.Request.Context()
	logger := log.LoggerFromContext(ctx)
	identity, _ := auth.FromGin(c)

	ctrl, err := s.sessions.Get(ctx, identity)
	if err != nil {
		logger.Error("error while opening profile", slog.String(log.ErrorMsgLogField, err.Error()))
		c.JSON(apperror.HTTPStatus(err), contract.ErrorResponse{Error: http.StatusText(apperror.HTTPStatus(err))})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		logger.Error("streaming unsupported!")
		c.String(http.StatusInternalServerError, "Streaming unsupported!")
		return
	}

	states, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	// set SSE headers for streaming
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for {
		select {
		case state, ok := <-states:
			if !ok {
				return
			}
			jsonData, err := json.Marshal(state.Response())
			if err != nil {
				logger.Error("error while encoding profile state", slog.String(log.ErrorMsgLogField, err.Error()))
				return
			}
			if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", jsonData); err != nil {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
