package cozycurated

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klipach/cozycurated/auth"
	"github.com/klipach/cozycurated/contract"
	"github.com/klipach/cozycurated/log"
	"github.com/klipach/cozycurated/shell"
	"github.com/rs/xid"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 10 * 60
	googleAuthPath   = "/auth/google"

	googleNotConfiguredMessage = "Google sign-in is not configured."
	invalidCredentialsMessage  = "Please enter your email and password."
)

type signInFunc func(ctx context.Context, email, password string) (*auth.SignInResponse, error)

func (s *Server) signInWithPassword(c *gin.Context) {
	s.passwordFlow(c, false, s.signIn.SignInWithPassword)
}

func (s *Server) signUp(c *gin.Context) {
	s.passwordFlow(c, true, s.signIn.SignUp)
}

func (s *Server) passwordFlow(c *gin.Context, signUp bool, signIn signInFunc) {
	ctx := c.Request.Context()
	logger := log.LoggerFromContext(ctx)

	var req contract.SignInRequest
	if err := c.ShouldBind(&req); err != nil {
		s.renderLogin(c, http.StatusBadRequest, loginView{SignUp: signUp, Email: req.Email, Error: invalidCredentialsMessage})
		return
	}

	resp, err := signIn(ctx, req.Email, req.Password)
	if err != nil {
		logger.Warn("error while signing in", slog.String(log.ErrorMsgLogField, err.Error()), slog.Bool("signUp", signUp))
		s.renderLogin(c, http.StatusUnauthorized, loginView{SignUp: signUp, Email: req.Email, Error: auth.FriendlyMessage(err)})
		return
	}

	if err := s.startSession(c, resp.IDToken); err != nil {
		logger.Error("error while creating session cookie", slog.String(log.ErrorMsgLogField, err.Error()))
		s.renderLogin(c, http.StatusInternalServerError, loginView{SignUp: signUp, Email: req.Email, Error: auth.FriendlyMessage(err)})
		return
	}
	logger.Info("user signed in", slog.String(log.UserIDLogField, resp.LocalID))
	c.Redirect(http.StatusSeeOther, profilePath)
}

// startSession exchanges a fresh ID token for a Firebase session cookie.
func (s *Server) startSession(c *gin.Context, idToken string) error {
	cookie, err := s.verifier.SessionCookie(c.Request.Context(), idToken, s.cfg.SessionTTL)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, cookie, int(s.cfg.SessionTTL.Seconds()), "/", "", s.cfg.CookieSecure, true)
	return nil
}

func (s *Server) signOut(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, "", -1, "/", "", s.cfg.CookieSecure, true)
	c.Redirect(http.StatusSeeOther, profilePath)
}

func (s *Server) googleLogin(c *gin.Context) {
	if s.google == nil {
		s.renderLogin(c, http.StatusNotFound, loginView{Error: googleNotConfiguredMessage})
		return
	}
	state := xid.New().String()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, googleAuthPath, "", s.cfg.CookieSecure, true)
	c.Redirect(http.StatusFound, s.google.AuthURL(state))
}

func (s *Server) googleCallback(c *gin.Context) {
	ctx := c.Request.Context()
	logger := log.LoggerFromContext(ctx)

	if s.google == nil {
		s.renderLogin(c, http.StatusNotFound, loginView{Error: googleNotConfiguredMessage})
		return
	}

	expected, err := c.Cookie(oauthStateCookie)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, "", -1, googleAuthPath, "", s.cfg.CookieSecure, true)
	if err != nil || expected == "" || c.Query("state") != expected {
		logger.Warn("invalid oauth state")
		s.renderLogin(c, http.StatusBadRequest, loginView{Error: shell.ErrorBanner})
		return
	}
	if oauthErr := c.Query("error"); oauthErr != "" {
		logger.Warn("google sign-in was not completed", slog.String(log.ErrorMsgLogField, oauthErr))
		s.renderLogin(c, http.StatusUnauthorized, loginView{Error: shell.ErrorBanner})
		return
	}

	googleIDToken, err := s.google.Exchange(ctx, c.Query("code"))
	if err != nil {
		logger.Error("error while exchanging oauth code", slog.String(log.ErrorMsgLogField, err.Error()))
		s.renderLogin(c, http.StatusBadGateway, loginView{Error: shell.ErrorBanner})
		return
	}

	resp, err := s.signIn.SignInWithGoogle(ctx, googleIDToken, s.google.RedirectURL())
	if err != nil {
		logger.Warn("error while signing in with google", slog.String(log.ErrorMsgLogField, err.Error()))
		s.renderLogin(c, http.StatusUnauthorized, loginView{Error: auth.FriendlyMessage(err)})
		return
	}

	if err := s.startSession(c, resp.IDToken); err != nil {
		logger.Error("error while creating session cookie", slog.String(log.ErrorMsgLogField, err.Error()))
		s.renderLogin(c, http.StatusInternalServerError, loginView{Error: auth.FriendlyMessage(err)})
		return
	}
	logger.Info("user signed in with google", slog.String(log.UserIDLogField, resp.LocalID))
	c.Redirect(http.StatusSeeOther, profilePath)
}
