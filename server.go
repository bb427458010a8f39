package cozycurated

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/klipach/cozycurated/auth"
	"github.com/klipach/cozycurated/config"
	"github.com/klipach/cozycurated/contact"
	"github.com/klipach/cozycurated/log"
	"github.com/klipach/cozycurated/newsletter"
	"github.com/klipach/cozycurated/profile"
	"github.com/klipach/cozycurated/shell"
	"github.com/klipach/cozycurated/store"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

const (
	templatesGlob = "templates/*.tmpl"
	staticDir     = "static"
	logID         = "cozycurated"

	envLogField     = "env"
	backendLogField = "backend"
)

type passwordSignIn interface {
	SignInWithPassword(ctx context.Context, email, password string) (*auth.SignInResponse, error)
	SignUp(ctx context.Context, email, password string) (*auth.SignInResponse, error)
	SignInWithGoogle(ctx context.Context, googleIDToken, requestURI string) (*auth.SignInResponse, error)
}

type oauthProvider interface {
	AuthURL(state string) string
	RedirectURL() string
	Exchange(ctx context.Context, code string) (string, error)
}

type subscriber interface {
	Subscribe(ctx context.Context, email string) (*newsletter.Result, error)
}

// Server wires the site's services into a gin engine.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	verifier   auth.TokenVerifier
	signIn     passwordSignIn
	google     oauthProvider
	sessions   *profile.Sessions
	contact    *contact.Service
	newsletter subscriber
	limiter    *rate.Limiter
	closers    []func() error
}

// NewServer connects to Firebase and the configured store backend.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.ResolveProjectID(ctx); err != nil {
		return nil, err
	}

	logger, closeLogger, err := newLogger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		closers: []func() error{closeLogger},
	}
	ctx = log.WithLogger(ctx, logger)

	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:   cfg.Firebase.ProjectID,
		DatabaseURL: cfg.Firebase.DatabaseURL,
	}, opts...)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("error getting auth client: %w", err)
	}
	s.verifier = authClient

	st, err := openStore(ctx, app, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, st.Close)

	outbound := newOutboundClient()
	s.signIn = auth.NewIdentityClient(cfg.Firebase.APIKey).WithHTTPClient(outbound)
	if cfg.GoogleConfigured() {
		s.google = auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	}
	s.newsletter = newsletter.NewClient(cfg.Mailchimp.APIKey, cfg.Mailchimp.AudienceID, cfg.Mailchimp.ServerPrefix).
		WithHTTPClient(outbound)

	var notifier contact.Notifier
	if cfg.SendGridConfigured() {
		notifier = contact.NewSendGridNotifier(cfg.SendGrid.APIKey, cfg.SendGrid.From, cfg.SendGrid.To)
	}
	s.contact = contact.NewService(st, notifier)

	s.sessions = profile.NewSessions(ctx, st, profile.Options{SuccessDelay: shell.ProfileBannerDelay}, cfg.SessionIdleTTL)
	s.closers = append(s.closers, s.sessions.Close)

	logger.Info("server configured",
		slog.String(envLogField, cfg.Env),
		slog.String(backendLogField, cfg.Store.Backend),
		slog.Bool("newsletter", cfg.MailchimpConfigured()),
		slog.Bool("googleSignIn", cfg.GoogleConfigured()),
		slog.Bool("contactNotify", cfg.SendGridConfigured()),
	)
	return s, nil
}

func newLogger(ctx context.Context, cfg *config.Config) (*slog.Logger, func() error, error) {
	level := log.ParseLevel(cfg.LogLevel)
	if cfg.LogSink == config.SinkCloud {
		h, closeFn, err := log.NewClientHandler(ctx, cfg.Firebase.ProjectID, logID, level)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating cloud logging client: %w", err)
		}
		return slog.New(h), closeFn, nil
	}
	return slog.New(log.NewCloudLoggingHandlerWithWriter(os.Stdout, level)), func() error { return nil }, nil
}

func openStore(ctx context.Context, app *firebase.App, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendRealtime:
		client, err := app.Database(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting database client: %w", err)
		}
		return store.NewRealtime(client, cfg.Store.PollInterval), nil
	case config.BackendFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting firestore client: %w", err)
		}
		return store.NewFirestore(client), nil
	case config.BackendPostgres:
		return store.OpenPostgres(ctx, cfg.Store.PostgresDSN)
	case config.BackendMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Handler builds the gin engine serving every route.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(
		log.Middleware(s.logger, s.cfg.Firebase.ProjectID),
		gin.Recovery(),
		auth.Middleware(s.verifier),
	)
	r.SetFuncMap(shell.FuncMap())
	r.LoadHTMLGlob(templatesGlob)
	r.Static("/static", staticDir)

	limited := rateLimit(s.limiter)

	r.GET("/", s.home)
	r.GET("/health", s.health)
	r.GET("/contact", s.contactPage)
	r.POST("/contact", limited, s.contactForm)

	r.GET("/profile", s.profilePage)
	r.POST("/profile", s.profileSave)
	r.POST("/profile/edit", s.profileEdit)
	r.POST("/profile/cancel", s.profileCancel)
	r.GET("/profile/events", auth.RequireIdentity(), s.profileEvents)

	api := r.Group("/api")
	api.POST("/newsletter", limited, s.apiNewsletter)
	api.POST("/contact", limited, s.apiContact)
	api.GET("/profile", auth.RequireIdentity(), s.apiProfile)
	api.PUT("/profile", auth.RequireIdentity(), s.apiProfileUpdate)

	authGroup := r.Group("/auth")
	authGroup.POST("/signin", limited, s.signInWithPassword)
	authGroup.POST("/signup", limited, s.signUp)
	authGroup.POST("/signout", s.signOut)
	authGroup.GET("/google/login", s.googleLogin)
	authGroup.GET("/google/callback", s.googleCallback)

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Close releases the store, the profile sessions and the log client.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
