package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"

	"labelmail/auth"
	"labelmail/backend"
	"labelmail/cleaner"
	"labelmail/config"
	"labelmail/handlers/api"
	"labelmail/handlers/web"
	"labelmail/labels"
	"labelmail/mailbox"
	"labelmail/metrics"
	"labelmail/middleware"
	"labelmail/sanitize"
	"labelmail/session"
	"labelmail/storage"
	"labelmail/utils"
)

const (
	sessionGCInterval = 10 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		debugMode  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the labelmail web server.

Configuration is read from a TOML file. A missing file is not an error:
every setting has a default except the session encryption key, which can
also be given through LABELMAIL_ENCRYPTION_KEY.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if debugMode {
				cfg.Log.Level = "debug"
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.toml", "Path to the configuration file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides the configuration)")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	return cmd
}

// loadConfig reads path, falling back to the defaults when it does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		utils.Log.Warn("Config file %s not found, using defaults", path)
		cfg = config.Default()
		err = cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if key := os.Getenv("LABELMAIL_ENCRYPTION_KEY"); key != "" {
		cfg.Encryption.Key = key
	}
	return cfg, nil
}

func runServe(cfg *config.Config) error {
	srv, err := newServer(cfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	errCh := make(chan error, 1)
	go func() {
		addr := cfg.Addr()
		if cfg.SSL.Enabled {
			utils.Log.Info("Starting HTTPS server on %s", addr)
			errCh <- srv.app.ListenTLS(addr, cfg.SSL.CertFile, cfg.SSL.KeyFile)
			return
		}
		utils.Log.Info("Starting server on %s", addr)
		errCh <- srv.app.Listen(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		utils.Log.Info("Received %s, shutting down", sig)
	}

	if err := srv.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// server is the assembled application and what must be released with it.
type server struct {
	app     *fiber.App
	metrics *metrics.Metrics
	closers []func()
}

func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newServer wires every component from cfg.
func newServer(cfg *config.Config) (*server, error) {
	utils.Log.SetLevel(utils.ParseLevel(cfg.Log.Level))
	utils.Log.SetFormat(cfg.Log.Format)
	srv := &server{}

	if err := utils.InitI18n(cfg.Server.LocalesDir); err != nil {
		return nil, fmt.Errorf("failed to initialize i18n: %w", err)
	}

	db, err := storage.InitDB(cfg.Session.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sessionStorage := storage.NewSessionStore(db, sessionGCInterval)
	srv.closers = append(srv.closers, func() { closeDB(db) })
	srv.closers = append(srv.closers, func() { _ = sessionStorage.Close() })

	store := fibersession.New(fibersession.Config{
		Storage:        sessionStorage,
		Expiration:     cfg.Session.Expiration.Duration,
		CookieSecure:   cfg.Server.SecureCookies,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	})

	sessions, err := session.NewManager(store, cfg.Encryption.Key, cfg.Session.Expiration.Duration)
	if err != nil {
		srv.Close()
		return nil, err
	}

	m := metrics.New()
	srv.metrics = m
	sessions.OnChange(m.SessionIssued, m.SessionCleared)

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout.Duration, backend.WithObserver(m))

	clean := cleaner.New(cleaner.Options{
		SignatureThreshold: cfg.Cleaner.SignatureThreshold,
		WordBoundaryRatio:  cfg.Cleaner.WordBoundaryRatio,
	})
	sanitizer := sanitize.New(sanitize.Options{
		ImageStyles: cfg.Sanitizer.ImageStyles,
		TextStyles:  cfg.Sanitizer.TextStyles,
	})

	conv := mailbox.NewConverter(clean, sanitizer, cfg.Mail.SeenFlag, cfg.Mail.PreviewLength)
	mail := mailbox.NewService(client, conv, mailbox.ServiceOptions{
		Pager:             mailbox.NewPager(cfg.Mail.PageSize, cfg.Mail.MaxPages),
		CacheTTL:          cfg.Mail.CacheTTL.Duration,
		ThreadSearchLimit: cfg.Mail.ThreadSearchLimit,
		DefaultFolder:     cfg.Mail.DefaultFolder,
	})
	srv.closers = append(srv.closers, mail.Close)

	labelService := labels.NewService(client, mail, clean, cfg.Mail.AutoLabelWorkers)
	labelService.OnAutoLabel(m.ObserveAutoLabel)

	google := auth.NewGoogleProvider(cfg.Google, cfg.Server.PublicURL)
	if !google.Configured() {
		utils.Log.Warn("Google OAuth client is not configured; only token sign-in is available")
	}

	app := fiber.New(fiber.Config{
		AppName:      "labelmail",
		Views:        newViews(cfg.Server.TemplatesDir, cfg.Log.Level == "debug"),
		ViewsLayout:  "layouts/main",
		ErrorHandler: errorHandler,
	})
	srv.app = app

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:;",
	}))
	if headers := cfg.GetSecurityHeaders(); len(headers) > 0 {
		app.Use(func(c *fiber.Ctx) error {
			for k, v := range headers {
				c.Set(k, v)
			}
			return c.Next()
		})
	}
	if cfg.Metrics.Enabled {
		app.Use(m.Middleware())
	}
	app.Use(middleware.LocaleMiddleware())

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, time.Minute)
	srv.closers = append(srv.closers, limiter.Stop)
	app.Use(limiter.Handler())

	csrf := middleware.DefaultCSRFConfig()
	csrf.Secure = cfg.Server.SecureCookies
	app.Use(middleware.CSRFProtection(csrf))

	base := &api.Base{Sessions: sessions, Accounts: client}
	authHandler := web.NewAuthHandler(base, google, client)
	dashboardHandler := web.NewDashboardHandler(base, mail, client)
	folderHandler := api.NewFolderHandler(base, mail)
	emailHandler := api.NewEmailHandler(base, mail, client)
	labelHandler := api.NewLabelHandler(base, labelService)
	previewHandler := api.NewPreviewHandler(clean, sanitizer)
	i18nHandler := &api.I18nHandler{}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	if cfg.Metrics.Enabled {
		app.Get(cfg.Metrics.Path, m.Handler())
	}
	app.Get("/api/i18n/:lang", i18nHandler.GetTranslations)

	// Public routes
	app.Get("/", authHandler.Index)
	guest := app.Group("/auth", middleware.RequireGuest(sessions))
	guest.Get("", authHandler.ShowLogin)
	guest.Get("/google", authHandler.Start)
	guest.Get("/callback", authHandler.Callback)
	guest.Post("/token", authHandler.TokenLogin)
	app.Get("/logout", authHandler.Logout)
	app.Post("/logout", authHandler.Logout)

	// Protected routes
	requireAuth := middleware.RequireAuth(sessions)

	dashboard := app.Group("/dashboard", requireAuth)
	dashboard.Get("", dashboardHandler.Inbox)
	dashboard.Get("/folder/:name", dashboardHandler.Label)
	dashboard.Get("/email/:uid", dashboardHandler.Email)
	dashboard.Get("/:kind", dashboardHandler.System)

	apiRoutes := app.Group("/api", requireAuth)
	apiRoutes.Get("/folders", folderHandler.List)
	apiRoutes.Get("/emails", emailHandler.List)
	apiRoutes.Get("/emails/:uid/thread", emailHandler.Thread)
	apiRoutes.Delete("/emails/:uid", emailHandler.Delete)
	apiRoutes.Post("/emails/:uid/labels/:label", labelHandler.Add)
	apiRoutes.Delete("/emails/:uid/labels/:label", labelHandler.Remove)
	apiRoutes.Post("/emails/:uid/suggest-label", labelHandler.Suggest)
	apiRoutes.Post("/labels", labelHandler.Create)
	apiRoutes.Post("/auto-label", labelHandler.AutoLabel)
	apiRoutes.Post("/preview", previewHandler.Preview)

	// 404 Handler for undefined routes
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, translate(c.Locals("lang"), "error_404"))
	})

	return srv, nil
}

func closeDB(db *bbolt.DB) {
	if err := db.Close(); err != nil {
		utils.Log.Error("Failed to close database: %v", err)
	}
}

// errorHandler answers API and HTMX requests with JSON and everything else
// with the error page. A refused session sends the browser to sign-in.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var fe *fiber.Error
	if appErr, ok := utils.AsAppError(err); ok {
		code = appErr.Code
		message = appErr.Message
		log := utils.Log.WithFields(appErr.Fields()).WithField("path", c.Path())
		if appErr.ServerSide() {
			log.Error("Application error: %s", appErr.Message)
		} else {
			log.Debug("Request rejected: %s", appErr.Message)
		}
	} else if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		utils.Log.Error("Unhandled error on %s: %v", c.Path(), err)
		message = translate(c.Locals("lang"), "error_500")
	}

	if code == fiber.StatusUnauthorized {
		if middleware.IsHTMX(c) {
			c.Set("HX-Redirect", "/auth")
		} else if !middleware.IsAPIRequest(c) {
			return c.Redirect("/auth")
		}
	}

	if middleware.IsAPIRequest(c) {
		return c.Status(code).JSON(fiber.Map{
			"error": message,
		})
	}

	c.Status(code)
	if renderErr := c.Render("error", fiber.Map{
		"Title":     message,
		"Error":     message,
		"Code":      code,
		"Lang":      c.Locals("lang"),
		"CSRFToken": middleware.CSRFToken(c),
	}); renderErr != nil {
		utils.Log.Error("Failed to render error page: %v", renderErr)
		return c.SendString(message)
	}
	return nil
}
