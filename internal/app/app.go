package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"contactsift/internal/config"
	apierrors "contactsift/internal/errors"
	"contactsift/internal/exporter"
	"contactsift/internal/gender"
	"contactsift/internal/infrastructure"
	"contactsift/internal/keywords"
	customMiddleware "contactsift/internal/middleware"
	"contactsift/internal/operations"
	"contactsift/internal/services"
	handlers "contactsift/internal/transport/http"
	"contactsift/internal/validation"
)

// multipartOverhead is allowed on top of the upload limit for form fields
// and part headers
const multipartOverhead = 1 << 20

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	Router        *chi.Mux
	Server        *http.Server
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.PipelineMetrics

	Keywords *keywords.Expander
	Store    *services.ArtifactStore
	Sift     *services.SiftService
	Health   *services.HealthService

	errorHandler *apierrors.ErrorHandler
	validator    *customMiddleware.ValidationMiddleware
	files        *validation.FileValidator
}

// NewApplication loads configuration and the logger, then builds the
// application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires every component from cfg. It does not start listening.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Otel), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
	}

	if err := a.initializeServices(); err != nil {
		_ = providers.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()
	return a, nil
}

// initializeServices builds the pipeline and the services in dependency order
func (a *Application) initializeServices() error {
	a.files = validation.NewFileValidator(a.Config.Export.MaxUploadBytes, a.Logger)
	if err := a.checkDataFiles(); err != nil {
		return err
	}

	lookup, err := a.loadNameTable()
	if err != nil {
		return err
	}

	tracer, err := operations.NewOperationTracer(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to initialize operation tracer: %w", err)
	}
	a.Metrics = tracer.Metrics()

	a.Keywords = keywords.NewExpander(keywords.FileProvider{
		KeywordsFile:     a.Config.Filter.KeywordsFile,
		TranslationsFile: a.Config.Filter.TranslationsFile,
	}, a.Logger)

	a.Store = services.NewArtifactStore(a.Config.Export.ArtifactTTL, a.Logger)

	a.Sift = services.NewSiftService(a.Config, services.SiftServiceDeps{
		Keywords:  a.Keywords,
		Lookup:    lookup,
		Manager:   operations.NewManager(tracer, a.Logger),
		Assembler: exporter.NewAssembler(a.Config.Export, a.Logger),
		Store:     a.Store,
		Metrics:   a.Metrics,
	}, a.Logger)

	a.Health = services.NewHealthService(config.AppVersion, a.Keywords, a.Store, a.Logger)

	a.errorHandler = apierrors.NewErrorHandler(a.Logger, false)
	a.validator = customMiddleware.NewValidationMiddleware(a.Logger, a.errorHandler)

	// A broken keyword file is reported per request, not at startup
	if snap, err := a.Keywords.Snapshot(context.Background()); err != nil {
		a.Logger.Warn("keyword configuration could not be loaded", slog.String("error", err.Error()))
	} else {
		a.Logger.Info("keyword configuration loaded",
			slog.Int("keywords", snap.Keywords.Len()),
			slog.Bool("configured", snap.Configured()))
	}
	return nil
}

// checkDataFiles validates the configured data files. Keyword files are
// optional; an explicitly configured name table is not.
func (a *Application) checkDataFiles() error {
	for _, path := range []string{a.Config.Filter.KeywordsFile, a.Config.Filter.TranslationsFile} {
		if err := a.files.ValidateFile(path, true); err != nil {
			return apierrors.NewConfigError("invalid keyword data file", err).WithContext("path", path)
		}
	}
	if err := a.files.ValidateFile(a.Config.Filter.NamesFile, false); err != nil {
		return apierrors.NewConfigError("invalid name table", err).WithContext("path", a.Config.Filter.NamesFile)
	}
	return nil
}

func (a *Application) loadNameTable() (gender.Lookup, error) {
	if a.Config.Filter.NamesFile == "" {
		return gender.DefaultTable(), nil
	}
	table, err := gender.LoadTableFile(a.Config.Filter.NamesFile)
	if err != nil {
		return nil, err
	}
	a.Logger.Info("name table loaded", slog.String("path", a.Config.Filter.NamesFile))
	return table, nil
}

// setupRouter configures the HTTP router with all routes.
// Order: RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit.
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.errorHandler))
	r.Use(customMiddleware.DefaultSecureHeaders().Handler)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.corsConfig()))
	}

	if rl := a.Config.Security.RateLimit; rl.Enabled {
		r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
	}

	r.Handle(config.MetricsEndpoint, handlers.NewMetricsHandler(a.OTelProviders))

	healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get(config.HealthEndpoint, healthHandler.HealthCheck)
		r.Get(config.HealthEndpoint+"/live", healthHandler.LivenessCheck)
		r.Get("/api/version", healthHandler.Version)
	})

	sift, err := handlers.NewSiftHandler(a.Config, a.Sift, a.validator, a.files, a.errorHandler, a.Logger)
	if err != nil {
		// The template is embedded, so this only fails on a broken build
		panic(fmt.Sprintf("failed to parse page template: %v", err))
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.OperationTimeout, a.Logger))
		r.Use(customMiddleware.MaxBodySize(a.Config.Export.MaxUploadBytes + multipartOverhead))

		sift.PageRoutes(r)
		r.Mount(config.APIBasePath, sift.APIRoutes())
	})

	a.Router = r
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			customMiddleware.RequestIDHeader,
			"Content-Disposition",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Serve accepts connections on l until ctx is done, then shuts down
// gracefully
func (a *Application) Serve(ctx context.Context, l net.Listener) error {
	a.Logger.InfoContext(ctx, "server listening",
		slog.String("address", l.Addr().String()),
		slog.String("level", a.Config.Logging.Level))

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Serve(l)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			_ = a.Stop(context.Background())
			return err
		}
		return nil
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "shutdown requested")
	}

	return a.Stop(context.Background())
}

// Stop shuts the server down and releases background resources
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.Store.Close()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}

// Run listens on the configured port until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	start := time.Now()
	err = a.Serve(ctx, l)
	a.Logger.Info("server stopped", slog.Duration("uptime", time.Since(start)))
	if cerr := infrastructure.CloseLogFile(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
