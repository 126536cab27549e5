package main

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/assistant"
	"github.com/clinicdesk/clinicdesk/internal/config"
	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/domain/report"
	"github.com/clinicdesk/clinicdesk/internal/domain/scheduling"
	"github.com/clinicdesk/clinicdesk/internal/intake"
	"github.com/clinicdesk/clinicdesk/internal/platform/analytics"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
	"github.com/clinicdesk/clinicdesk/internal/platform/metrics"
	"github.com/clinicdesk/clinicdesk/internal/platform/middleware"
	"github.com/clinicdesk/clinicdesk/internal/reportbuilder"
	"github.com/clinicdesk/clinicdesk/internal/wizard"
)

// deps are the external resources the HTTP server is built from. redis may be nil,
// in which case patient summaries are not cached.
type deps struct {
	cfg      *config.Config
	logger   zerolog.Logger
	pool     db.Pool
	pinger   db.Pinger
	redis    *redis.Client
	registry *prometheus.Registry
}

type server struct {
	echo    *echo.Echo
	intake  *wizard.Registry[intake.Payload]
	reports *wizard.Registry[reportbuilder.Payload]
}

func newServer(d deps) (*server, error) {
	cfg, logger := d.cfg, d.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	httpMetrics := metrics.NewHTTPMetrics(d.registry)
	wizardMetrics := metrics.NewWizardMetrics(d.registry)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(httpMetrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		SigningKey: []byte(cfg.AuthSigningKey),
		Skipper:    auth.AuthSkipper,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/ready", db.HealthHandler(d.pinger))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})))

	api := e.Group("/api/v1", middleware.RequestTimeout(cfg.RequestTimeout))

	patientSvc := patient.NewService(patient.NewRepo(d.pool), d.pool)
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	reportSvc := report.NewService(report.NewRepo(d.pool))
	report.NewHandler(reportSvc).RegisterRoutes(api)

	schedulingSvc := scheduling.NewService(scheduling.NewAppointmentRepo(d.pool), scheduling.NewVisitRepo(d.pool), patientSvc, d.pool)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)

	analytics.NewHandler(analytics.NewEngine(d.pool)).RegisterRoutes(api)

	var summarizer assistant.Summarizer = assistant.NewPatientSummarizer(patientSvc)
	if d.redis != nil {
		cached := assistant.NewCachedSummarizer(summarizer, d.redis, cfg.SummaryCacheTTL, logger)
		patientSvc.OnChange(func(ctx context.Context, id uuid.UUID) {
			if err := cached.Invalidate(ctx, id); err != nil {
				logger.Warn().Err(err).Str("patient_id", id.String()).Msg("summary cache invalidation failed")
			}
		})
		summarizer = cached
	}
	assistant.NewHandler(assistant.NewKeywordResponder(), summarizer).RegisterRoutes(api,
		middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.AssistantRPS,
			BurstSize:         cfg.AssistantBurst,
		}))

	// Wizards
	wizards := api.Group("/wizards")

	intakeSessions, err := wizard.NewRegistry(
		intake.Definition(patientSvc, logCompletion[intake.Payload](logger, "patient")),
		cfg.WizardTTL, logger, wizard.WithObserver(wizardMetrics))
	if err != nil {
		return nil, err
	}
	wizard.NewHandler(intakeSessions, intake.Decode, cfg.CommitTimeout, logger).
		RegisterRoutes(wizards.Group("/intake", auth.RequireRole("physician", "nurse", "receptionist")))
	wizardMetrics.TrackOpenSessions(intake.Name, intakeSessions.Len)

	reportSessions, err := wizard.NewRegistry(
		reportbuilder.Definition(reportSvc, logCompletion[reportbuilder.Payload](logger, "report")),
		cfg.WizardTTL, logger, wizard.WithObserver(wizardMetrics))
	if err != nil {
		return nil, err
	}
	reportGroup := wizards.Group("/report", auth.RequireRole("physician"))
	wizard.NewHandler(reportSessions, reportbuilder.Decode, cfg.CommitTimeout, logger).RegisterRoutes(reportGroup)
	reportbuilder.NewHandler(reportSessions).RegisterRoutes(reportGroup)
	wizardMetrics.TrackOpenSessions(reportbuilder.Name, reportSessions.Len)

	return &server{echo: e, intake: intakeSessions, reports: reportSessions}, nil
}

// logCompletion returns the completion hook that records which entity a wizard
// session produced.
func logCompletion[P any](logger zerolog.Logger, entity string) func(wizard.Completion[P]) {
	return func(c wizard.Completion[P]) {
		logger.Info().
			Str("session_id", c.SessionID).
			Str(entity+"_id", c.EntityID).
			Int("steps", len(c.Draft)).
			Msg("wizard completed")
	}
}
