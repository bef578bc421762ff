package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"alejo-lab-api/internal/app/services"
	"alejo-lab-api/internal/domain/antibot"
	"alejo-lab-api/internal/domain/detector"
	"alejo-lab-api/internal/domain/eventbus"
	"alejo-lab-api/internal/domain/ratelimit"
	"alejo-lab-api/internal/domain/upload"
	platformconfig "alejo-lab-api/internal/platform/config"
	platformerrors "alejo-lab-api/internal/platform/errors"
	platformlogging "alejo-lab-api/internal/platform/logging"
	platformobservability "alejo-lab-api/internal/platform/observability"
	httptransport "alejo-lab-api/internal/transport/http"
	httpdetect "alejo-lab-api/internal/transport/http/detect"
)

const shutdownTimeout = 15 * time.Second

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	loader                *platformconfig.Loader
	config                *platformconfig.Config
	configSource          string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	events                *eventbus.Bus
	limiter               *ratelimit.Limiter
	pipeline              *services.DetectionService
}

// close releases everything the init steps acquired, in reverse order.
func (s *appState) close() {
	if s.limiter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.limiter.Close(ctx); err != nil {
			s.logger.WarnTag("BOOT", "rate limit store did not close cleanly: %v", err)
		}
		cancel()
	}
	if s.events != nil {
		s.events.Stop()
	}
	if s.observabilityShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.observabilityShutdown(ctx); err != nil {
			s.logger.WarnTag("BOOT", "observability did not shut down cleanly: %v", err)
		}
		cancel()
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

// Run loads configuration, wires the pipeline and serves HTTP until ctx is
// cancelled or SIGINT/SIGTERM arrives.
func Run(ctx context.Context) error {
	state := &appState{}
	defer state.close()

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	if state.config == nil || state.logger == nil || state.pipeline == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger/pipeline not initialised",
		)
	}
	logger := state.logger

	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	return waitForShutdown(signalCtx, cancel, logger, group)
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "init graph")
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			logger.InfoTag("BOOT", "  %s: %s", step.ID, step.Title)
			continue
		}
		logger.InfoTag("BOOT", "  %s: %s (after %s)", step.ID, step.Title, strings.Join(step.DependsOn, ", "))
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load-env",
			Title:   "Load configuration from environment",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load-env"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "events:init-bus",
			Title:     "Start event bus",
			DependsOn: []string{"observability:setup-hooks"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "ratelimit:init-store",
			Title:     "Initialise rate limit store",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initRateLimitStep,
		},
		{
			ID:        "pipeline:init-services",
			Title:     "Initialise detection pipeline",
			DependsOn: []string{"events:init-bus"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initPipelineStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := state.loader
	if loader == nil {
		loader = platformconfig.NewLoader()
	}
	result, err := loader.Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load-env", "failed to load configuration", err)
	}
	state.config = result.Config
	state.configSource = result.Source
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}
	state.logger = logger

	logger.InfoTag("BOOT", "logging ready [%s] %s", state.config.Log.Level, state.configSource)
	if state.config.Detector.APIUser == "" || state.config.Detector.APISecret == "" {
		logger.WarnTag("BOOT", "detector credentials missing; /detect/ai will answer 503")
	}
	if state.config.AntiBot.SecretKey == "" {
		logger.WarnTag("BOOT", "turnstile secret missing; /detect/ai will answer 503")
	}
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state.logger == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup-hooks",
			"config/logger not initialised",
		)
	}

	cfg := platformobservability.Config{
		Enabled:   strings.EqualFold(state.config.Log.Level, "debug"),
		MeterName: state.config.Server.ServiceName,
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.New(4, 1000, state.logger)
	if err := eventbus.SetupMetricHandlers(bus, state.logger); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "events:init-bus", "failed to subscribe metric handlers", err)
	}
	bus.Start()
	state.events = bus
	return nil
}

func initRateLimitStep(_ context.Context, state *appState) error {
	rl := state.config.RateLimit
	store, err := ratelimit.NewStore(ratelimit.StoreConfig{
		Driver: rl.Store,
		Memory: &ratelimit.MemoryConfig{GCInterval: rl.GCInterval()},
		Redis: &ratelimit.RedisConfig{
			Addr:     rl.Redis.Addr,
			Username: rl.Redis.Username,
			Password: rl.Redis.Password,
			DB:       rl.Redis.DB,
			Prefix:   rl.Redis.Prefix,
		},
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "ratelimit:init-store", "failed to open rate limit store", err)
	}

	limiter, err := ratelimit.NewLimiter(store, []ratelimit.Window{
		{Name: ratelimit.WindowShort, Limit: int64(rl.ShortLimit), Duration: rl.ShortTTL()},
		{Name: ratelimit.WindowDaily, Limit: int64(rl.DailyLimit), Duration: rl.DailyTTL()},
	}, state.logger)
	if err != nil {
		_ = store.Close(context.Background())
		return platformerrors.Wrap(platformerrors.KindConfig, "ratelimit:init-store", "invalid rate limit windows", err)
	}
	state.limiter = limiter

	state.logger.InfoTag("RATELIMIT", "store=%s short=%d/%s daily=%d/%s",
		rl.Store, rl.ShortLimit, rl.ShortTTL(), rl.DailyLimit, rl.DailyTTL())
	return nil
}

func initPipelineStep(_ context.Context, state *appState) error {
	cfg := state.config

	verifier := antibot.NewTurnstile(antibot.TurnstileConfig{
		Secret:    cfg.AntiBot.SecretKey,
		VerifyURL: cfg.AntiBot.VerifyURL,
		Timeout:   cfg.AntiBot.Timeout(),
	}, state.logger)

	sightengine := detector.NewSightengine(detector.Config{
		URL:       cfg.Detector.URL,
		APIUser:   cfg.Detector.APIUser,
		APISecret: cfg.Detector.APISecret,
		Models:    cfg.Detector.Models,
		Timeout:   cfg.Detector.Timeout(),
	}, state.logger)

	pipeline, err := services.NewDetectionService(&services.DetectionConfig{
		Validator: upload.NewValidator(state.logger),
		Verifier:  verifier,
		Detector:  sightengine,
		Events:    state.events,
		Logger:    state.logger,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "pipeline:init-services", "failed to create detection pipeline", err)
	}
	state.pipeline = pipeline
	return nil
}

// buildHandler assembles the router with every HTTP service registered.
func buildHandler(ctx context.Context, state *appState) (http.Handler, error) {
	cfg := state.config
	router, err := httptransport.Build(httptransport.Options{
		Config:  cfg,
		Logger:  state.logger,
		Limiter: state.limiter,
		Events:  state.events,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build router", err)
	}

	detectService, err := httpdetect.NewService(httpdetect.Options{
		Pipeline:       state.pipeline,
		Logger:         state.logger,
		MaxUploadMB:    cfg.Upload.MaxUploadMB,
		TokenField:     cfg.AntiBot.TokenField,
		TrustProxyHops: cfg.Server.TrustProxyHops,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "detect:new-service", "failed to create detect service", err)
	}
	systemService := httptransport.NewSystemService(cfg.Server.ServiceName, state.logger)

	if err := detectService.Register(ctx, router.Root); err != nil {
		return nil, err
	}
	if err := systemService.Register(ctx, router.Root); err != nil {
		return nil, err
	}
	return router.Engine, nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	handler, err := buildHandler(groupCtx, state)
	if err != nil {
		return nil, err
	}
	logger := state.logger
	port := state.config.Server.Port

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on http://localhost:%d", port)
		logger.InfoTag("HTTP", "docs at http://localhost:%d/docs", port)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "http server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "http server stopped")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "http server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case <-ctx.Done():
		logger.InfoTag("BOOT", "shutdown requested: %v", context.Cause(ctx))
	case err := <-done:
		// the server exited on its own, usually a bind failure
		cancel()
		if err != nil {
			logger.ErrorTag("BOOT", "service stopped with error: %v", err)
		}
		return err
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "error while shutting down: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(shutdownTimeout):
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return errors.New("shutdown timed out")
	}
	return nil
}
