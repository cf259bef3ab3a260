package main

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"slotsniper/internal/automation"
	"slotsniper/internal/automation/webdriver"
	"slotsniper/internal/cache"
	"slotsniper/internal/events"
	"slotsniper/internal/handlers"
	"slotsniper/internal/model"
	"slotsniper/internal/monitor"
	"slotsniper/internal/orchestrator"
	"slotsniper/internal/remote"
	"slotsniper/internal/snipe"
	"slotsniper/internal/storage"
	"slotsniper/internal/vault"
	"slotsniper/libs/config"
	"slotsniper/libs/db"
	"slotsniper/libs/httpx"
	"slotsniper/libs/kafkax"
	otelx "slotsniper/libs/otel"
	"slotsniper/libs/runtime"
)

// parseMonitorTargets reads "location:YYYY-MM-DD" pairs, comma separated.
func parseMonitorTargets(raw string, logger *slog.Logger) []monitor.Target {
	var targets []monitor.Target
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		location, dateRaw, ok := strings.Cut(part, ":")
		if !ok {
			logger.Warn("invalid monitor target, want location:YYYY-MM-DD", "value", part)
			continue
		}
		date, err := time.Parse(model.DateFormat, dateRaw)
		if err != nil {
			logger.Warn("invalid monitor target date", "value", part, "error", err)
			continue
		}
		targets = append(targets, monitor.Target{Location: location, Date: date})
	}
	return targets
}

func main() {
	service := config.String("SERVICE_NAME", "slotsniper")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	catalog, err := remote.CatalogFromEnv(logger)
	if err != nil {
		logger.Error("catalog config invalid", "err", err)
		panic(err)
	}

	driverURL, err := config.RequiredString("WEBDRIVER_URL")
	if err != nil {
		panic(err)
	}
	driverCfg := webdriver.Config{
		ServerURL:   driverURL,
		BrowserName: config.String("WEBDRIVER_BROWSER", "chrome"),
		Headless:    config.String("WEBDRIVER_HEADLESS", "true") != "false",
	}
	// The orchestrator and the monitor each own a browser session; they run
	// concurrently and never share one.
	bookSess, err := webdriver.Dial(ctx, driverCfg)
	if err != nil {
		logger.Error("webdriver session failed", "err", err)
		panic(err)
	}
	defer bookSess.Close(context.Background())
	monSess, err := webdriver.Dial(ctx, driverCfg)
	if err != nil {
		logger.Error("webdriver session failed", "err", err)
		panic(err)
	}
	defer monSess.Close(context.Background())

	var checks []runtime.ReadyCheck

	// Postgres is optional. Without it the service still books, monitors and
	// serves the cache; records, snipe jobs and stored accounts are off.
	var pool *db.Pool
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err = db.Open(ctx, dbURL)
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	} else {
		logger.Warn("DATABASE_URL not set; booking records and snipe jobs disabled")
	}

	httpRateLimit := config.Int("HTTP_RATE_LIMIT", 120)
	httpRateWindow := config.Duration("HTTP_RATE_WINDOW", time.Minute)

	var limiter remote.Limiter
	var bridgeLimit httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		limiter = httpx.NewRedisRateLimiter(rdb,
			config.Int("PROBE_LIMIT", 30),
			config.Duration("PROBE_WINDOW", time.Minute),
			service)
		bridgeLimit = httpx.NewRedisRateLimiter(rdb,
			httpRateLimit, httpRateWindow, service+":http").Middleware(logger, true)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	} else {
		// Probe throttling needs the shared redis window; the bridge falls
		// back to a per-process in-memory limiter.
		logger.Warn("REDIS_ADDR not set; probe throttling disabled")
		bridgeLimit = httpx.NewRateLimiter(httpRateLimit, httpRateWindow).Middleware()
	}

	var pub *events.Publisher
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		pub = events.New(kafkax.SplitBrokers(brokers), logger)
		defer pub.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	var accounts *storage.Accounts
	if pool != nil {
		v, err := vault.FromEnv()
		if err != nil {
			logger.Warn("account vault unavailable; stored accounts disabled", "err", err)
		} else {
			accounts = storage.NewAccounts(pool, v)
		}
	}

	// Login uses a stored account when one is selected, env credentials
	// otherwise.
	var creds automation.CredentialProvider = automation.EnvCredentialProvider{
		IdentityKey: "REMOTE_IDENTITY",
		SecretKey:   "REMOTE_SECRET",
	}
	if raw := config.String("BOOKING_ACCOUNT_ID", ""); raw != "" && accounts != nil {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logger.Error("invalid BOOKING_ACCOUNT_ID", "value", raw)
			panic(err)
		}
		creds = accounts.Provider(id)
	}

	bookClient := remote.NewClient(bookSess,
		remote.NewAuth(bookSess, creds, catalog, logger), catalog, limiter, logger)
	monClient := remote.NewClient(monSess,
		remote.NewAuth(monSess, creds, catalog, logger), catalog, limiter, logger)

	var slotsStore cache.Store
	if pool != nil {
		slotsStore = storage.NewSlots(pool)
	}
	avail := cache.New(config.Duration("CACHE_TTL", cache.DefaultTTL), slotsStore, logger)

	var records *storage.Records
	var recordStore orchestrator.RecordStore
	if pool != nil {
		records = storage.NewRecords(pool)
		recordStore = records
	}
	var outcomes orchestrator.OutcomePublisher
	if pub != nil {
		outcomes = pub
	}
	orch := orchestrator.New(bookClient, avail, recordStore, outcomes, logger)

	var slotsPub monitor.SlotsPublisher
	if pub != nil {
		slotsPub = pub
	}
	mon := monitor.New(monClient, avail, slotsPub, monitor.Config{
		PollInterval:  config.Duration("MONITOR_POLL_INTERVAL", time.Minute),
		LocationDelay: config.Duration("MONITOR_LOCATION_DELAY", 2*time.Second),
	}, logger)
	if targets := parseMonitorTargets(config.String("MONITOR_TARGETS", ""), logger); len(targets) > 0 {
		mon.Start(ctx, targets)
	}
	defer mon.Stop()

	var snipes *storage.Snipes
	if pool != nil {
		snipes = storage.NewSnipes(pool)
		worker := snipe.NewWorker(snipes, orch, snipe.Config{
			PollInterval: config.Duration("SNIPE_POLL_INTERVAL", 15*time.Second),
			RetryBackoff: config.Duration("SNIPE_RETRY_BACKOFF", 2*time.Minute),
		}, logger)
		go func() { _ = worker.Run(ctx) }()
	}

	var recordHandlerStore handlers.RecordStore
	if records != nil {
		recordHandlerStore = records
	}
	bookingHandler := handlers.NewBookingHandler(orch, recordHandlerStore, logger)
	slotsHandler := handlers.NewSlotsHandler(avail, logger)
	monitorHandler := handlers.NewMonitorHandler(mon, logger)
	var snipeHandler *handlers.SnipeHandler
	if snipes != nil {
		snipeHandler = handlers.NewSnipeHandler(snipes, logger)
	}
	var accountHandler *handlers.AccountHandler
	if accounts != nil {
		accountHandler = handlers.NewAccountHandler(accounts, logger)
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.RegisterRoutes(mux, bookingHandler, slotsHandler, monitorHandler, snipeHandler, accountHandler)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		bridgeLimit,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "slotsniper")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
