package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"condo-backoffice/internal/audit"
	"condo-backoffice/internal/auth"
	"condo-backoffice/internal/debtorimport/adapters"
	"condo-backoffice/internal/debtorimport/application"
	debtorrepo "condo-backoffice/internal/debtorimport/infrastructure/postgres"
	debtorhttp "condo-backoffice/internal/debtorimport/interfaces/http"
	"condo-backoffice/internal/debtorimport/interfaces/sheet"
	"condo-backoffice/internal/eventing"
	"condo-backoffice/internal/observability/metrics"

	"github.com/gorilla/mux"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	importCfg, err := application.LoadConfigFrom(cfg.ImportConfigPath)
	if err != nil {
		logger.Fatalf("debtor import config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	projectChecker := auth.NewProjectChecker(db)
	auditRepo := audit.NewRepository(db)

	bus := eventing.NewInMemoryBus()
	adapters.Subscribe(bus, logger)
	eventPublisher, err := eventing.NewPublisher(bus, logger)
	if err != nil {
		logger.Fatalf("event publisher error: %v", err)
	}
	completionPublisher, err := adapters.NewCompletionPublisher(eventPublisher)
	if err != nil {
		logger.Fatalf("completion publisher error: %v", err)
	}

	importService, err := application.NewService(
		debtorrepo.NewUnitDirectory(db),
		debtorrepo.NewBillStore(db),
		debtorrepo.NewLedgerStore(db),
		debtorrepo.NewBillNumberSequence(db),
		importCfg,
		application.WithRunLocker(debtorrepo.NewAdvisoryRunLocker(db, logger)),
		application.WithAuditLogger(auditRepo),
		application.WithPublisher(completionPublisher),
		application.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("debtor import service error: %v", err)
	}

	parser, err := sheet.NewParser(importCfg.Headers)
	if err != nil {
		logger.Fatalf("sheet parser error: %v", err)
	}
	importHandler, err := debtorhttp.NewHandler(importService, parser, projectChecker, logger)
	if err != nil {
		logger.Fatalf("debtor import handler error: %v", err)
	}

	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), auth.NewDefaultPolicy(
		[]string{"/healthz", "/metrics"},
		nil,
	))

	router := mux.NewRouter()
	importHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(router), logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL       string
	HTTPAddr          string
	JWTSecret         string
	ImportConfigPath  string
	DBMaxOpenConns    int
	ReadHeaderTimeout time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		ImportConfigPath:  getenvDefault("DEBTOR_IMPORT_CONFIG", ""),
		DBMaxOpenConns:    getenvIntDefault("DB_MAX_OPEN_CONNS", 20),
		ReadHeaderTimeout: getenvDuration("HTTP_READ_HEADER_TIMEOUT", 10*time.Second),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
