package router

import (
	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/feed"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/service"
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *sql.DB, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initializing")

	// 1. Open DB connection (connection pooling)
	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := " "
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if strings.Contains(dsn, "?") {
				separator = "&"
			} else {
				separator = "?"
			}
		}
		dsn += separator + "sslmode=disable"
	}
	// For non-development environments that use a transaction pooler like pgbouncer,
	// we must use the simple query protocol to avoid issues with server-side prepared statements.
	if cfg.Environment != "development" {
		if !strings.Contains(dsn, "prefer_simple_protocol") {
			separator := "&"
			if !strings.Contains(dsn, "?") {
				separator = "?"
			}
			dsn += separator + "prefer_simple_protocol=true"
		}
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	// 2. Initialize S3 client for export archival
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to load S3 config: %v", err)
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 3. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 4. Start the live change feed hub
	hub := feed.NewHub(logger)
	go hub.Run()

	// 5. Initialize repositories, services, and handlers
	userRepo := repository.NewUserRepo(db)
	billableRepo := repository.NewBillableRepo(db)
	ledgerRepo := repository.NewLedgerRepo(db)
	templateRepo := repository.NewTemplateRepo(db)
	auditRepo := repository.NewAuditRepo(db)

	usageSvc := service.NewUsageService(ledgerRepo, logger)
	billableSvc := service.NewBillableService(billableRepo, ledgerRepo, usageSvc, hub, logger)
	templateSvc := service.NewTemplateService(templateRepo, usageSvc, logger)
	exportSvc := service.NewExportService(billableRepo, ledgerRepo, usageSvc,
		service.NewS3Store(s3Client, cfg.S3Bucket), cfg.ExportHardCap, cfg.ExportBatchSize, logger)
	estimateSvc := service.NewEstimateService(cfg.AnthropicAPIKey, cfg.AnthropicModel, logger)
	userSvc := service.NewUserService(userRepo, ledgerRepo)
	adminSvc := service.NewAdminService(userRepo, ledgerRepo, auditRepo, logger)
	stripeSvc := service.NewStripeService(cfg, userRepo, ledgerRepo, logger)

	userHandler := handler.NewUserHandler(userSvc, validate)
	billableHandler := handler.NewBillableHandler(billableSvc, validate, logger)
	templateHandler := handler.NewTemplateHandler(templateSvc, validate, logger)
	exportHandler := handler.NewExportHandler(exportSvc, validate, logger)
	estimateHandler := handler.NewEstimateHandler(estimateSvc, validate, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(stripeSvc, usageSvc, logger)
	adminHandler := handler.NewAdminHandler(adminSvc, validate, logger)
	feedHandler := handler.NewFeedHandler(hub, billableSvc, cfg.JWTSecret, cfg.AllowedOrigin, logger)

	// 6. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)
	adminMiddleware := middleware.AdminMiddleware(userRepo, logger)

	// 7. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	billableHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	templateHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	exportHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	estimateHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	adminHandler.RegisterRoutes(apiV1Mux, authMiddleware, adminMiddleware)
	feedHandler.RegisterRoutes(apiV1Mux)

	// Stripe signs its own requests; the webhook stays outside the JWT wall.
	apiV1Mux.HandleFunc("/webhooks/stripe", stripeSvc.HandleWebhook)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// 8. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), db, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		// Only remove the middleware if it exists.
		// This makes the client more robust, especially for operations like presigned URLs
		// that might inspect the middleware stack.
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
