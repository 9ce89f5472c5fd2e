package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rentease/rentease-api/internal/config"
	"github.com/rentease/rentease-api/internal/database"
	"github.com/rentease/rentease-api/internal/handler"
	"github.com/rentease/rentease-api/internal/middleware"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/internal/router"
	"github.com/rentease/rentease-api/internal/service"
	"github.com/rentease/rentease-api/pkg/assistant"
	cloud "github.com/rentease/rentease-api/pkg/cloudinary"
	"github.com/rentease/rentease-api/pkg/geo"
	"github.com/rentease/rentease-api/pkg/mailer"
	"github.com/rentease/rentease-api/pkg/razorpay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{}, &models.Property{}, &models.Room{}, &models.PricingChange{},
		&models.Enrollment{}, &models.EntryLog{},
		&models.Invoice{}, &models.ElectricityBill{}, &models.Payment{}, &models.RevenueSnapshot{},
		&models.Dispute{}, &models.Referral{}, &models.Alert{}, &models.Upload{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer func() { _ = natsConn.Drain() }()
	}

	gateway, err := razorpay.New(razorpay.Config{
		KeyID:         cfg.RazorpayKeyID,
		KeySecret:     cfg.RazorpayKeySecret,
		WebhookSecret: cfg.RazorpayWebhookSecret,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create razorpay client: %v", err)
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	mail := mailer.New(mailer.Config{
		APIKey: cfg.ResendAPIKey,
		From:   cfg.ResendFromEmail,
	}, logger)

	var provider assistant.Provider
	if cfg.OpenAIAPIKey != "" {
		openAIProvider, err := assistant.NewOpenAIProvider(assistant.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AssistantModel,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create assistant provider: %v", err)
		}
		provider = openAIProvider
	} else {
		logger.Warn().Msg("openai api key not set, assistant disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	pricingRepo := repository.NewPricingRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	entryLogRepo := repository.NewEntryLogRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	electricityRepo := repository.NewElectricityRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	disputeRepo := repository.NewDisputeRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	alertService := service.NewAlertService(alertRepo, redisClient, "rentease", natsConn, mail, logger)

	throttle := service.NewRedisScanThrottle(redisClient, cfg.ScanCooldown)
	scanService := service.NewScanService(
		userRepo, propertyRepo, enrollmentRepo, entryLogRepo,
		throttle, alertService,
		service.CurfewPolicy{StartHour: cfg.CurfewStartHour, EndHour: cfg.CurfewEndHour},
		cfg.SiteTimezone, validate, logger,
	)

	qrService := service.NewQRService(userRepo, logger)
	propertyService := service.NewPropertyService(propertyRepo, roomRepo, redisClient, geo.New(logger), cfg.PropertyCacheTTL, validate, logger)
	pricingService := service.NewPricingService(propertyRepo, roomRepo, pricingRepo, logger)
	referralService := service.NewReferralService(referralRepo, cfg.ReferralRewardPs, logger)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, propertyRepo, roomRepo, referralService, mail, alertService, validate, logger)
	billingService := service.NewBillingService(invoiceRepo, enrollmentRepo, electricityRepo, propertyRepo, userRepo, mail, alertService, cfg.BillingDueDays, cfg.LateFeePercent, logger)
	electricityService := service.NewElectricityService(electricityRepo, propertyRepo, invoiceRepo, validate, logger)
	paymentService := service.NewPaymentService(invoiceRepo, paymentRepo, userRepo, gateway, mail, alertService, cfg.PlatformFeeRate, validate, logger)
	disputeService := service.NewDisputeService(disputeRepo, propertyRepo, alertService, validate, logger)
	chatService := service.NewChatService(provider, enrollmentRepo, invoiceRepo, validate, logger)
	uploadService := service.NewUploadService(uploader, uploadRepo, propertyRepo, cfg.UploadMaxSizeMB, logger)

	webhookHandler, err := handler.NewWebhookHandler(paymentService, gateway, logger)
	if err != nil {
		log.Fatalf("failed to create webhook handler: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ScanHandler:       handler.NewScanHandler(scanService, logger),
		QRHandler:         handler.NewQRHandler(qrService, logger),
		PropertyHandler:   handler.NewPropertyHandler(propertyService, pricingService, uploadService, userRepo, logger),
		EnrollmentHandler: handler.NewEnrollmentHandler(enrollmentService, userRepo, logger),
		BillingHandler:    handler.NewBillingHandler(billingService, electricityService, logger),
		PaymentHandler:    handler.NewPaymentHandler(paymentService, uploadService, logger),
		WebhookHandler:    webhookHandler,
		DisputeHandler:    handler.NewDisputeHandler(disputeService, logger),
		ReferralHandler:   handler.NewReferralHandler(referralService, logger),
		ChatHandler:       handler.NewChatHandler(chatService, userRepo, logger),
		AlertHandler:      handler.NewAlertHandler(alertService, 30*time.Second, logger),
		FeedHandler:       handler.NewFeedHandler(alertService, 30*time.Second, logger),
		CronHandler:       handler.NewCronHandler(billingService, pricingService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	alertService.Start(consumerCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
