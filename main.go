// File: bookflow/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookflow/config"
	"bookflow/cron"
	"bookflow/database"
	"bookflow/database/repository"
	"bookflow/handlers"
	"bookflow/routes"
	"bookflow/services/booking"
	"bookflow/services/scheduling"
	"bookflow/services/webhook"
	"bookflow/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	if err := booking.ValidateTables(); err != nil {
		logger.Sugar().Fatalf("main: state machine tables invalid: %v", err)
	}

	database.InitDB()
	utils.InitStateStore()
	utils.StartHealthMonitor(utils.GetStateStoreClient(), database.MongoClient)
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	stateStore := repository.NewRedisStateStore(utils.GetStateStoreClient())
	bookingRepo := repository.NewMongoBookingRepo()

	// scheduling provider plumbing.
	credentials := scheduling.NewCredentialManager(
		config.AppConfig.SchedulingAPIToken,
		config.AppConfig.SchedulingAPITokenSecondary,
		scheduling.CredentialManagerConfig{
			UsageThreshold:    config.AppConfig.CredentialUsageThreshold,
			RequestsPerMinute: config.AppConfig.CredentialRequestsPerMinute,
		},
		logger,
	)
	credentials.Start()
	defer credentials.Stop()

	responseCache := scheduling.NewResponseCache(
		time.Duration(config.AppConfig.CacheTTLSeconds)*time.Second,
		config.AppConfig.CacheCapacity,
	)
	responseCache.Start(time.Minute)
	defer responseCache.Stop()

	schedulingClient := scheduling.NewClient(config.AppConfig.SchedulingAPIBaseURL, credentials, responseCache, logger)

	// webhook plumbing.
	securityGate := webhook.NewSecurityGate(
		config.AppConfig.SchedulingWebhookKey,
		config.AppConfig.SchedulingWebhookKeySecondary,
		time.Duration(config.AppConfig.ReplayWindowSeconds)*time.Second,
		logger,
	)
	securityGate.Start()
	defer securityGate.Stop()

	eventMapper := webhook.NewEventMapper(logger)
	conflictDetector := booking.NewConflictDetector(bookingRepo, schedulingClient, logger)
	reminderScheduler := cron.NewAsynqReminderScheduler(logger)

	orchestrator := &booking.DefaultOrchestrationService{
		Machine:   booking.NewStateMachine(),
		Store:     stateStore,
		Repo:      bookingRepo,
		Mapper:    eventMapper,
		Conflicts: conflictDetector,
		Refunds:   booking.NewRefundEngine(),
		Reminders: reminderScheduler,
		Logger:    logger,
	}

	checkoutService := booking.NewStripeCheckoutService(logger)

	bookingHandler := handlers.NewBookingHandler(orchestrator, schedulingClient, checkoutService)
	webhookHandler := handlers.NewWebhookHandler(orchestrator, securityGate)
	routes.RegisterRoutes(router, bookingHandler, webhookHandler)

	// background reminder worker (delivery sink is wired by deployment).
	cron.InitReminderWorker(nil)

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: router,
	}

	go func() {
		logger.Sugar().Infof("main: listening on :%s", config.AppConfig.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: forced shutdown: %v", err)
	}
}
