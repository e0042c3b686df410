package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prbal/config"
	"prbal/cron"
	"prbal/database"
	bookingRepo "prbal/database/repository/booking"
	payoutRepo "prbal/database/repository/payout"
	"prbal/handlers"
	"prbal/routes"
	"prbal/services/booking"
	"prbal/services/payment"
	"prbal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitLockClient()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	bkRepo := bookingRepo.NewMongoBookingRepo()
	pyRepo := payoutRepo.NewMongoPayoutRepo()

	// escrow core.
	gateway := payment.NewStripeGateway(logger)
	locker := utils.NewRedisBookingLocker(utils.GetLockClient())
	policy := booking.ConfirmationPolicy{GracePeriod: config.GracePeriod()}
	enqueuer := cron.NewRefundEnqueuer()

	orchestrator := &booking.DefaultEscrowOrchestrator{
		Repo:    bkRepo,
		Gateway: gateway,
		Locker:  locker,
		Policy:  policy,
		Retry:   enqueuer,
		Logger:  logger,
	}

	bookingService := &booking.DefaultBookingService{
		Repo:       bkRepo,
		PayoutRepo: pyRepo,
		Escrow:     orchestrator,
		Policy:     policy,
		FeePercent: config.AppConfig.PlatformFeePercent,
		Logger:     logger,
	}

	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	paymentHandler := handlers.NewPaymentHandler(bookingService, orchestrator, pyRepo, logger)

	routes.RegisterRoutes(router, bookingHandler, paymentHandler)

	// Background settlement machinery.
	cron.InitEscrowWorker(bookingService, orchestrator)
	cron.InitSweepScheduler()
	utils.StartHealthMonitor(
		map[string]*redis.Client{"lock": utils.GetLockClient()},
		database.MongoClient,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
