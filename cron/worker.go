package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"prbal/config"
	"prbal/services/booking"

	"github.com/hibiken/asynq"
)

const (
	TypeEscrowSweep = "escrow:sweep"
	TypeRefundRetry = "escrow:refund_retry"
)

// RefundRetryPayload identifies the booking whose refund is being retried.
type RefundRetryPayload struct {
	BookingID string `json:"booking_id"`
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// AsynqRefundEnqueuer implements booking.RefundRetryEnqueuer on asynq.
type AsynqRefundEnqueuer struct {
	client *asynq.Client
}

func NewRefundEnqueuer() *AsynqRefundEnqueuer {
	return &AsynqRefundEnqueuer{client: asynq.NewClient(redisOpts())}
}

// EnqueueRefundRetry schedules a refund retry with backoff handled by asynq.
func (e *AsynqRefundEnqueuer) EnqueueRefundRetry(ctx context.Context, bookingID string) error {
	payload, err := json.Marshal(RefundRetryPayload{BookingID: bookingID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeRefundRetry, payload, asynq.MaxRetry(10), asynq.ProcessIn(time.Minute))
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue refund retry for booking %s: %w", bookingID, err)
	}
	return nil
}

// InitEscrowWorker runs the async worker in background.
func InitEscrowWorker(svc booking.BookingService, orch booking.EscrowOrchestrator) {
	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEscrowSweep, handleSweepTask(svc))
	mux.HandleFunc(TypeRefundRetry, handleRefundRetryTask(orch))

	// Start async worker with retry logic
	go func() {
		log.Println("[EscrowWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[EscrowWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[EscrowWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// InitSweepScheduler registers the periodic grace-period sweep.
func InitSweepScheduler() {
	scheduler := asynq.NewScheduler(redisOpts(), nil)

	spec := fmt.Sprintf("@every %s", config.SweepInterval())
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeEscrowSweep, nil)); err != nil {
		log.Fatalf("[EscrowScheduler] Failed to register sweep task: %v", err)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Printf("[EscrowScheduler] Scheduler stopped: %v", err)
		}
	}()
}

func handleSweepTask(svc booking.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		settled, err := svc.SweepGracePeriodSettlements(ctx)
		if err != nil {
			log.Printf("[EscrowSweep] Sweep failed: %v", err)
			return err
		}
		if settled > 0 {
			log.Printf("[EscrowSweep] Settled %d grace-period bookings", settled)
		}
		return nil
	}
}

func handleRefundRetryTask(orch booking.EscrowOrchestrator) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p RefundRetryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[RefundRetry] Invalid payload: %v", err)
			return err
		}

		if _, err := orch.ManualRefund(ctx, p.BookingID); err != nil {
			log.Printf("[RefundRetry] Refund retry failed for booking %s: %v", p.BookingID, err)
			return err
		}
		return nil
	}
}
