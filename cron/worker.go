package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"bookflow/config"
	"bookflow/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeReminderSend = "reminder:send"

// Reminders fire this long before the session start.
const reminderLeadTime = time.Hour

// NotificationSink delivers a session reminder. Outbound notification
// delivery is an external collaborator; this is its interface boundary.
type NotificationSink interface {
	SendReminder(ctx context.Context, clientID, bookingID string, start time.Time) error
}

// ReminderPayload is the task body queued for a confirmed booking.
type ReminderPayload struct {
	BookingID string    `json:"bookingId"`
	ClientID  string    `json:"clientId"`
	Start     time.Time `json:"start"`
}

// AsynqReminderScheduler enqueues reminder tasks for confirmed bookings.
// Implements booking.ReminderScheduler.
type AsynqReminderScheduler struct {
	client *asynq.Client
	logger *zap.Logger
}

func NewAsynqReminderScheduler(logger *zap.Logger) *AsynqReminderScheduler {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueueDB,
	})
	return &AsynqReminderScheduler{client: client, logger: logger}
}

// ScheduleReminder queues a reminder an hour before the session. Bookings
// starting sooner than the lead time get no reminder.
func (s *AsynqReminderScheduler) ScheduleReminder(ctx context.Context, bc models.BookingContext) error {
	fireAt := bc.StateData.ScheduledStart.Add(-reminderLeadTime)
	if fireAt.Before(time.Now()) {
		s.logger.Info("booking starts too soon for a reminder",
			zap.String("bookingId", bc.BookingID))
		return nil
	}

	payload, err := json.Marshal(ReminderPayload{
		BookingID: bc.BookingID,
		ClientID:  bc.StateData.ClientID,
		Start:     bc.StateData.ScheduledStart,
	})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeReminderSend, payload)
	_, err = s.client.EnqueueContext(ctx, task, asynq.ProcessAt(fireAt))
	return err
}

// InitReminderWorker runs the async worker in background.
func InitReminderWorker(sink NotificationSink) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReminderSend, handleReminderTask(sink))

	// Start async worker with retry logic
	go func() {
		log.Println("[ReminderWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ReminderWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ReminderWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleReminderTask(sink NotificationSink) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[ReminderHandler] Invalid payload: %v", err)
			return err
		}

		log.Printf("[ReminderHandler] Triggering reminder for booking %s", p.BookingID)
		if sink == nil {
			return nil
		}
		if err := sink.SendReminder(ctx, p.ClientID, p.BookingID, p.Start); err != nil {
			log.Printf("[ReminderHandler] Failed to deliver reminder: %v", err)
			return err
		}
		return nil
	}
}
