package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"yuva/server/internal/config"
	"yuva/server/internal/email"
	"yuva/server/internal/models"
	"yuva/server/internal/storage"
)

// Task types.
const (
	TypeAdoptionNotify = "adoption:notify"
	TypeImageNormalize = "image:normalize"
)

// Queues and their priorities.
const (
	QueueDefault = "default"
	QueueImages  = "images"
)

// IAsynqClient is the part of *asynq.Client used for enqueueing.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// NewClient returns an asynq client on the same Redis as rdb.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// --- Enqueueing ---

// Queue enqueues background work for the API process.
type Queue struct {
	client       IAsynqClient
	imageBaseURL string
}

func NewQueue(client IAsynqClient, imageBaseURL string) *Queue {
	return &Queue{client: client, imageBaseURL: imageBaseURL}
}

// AdoptionNotifyPayload is the payload of TypeAdoptionNotify.
type AdoptionNotifyPayload = models.AdoptionNotice

// ImageNormalizePayload is the payload of TypeImageNormalize.
type ImageNormalizePayload struct {
	Key       string `json:"key"`
	ListingID string `json:"listing_id"`
}

// EnqueueAdoptionNotice queues the owner email for a stored adoption request.
func (q *Queue) EnqueueAdoptionNotice(ctx context.Context, notice models.AdoptionNotice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal adoption notice: %w", err)
	}
	task := asynq.NewTask(TypeAdoptionNotify, payload, asynq.MaxRetry(5), asynq.Timeout(time.Minute))
	if _, err := q.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		return fmt.Errorf("failed to enqueue adoption notice: %w", err)
	}
	return nil
}

// EnqueueImageNormalize queues resizing of a listing photo. Photos hosted
// outside the image bucket are left alone.
func (q *Queue) EnqueueImageNormalize(ctx context.Context, listingID, imageURL string) error {
	key, ok := storage.KeyFromImageURL(q.imageBaseURL, imageURL)
	if !ok {
		return nil
	}
	payload, err := json.Marshal(ImageNormalizePayload{Key: key, ListingID: listingID})
	if err != nil {
		return fmt.Errorf("failed to marshal image task: %w", err)
	}
	task := asynq.NewTask(TypeImageNormalize, payload, asynq.MaxRetry(3), asynq.Timeout(2*time.Minute))
	if _, err := q.client.EnqueueContext(ctx, task, asynq.Queue(QueueImages)); err != nil {
		return fmt.Errorf("failed to enqueue image task: %w", err)
	}
	return nil
}

// --- Processing ---

// TaskProcessor holds the dependencies of the task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	images      storage.IImageStorage
	logger      *zap.Logger
}

// NewTaskProcessor creates a processor. images may be nil when S3 is not
// configured; image tasks are then dropped.
func NewTaskProcessor(cfg *config.Config, emailSender email.Sender, images storage.IImageStorage, logger *zap.Logger) *TaskProcessor {
	return &TaskProcessor{cfg: cfg, emailSender: emailSender, images: images, logger: logger}
}

// NewServer configures an asynq server on the same Redis as rdb.
func NewServer(rdb *redis.Client, logger *zap.Logger) *asynq.Server {
	return asynq.NewServer(redisOpt(rdb), asynq.Config{
		Queues: map[string]int{
			QueueDefault: 6,
			QueueImages:  3,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
}

// Mux routes each task type to its handler.
func (p *TaskProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAdoptionNotify, p.HandleAdoptionNotifyTask)
	mux.HandleFunc(TypeImageNormalize, p.HandleImageNormalizeTask)
	return mux
}

// HandleAdoptionNotifyTask emails the listing owner about a new adoption request.
func (p *TaskProcessor) HandleAdoptionNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload AdoptionNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal adoption notice: %v: %w", err, asynq.SkipRetry)
	}
	if payload.OwnerEmail == "" {
		return fmt.Errorf("adoption notice %s has no recipient: %w", payload.MessageID, asynq.SkipRetry)
	}

	subject := fmt.Sprintf("%s: %s için sahiplenme isteği", p.cfg.AppName, payload.ListingTitle)
	var body strings.Builder
	body.WriteString(payload.Text)
	body.WriteString("\r\n\r\n")
	if payload.SenderEmail != "" {
		body.WriteString("Gönderen: " + payload.SenderEmail + "\r\n")
	}
	body.WriteString("İsteği uygulamadaki gelen kutunuzda görebilirsiniz.\r\n")

	raw := email.BuildMessage(p.cfg.SmtpFromAddress, payload.OwnerEmail, subject, body.String())
	if err := p.emailSender.Send(ctx, []string{payload.OwnerEmail}, subject, raw); err != nil {
		p.logger.Warn("Adoption notice delivery failed", zap.String("message_id", payload.MessageID), zap.Error(err))
		return err
	}

	p.logger.Info("Adoption notice sent", zap.String("message_id", payload.MessageID), zap.String("listing_id", payload.ListingID))
	return nil
}
