package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the asynq queue email tasks are enqueued on.
	QueueDefault = "default"
	// TaskTypeSendEmail is the asynq task type for rendered emails.
	TaskTypeSendEmail = "mail:send"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier enqueues rendered emails for a [Worker]. Notify returns once the task
// is stored in Redis.
type QueueNotifier struct {
	client   Enqueuer
	queue    string
	maxRetry int
	timeout  time.Duration
}

var _ authcore.Notifier = (*QueueNotifier)(nil)

func NewQueueNotifier(client Enqueuer) *QueueNotifier {
	return &QueueNotifier{
		client:   client,
		queue:    QueueDefault,
		maxRetry: 5,
		timeout:  30 * time.Second,
	}
}

// NewSendEmailTask wraps msg in a mail:send task.
func NewSendEmailTask(msg Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

func (n *QueueNotifier) Notify(ctx context.Context, msg authcore.Notification) error {
	if n == nil || n.client == nil {
		return errors.New("notify: queue client not configured")
	}

	rendered, err := Render(msg)
	if err != nil {
		return err
	}
	task, err := NewSendEmailTask(rendered)
	if err != nil {
		return fmt.Errorf("notify: build task: %w", err)
	}

	_, err = n.client.EnqueueContext(ctx, task,
		asynq.Queue(n.queue),
		asynq.MaxRetry(n.maxRetry),
		asynq.Timeout(n.timeout),
	)
	if err != nil {
		return fmt.Errorf("notify: enqueue %s: %w", TaskTypeSendEmail, err)
	}
	return nil
}

// Mailer handles mail:send tasks.
type Mailer struct {
	sender Sender
	logger *slog.Logger
}

func NewMailer(sender Sender, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{sender: sender, logger: logger}
}

// ProcessTask implements asynq.Handler. Undecodable payloads are not retried.
func (m *Mailer) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var msg Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		m.logger.ErrorContext(ctx, "decode email task", slog.Any("error", err))
		return fmt.Errorf("decode email task: %v: %w", err, asynq.SkipRetry)
	}
	if msg.To == "" {
		return fmt.Errorf("email task without recipient: %w", asynq.SkipRetry)
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		m.logger.WarnContext(ctx, "send email", slog.String("subject", msg.Subject), slog.Any("error", err))
		return err
	}
	m.logger.InfoContext(ctx, "email sent", slog.String("subject", msg.Subject))
	return nil
}

// WorkerConfig collects what [NewWorker] needs.
type WorkerConfig struct {
	RedisOpts   asynq.RedisConnOpt
	Concurrency int
	Logger      *slog.Logger
	Mailer      *Mailer
}

// Worker wraps the asynq server that drains the email queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Mailer == nil {
		return nil, errors.New("worker: mailer required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeSendEmail, cfg.Mailer)

	return &Worker{server: srv, mux: mux, logger: logger}, nil
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.logger.Info("email worker stopping")
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
