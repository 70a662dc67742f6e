// Package notify delivers authcore notifications.
//
// [LogNotifier] writes notifications to a slog logger for local development.
// [SenderNotifier] renders and sends synchronously through a [Sender] such as
// [SMTPSender]. [QueueNotifier] renders the message and enqueues an asynq "mail:send"
// task; a [Worker] running the [Mailer] handler delivers it with retries.
package notify
