package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func verifyNotification() authcore.Notification {
	return authcore.Notification{
		Kind:  authcore.NotifyVerifyEmail,
		To:    "alice@example.com",
		Name:  "Alice <admin>",
		Token: "deadbeef",
		Link:  "https://app.example.com/verify-email/deadbeef",
	}
}

func TestRender(t *testing.T) {
	msg, err := Render(verifyNotification())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "Verify your email", msg.Subject)
	assert.Contains(t, msg.Text, "https://app.example.com/verify-email/deadbeef")
	assert.Contains(t, msg.HTML, `href="https://app.example.com/verify-email/deadbeef"`)
	assert.Contains(t, msg.HTML, "Alice &lt;admin&gt;")

	reset := verifyNotification()
	reset.Kind = authcore.NotifyPasswordReset
	reset.Link = "https://app.example.com/reset-password/deadbeef"
	msg, err = Render(reset)
	require.NoError(t, err)
	assert.Equal(t, "Reset your password", msg.Subject)
	assert.Contains(t, msg.Text, reset.Link)
}

func TestRenderRejectsIncompleteNotifications(t *testing.T) {
	n := verifyNotification()
	n.Kind = "welcome"
	_, err := Render(n)
	assert.Error(t, err)

	n = verifyNotification()
	n.Link = ""
	_, err = Render(n)
	assert.Error(t, err)
}

func TestLogNotifierHidesLinkByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	n := &LogNotifier{Logger: logger}
	require.NoError(t, n.Notify(context.Background(), verifyNotification()))
	assert.Contains(t, buf.String(), "alice@example.com")
	assert.NotContains(t, buf.String(), "deadbeef")

	buf.Reset()
	n.IncludeLink = true
	require.NoError(t, n.Notify(context.Background(), verifyNotification()))
	assert.Contains(t, buf.String(), "verify-email/deadbeef")
}

type captureSender struct {
	sent []Message
	err  error
}

func (s *captureSender) Send(_ context.Context, msg Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func TestSenderNotifier(t *testing.T) {
	sender := &captureSender{}
	n := NewSenderNotifier(sender)
	require.NoError(t, n.Notify(context.Background(), verifyNotification()))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Verify your email", sender.sent[0].Subject)

	sender.err = errors.New("relay down")
	assert.ErrorContains(t, n.Notify(context.Background(), verifyNotification()), "relay down")

	assert.Error(t, NewSenderNotifier(nil).Notify(context.Background(), verifyNotification()))
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueDefault}, nil
}

func TestQueueNotifierEnqueuesRenderedMessage(t *testing.T) {
	client := &fakeEnqueuer{}
	n := NewQueueNotifier(client)

	require.NoError(t, n.Notify(context.Background(), verifyNotification()))
	require.Len(t, client.tasks, 1)
	assert.Equal(t, TaskTypeSendEmail, client.tasks[0].Type())
	assert.Len(t, client.opts[0], 3)

	var msg Message
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &msg))
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "Verify your email", msg.Subject)
}

func TestQueueNotifierEnqueueError(t *testing.T) {
	n := NewQueueNotifier(&fakeEnqueuer{err: errors.New("redis unavailable")})
	err := n.Notify(context.Background(), verifyNotification())
	assert.ErrorContains(t, err, "redis unavailable")

	var nilQueue *QueueNotifier
	assert.Error(t, nilQueue.Notify(context.Background(), verifyNotification()))
}

func TestMailerProcessTask(t *testing.T) {
	sender := &captureSender{}
	m := NewMailer(sender, slog.New(slog.DiscardHandler))

	task, err := NewSendEmailTask(Message{To: "bob@example.com", Subject: "Reset your password", Text: "link"})
	require.NoError(t, err)
	require.NoError(t, m.ProcessTask(context.Background(), task))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "bob@example.com", sender.sent[0].To)

	sender.err = errors.New("temporary failure")
	err = m.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestMailerSkipsRetryOnBadPayload(t *testing.T) {
	m := NewMailer(&captureSender{}, slog.New(slog.DiscardHandler))

	err := m.ProcessTask(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = m.ProcessTask(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte(`{"subject":"x"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewWorkerRequiresMailer(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	assert.Error(t, err)
}

func TestSMTPSenderBuildsMultipartMessage(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer",
		Password: "secret",
		From:     "no-reply@example.com",
	})
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	var got *mail.Msg
	s.deliver = func(_ context.Context, m *mail.Msg) error {
		got = m
		return nil
	}

	msg, err := Render(verifyNotification())
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), msg))
	require.NotNil(t, got)

	rcpts, err := got.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com"}, rcpts)

	var buf bytes.Buffer
	_, err = got.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Verify your email")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "Date: Tue, 02 Jan 2024 03:04:05 +0000")
}

func TestSMTPSenderWrapsDeliveryError(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025, From: "dev@localhost"})
	s.deliver = func(context.Context, *mail.Msg) error {
		return errors.New("connection refused")
	}

	err := s.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Text: "t"})
	assert.ErrorContains(t, err, "connection refused")

	assert.Error(t, s.Send(context.Background(), Message{To: "not an address", Text: "t"}))
}

func TestSMTPSenderStalledRelayTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	// Accept and never send the greeting.
	held := make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			held <- conn
		}
	}()
	t.Cleanup(func() {
		for {
			select {
			case c := <-held:
				_ = c.Close()
			default:
				return
			}
		}
	})

	addr := ln.Addr().(*net.TCPAddr)
	s := NewSMTPSender(SMTPConfig{
		Host:    "127.0.0.1",
		Port:    addr.Port,
		From:    "dev@localhost",
		Timeout: 200 * time.Millisecond,
	})

	start := time.Now()
	err = s.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Text: "t"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPSenderHonorsCanceledContext(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "dev@localhost"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.Error(t, s.Send(ctx, Message{To: "a@example.com", Text: "t"}))
	assert.Less(t, time.Since(start), 5*time.Second)
}
