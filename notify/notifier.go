package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrEthical07/authcore"
)

// LogNotifier logs notifications instead of sending them. The link carries a live
// token, so it is only logged when IncludeLink is set.
type LogNotifier struct {
	Logger      *slog.Logger
	IncludeLink bool
}

var _ authcore.Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) Notify(ctx context.Context, msg authcore.Notification) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{"kind", string(msg.Kind), "to", msg.To}
	if n.IncludeLink {
		attrs = append(attrs, "link", msg.Link)
	}
	logger.InfoContext(ctx, "notification", attrs...)
	return nil
}

// SenderNotifier renders and sends in the calling goroutine.
type SenderNotifier struct {
	sender Sender
}

var _ authcore.Notifier = (*SenderNotifier)(nil)

func NewSenderNotifier(sender Sender) *SenderNotifier {
	return &SenderNotifier{sender: sender}
}

func (n *SenderNotifier) Notify(ctx context.Context, msg authcore.Notification) error {
	if n == nil || n.sender == nil {
		return errors.New("notify: no sender configured")
	}
	rendered, err := Render(msg)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, rendered)
}
