package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/MrEthical07/authcore"
)

// Message is a rendered email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type templateSet struct {
	subject string
	text    *template.Template
	html    *htmltemplate.Template
}

var templates = map[authcore.NotificationKind]templateSet{
	authcore.NotifyVerifyEmail: {
		subject: "Verify your email",
		text: template.Must(template.New("verify_text").Parse(
			"Hi {{.Name}},\n\nPlease verify your email address by opening the link below:\n\n{{.Link}}\n\nIf you did not create an account, ignore this email.\n")),
		html: htmltemplate.Must(htmltemplate.New("verify_html").Parse(
			`<p>Hi {{.Name}},</p><p>Please verify your email address by clicking <a href="{{.Link}}">this link</a>.</p><p>If you did not create an account, ignore this email.</p>`)),
	},
	authcore.NotifyPasswordReset: {
		subject: "Reset your password",
		text: template.Must(template.New("reset_text").Parse(
			"Hi {{.Name}},\n\nYou asked to reset your password. Open the link below to choose a new one:\n\n{{.Link}}\n\nIf you did not ask for this, ignore this email.\n")),
		html: htmltemplate.Must(htmltemplate.New("reset_html").Parse(
			`<p>Hi {{.Name}},</p><p>You asked to reset your password. <a href="{{.Link}}">Choose a new password</a>.</p><p>If you did not ask for this, ignore this email.</p>`)),
	},
}

// Render builds the email for n.
func Render(n authcore.Notification) (Message, error) {
	set, ok := templates[n.Kind]
	if !ok {
		return Message{}, fmt.Errorf("notify: unknown notification kind %q", n.Kind)
	}
	if n.To == "" || n.Link == "" {
		return Message{}, fmt.Errorf("notify: %s notification without recipient or link", n.Kind)
	}

	var text, html bytes.Buffer
	if err := set.text.Execute(&text, n); err != nil {
		return Message{}, fmt.Errorf("notify: render text: %w", err)
	}
	if err := set.html.Execute(&html, n); err != nil {
		return Message{}, fmt.Errorf("notify: render html: %w", err)
	}

	return Message{
		To:      n.To,
		Subject: set.subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
