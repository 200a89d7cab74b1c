package mailer

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/reqdrop/reqdrop/internal/config"
	"gopkg.in/gomail.v2"
)

var subjects = map[Kind]string{
	KindReminder:      "Reminder: files are still waiting to be uploaded",
	KindExpiryWarning: "Your file request expires within 24 hours",
}

var bodies = map[Kind]*template.Template{
	KindReminder: template.Must(template.New("reminder").Parse(
		`Hello,

You were asked to upload files{{if .Description}} for "{{.Description}}"{{end}}.
{{if .Deadline}}The due date is {{.Deadline.Format "Jan 2, 2006"}}.
{{end}}Upload them here: {{.UploadURL}}

The request stays open until {{.ExpiresAt.Format "Jan 2, 2006"}}.
`)),
	KindExpiryWarning: template.Must(template.New("expiry-warning").Parse(
		`Hello,

Your file request{{if .Description}} "{{.Description}}"{{end}} expires on {{.ExpiresAt.Format "Jan 2, 2006 15:04 MST"}}.
No further uploads will be accepted after that.

Upload link: {{.UploadURL}}
`)),
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg *config.MailConfig) Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *smtpMailer) Send(ctx context.Context, to string, kind Kind, payload Payload) error {
	tmpl, ok := bodies[kind]
	if !ok {
		return fmt.Errorf("unknown template kind %q", kind)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, payload); err != nil {
		return fmt.Errorf("render %s template: %w", kind, err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subjects[kind])
	msg.SetBody("text/plain", body.String())

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send %s to %s: %w", kind, to, err)
	}
	return nil
}
