package mailer

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"
)

const resetSubject = "Reset your password"

type Sender interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

type MailgunSender struct {
	mg   *mailgun.MailgunImpl
	from string
}

func NewMailgunSender(domain, apiKey, from string) *MailgunSender {
	return &MailgunSender{mg: mailgun.NewMailgun(domain, apiKey), from: from}
}

func (s *MailgunSender) SendPasswordReset(ctx context.Context, to, link string) error {
	m := s.mg.NewMessage(s.from, resetSubject, "Reset your password: "+link, to)
	m.SetHtml(fmt.Sprintf("<a href=%q>reset password</a>", link))

	_, _, err := s.mg.Send(ctx, m)
	return err
}

// LogSender is the no-SMTP development sender: the reset link only lands in
// the server log.
type LogSender struct {
	logger *zap.SugaredLogger
}

func NewLogSender(logger *zap.SugaredLogger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendPasswordReset(ctx context.Context, to, link string) error {
	s.logger.Infow("password reset requested", "to", to, "link", link)
	return nil
}
