package notification

import "context"

// Mailer delivers one email. It reports success only; transport errors are the
// implementation's to log.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) bool
}

// SendResult is the outcome of a WhatsApp send.
type SendResult struct {
	Success bool
	Error   string
}

// WhatsAppSender delivers one WhatsApp text message.
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, message string) SendResult
}

// MailerFunc adapts a function to Mailer.
type MailerFunc func(ctx context.Context, to, subject, htmlBody, textBody string) bool

func (f MailerFunc) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) bool {
	return f(ctx, to, subject, htmlBody, textBody)
}

// WhatsAppFunc adapts a function to WhatsAppSender.
type WhatsAppFunc func(ctx context.Context, to, message string) SendResult

func (f WhatsAppFunc) SendWhatsApp(ctx context.Context, to, message string) SendResult {
	return f(ctx, to, message)
}
