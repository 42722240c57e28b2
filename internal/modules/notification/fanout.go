package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/georgemunganga/furnish-backend/internal/modules/order"
	"github.com/georgemunganga/furnish-backend/internal/platform/logging"
	"github.com/georgemunganga/furnish-backend/internal/platform/metrics"
)

// Channel names one notification destination.
type Channel string

const (
	ChannelCustomerEmail Channel = "customer_email"
	ChannelAdminEmail    Channel = "admin_email"
	ChannelAdminWhatsApp Channel = "admin_whatsapp"
)

// Status is what happened on one channel.
type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Outcome records one channel's result. Error is set only for failures.
type Outcome struct {
	Channel Channel
	Status  Status
	Error   string
}

// Config holds the admin destinations. Empty values disable the channel.
type Config struct {
	AdminEmail    string
	AdminWhatsApp string
	StoreName     string
}

// FanOut sends the order notifications. Channels run concurrently and fail independently.
type FanOut struct {
	mailer   Mailer
	whatsapp WhatsAppSender
	cfg      Config
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewFanOut creates a FanOut. A nil mailer or whatsapp sender leaves the channels that
// need it unconfigured.
func NewFanOut(mailer Mailer, whatsapp WhatsAppSender, cfg Config, m *metrics.Metrics, log *zap.Logger) *FanOut {
	if cfg.StoreName == "" {
		cfg.StoreName = "Furnish"
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &FanOut{mailer: mailer, whatsapp: whatsapp, cfg: cfg, metrics: m, log: logging.OrNop(log)}
}

type job struct {
	channel   Channel
	recipient string
	masked    string
	send      func(ctx context.Context) error
}

// Dispatch attempts every channel for o and blocks until all have finished.
// Outcomes come back in channel declaration order; delivery order is not defined.
func (f *FanOut) Dispatch(ctx context.Context, o *order.Order) []Outcome {
	jobs := f.jobs(o)
	outcomes := make([]Outcome, len(jobs))

	var wg sync.WaitGroup
	for i, j := range jobs {
		if j.send == nil {
			outcomes[i] = Outcome{Channel: j.channel, Status: StatusSkipped}
			f.log.Info("notification_skipped",
				zap.String("order_id", o.ID.String()),
				zap.String("channel", string(j.channel)),
				zap.String("reason", "not configured"),
			)
			f.metrics.Notifications.WithLabelValues(string(j.channel), string(StatusSkipped)).Inc()
			continue
		}
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			outcomes[i] = f.run(ctx, o, j)
		}(i, j)
	}
	wg.Wait()
	return outcomes
}

func (f *FanOut) run(ctx context.Context, o *order.Order, j job) (out Outcome) {
	out = Outcome{Channel: j.channel, Status: StatusSent}
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Channel: j.channel, Status: StatusFailed, Error: fmt.Sprintf("panic: %v", r)}
		}
		f.metrics.Notifications.WithLabelValues(string(j.channel), string(out.Status)).Inc()
		fields := []zap.Field{
			zap.String("order_id", o.ID.String()),
			zap.String("channel", string(j.channel)),
			zap.String("recipient", j.masked),
		}
		if out.Status == StatusFailed {
			f.log.Warn("notification_failed", append(fields, zap.String("error", out.Error))...)
			return
		}
		f.log.Info("notification_sent", fields...)
	}()

	if err := j.send(ctx); err != nil {
		return Outcome{Channel: j.channel, Status: StatusFailed, Error: err.Error()}
	}
	return out
}

func (f *FanOut) jobs(o *order.Order) []job {
	customer := job{channel: ChannelCustomerEmail, recipient: o.Email, masked: logging.MaskEmail(o.Email)}
	admin := job{channel: ChannelAdminEmail, recipient: f.cfg.AdminEmail, masked: logging.MaskEmail(f.cfg.AdminEmail)}
	wa := job{channel: ChannelAdminWhatsApp, recipient: f.cfg.AdminWhatsApp, masked: logging.MaskPhone(f.cfg.AdminWhatsApp)}

	if f.mailer != nil && o.Email != "" {
		customer.send = f.emailSender(customer.recipient, func() (string, string, string, error) {
			return customerEmail(f.cfg.StoreName, o)
		})
	}
	if f.mailer != nil && f.cfg.AdminEmail != "" {
		admin.send = f.emailSender(admin.recipient, func() (string, string, string, error) {
			return adminEmail(f.cfg.StoreName, o)
		})
	}
	if f.whatsapp != nil && f.cfg.AdminWhatsApp != "" {
		wa.send = func(ctx context.Context) error {
			res := f.whatsapp.SendWhatsApp(ctx, wa.recipient, adminWhatsApp(o))
			if !res.Success {
				if res.Error == "" {
					res.Error = "whatsapp send failed"
				}
				return errors.New(res.Error)
			}
			return nil
		}
	}
	return []job{customer, admin, wa}
}

func (f *FanOut) emailSender(to string, render func() (subject, html, text string, err error)) func(context.Context) error {
	return func(ctx context.Context) error {
		subject, html, text, err := render()
		if err != nil {
			return fmt.Errorf("render email: %w", err)
		}
		if !f.mailer.SendEmail(ctx, to, subject, html, text) {
			return errors.New("email not accepted")
		}
		return nil
	}
}
