package messaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/minehubyt/Anand-Pandey/internal/config"
)

// DefaultFrom is the sender used when none is configured.
const DefaultFrom = "onboarding@resend.dev"

// FirmName signs outbound SMTP mail.
const FirmName = "AK Pandey & Associates"

// ProviderFromConfig builds the configured provider, or nil when its
// credentials are missing.
func ProviderFromConfig(c config.MessagingConfig) Provider {
	switch c.Provider {
	case "smtp":
		p := NewSMTPProvider(SMTPConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Username: c.SMTPUsername,
			Password: c.SMTPPassword,
			From:     c.From,
			FromName: FirmName,
		})
		if !p.IsConfigured() {
			return nil
		}
		return p
	default:
		if c.ResendAPIKey == "" {
			return nil
		}
		return NewResendProvider(c.ResendAPIKey, c.From)
	}
}

// Provider hands a message to an email service. Errors are *DeliveryError.
type Provider interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

// ResendProvider delivers through the Resend API.
type ResendProvider struct {
	client *resend.Client
	from   string
}

// NewResendProvider creates a provider for apiKey. An empty from uses
// DefaultFrom.
func NewResendProvider(apiKey, from string) *ResendProvider {
	return NewResendProviderWithClient(resend.NewClient(apiKey), from)
}

// NewResendProviderWithClient wraps an existing client.
func NewResendProviderWithClient(client *resend.Client, from string) *ResendProvider {
	if from == "" {
		from = DefaultFrom
	}
	return &ResendProvider{client: client, from: from}
}

// Send implements Provider.
func (p *ResendProvider) Send(ctx context.Context, msg Message) (*Receipt, error) {
	req := &resend.SendEmailRequest{
		From:    p.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	}
	resp, err := p.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return nil, classifyResendError(ctx, err)
	}
	return &Receipt{ID: resp.Id}, nil
}

// classifyResendError treats anything that got an answer from the API as a
// rejection.
func classifyResendError(ctx context.Context, err error) *DeliveryError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return internal(0, "send cancelled", ctxErr)
	}
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return internal(0, "resend unreachable", err)
	}
	return rejected(0, err.Error(), err)
}

// SMTPConfig holds SMTP settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// SMTPProvider delivers over SMTP with PLAIN auth.
type SMTPProvider struct {
	config   SMTPConfig
	server   string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPProvider creates an SMTP provider.
func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPProvider{
		config:   cfg,
		server:   net.JoinHostPort(cfg.Host, cfg.Port),
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

// IsConfigured reports whether host, port and sender are set.
func (p *SMTPProvider) IsConfigured() bool {
	return p.config.Host != "" && p.config.Port != "" && p.config.From != ""
}

// Send implements Provider. net/smtp has no context support, so ctx is only
// checked before dialing.
func (p *SMTPProvider) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if !p.IsConfigured() {
		return nil, internal(0, "smtp not configured", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, internal(0, "send cancelled", err)
	}

	err := p.sendMail(p.server, p.auth, p.config.From, []string{msg.To}, p.compose(msg))
	if err != nil {
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) {
			return nil, rejected(0, protoErr.Msg, err)
		}
		return nil, internal(0, "smtp send failed", err)
	}
	return &Receipt{}, nil
}

func (p *SMTPProvider) compose(msg Message) []byte {
	from := p.config.From
	if p.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", p.config.FromName, p.config.From)
	}
	boundary := "boundary-akpandey"

	var b bytes.Buffer
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "From: %s\r\n", from)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", headerSafe(msg.Subject))
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	fmt.Fprintf(&b, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Please view this email in an HTML-capable email client.\r\n\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	fmt.Fprintf(&b, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "%s\r\n\r\n", msg.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.Bytes()
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
