package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Mode selects how the client delivers.
type Mode string

const (
	// ModeLocal logs the message and resolves after a short delay.
	ModeLocal Mode = "local"
	// ModeRelay posts to the /api/send endpoint.
	ModeRelay Mode = "relay"
	// ModeDirect calls a Provider in process.
	ModeDirect Mode = "direct"
)

// ParseMode validates a configured mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeLocal, ModeRelay, ModeDirect:
		return m, nil
	case "":
		return ModeLocal, nil
	default:
		return "", fmt.Errorf("unknown messaging mode: %q", s)
	}
}

// DefaultLocalDelay mirrors the latency of a real send.
const DefaultLocalDelay = 800 * time.Millisecond

// Sender is anything that can deliver a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) Result
}

// Client delivers messages in one Mode. It reports every failure in the
// Result and never substitutes success for one.
type Client struct {
	mode       Mode
	relayURL   string
	provider   Provider
	httpClient *http.Client
	delay      time.Duration
	log        *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRelayURL sets the /api/send endpoint for ModeRelay.
func WithRelayURL(u string) ClientOption {
	return func(c *Client) { c.relayURL = u }
}

// WithProvider sets the provider for ModeDirect.
func WithProvider(p Provider) ClientOption {
	return func(c *Client) { c.provider = p }
}

// WithHTTPClient overrides the relay HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLocalDelay overrides the simulated delay of ModeLocal.
func WithLocalDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.delay = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client.
func NewClient(mode Mode, opts ...ClientOption) (*Client, error) {
	c := &Client{
		mode:       mode,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		delay:      DefaultLocalDelay,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	switch mode {
	case ModeLocal:
	case ModeRelay:
		if c.relayURL == "" {
			return nil, fmt.Errorf("relay mode requires a relay URL")
		}
	case ModeDirect:
		if c.provider == nil {
			return nil, fmt.Errorf("direct mode requires a provider")
		}
	default:
		return nil, fmt.Errorf("unknown messaging mode: %q", mode)
	}
	return c, nil
}

// Mode returns the delivery mode.
func (c *Client) Mode() Mode {
	return c.mode
}

// Send delivers msg.
func (c *Client) Send(ctx context.Context, msg Message) Result {
	switch c.mode {
	case ModeLocal:
		return c.simulate(ctx, msg)
	case ModeRelay:
		return c.relay(ctx, msg)
	default:
		rcpt, err := c.provider.Send(ctx, msg)
		if err != nil {
			return Failed(err)
		}
		return Delivered(rcpt)
	}
}

func (c *Client) simulate(ctx context.Context, msg Message) Result {
	c.log.Info("simulated email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
	)
	c.log.Debug("simulated email body", zap.String("html", msg.HTML))

	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Failed(internal(0, "send cancelled", ctx.Err()))
		}
	}
	return Delivered(&Receipt{Simulated: true})
}

// relayError is the body /api/send answers with on failure.
type relayError struct {
	Error json.RawMessage `json:"error"`
}

func (c *Client) relay(ctx context.Context, msg Message) Result {
	body, err := json.Marshal(msg)
	if err != nil {
		return Failed(internal(0, "failed to encode message", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL, bytes.NewReader(body))
	if err != nil {
		return Failed(internal(0, "failed to create request", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Failed(internal(0, "relay unreachable", err))
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Failed(internal(resp.StatusCode, "failed to read relay response", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		rcpt := &Receipt{Payload: json.RawMessage(payload)}
		var decoded struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(payload, &decoded) == nil {
			rcpt.ID = decoded.ID
		}
		return Delivered(rcpt)
	}

	message := relayMessage(payload, resp.StatusCode)
	if resp.StatusCode == http.StatusBadRequest {
		return Failed(rejected(resp.StatusCode, message, nil))
	}
	return Failed(internal(resp.StatusCode, message, nil))
}

func relayMessage(payload []byte, status int) string {
	var body relayError
	if err := json.Unmarshal(payload, &body); err == nil && len(body.Error) > 0 {
		var s string
		if json.Unmarshal(body.Error, &s) == nil {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
		return string(body.Error)
	}
	return fmt.Sprintf("relay returned status %d", status)
}
