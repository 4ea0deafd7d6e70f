// Package messaging sends transactional email: the branded confirmation
// messages for bookings, proposals and applications, delivered locally,
// through the /api/send relay, or straight to a provider.
package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message is one outbound email.
type Message struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	HTML    string `json:"html" validate:"required"`
	ReplyTo string `json:"replyTo,omitempty" validate:"omitempty,email"`
}

// Receipt is what the provider returned for an accepted message.
type Receipt struct {
	ID string `json:"id,omitempty"`
	// Simulated is set when the message never left the process.
	Simulated bool `json:"simulated,omitempty"`
	// Payload is the raw provider response, passed through by the relay.
	Payload json.RawMessage `json:"-"`
}

// Result is the outcome of one send. Exactly one of Receipt and Err is set.
type Result struct {
	Receipt *Receipt
	Err     *DeliveryError
}

// OK reports whether the message was accepted.
func (r Result) OK() bool {
	return r.Err == nil
}

// Delivered wraps a receipt.
func Delivered(rcpt *Receipt) Result {
	if rcpt == nil {
		rcpt = &Receipt{}
	}
	return Result{Receipt: rcpt}
}

// Failed wraps err, classifying anything that is not a DeliveryError as an
// internal failure.
func Failed(err error) Result {
	var de *DeliveryError
	if errors.As(err, &de) {
		return Result{Err: de}
	}
	return Result{Err: &DeliveryError{Kind: KindInternal, Message: "send failed", Cause: err}}
}

// FailureKind separates a provider refusing a message from the message
// never reaching it.
type FailureKind string

const (
	// KindRejected means the provider answered with an error.
	KindRejected FailureKind = "rejected"
	// KindInternal covers transport errors, timeouts and misconfiguration.
	KindInternal FailureKind = "internal"
)

// DeliveryError describes a failed send.
type DeliveryError struct {
	Kind FailureKind
	// Status is the HTTP status seen on the wire, if any.
	Status  int
	Message string
	Cause   error
}

func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("delivery %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("delivery %s: %s", e.Kind, e.Message)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// Rejected reports whether the provider refused the message.
func (e *DeliveryError) Rejected() bool {
	return e != nil && e.Kind == KindRejected
}

func rejected(status int, msg string, cause error) *DeliveryError {
	return &DeliveryError{Kind: KindRejected, Status: status, Message: msg, Cause: cause}
}

func internal(status int, msg string, cause error) *DeliveryError {
	return &DeliveryError{Kind: KindInternal, Status: status, Message: msg, Cause: cause}
}
