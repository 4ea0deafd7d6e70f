package messaging

import (
	"go.uber.org/zap"
)

// Policy decides whether a failed send is surfaced to the end user. With
// FailOpen set the failure is logged and the form still reports success.
type Policy struct {
	FailOpen bool
	Log      *zap.Logger
}

// Resolve returns nil when every result succeeded or the policy fails
// open, otherwise the first delivery error.
func (p Policy) Resolve(operation string, results ...Result) error {
	var first *DeliveryError
	for _, r := range results {
		if r.OK() {
			continue
		}
		if first == nil {
			first = r.Err
		}
		if p.Log != nil {
			p.Log.Warn("delivery failure",
				zap.String("operation", operation),
				zap.String("kind", string(r.Err.Kind)),
				zap.Bool("fail_open", p.FailOpen),
				zap.Error(r.Err),
			)
		}
	}
	if first == nil || p.FailOpen {
		return nil
	}
	return first
}

// ResolveOutcome applies Resolve to both halves of an Outcome.
func (p Policy) ResolveOutcome(operation string, o Outcome) error {
	return p.Resolve(operation, o.User, o.Admin)
}
