package notifier

import (
	"time"

	"form-coopecobana/internal/common/errors"
)

// Kind names one of the messages the notifier can send.
type Kind string

const (
	KindAdministrators Kind = "administrators"
	KindConfirmant     Kind = "confirmant"
	KindFailureNotice  Kind = "failure_notice"
	KindOperatorAlert  Kind = "operator_alert"
)

// Outcome is the typed result of one delivery attempt. Err is nil when Delivered.
type Outcome struct {
	Kind      Kind
	Delivered bool
	Err       *errors.StandardError
	Duration  time.Duration
}

// Reason is the operator-facing failure reason, empty on success.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Reason()
}

func (o Outcome) status() string {
	if o.Delivered {
		return "delivered"
	}
	return "failed"
}
