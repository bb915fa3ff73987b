package submission

import (
	"context"
	"time"

	"form-coopecobana/internal/intake/notifier"
	"form-coopecobana/internal/intake/validator"
)

// State is a step of one orchestration call. Every call ends in StateOutcome.
type State string

const (
	StateIdle            State = "idle"
	StateDeadlineChecked State = "deadline_checked"
	StateValidated       State = "validated"
	StateNotified        State = "notified"
	StateOutcome         State = "outcome"
)

// Kind classifies a terminal outcome.
type Kind string

const (
	KindSuccess            Kind = "success"
	KindClosed             Kind = "closed"
	KindValidationFailed   Kind = "validation_failed"
	KindNotificationFailed Kind = "notification_failed"
	KindSystemError        Kind = "system_error"
)

const (
	RedirectSent   = "/enviado"
	RedirectClosed = "/cerrado"

	MessageSuccess = "Formulario enviado exitosamente"

	detailAdminFailed        = "Error al enviar correo a administradores"
	detailConfirmationFailed = "Error al enviar confirmación"
)

// Outcome is what the caller of Submit sees. It carries no relay reasons or
// internal fault detail; those are only logged.
type Outcome struct {
	SubmissionID string                 `json:"submissionId"`
	Kind         Kind                   `json:"kind"`
	Success      bool                   `json:"success"`
	Message      string                 `json:"message"`
	Error        string                 `json:"error,omitempty"`
	Details      string                 `json:"details,omitempty"`
	Redirect     string                 `json:"redirect,omitempty"`
	FieldErrors  []validator.FieldError `json:"fieldErrors,omitempty"`
}

// Gate is the deadline check used by the orchestrator.
type Gate interface {
	IsOpen() bool
	TimeRemaining() (time.Duration, bool)
	Cutoff() time.Time
}

type Validator interface {
	Validate(in validator.SubmissionInput) (*validator.SubmissionRecord, error)
}

type Notifier interface {
	NotifyAdministrators(ctx context.Context, rec *validator.SubmissionRecord) notifier.Outcome
	NotifyConfirmant(ctx context.Context, rec *validator.SubmissionRecord) notifier.Outcome
	NotifyFailure(ctx context.Context, rec *validator.SubmissionRecord, reason string) notifier.Outcome
}
