// Package submission runs one form submission from the deadline check to its
// terminal outcome.
package submission

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"form-coopecobana/internal/common/errors"
	"form-coopecobana/internal/common/logger"
	"form-coopecobana/internal/common/metrics"
	"form-coopecobana/internal/common/observability"
	"form-coopecobana/internal/intake/notifier"
	"form-coopecobana/internal/intake/validator"
)

type ServiceDependencies struct {
	Logger        logger.Logger
	Gate          Gate
	Validator     Validator
	Notifier      Notifier
	Observability *observability.Observability
}

type Service struct {
	logger    logger.Logger
	gate      Gate
	validator Validator
	notifier  Notifier
	obs       *observability.Observability
	errors    *errors.ErrorHandler
}

func NewService(deps ServiceDependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	obs := deps.Observability
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Service{
		logger:    log.WithFields(map[string]interface{}{"component": "submission"}),
		gate:      deps.Gate,
		validator: deps.Validator,
		notifier:  deps.Notifier,
		obs:       obs,
		errors:    errors.NewErrorHandler(log),
	}
}

// IsFormOpen reports whether submissions are accepted right now.
func (s *Service) IsFormOpen() bool {
	open := s.gate.IsOpen()
	if open {
		metrics.FormOpen.Set(1)
	} else {
		metrics.FormOpen.Set(0)
	}
	return open
}

// TimeRemaining is for display only. ok is false once the form has closed.
func (s *Service) TimeRemaining() (time.Duration, bool) {
	return s.gate.TimeRemaining()
}

func (s *Service) Cutoff() time.Time {
	return s.gate.Cutoff()
}

// Submit runs Idle -> DeadlineChecked -> Validated -> Notified -> Outcome.
// It always returns an Outcome; unexpected faults become KindSystemError.
// Cancellation of ctx does not interrupt a call that has started.
func (s *Service) Submit(ctx context.Context, in validator.SubmissionInput) (out Outcome) {
	ctx = context.WithoutCancel(ctx)
	id := uuid.NewString()
	log := s.logger.WithFields(map[string]interface{}{"submissionId": id})
	start := time.Now()

	ctx, span := s.obs.StartSpan(ctx, "submission.submit", attribute.String("submission.id", id))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			out = s.systemError(id, errors.NewPanicError(r, debug.Stack()))
		}
		out.SubmissionID = id
		span.SetAttributes(attribute.String("submission.outcome", string(out.Kind)))
		elapsed := time.Since(start)
		metrics.SubmissionsTotal.WithLabelValues(string(out.Kind)).Inc()
		metrics.SubmissionDuration.WithLabelValues(string(out.Kind)).Observe(elapsed.Seconds())
		s.obs.RecordSubmission(ctx, string(out.Kind), elapsed)
		transition(log, StateOutcome, map[string]interface{}{"outcome": string(out.Kind), "durationMs": elapsed.Milliseconds()})
	}()

	transition(log, StateIdle, nil)

	if !s.IsFormOpen() {
		transition(log, StateDeadlineChecked, map[string]interface{}{"open": false})
		return s.closed(id)
	}
	transition(log, StateDeadlineChecked, map[string]interface{}{"open": true})

	rec, failed := s.validate(ctx, id, in)
	if failed != nil {
		return *failed
	}
	transition(log, StateValidated, map[string]interface{}{
		"cedula":      rec.NationalID,
		"email":       rec.Email,
		"attachments": len(rec.Attachments),
	})

	admin, confirmant := s.notifyBoth(ctx, rec)
	transition(log, StateNotified, map[string]interface{}{
		"adminDelivered":      admin.Delivered,
		"confirmantDelivered": confirmant.Delivered,
	})

	decision := decide(admin, confirmant)
	if decision.Success {
		if !confirmant.Delivered {
			log.Warn("Confirmation not delivered, submission accepted", map[string]interface{}{
				"reason": confirmant.Reason(),
			})
		}
		return Outcome{Kind: KindSuccess, Success: true, Message: MessageSuccess, Redirect: RedirectSent}
	}

	cause := admin.Err
	if cause == nil {
		cause = errors.NewNotificationSendFailedError(string(notifier.KindAdministrators), nil)
	}
	s.errors.Handle(cause, map[string]interface{}{
		"submissionId": id,
		"cedula":       rec.NationalID,
		"reason":       decision.Reason,
	})
	if notice := s.notifier.NotifyFailure(ctx, rec, decision.Reason); !notice.Delivered {
		log.Error("Failure notice not delivered", map[string]interface{}{"reason": notice.Reason()})
	}

	return Outcome{
		Kind:    KindNotificationFailed,
		Success: false,
		Message: errors.PublicSendFailedMessage,
		Error:   errors.PublicSendFailedError,
		Details: decision.Details,
	}
}

func (s *Service) validate(ctx context.Context, id string, in validator.SubmissionInput) (*validator.SubmissionRecord, *Outcome) {
	_, span := s.obs.StartSpan(ctx, "submission.validate")
	defer span.End()

	rec, err := s.validator.Validate(in)
	if err == nil {
		if rec == nil {
			out := s.systemError(id, errors.NewSystemError("validator returned neither record nor error", nil))
			return nil, &out
		}
		return rec, nil
	}

	var vErr *validator.ValidationError
	if !stderrors.As(err, &vErr) {
		out := s.systemError(id, errors.NewSystemError("validator failed", err))
		return nil, &out
	}

	for _, fe := range vErr.Errors {
		field := fe.Field
		if fe.IsAttachment() {
			field = validator.FieldAttachments
		}
		metrics.ValidationErrorsTotal.WithLabelValues(field).Inc()
	}
	stdErr := s.errors.Handle(errors.NewValidationFailedError(vErr.Messages()), map[string]interface{}{
		"submissionId": id,
	})

	message, _ := s.errors.PublicMessage(stdErr)
	if vErr.OnlyAttachments() {
		message = errors.PublicAttachmentsMessage
	}
	return nil, &Outcome{
		Kind:        KindValidationFailed,
		Message:     message,
		Error:       vErr.Error(),
		FieldErrors: vErr.Errors,
	}
}

// notifyBoth attempts both deliveries concurrently and waits for both. The
// goroutines never return an error so one failure cannot cancel the other.
func (s *Service) notifyBoth(ctx context.Context, rec *validator.SubmissionRecord) (admin, confirmant notifier.Outcome) {
	var g errgroup.Group
	g.Go(func() error {
		admin = s.safeNotify(notifier.KindAdministrators, func() notifier.Outcome {
			return s.notifier.NotifyAdministrators(ctx, rec)
		})
		return nil
	})
	g.Go(func() error {
		confirmant = s.safeNotify(notifier.KindConfirmant, func() notifier.Outcome {
			return s.notifier.NotifyConfirmant(ctx, rec)
		})
		return nil
	})
	_ = g.Wait()
	return admin, confirmant
}

// safeNotify keeps a panicking notifier from taking down the process; a
// panic in a goroutine is not caught by Submit's recover.
func (s *Service) safeNotify(kind notifier.Kind, fn func() notifier.Outcome) (out notifier.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = notifier.Outcome{Kind: kind, Err: errors.NewPanicError(r, debug.Stack())}
		}
	}()
	return fn()
}

func (s *Service) systemError(id string, stdErr *errors.StandardError) Outcome {
	s.errors.Handle(stdErr, map[string]interface{}{"submissionId": id})
	message, detail := s.errors.PublicMessage(stdErr)
	return Outcome{
		Kind:    KindSystemError,
		Message: message,
		Error:   detail,
	}
}

func (s *Service) closed(id string) Outcome {
	stdErr := s.errors.Handle(errors.NewFormClosedError(s.gate.Cutoff()), map[string]interface{}{
		"submissionId": id,
	})
	message, _ := s.errors.PublicMessage(stdErr)
	return Outcome{
		Kind:     KindClosed,
		Message:  message,
		Redirect: RedirectClosed,
	}
}

func transition(log logger.Logger, state State, fields map[string]interface{}) {
	f := map[string]interface{}{"state": string(state)}
	for k, v := range fields {
		f[k] = v
	}
	log.Debug(fmt.Sprintf("Submission %s", strings.ReplaceAll(string(state), "_", " ")), f)
}
