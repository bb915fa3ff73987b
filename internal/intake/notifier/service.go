// Package notifier sends the administrator notice, the confirmant
// acknowledgement and the operator failure notice for one submission.
package notifier

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	awsx "form-coopecobana/internal/common/aws"
	"form-coopecobana/internal/common/errors"
	"form-coopecobana/internal/common/logger"
	"form-coopecobana/internal/common/mail"
	"form-coopecobana/internal/common/metrics"
	"form-coopecobana/internal/common/observability"
	"form-coopecobana/internal/intake/validator"
)

type ServiceDependencies struct {
	Logger        logger.Logger
	Relay         mail.Relay
	SNS           awsx.SNSService // optional
	Observability *observability.Observability
	Clock         func() time.Time
}

type Service struct {
	config *Config
	logger logger.Logger
	relay  mail.Relay
	sns    awsx.SNSService
	obs    *observability.Observability
	now    func() time.Time
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	obs := deps.Observability
	if obs == nil {
		obs = observability.NewNoop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		config: config,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
		relay:  deps.Relay,
		sns:    deps.SNS,
		obs:    obs,
		now:    now,
	}
}

// NotifyAdministrators sends the full record and its attachments to the
// administrator list. The subject is the normalized national ID.
func (s *Service) NotifyAdministrators(ctx context.Context, rec *validator.SubmissionRecord) Outcome {
	return s.deliver(ctx, KindAdministrators, func() (*mail.Message, error) {
		body, err := render(KindAdministrators, s.data(rec, ""))
		if err != nil {
			return nil, err
		}
		msg := s.newMessage(s.config.AdminRecipients, rec.NationalID, body)
		for _, a := range rec.Attachments {
			msg.Attachments = append(msg.Attachments, mail.Attachment{
				Filename:    a.Name,
				ContentType: a.ContentType,
				Content:     a.Content,
			})
		}
		return msg, nil
	})
}

// NotifyConfirmant sends the acknowledgement, without attachments, to the
// submitter's primary address.
func (s *Service) NotifyConfirmant(ctx context.Context, rec *validator.SubmissionRecord) Outcome {
	return s.deliver(ctx, KindConfirmant, func() (*mail.Message, error) {
		body, err := render(KindConfirmant, s.data(rec, ""))
		if err != nil {
			return nil, err
		}
		return s.newMessage([]string{rec.Email}, confirmationSubject(rec), body), nil
	})
}

// NotifyFailure tells the administrators that a submission could not be
// delivered, and publishes the same text to the alert topic when one is
// configured. The returned outcome is the email's; the SNS result is only logged.
func (s *Service) NotifyFailure(ctx context.Context, rec *validator.SubmissionRecord, reason string) Outcome {
	var body string
	out := s.deliver(ctx, KindFailureNotice, func() (*mail.Message, error) {
		var err error
		body, err = render(KindFailureNotice, s.data(rec, reason))
		if err != nil {
			return nil, err
		}
		return s.newMessage(s.config.AdminRecipients, failureNoticeSubject, body), nil
	})

	if s.sns != nil && s.config.AlertTopicARN != "" && body != "" {
		s.publishAlert(ctx, body)
	}
	return out
}

func (s *Service) publishAlert(ctx context.Context, body string) {
	start := s.now()
	out := Outcome{Kind: KindOperatorAlert}

	err := s.guard(func() error {
		ctx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
		defer cancel()
		_, err := s.sns.Publish(ctx, &sns.PublishInput{
			TopicArn: aws.String(s.config.AlertTopicARN),
			Subject:  aws.String(operatorAlertSubject),
			Message:  aws.String(body),
		})
		return err
	})
	out.Duration = s.now().Sub(start)
	if err != nil {
		out.Err = mail.Classify(string(KindOperatorAlert), err)
	} else {
		out.Delivered = true
	}
	s.record(ctx, out)
}

// deliver runs one relay attempt under the send timeout. It never panics and
// never returns an error: every failure becomes a typed Outcome.
func (s *Service) deliver(ctx context.Context, kind Kind, build func() (*mail.Message, error)) Outcome {
	ctx, span := s.obs.StartSpan(ctx, "notifier."+string(kind), attribute.String("notification.kind", string(kind)))
	defer span.End()

	start := s.now()
	out := Outcome{Kind: kind}

	err := s.guard(func() error {
		if s.relay == nil {
			return fmt.Errorf("no mail relay configured")
		}
		msg, err := build()
		if err != nil {
			return err
		}
		sendCtx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
		defer cancel()
		return s.relay.Send(sendCtx, msg)
	})
	out.Duration = s.now().Sub(start)

	if err != nil {
		if stdErr, ok := err.(*errors.StandardError); ok && stdErr.Code == errors.ErrCodeSystemError {
			out.Err = stdErr
		} else {
			out.Err = mail.Classify(string(kind), err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, out.Err.Reason())
	} else {
		out.Delivered = true
	}

	s.record(ctx, out)
	return out
}

// guard converts a panic in fn into a SystemError.
func (s *Service) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewPanicError(r, debug.Stack())
		}
	}()
	return fn()
}

func (s *Service) record(ctx context.Context, out Outcome) {
	metrics.NotificationsTotal.WithLabelValues(string(out.Kind), out.status()).Inc()
	metrics.NotificationDuration.WithLabelValues(string(out.Kind)).Observe(out.Duration.Seconds())
	s.obs.RecordRelayCall(ctx, string(out.Kind), out.status(), out.Duration)

	fields := map[string]interface{}{
		"kind":       string(out.Kind),
		"durationMs": out.Duration.Milliseconds(),
	}
	if out.Delivered {
		s.logger.Info("Notification delivered", fields)
		return
	}
	fields["errorCode"] = string(out.Err.Code)
	fields["reason"] = out.Reason()
	if stack, ok := out.Err.Metadata["stack"]; ok {
		fields["stack"] = stack
	}
	s.logger.Error("Notification failed", fields)
}

func (s *Service) data(rec *validator.SubmissionRecord, reason string) templateData {
	return templateData{
		Record:       rec,
		SentAt:       formatDisplayTime(s.now(), s.config.Location),
		ContactEmail: s.config.ContactEmail,
		Reason:       reason,
	}
}

func (s *Service) newMessage(to []string, subject, body string) *mail.Message {
	return &mail.Message{
		From:    s.config.From,
		To:      to,
		ReplyTo: s.config.ReplyTo,
		Subject: subject,
		Body:    body,
		Date:    s.now(),
	}
}
