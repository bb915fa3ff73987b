package mail

import (
	"context"
	stderrors "errors"
	"net"
	"net/textproto"

	"github.com/aws/smithy-go"

	"form-coopecobana/internal/common/errors"
)

// Relay delivers one message in a single attempt.
type Relay interface {
	Send(ctx context.Context, msg *Message) error
	Name() string
}

// Verifier is implemented by relays that can check connectivity and credentials
// without sending anything.
type Verifier interface {
	Verify(ctx context.Context) error
}

var sesAuthCodes = map[string]bool{
	"InvalidClientTokenId":        true,
	"SignatureDoesNotMatch":       true,
	"AccessDenied":                true,
	"AccessDeniedException":       true,
	"UnrecognizedClientException": true,
	"ExpiredToken":                true,
	"MissingAuthenticationToken":  true,
	"IncompleteSignature":         true,
}

// Classify turns a relay error into a typed StandardError naming the failure reason.
func Classify(notificationType string, err error) *errors.StandardError {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewMailTimeoutError(notificationType, err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewMailTimeoutError(notificationType, err)
	}

	var tpErr *textproto.Error
	if stderrors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535, 538:
			return errors.NewMailAuthFailedError(notificationType, err)
		}
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) && sesAuthCodes[apiErr.ErrorCode()] {
		return errors.NewMailAuthFailedError(notificationType, err)
	}

	var opErr *net.OpError
	if stderrors.As(err, &opErr) && opErr.Op == "dial" {
		return errors.NewMailConnectionFailedError(notificationType, err)
	}
	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return errors.NewMailConnectionFailedError(notificationType, err)
	}

	return errors.NewNotificationSendFailedError(notificationType, err)
}
