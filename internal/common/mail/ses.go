package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	awsx "form-coopecobana/internal/common/aws"
)

// SESRelay sends the rendered MIME message through SES SendRawEmail, which
// unlike SendEmail supports attachments.
type SESRelay struct {
	client           awsx.SESService
	configurationSet string
}

func NewSESRelay(client awsx.SESService, configurationSet string) *SESRelay {
	return &SESRelay{client: client, configurationSet: configurationSet}
}

func (r *SESRelay) Name() string { return "ses" }

func (r *SESRelay) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	raw, err := BuildMIME(msg)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	input := &ses.SendRawEmailInput{
		RawMessage:   &types.RawMessage{Data: raw},
		Destinations: msg.To,
		Source:       aws.String(msg.From.String()),
	}
	if r.configurationSet != "" {
		input.ConfigurationSetName = aws.String(r.configurationSet)
	}

	if _, err := r.client.SendRawEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send raw email: %w", err)
	}
	return nil
}

// Verify checks credentials by reading the account send quota.
func (r *SESRelay) Verify(ctx context.Context) error {
	out, err := r.client.GetSendQuota(ctx, &ses.GetSendQuotaInput{})
	if err != nil {
		return fmt.Errorf("ses get send quota: %w", err)
	}
	if out.Max24HourSend > 0 && out.SentLast24Hours >= out.Max24HourSend {
		return fmt.Errorf("ses daily quota exhausted: %.0f/%.0f", out.SentLast24Hours, out.Max24HourSend)
	}
	return nil
}
