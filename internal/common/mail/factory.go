package mail

import (
	"context"
	"fmt"

	awsx "form-coopecobana/internal/common/aws"
	"form-coopecobana/internal/common/config"
)

// NewFromConfig builds the relay selected by mail.provider.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Relay, error) {
	switch cfg.Mail.Provider {
	case config.ProviderSES:
		awsCfg, err := awsx.LoadConfig(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewSESRelay(awsx.NewSESClient(awsCfg), cfg.AWS.SES.ConfigurationSet), nil
	case config.ProviderSMTP, "":
		return NewSMTPRelay(SMTPConfig{
			Host:               cfg.Mail.SMTP.Host,
			Port:               cfg.Mail.SMTP.Port,
			Username:           cfg.Mail.SMTP.Username,
			Password:           cfg.Mail.SMTP.Password,
			UseTLS:             cfg.Mail.SMTP.UseTLS,
			InsecureSkipVerify: cfg.Mail.SMTP.InsecureSkipVerify,
			HelloName:          cfg.Mail.SMTP.HelloName,
			DialTimeout:        config.GetDuration(cfg.Mail.SendTimeout),
		}), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Mail.Provider)
	}
}

// SenderFromConfig returns the configured From address.
func SenderFromConfig(cfg *config.Config) Address {
	return Address{Name: cfg.Mail.FromName, Email: cfg.Mail.From}
}
