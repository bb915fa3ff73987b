package notifier

import (
	"fmt"
	"time"

	"form-coopecobana/internal/common/mail"
)

type Config struct {
	From            mail.Address
	ReplyTo         string
	AdminRecipients []string
	// SendTimeout bounds a single relay call. A call still pending when it
	// expires is reported as a failed delivery.
	SendTimeout  time.Duration
	Location     *time.Location
	ContactEmail string
	// AlertTopicARN enables the SNS copy of the failure notice when set.
	AlertTopicARN string
}

func DefaultConfig() *Config {
	loc, err := time.LoadLocation("America/Costa_Rica")
	if err != nil {
		loc = time.FixedZone("CST", -6*60*60)
	}
	return &Config{
		From:         mail.Address{Name: "COOPECOBANA R.L.", Email: "noreply@coopecobanarl.com"},
		SendTimeout:  30 * time.Second,
		Location:     loc,
		ContactEmail: "coopecobana@outlook.com",
	}
}

func (c *Config) Validate() error {
	if c.From.Email == "" {
		return fmt.Errorf("sender address is required")
	}
	if len(c.AdminRecipients) == 0 {
		return fmt.Errorf("at least one administrator recipient is required")
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("send timeout must be positive")
	}
	if c.Location == nil {
		return fmt.Errorf("display location is required")
	}
	return nil
}
