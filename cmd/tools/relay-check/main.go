package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"form-coopecobana/internal/common/config"
	"form-coopecobana/internal/common/errors"
	"form-coopecobana/internal/common/mail"
)

func main() {
	configCmd := flag.NewFlagSet("config", flag.ExitOnError)
	verifyCmd := flag.NewFlagSet("verify", flag.ExitOnError)
	sendCmd := flag.NewFlagSet("send", flag.ExitOnError)

	configPath := ""
	for _, fs := range []*flag.FlagSet{configCmd, verifyCmd, sendCmd} {
		fs.StringVar(&configPath, "config", "", "Path to a config file (default: configs/config.yaml discovery)")
	}

	verifyTimeout := verifyCmd.Duration("timeout", 30*time.Second, "Connection timeout")

	to := sendCmd.String("to", "", "Recipient address (default: first administrator)")
	subject := sendCmd.String("subject", "Prueba de envío - COOPECOBANA", "Subject line")
	sendTimeout := sendCmd.Duration("timeout", 30*time.Second, "Send timeout")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "config":
		configCmd.Parse(os.Args[2:])
		cfg := load(configPath)
		printConfig(cfg)
		if missing := config.MissingRelaySettings(cfg); len(missing) > 0 {
			fmt.Printf("Missing settings: %s\n", strings.Join(missing, ", "))
			os.Exit(1)
		}
		fmt.Println("Relay configuration complete.")

	case "verify":
		verifyCmd.Parse(os.Args[2:])
		cfg := load(configPath)
		relay := newRelay(cfg)
		verifier, ok := relay.(mail.Verifier)
		if !ok {
			fmt.Printf("Relay %s cannot be verified without sending.\n", relay.Name())
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), *verifyTimeout)
		defer cancel()
		if err := verifier.Verify(ctx); err != nil {
			fail("verify", err)
		}
		fmt.Printf("Relay %s verified.\n", relay.Name())

	case "send":
		sendCmd.Parse(os.Args[2:])
		cfg := load(configPath)
		recipient := *to
		if recipient == "" && len(cfg.Mail.AdminRecipients) > 0 {
			recipient = cfg.Mail.AdminRecipients[0]
		}
		if recipient == "" {
			fmt.Println("Error: -to is required when no administrator is configured.")
			sendCmd.Usage()
			os.Exit(1)
		}

		relay := newRelay(cfg)
		msg := &mail.Message{
			From:    mail.SenderFromConfig(cfg),
			To:      []string{recipient},
			ReplyTo: cfg.Mail.ReplyTo,
			Subject: *subject,
			Body: fmt.Sprintf("Correo de prueba del sistema de formularios COOPECOBANA.\nRelay: %s\nFecha: %s",
				relay.Name(), time.Now().In(cfg.Form.Location()).Format("2/1/2006, 15:04:05")),
		}
		ctx, cancel := context.WithTimeout(context.Background(), *sendTimeout)
		defer cancel()
		if err := relay.Send(ctx, msg); err != nil {
			fail("send", err)
		}
		fmt.Printf("Test message sent to %s via %s.\n", recipient, relay.Name())

	case "help":
		fallthrough
	default:
		help()
	}
}

func load(path string) *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		if errors.GetErrorCode(err) == errors.ErrCodeInvalidConfiguration {
			os.Exit(2)
		}
		os.Exit(1)
	}
	return cfg
}

func newRelay(cfg *config.Config) mail.Relay {
	relay, err := mail.NewFromConfig(context.Background(), cfg)
	if err != nil {
		fmt.Printf("Error creating relay: %v\n", err)
		os.Exit(1)
	}
	return relay
}

func fail(op string, err error) {
	stdErr := mail.Classify(op, err)
	fmt.Printf("%s failed: %s\n", op, stdErr.Reason())
	if errors.IsRetryable(stdErr) {
		fmt.Println("The failure looks transient, try again in a few minutes.")
	}
	os.Exit(1)
}

func printConfig(cfg *config.Config) {
	fmt.Printf("Provider:        %s\n", cfg.Mail.Provider)
	fmt.Printf("From:            %s\n", mail.SenderFromConfig(cfg))
	fmt.Printf("Reply-To:        %s\n", cfg.Mail.ReplyTo)
	fmt.Printf("Administrators:  %s\n", strings.Join(cfg.Mail.AdminRecipients, ", "))
	fmt.Printf("Send timeout:    %s\n", config.GetDuration(cfg.Mail.SendTimeout))
	switch cfg.Mail.Provider {
	case config.ProviderSMTP:
		fmt.Printf("SMTP server:     %s:%d (STARTTLS: %t)\n", cfg.Mail.SMTP.Host, cfg.Mail.SMTP.Port, cfg.Mail.SMTP.UseTLS)
		fmt.Printf("SMTP user:       %s\n", cfg.Mail.SMTP.Username)
		fmt.Printf("SMTP password:   %s\n", mask(cfg.Mail.SMTP.Password))
	case config.ProviderSES:
		fmt.Printf("AWS region:      %s\n", cfg.AWS.Region)
		fmt.Printf("SES config set:  %s\n", cfg.AWS.SES.ConfigurationSet)
	}
	fmt.Printf("Form closes at:  %s\n", cfg.Form.CloseDate)
}

func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return strings.Repeat("*", 8)
}

func help() {
	fmt.Println("Usage: relay-check <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  config    Print the relay configuration and report missing settings")
	fmt.Println("  verify    Connect and authenticate against the relay without sending")
	fmt.Println("  send      Send a test message")
	fmt.Println("  help      Show this help message")
	fmt.Println("Exit status is 2 when the configuration is invalid.")
}
