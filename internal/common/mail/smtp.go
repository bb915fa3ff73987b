package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// SMTPConfig holds the connection settings of an SMTP submission server.
type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
	HelloName          string
	DialTimeout        time.Duration
}

// SMTPRelay sends messages over SMTP with STARTTLS and PLAIN auth.
type SMTPRelay struct {
	config SMTPConfig
	dialer *net.Dialer
}

func NewSMTPRelay(cfg SMTPConfig) *SMTPRelay {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	return &SMTPRelay{
		config: cfg,
		dialer: &net.Dialer{Timeout: cfg.DialTimeout},
	}
}

func (r *SMTPRelay) Name() string { return "smtp" }

func (r *SMTPRelay) addr() string {
	return net.JoinHostPort(r.config.Host, strconv.Itoa(r.config.Port))
}

func (r *SMTPRelay) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	raw, err := BuildMIME(msg)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	client, cleanup, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err = client.Mail(msg.From.Email); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, addr := range msg.To {
		if err = client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", addr, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err = w.Write(raw); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// Verify dials, negotiates TLS and authenticates, then quits.
func (r *SMTPRelay) Verify(ctx context.Context) error {
	client, cleanup, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return client.Quit()
}

// open returns an authenticated client. The connection deadline follows ctx and
// the connection is closed if ctx is cancelled first.
func (r *SMTPRelay) open(ctx context.Context) (*smtp.Client, func(), error) {
	conn, err := r.dialer.DialContext(ctx, "tcp", r.addr())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	client, err := smtp.NewClient(conn, r.config.Host)
	if err != nil {
		stop()
		_ = conn.Close()
		return nil, nil, wrapCtx(ctx, fmt.Errorf("failed to start SMTP session: %w", err))
	}
	cleanup := func() {
		stop()
		_ = client.Close()
	}

	if r.config.HelloName != "" {
		if err = client.Hello(r.config.HelloName); err != nil {
			cleanup()
			return nil, nil, wrapCtx(ctx, fmt.Errorf("HELO failed: %w", err))
		}
	}

	if r.config.UseTLS {
		tlsConfig := &tls.Config{
			ServerName:         r.config.Host,
			InsecureSkipVerify: r.config.InsecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
		}
		if err = client.StartTLS(tlsConfig); err != nil {
			cleanup()
			return nil, nil, wrapCtx(ctx, fmt.Errorf("failed to start TLS: %w", err))
		}
	}

	if r.config.Username != "" && r.config.Password != "" {
		auth := smtp.PlainAuth("", r.config.Username, r.config.Password, r.config.Host)
		if err = client.Auth(auth); err != nil {
			cleanup()
			return nil, nil, wrapCtx(ctx, fmt.Errorf("SMTP authentication failed: %w", err))
		}
	}

	return client, cleanup, nil
}

// wrapCtx attaches the context error when a closed connection was the symptom.
func wrapCtx(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w (%w)", err, ctxErr)
	}
	return err
}
