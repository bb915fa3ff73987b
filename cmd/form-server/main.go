package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	awsx "form-coopecobana/internal/common/aws"
	"form-coopecobana/internal/common/config"
	httpx "form-coopecobana/internal/common/http"
	"form-coopecobana/internal/common/logger"
	"form-coopecobana/internal/common/mail"
	"form-coopecobana/internal/common/observability"
	"form-coopecobana/internal/intake/api"
	"form-coopecobana/internal/intake/deadline"
	"form-coopecobana/internal/intake/notifier"
	"form-coopecobana/internal/intake/submission"
	"form-coopecobana/internal/intake/validator"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting form server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("mailProvider", cfg.Mail.Provider),
	)

	obs := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		SampleRatio:    cfg.Observability.SampleRatio,
	})
	defer obs.Shutdown()

	ctx := context.Background()

	cutoff, err := cfg.Form.Cutoff()
	if err != nil {
		zapLog.Fatal("invalid close date", zap.Error(err))
	}
	location := cfg.Form.Location()

	// --- Mail relay ---
	relay, err := mail.NewFromConfig(ctx, cfg)
	if err != nil {
		zapLog.Fatal("mail relay init failed", zap.Error(err))
	}
	verifier, _ := relay.(mail.Verifier)
	if missing := config.MissingRelaySettings(cfg); len(missing) > 0 {
		zapLog.Warn("mail relay settings missing", zap.Strings("settings", missing))
	}
	if verifier != nil {
		err = retryWithBackoff(func() error {
			verifyCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Mail.SendTimeout))
			defer cancel()
			return verifier.Verify(verifyCtx)
		}, 3, 2*time.Second, zapLog, "Mail relay verification")
		if err != nil {
			// The form stays up; /ready reports the relay state.
			zapLog.Error("mail relay not reachable", zap.Error(err))
		} else {
			zapLog.Info("Mail relay verified", zap.String("relay", relay.Name()))
		}
	}

	// --- Operator alerts ---
	var snsClient awsx.SNSService
	if cfg.AWS.SNS.Enabled {
		awsCfg, err := awsx.LoadConfig(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		snsClient = awsx.NewSNSClient(awsCfg)
	}

	// --- Intake components ---
	validatorCfg := &validator.Config{
		Policy: validator.PolicyFromLimits(
			cfg.Form.MaxFileSizeMB,
			cfg.Form.MaxTotalSizeMB,
			cfg.Form.AllowedTypes,
			cfg.Form.AllowedExtensions,
		),
		RepresentationRule: validator.RepresentationRule(cfg.Form.RepresentationRule),
	}
	if err := validatorCfg.Validate(); err != nil {
		zapLog.Fatal("invalid validator configuration", zap.Error(err))
	}

	notifierCfg := &notifier.Config{
		From:            mail.SenderFromConfig(cfg),
		ReplyTo:         cfg.Mail.ReplyTo,
		AdminRecipients: cfg.Mail.AdminRecipients,
		SendTimeout:     config.GetDuration(cfg.Mail.SendTimeout),
		Location:        location,
		ContactEmail:    cfg.Form.ContactEmail,
	}
	if cfg.AWS.SNS.Enabled {
		notifierCfg.AlertTopicARN = cfg.AWS.SNS.AlertTopicARN
	}
	if err := notifierCfg.Validate(); err != nil {
		zapLog.Fatal("invalid notifier configuration", zap.Error(err))
	}

	gate := deadline.NewGate(cutoff, nil)
	svc := submission.NewService(submission.ServiceDependencies{
		Logger:    log,
		Gate:      gate,
		Validator: validator.New(validatorCfg),
		Notifier: notifier.NewService(notifier.ServiceDependencies{
			Logger:        log,
			Relay:         relay,
			SNS:           snsClient,
			Observability: obs,
		}, notifierCfg),
		Observability: obs,
	})

	zapLog.Info("Form configured",
		zap.Time("closesAt", cutoff),
		zap.Bool("open", svc.IsFormOpen()),
		zap.Strings("adminRecipients", cfg.Mail.AdminRecipients),
	)

	handler := api.NewHandler(api.HandlerDependencies{
		Logger:   log,
		Service:  svc,
		Verifier: verifier,
	}, api.Config{
		Policy:        validatorCfg.Policy,
		Location:      location,
		ReadyCacheTTL: config.GetDuration(cfg.Server.ReadyCacheTTL),
	})

	server := httpx.NewServer(cfg.Server.Addr(), handler.Routes(), config.GetDuration(cfg.Server.ReadHeaderTimeout))

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Form server stopped")
}
