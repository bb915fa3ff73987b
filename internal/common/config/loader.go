package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"form-coopecobana/internal/common/errors"
)

const (
	ProviderSMTP = "smtp"
	ProviderSES  = "ses"
)

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml,
// expands ${VAR} placeholders and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindKnownKeys(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindKnownKeys(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)
	normalize(&cfg)

	if vErr := validateConfig(&cfg); vErr != nil {
		return nil, fmt.Errorf("invalid configuration: %s: %w", vErr.Details, vErr)
	}

	return &cfg, nil
}

// bindKnownKeys makes AutomaticEnv see keys that have no yaml entry.
func bindKnownKeys(v *viper.Viper) {
	for _, key := range []string{
		"app.environment",
		"server.port",
		"form.close_date",
		"form.time_zone",
		"form.representation_rule",
		"mail.provider",
		"mail.send_timeout",
		"mail.smtp.host",
		"mail.smtp.port",
		"mail.smtp.username",
		"mail.smtp.password",
		"aws.region",
		"aws.sns.enabled",
		"aws.sns.alert_topic_arn",
		"logging.level",
		"logging.format",
		"observability.jaeger_endpoint",
	} {
		_ = v.BindEnv(key)
	}
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig honours the variable names used by earlier deployments of the form.
func overrideEmptyConfig(cfg *Config) {
	if val := os.Getenv("FORM_CLOSE_DATE"); val != "" {
		cfg.Form.CloseDate = val
	}
	if val := os.Getenv("MAIL_FROM"); val != "" {
		cfg.Mail.From = val
	}
	if val := os.Getenv("MAIL_FROM_NAME"); val != "" {
		cfg.Mail.FromName = val
	}
	if val := os.Getenv("MAIL_REPLY_TO"); val != "" {
		cfg.Mail.ReplyTo = val
	}
	if val := os.Getenv("MAIL_TO_ADMIN"); val != "" {
		cfg.Mail.AdminRecipients = SplitList(val)
	}

	if cfg.Mail.SMTP.Username == "" {
		cfg.Mail.SMTP.Username = firstEnv("SMTP_USER", "GMAIL_USER")
	}
	if cfg.Mail.SMTP.Password == "" {
		cfg.Mail.SMTP.Password = firstEnv("SMTP_PASS", "GMAIL_PASS")
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}

// SplitList splits a comma separated list, trimming blanks and dropping empties.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "form-coopecobana"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = 5000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}
	if cfg.Server.ReadyCacheTTL == 0 {
		cfg.Server.ReadyCacheTTL = 30000
	}

	if cfg.Form.CloseDate == "" {
		cfg.Form.CloseDate = "2025-11-06T01:00:00-06:00"
	}
	if cfg.Form.TimeZone == "" {
		cfg.Form.TimeZone = "America/Costa_Rica"
	}
	if cfg.Form.MaxFileSizeMB == 0 {
		cfg.Form.MaxFileSizeMB = 10
	}
	if cfg.Form.MaxTotalSizeMB == 0 {
		cfg.Form.MaxTotalSizeMB = 20
	}
	if len(cfg.Form.AllowedTypes) == 0 {
		cfg.Form.AllowedTypes = []string{
			"application/pdf",
			"image/jpeg",
			"image/png",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		}
	}
	if len(cfg.Form.AllowedExtensions) == 0 {
		cfg.Form.AllowedExtensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".docx"}
	}
	if cfg.Form.ContactEmail == "" {
		cfg.Form.ContactEmail = "coopecobana@outlook.com"
	}
	if cfg.Form.RepresentationRule == "" {
		cfg.Form.RepresentationRule = "participation_answered"
	}

	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = ProviderSMTP
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = "noreply@coopecobanarl.com"
	}
	if cfg.Mail.FromName == "" {
		cfg.Mail.FromName = "COOPECOBANA R.L."
	}
	if cfg.Mail.SendTimeout == 0 {
		cfg.Mail.SendTimeout = 30000
	}
	if cfg.Mail.SMTP.Host == "" {
		cfg.Mail.SMTP.Host = "smtp.gmail.com"
		cfg.Mail.SMTP.UseTLS = true
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = 587
	}

	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
}

// normalize cleans list values that may arrive as one comma separated env string.
func normalize(cfg *Config) {
	var recipients []string
	for _, r := range cfg.Mail.AdminRecipients {
		recipients = append(recipients, SplitList(r)...)
	}
	cfg.Mail.AdminRecipients = recipients
	cfg.Mail.Provider = strings.ToLower(strings.TrimSpace(cfg.Mail.Provider))

	for i, ext := range cfg.Form.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Form.AllowedExtensions[i] = ext
	}
	for i, t := range cfg.Form.AllowedTypes {
		cfg.Form.AllowedTypes[i] = strings.ToLower(strings.TrimSpace(t))
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) *errors.StandardError {
	if _, err := cfg.Form.Cutoff(); err != nil {
		return errors.NewInvalidConfigurationError(err.Error())
	}
	if cfg.Form.MaxFileSizeMB <= 0 || cfg.Form.MaxTotalSizeMB <= 0 {
		return errors.NewInvalidConfigurationError("form size limits must be positive")
	}
	if cfg.Form.MaxFileSizeMB > cfg.Form.MaxTotalSizeMB {
		return errors.NewInvalidConfigurationError("form.max_file_size_mb cannot exceed form.max_total_size_mb")
	}
	switch cfg.Form.RepresentationRule {
	case "participation_answered", "participating":
	default:
		return invalidf("form.representation_rule must be \"participation_answered\" or \"participating\", got %q", cfg.Form.RepresentationRule)
	}

	if len(cfg.Mail.AdminRecipients) == 0 {
		return errors.NewInvalidConfigurationError("mail.admin_recipients (or MAIL_TO_ADMIN) is required")
	}
	if cfg.Mail.SendTimeout < 0 {
		return errors.NewInvalidConfigurationError("mail.send_timeout must be positive")
	}

	switch cfg.Mail.Provider {
	case ProviderSMTP:
		if cfg.Mail.SMTP.Host == "" || cfg.Mail.SMTP.Port == 0 {
			return errors.NewInvalidConfigurationError("mail.smtp.host and mail.smtp.port are required")
		}
	case ProviderSES:
		if cfg.AWS.Region == "" {
			return errors.NewInvalidConfigurationError("aws.region is required for the ses provider")
		}
	default:
		return invalidf("mail.provider must be %q or %q, got %q", ProviderSMTP, ProviderSES, cfg.Mail.Provider)
	}

	if cfg.AWS.SNS.Enabled && cfg.AWS.SNS.AlertTopicARN == "" {
		return errors.NewInvalidConfigurationError("aws.sns.alert_topic_arn is required when aws.sns.enabled is true")
	}

	return nil
}

func invalidf(format string, args ...interface{}) *errors.StandardError {
	return errors.NewInvalidConfigurationError(fmt.Sprintf(format, args...))
}

// MissingRelaySettings lists the settings a working relay still needs. It does
// not fail on them, which lets the relay-check tool report everything at once.
func MissingRelaySettings(cfg *Config) []string {
	var missing []string
	if cfg.Mail.From == "" {
		missing = append(missing, "mail.from")
	}
	if len(cfg.Mail.AdminRecipients) == 0 {
		missing = append(missing, "mail.admin_recipients")
	}
	if cfg.Mail.Provider == ProviderSMTP {
		if cfg.Mail.SMTP.Username == "" {
			missing = append(missing, "mail.smtp.username")
		}
		if cfg.Mail.SMTP.Password == "" {
			missing = append(missing, "mail.smtp.password")
		}
	}
	return missing
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
