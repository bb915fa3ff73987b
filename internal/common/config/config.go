package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Form          FormConfig          `mapstructure:"form"`
	Mail          MailConfig          `mapstructure:"mail"`
	AWS           AWSConfig           `mapstructure:"aws"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port              int `mapstructure:"port"`
	ReadHeaderTimeout int `mapstructure:"read_header_timeout"` // milliseconds
	ShutdownTimeout   int `mapstructure:"shutdown_timeout"`    // milliseconds
	ReadyCacheTTL     int `mapstructure:"ready_cache_ttl"`     // milliseconds
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// FormConfig holds the submission window and the attachment policy.
type FormConfig struct {
	CloseDate         string   `mapstructure:"close_date"` // RFC 3339 instant
	TimeZone          string   `mapstructure:"time_zone"`
	MaxFileSizeMB     int      `mapstructure:"max_file_size_mb"`
	MaxTotalSizeMB    int      `mapstructure:"max_total_size_mb"`
	AllowedTypes      []string `mapstructure:"allowed_types"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	ContactEmail      string   `mapstructure:"contact_email"`
	// RepresentationRule is "participation_answered" or "participating".
	RepresentationRule string `mapstructure:"representation_rule"`
}

// Cutoff parses CloseDate as a fixed instant.
func (f FormConfig) Cutoff() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(f.CloseDate))
	if err != nil {
		return time.Time{}, fmt.Errorf("form.close_date %q is not an RFC 3339 instant: %w", f.CloseDate, err)
	}
	return t, nil
}

// Location loads the display time zone, falling back to UTC.
func (f FormConfig) Location() *time.Location {
	loc, err := time.LoadLocation(f.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MailConfig holds sender identity, recipients and the relay selection.
type MailConfig struct {
	Provider        string     `mapstructure:"provider"` // smtp | ses
	From            string     `mapstructure:"from"`
	FromName        string     `mapstructure:"from_name"`
	ReplyTo         string     `mapstructure:"reply_to"`
	AdminRecipients []string   `mapstructure:"admin_recipients"`
	SendTimeout     int        `mapstructure:"send_timeout"` // milliseconds
	SMTP            SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	UseTLS             bool   `mapstructure:"use_tls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
	HelloName          string `mapstructure:"hello_name"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	SES    struct {
		ConfigurationSet string `mapstructure:"configuration_set"`
	} `mapstructure:"ses"`
	SNS struct {
		Enabled       bool   `mapstructure:"enabled"`
		AlertTopicARN string `mapstructure:"alert_topic_arn"`
	} `mapstructure:"sns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
