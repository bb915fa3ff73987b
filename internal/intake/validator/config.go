package validator

import (
	"fmt"
	"strings"
)

// MB is the unit used by the size limits.
const MB int64 = 1024 * 1024

// RepresentationRule selects when the representation answer is mandatory.
type RepresentationRule string

const (
	// RepresentationWhenParticipationAnswered requires the answer whenever the
	// participation question has been answered, whatever the answer was.
	RepresentationWhenParticipationAnswered RepresentationRule = "participation_answered"
	// RepresentationWhenParticipating requires it only when participation is "si".
	RepresentationWhenParticipating RepresentationRule = "participating"
)

// AttachmentPolicy holds the per-file and aggregate limits and the allow-lists.
type AttachmentPolicy struct {
	MaxFileSize       int64
	MaxTotalSize      int64
	AllowedTypes      []string
	AllowedExtensions []string
	// AllowedLabel is the human list shown in type errors, e.g. "PDF, JPG, PNG, DOCX".
	AllowedLabel string
}

func DefaultPolicy() AttachmentPolicy {
	return AttachmentPolicy{
		MaxFileSize:  10 * MB,
		MaxTotalSize: 20 * MB,
		AllowedTypes: []string{
			"application/pdf",
			"image/jpeg",
			"image/png",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		},
		AllowedExtensions: []string{".pdf", ".jpg", ".jpeg", ".png", ".docx"},
		AllowedLabel:      "PDF, JPG, PNG, DOCX",
	}
}

// PolicyFromLimits builds a policy from limits expressed in whole megabytes.
func PolicyFromLimits(maxFileMB, maxTotalMB int, types, extensions []string) AttachmentPolicy {
	p := AttachmentPolicy{
		MaxFileSize:       int64(maxFileMB) * MB,
		MaxTotalSize:      int64(maxTotalMB) * MB,
		AllowedTypes:      types,
		AllowedExtensions: extensions,
	}
	p.AllowedLabel = labelFor(extensions)
	return p
}

func (p AttachmentPolicy) Validate() error {
	if p.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}
	if p.MaxTotalSize < p.MaxFileSize {
		return fmt.Errorf("max total size must be at least the max file size")
	}
	if len(p.AllowedTypes) == 0 && len(p.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one allowed type or extension is required")
	}
	return nil
}

// labelFor renders ".pdf .jpg .jpeg" as "PDF, JPG"; jpeg folds into jpg.
func labelFor(extensions []string) string {
	seen := make(map[string]bool)
	var parts []string
	for _, ext := range extensions {
		name := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if name == "JPEG" {
			name = "JPG"
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

// Config groups everything the Validator needs.
type Config struct {
	Policy             AttachmentPolicy
	RepresentationRule RepresentationRule
}

func DefaultConfig() *Config {
	return &Config{
		Policy:             DefaultPolicy(),
		RepresentationRule: RepresentationWhenParticipationAnswered,
	}
}

func (c *Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("attachment policy: %w", err)
	}
	switch c.RepresentationRule {
	case RepresentationWhenParticipationAnswered, RepresentationWhenParticipating:
	default:
		return fmt.Errorf("unknown representation rule %q", c.RepresentationRule)
	}
	return nil
}
