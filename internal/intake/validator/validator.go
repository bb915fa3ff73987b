// Package validator checks and normalizes one representation form submission.
package validator

// Validator applies the field rules and the attachment policy. It holds no
// state between calls and does no I/O.
type Validator struct {
	config *Config
}

func New(config *Config) *Validator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Validator{config: config}
}

func (v *Validator) Policy() AttachmentPolicy { return v.config.Policy }

// Validate returns either the normalized record or a *ValidationError, never both.
// Every field rule runs; errors are ordered by field declaration, then by
// attachment index, with the aggregate size error last.
func (v *Validator) Validate(in SubmissionInput) (*SubmissionRecord, error) {
	rec := &SubmissionRecord{}
	var errs []FieldError

	for _, rule := range v.fieldRules() {
		if fe := rule.check(&in, rec); fe != nil {
			errs = append(errs, *fe)
		}
	}

	attachments := v.config.Policy.Check(in.Attachments)
	errs = append(errs, attachments.Errors...)

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	rec.Attachments = attachments.Accepted
	return rec, nil
}
