package validator

import (
	"strings"
	"unicode/utf8"

	"form-coopecobana/internal/common/validation"
)

const (
	nameMinLength = 3
	nameMaxLength = 100
)

// fieldRule checks one field, writes its normalized value into rec and
// returns at most one violation.
type fieldRule struct {
	field string
	check func(in *SubmissionInput, rec *SubmissionRecord) *FieldError
}

// fieldRules returns the rules in form declaration order.
func (v *Validator) fieldRules() []fieldRule {
	return []fieldRule{
		{FieldAssociateNumber, checkAssociateNumber},
		{FieldNationalID, checkNationalID},
		{FieldFullName, checkFullName},
		{FieldEmail, checkEmail},
		{FieldSecondaryEmail, checkSecondaryEmail},
		{FieldMobilePhone, checkMobilePhone},
		{FieldParticipation, checkParticipation},
		{FieldRepresentation, v.checkRepresentation},
	}
}

func fieldError(field, code, message string) *FieldError {
	return &FieldError{Field: field, Code: code, Message: message}
}

func checkAssociateNumber(in *SubmissionInput, rec *SubmissionRecord) *FieldError {
	value := strings.TrimSpace(in.AssociateNumber)
	if value == "" {
		return fieldError(FieldAssociateNumber, CodeMissingRequired, msgRequired)
	}
	if !validation.IsDigits(value) {
		return fieldError(FieldAssociateNumber, CodeInvalidFormat, msgInvalidAssociateNumber)
	}
	rec.AssociateNumber = value
	return nil
}

// NormalizeNationalID strips every non-digit. Applying it twice gives the same value.
func NormalizeNationalID(raw string) string {
	return validation.StripNonDigits(raw)
}

func checkNationalID(in *SubmissionInput, rec *SubmissionRecord) *FieldError {
	raw := strings.TrimSpace(in.NationalID)
	if raw == "" {
		return fieldError(FieldNationalID, CodeMissingRequired, msgRequired)
	}
	value := NormalizeNationalID(raw)
	if !validation.IsDigits(value) {
		return fieldError(FieldNationalID, CodeInvalidFormat, msgInvalidNationalID)
	}
	rec.NationalID = value
	return nil
}

func checkFullName(in *SubmissionInput, rec *SubmissionRecord) *FieldError {
	value := strings.TrimSpace(in.FullName)
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		return fieldError(FieldFullName, CodeMissingRequired, msgRequired)
	case n < nameMinLength:
		return fieldError(FieldFullName, CodeTooShort, msgNameTooShort)
	case n > nameMaxLength:
		return fieldError(FieldFullName, CodeTooLong, msgNameTooLong)
	}
	rec.FullName = value
	return nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func checkEmail(in *SubmissionInput, rec *SubmissionRecord) *FieldError {
	value := NormalizeEmail(in.Email)
	if value == "" {
		return fieldError(FieldEmail, CodeMissingRequired, msgRequired)
	}
	if !validation.ValidateEmail(value) {
		return fieldError(FieldEmail, CodeInvalidFormat, msgInvalidEmail)
	}
	rec.Email = value
	return nil
}

func checkSecondaryEmail(in *SubmissionInput, rec *SubmissionRecord) *FieldError {
	value := NormalizeEmail(in.SecondaryEmail)
	if value == "" {
		return nil
	}
	if !validation.ValidateEmail(value) {
		return fieldError(FieldSecondaryEmail, CodeInvalidFormat, msgInvalidEmail)
	}
	rec.SecondaryEmail = value
	return nil
}

// checkMobilePhone never fails: a value with no digits counts as absent.
func checkMobilePhone(in *SubmissionInput, rec *SubmissionRecord) *FieldError {
	rec.MobilePhone = validation.StripNonDigits(in.MobilePhone)
	return nil
}

// parseAnswer accepts si/sí/no in any case; ok is false for anything else.
func parseAnswer(raw string) (answer Answer, present, ok bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		return "", false, false
	case "si", "sí":
		return AnswerYes, true, true
	case "no":
		return AnswerNo, true, true
	default:
		return "", true, false
	}
}

func checkParticipation(in *SubmissionInput, rec *SubmissionRecord) *FieldError {
	answer, present, ok := parseAnswer(in.Participation)
	if !present {
		return fieldError(FieldParticipation, CodeMissingRequired, msgRequired)
	}
	if !ok {
		return fieldError(FieldParticipation, CodeInvalidOption, msgInvalidOption)
	}
	rec.Participation = answer
	return nil
}

// representationRequired applies the configured cross-field rule to the raw
// participation value, so it does not depend on checkParticipation having passed.
func (v *Validator) representationRequired(in *SubmissionInput) bool {
	participation, present, ok := parseAnswer(in.Participation)
	switch v.config.RepresentationRule {
	case RepresentationWhenParticipating:
		return ok && participation == AnswerYes
	default:
		return present
	}
}

func (v *Validator) checkRepresentation(in *SubmissionInput, rec *SubmissionRecord) *FieldError {
	answer, present, ok := parseAnswer(in.Representation)
	if !present {
		if v.representationRequired(in) {
			return fieldError(FieldRepresentation, CodeMissingRequired, msgRepresentationRequired)
		}
		return nil
	}
	if !ok {
		return fieldError(FieldRepresentation, CodeInvalidOption, msgInvalidOption)
	}
	rec.Representation = answer
	return nil
}
