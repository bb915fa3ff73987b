package validator

import (
	"fmt"
	"strings"
)

// Form field names, in declaration order. They match the names the form posts.
const (
	FieldAssociateNumber = "numeroAsociado"
	FieldNationalID      = "cedula"
	FieldFullName        = "nombreCompleto"
	FieldEmail           = "correoElectronico"
	FieldSecondaryEmail  = "correoElectronicoSecundario"
	FieldMobilePhone     = "telefonoCelular"
	FieldParticipation   = "participaraAsamblea"
	FieldRepresentation  = "representaraOtros"
	FieldAttachments     = "archivos"
)

// Answer is a normalized yes/no reply.
type Answer string

const (
	AnswerYes Answer = "si"
	AnswerNo  Answer = "no"
)

// Attachment is a candidate file. Size is the declared size; Content may be
// empty when only descriptors are checked.
type Attachment struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"type"`
	Content     []byte `json:"-"`
}

// EffectiveSize is the larger of the declared size and the bytes actually held.
func (a Attachment) EffectiveSize() int64 {
	if n := int64(len(a.Content)); n > a.Size {
		return n
	}
	return a.Size
}

// SubmissionInput is the raw data of one attempt. Optional and conditionally
// required fields are empty strings when absent.
type SubmissionInput struct {
	AssociateNumber string
	NationalID      string
	FullName        string
	Email           string
	SecondaryEmail  string
	MobilePhone     string
	Participation   string
	Representation  string
	Attachments     []Attachment
}

// SubmissionRecord is a validated, normalized submission.
type SubmissionRecord struct {
	AssociateNumber string
	NationalID      string
	FullName        string
	Email           string
	SecondaryEmail  string
	MobilePhone     string
	Participation   Answer
	Representation  Answer
	Attachments     []Attachment
}

// TotalAttachmentSize sums the accepted attachment sizes.
func (r *SubmissionRecord) TotalAttachmentSize() int64 {
	var total int64
	for _, a := range r.Attachments {
		total += a.EffectiveSize()
	}
	return total
}

// Error codes carried by FieldError.
const (
	CodeMissingRequired   = "MISSING_REQUIRED"
	CodeInvalidFormat     = "INVALID_FORMAT"
	CodeTooShort          = "TOO_SHORT"
	CodeTooLong           = "TOO_LONG"
	CodeInvalidOption     = "INVALID_OPTION"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeInvalidFileType   = "INVALID_FILE_TYPE"
	CodeTotalSizeExceeded = "TOTAL_SIZE_EXCEEDED"
)

// FieldError is one rule violation.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsAttachment reports whether the error concerns the attachment set.
func (e FieldError) IsAttachment() bool {
	return e.Field == FieldAttachments || strings.HasPrefix(e.Field, FieldAttachments+"[")
}

// ValidationError is the ordered list of violations of a rejected submission.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages(), ", ")
}

// Messages returns "field: message" strings in order.
func (e *ValidationError) Messages() []string {
	out := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		out[i] = fe.String()
	}
	return out
}

// OnlyAttachments reports whether every violation concerns attachments.
func (e *ValidationError) OnlyAttachments() bool {
	if len(e.Errors) == 0 {
		return false
	}
	for _, fe := range e.Errors {
		if !fe.IsAttachment() {
			return false
		}
	}
	return true
}
