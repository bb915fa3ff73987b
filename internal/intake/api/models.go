package api

import (
	"encoding/base64"
	"fmt"
	"strings"

	"form-coopecobana/internal/intake/validator"
)

// FileDescriptor is an attachment as sent in JSON bodies.
type FileDescriptor struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Size    int64  `json:"size,omitempty"`
	Content string `json:"content,omitempty"`
}

func (f FileDescriptor) toAttachment() (validator.Attachment, error) {
	a := validator.Attachment{Name: f.Name, Size: f.Size, ContentType: f.Type}
	if f.Content != "" {
		content, err := base64.StdEncoding.DecodeString(strings.TrimSpace(f.Content))
		if err != nil {
			return a, fmt.Errorf("archivo %q: invalid base64 content: %w", f.Name, err)
		}
		a.Content = content
		if a.Size == 0 {
			a.Size = int64(len(content))
		}
	}
	return a, nil
}

func toAttachments(files []FileDescriptor) ([]validator.Attachment, error) {
	out := make([]validator.Attachment, 0, len(files))
	for _, f := range files {
		a, err := f.toAttachment()
		if err != nil {
			return nil, err
		}
		if a.EffectiveSize() == 0 {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// SubmitRequest is the JSON form of a submission.
type SubmitRequest struct {
	AssociateNumber string           `json:"numeroAsociado"`
	NationalID      string           `json:"cedula"`
	FullName        string           `json:"nombreCompleto"`
	Email           string           `json:"correoElectronico"`
	SecondaryEmail  string           `json:"correoElectronicoSecundario"`
	MobilePhone     string           `json:"telefonoCelular"`
	Participation   string           `json:"participaraAsamblea"`
	Representation  string           `json:"representaraOtros"`
	Attachments     []FileDescriptor `json:"archivos"`
}

func (r SubmitRequest) toInput() (validator.SubmissionInput, error) {
	attachments, err := toAttachments(r.Attachments)
	if err != nil {
		return validator.SubmissionInput{}, err
	}
	return validator.SubmissionInput{
		AssociateNumber: r.AssociateNumber,
		NationalID:      r.NationalID,
		FullName:        r.FullName,
		Email:           r.Email,
		SecondaryEmail:  r.SecondaryEmail,
		MobilePhone:     r.MobilePhone,
		Participation:   r.Participation,
		Representation:  r.Representation,
		Attachments:     attachments,
	}, nil
}

// AttachmentCheckRequest carries the already accepted files and the new ones.
type AttachmentCheckRequest struct {
	Accepted []FileDescriptor `json:"accepted"`
	Added    []FileDescriptor `json:"added"`
}

type AttachmentCheckResponse struct {
	Valid     bool                   `json:"valid"`
	Accepted  []FileDescriptor       `json:"accepted"`
	Errors    []validator.FieldError `json:"errors,omitempty"`
	TotalSize int64                  `json:"totalSize"`
}

type StatusResponse struct {
	Open             bool   `json:"open"`
	ClosesAt         string `json:"closesAt"`
	ClosesAtDisplay  string `json:"closesAtDisplay"`
	RemainingSeconds int64  `json:"remainingSeconds,omitempty"`
	Remaining        string `json:"remaining,omitempty"`
}
