package validator

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// AttachmentResult is the outcome of checking a candidate attachment set.
type AttachmentResult struct {
	Accepted  []Attachment
	Errors    []FieldError
	TotalSize int64
}

func (r AttachmentResult) Valid() bool { return len(r.Errors) == 0 }

// Check evaluates files in order. Files failing the per-file rules are rejected
// one by one; the survivors are then summed against the aggregate limit, which
// yields at most one extra error and never blames a single file.
func (p AttachmentPolicy) Check(files []Attachment) AttachmentResult {
	var res AttachmentResult

	for i, f := range files {
		if fe := p.checkFile(i, f); fe != nil {
			res.Errors = append(res.Errors, *fe)
			continue
		}
		res.Accepted = append(res.Accepted, f)
		res.TotalSize += f.EffectiveSize()
	}

	if res.TotalSize > p.MaxTotalSize {
		res.Errors = append(res.Errors, FieldError{
			Field:   FieldAttachments,
			Code:    CodeTotalSizeExceeded,
			Message: fmt.Sprintf(msgTotalSizeExceeded, p.MaxTotalSize/MB),
		})
	}

	return res
}

// Merge checks previously accepted files together with newly added ones, the
// way the upload widget accumulates files before the form is sent.
func (p AttachmentPolicy) Merge(accepted, added []Attachment) AttachmentResult {
	candidates := make([]Attachment, 0, len(accepted)+len(added))
	candidates = append(candidates, accepted...)
	candidates = append(candidates, added...)
	return p.Check(candidates)
}

func (p AttachmentPolicy) checkFile(index int, f Attachment) *FieldError {
	field := fmt.Sprintf("%s[%d]", FieldAttachments, index)

	if f.EffectiveSize() > p.MaxFileSize {
		return &FieldError{
			Field:   field,
			Code:    CodeFileTooLarge,
			Message: fmt.Sprintf(msgFileTooLarge, index+1, p.MaxFileSize/MB),
		}
	}
	if !p.Allows(f) {
		label := p.AllowedLabel
		if label == "" {
			label = labelFor(p.AllowedExtensions)
		}
		return &FieldError{
			Field:   field,
			Code:    CodeInvalidFileType,
			Message: fmt.Sprintf(msgInvalidFileType, index+1, label),
		}
	}
	return nil
}

// Allows reports whether the declared media type or the file extension is on
// the allow-list. Either one is enough. A declared type that does not parse as
// a media type is refused outright.
func (p AttachmentPolicy) Allows(f Attachment) bool {
	mediaType := strings.ToLower(strings.TrimSpace(f.ContentType))
	if mediaType != "" {
		parsed, _, err := mime.ParseMediaType(mediaType)
		if err != nil {
			return false
		}
		mediaType = parsed
	}
	for _, t := range p.AllowedTypes {
		if mediaType != "" && strings.EqualFold(mediaType, t) {
			return true
		}
	}

	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(f.Name)))
	for _, e := range p.AllowedExtensions {
		if ext != "" && strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
