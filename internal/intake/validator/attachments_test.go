package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdf(name string, size int64) Attachment {
	return Attachment{Name: name, Size: size, ContentType: "application/pdf"}
}

func TestAttachmentPolicy_Check(t *testing.T) {
	tests := []struct {
		name         string
		files        []Attachment
		wantAccepted int
		wantFields   []string
		wantMessages []string
	}{
		{
			name:         "no files",
			files:        nil,
			wantAccepted: 0,
		},
		{
			name:         "single file at the per-file limit",
			files:        []Attachment{pdf("a.pdf", 10*MB)},
			wantAccepted: 1,
		},
		{
			name:         "single file over the per-file limit",
			files:        []Attachment{pdf("a.pdf", 10*MB+1)},
			wantFields:   []string{"archivos[0]"},
			wantMessages: []string{"Archivo 1: El archivo excede el tamaño máximo permitido (máx. 10MB)"},
		},
		{
			name:         "disallowed type",
			files:        []Attachment{pdf("a.pdf", 1), {Name: "notes.txt", Size: 10, ContentType: "text/plain"}},
			wantAccepted: 1,
			wantFields:   []string{"archivos[1]"},
			wantMessages: []string{"Archivo 2: Tipo de archivo no permitido. Solo se permiten: PDF, JPG, PNG, DOCX"},
		},
		{
			name:         "three files of 9MB give one aggregate error",
			files:        []Attachment{pdf("a.pdf", 9*MB), pdf("b.pdf", 9*MB), pdf("c.pdf", 9*MB)},
			wantAccepted: 3,
			wantFields:   []string{"archivos"},
			wantMessages: []string{"El tamaño total de archivos excede el límite (máx. 20MB total)"},
		},
		{
			name:         "two files of 10MB fit the aggregate limit",
			files:        []Attachment{pdf("a.pdf", 10*MB), pdf("b.pdf", 10*MB)},
			wantAccepted: 2,
		},
		{
			name:         "rejected files do not count toward the total",
			files:        []Attachment{pdf("a.pdf", 10*MB), pdf("big.pdf", 15*MB), pdf("b.pdf", 10*MB)},
			wantAccepted: 2,
			wantFields:   []string{"archivos[1]"},
		},
	}

	policy := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := policy.Check(tt.files)

			assert.Len(t, res.Accepted, tt.wantAccepted)
			assert.Equal(t, tt.wantFields, fields(res.Errors))
			assert.Equal(t, len(tt.wantFields) == 0, res.Valid())
			for i, msg := range tt.wantMessages {
				assert.Equal(t, msg, res.Errors[i].Message)
			}
		})
	}
}

func TestAttachmentPolicy_Allows(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name string
		file Attachment
		want bool
	}{
		{"pdf by type", Attachment{Name: "x", ContentType: "application/pdf"}, true},
		{"type with parameters", Attachment{Name: "x", ContentType: "image/png; charset=binary"}, true},
		{"type in upper case", Attachment{Name: "x", ContentType: "IMAGE/JPEG"}, true},
		{"docx by extension only", Attachment{Name: "acta.DOCX", ContentType: "application/octet-stream"}, true},
		{"jpeg extension without type", Attachment{Name: "foto.jpeg"}, true},
		{"neither type nor extension", Attachment{Name: "script.sh", ContentType: "text/x-sh"}, false},
		{"no name and no type", Attachment{}, false},
		{"header injection in type", Attachment{Name: "a.pdf", ContentType: "text/html\r\nX-Injected: yes"}, false},
		{"malformed type with allowed extension", Attachment{Name: "a.pdf", ContentType: "application/pdf; ="}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Allows(tt.file))
		})
	}
}

func TestAttachmentPolicy_EffectiveSizeUsesContent(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxFileSize = 4
	policy.MaxTotalSize = 8

	res := policy.Check([]Attachment{{Name: "a.pdf", Size: 1, Content: []byte("12345")}})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, CodeFileTooLarge, res.Errors[0].Code)
}

func TestAttachmentPolicy_Merge(t *testing.T) {
	policy := DefaultPolicy()

	first := policy.Check([]Attachment{pdf("a.pdf", 9*MB)})
	require.True(t, first.Valid())

	second := policy.Merge(first.Accepted, []Attachment{pdf("b.pdf", 9*MB)})
	require.True(t, second.Valid())
	assert.Equal(t, 18*MB, second.TotalSize)

	third := policy.Merge(second.Accepted, []Attachment{pdf("c.pdf", 9*MB)})
	assert.False(t, third.Valid())
	assert.Equal(t, []string{FieldAttachments}, fields(third.Errors))
}

func TestPolicyFromLimits(t *testing.T) {
	p := PolicyFromLimits(5, 15, []string{"application/pdf"}, []string{".pdf", ".jpg", ".jpeg"})

	assert.Equal(t, 5*MB, p.MaxFileSize)
	assert.Equal(t, 15*MB, p.MaxTotalSize)
	assert.Equal(t, "PDF, JPG", p.AllowedLabel)
	assert.NoError(t, p.Validate())

	p.AllowedTypes = nil
	p.AllowedExtensions = nil
	assert.Error(t, p.Validate())
}
