package api

import (
	"form-coopecobana/internal/common/validation"
	"form-coopecobana/internal/intake/validator"
)

func stringField(description string) validation.Property {
	return validation.Property{Type: "string", Description: description}
}

func fileDescriptor(contentRequired bool) validation.Property {
	required := []string{"name"}
	if contentRequired {
		required = append(required, "content")
	}
	return validation.Property{
		Type: "object",
		Properties: map[string]validation.Property{
			"name":    {Type: "string", MinLength: validation.IntPtr(1), MaxLength: validation.IntPtr(255)},
			"type":    {Type: "string"},
			"size":    {Type: "integer", Minimum: validation.FloatPtr(0)},
			"content": {Type: "string", Description: "Base64 file content"},
		},
		Required:             required,
		AdditionalProperties: validation.BoolPtr(false),
	}
}

// GetSubmitSchema describes the JSON form of POST /api/submit. It checks shape
// only; the field rules live in the validator.
func GetSubmitSchema() validation.JSONSchema {
	files := fileDescriptor(true)
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			validator.FieldAssociateNumber: stringField("Número de asociado"),
			validator.FieldNationalID:      stringField("Cédula"),
			validator.FieldFullName:        stringField("Nombre completo"),
			validator.FieldEmail:           stringField("Correo electrónico"),
			validator.FieldSecondaryEmail:  stringField("Correo electrónico secundario"),
			validator.FieldMobilePhone:     stringField("Teléfono celular"),
			validator.FieldParticipation:   stringField("Participará en la asamblea"),
			validator.FieldRepresentation:  stringField("Representará a otros asociados"),
			validator.FieldAttachments: {
				Type:     "array",
				Items:    &files,
				MaxItems: validation.IntPtr(50),
			},
		},
		AdditionalProperties: false,
	}
}

// GetAttachmentCheckSchema describes POST /api/attachments/check.
func GetAttachmentCheckSchema() validation.JSONSchema {
	files := fileDescriptor(false)
	list := validation.Property{Type: "array", Items: &files, MaxItems: validation.IntPtr(50)}
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"accepted": list,
			"added":    list,
		},
		Required:             []string{"added"},
		AdditionalProperties: false,
	}
}
