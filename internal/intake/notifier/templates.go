package notifier

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"form-coopecobana/internal/intake/validator"
)

const (
	failureNoticeSubject = "Error en envío de formulario"
	// SNS subjects must be ASCII.
	operatorAlertSubject = "Error en envio de formulario - COOPECOBANA"

	displayTimeLayout = "2/1/2006, 15:04:05"
)

var spanish = message.NewPrinter(language.Spanish)

var templateFuncs = template.FuncMap{
	"kb": func(size int64) string {
		return spanish.Sprintf("%d", (size+512)/1024)
	},
	"inc": func(i int) int { return i + 1 },
	"yesNo": func(a validator.Answer) string {
		if a == validator.AnswerYes {
			return "Sí"
		}
		return "No"
	},
}

var templates = template.Must(template.New("notifier").Funcs(templateFuncs).Parse(`
{{- define "administrators" -}}
FORMULARIO DE REPRESENTACIÓN - ASAMBLEA GENERAL COOPECOBANA

DATOS DEL ASOCIADO:
==================
Número de Asociado: {{.Record.AssociateNumber}}
Cédula: {{.Record.NationalID}}
Nombre Completo: {{.Record.FullName}}
Correo Electrónico: {{.Record.Email}}
{{- if .Record.SecondaryEmail}}
Correo Electrónico Secundario: {{.Record.SecondaryEmail}}
{{- end}}
Teléfono Celular: {{if .Record.MobilePhone}}{{.Record.MobilePhone}}{{else}}No proporcionado{{end}}

PARTICIPACIÓN:
==============
Participará en la Asamblea: {{if eq .Record.Participation "si"}}SÍ participará{{else}}NO participará{{end}}
Representará a otros asociados: {{if not .Record.Representation}}No aplica{{else if eq .Record.Representation "si"}}SÍ representará a otros{{else}}NO representará a otros{{end}}

ADJUNTOS:
=========
Cantidad de archivos adjuntos: {{len .Record.Attachments}}
{{- range $i, $a := .Record.Attachments}}
{{inc $i}}. {{$a.Name}} ({{kb $a.EffectiveSize}} KB)
{{- end}}

--
Este correo fue generado automáticamente por el sistema de formularios de COOPECOBANA.
Fecha de envío: {{.SentAt}}
{{- end}}

{{- define "confirmant" -}}
Estimado/a {{.Record.FullName}},

Su formulario de representación para la Asamblea General de COOPECOBANA ha sido recibido exitosamente.

RESUMEN DE SU ENVÍO:
===================
Número de Asociado: {{.Record.AssociateNumber}}
Cédula: {{.Record.NationalID}}
Participará en la Asamblea: {{yesNo .Record.Participation}}
{{- if .Record.Representation}}
Representará a otros: {{yesNo .Record.Representation}}
{{- end}}
Archivos adjuntos: {{len .Record.Attachments}}

INFORMACIÓN IMPORTANTE:
======================
• Su información ha sido transmitida de forma segura
• No es necesario enviar el formulario nuevamente
• Conserve este correo como comprobante
• Para consultas, contacte a: {{.ContactEmail}}

Gracias por su participación.

Atentamente,
COOPECOBANA R.L.

--
Este es un correo automático. No responda a esta dirección.
Fecha: {{.SentAt}}
{{- end}}

{{- define "failure_notice" -}}
ERROR EN ENVÍO DE FORMULARIO - COOPECOBANA

DATOS DEL INTENTO:
==================
Cédula: {{.Record.NationalID}}
Nombre: {{.Record.FullName}}
Correo: {{.Record.Email}}
Fecha del error: {{.SentAt}}

ERROR TÉCNICO:
==============
{{.Reason}}

NOTA: Este envío falló y NO se procesó correctamente.
Los datos NO fueron adjuntados a este correo por seguridad.

--
Sistema de formularios COOPECOBANA
{{- end}}
`))

type templateData struct {
	Record       *validator.SubmissionRecord
	SentAt       string
	ContactEmail string
	Reason       string
}

func render(kind Kind, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(kind), data); err != nil {
		return "", fmt.Errorf("render %s: %w", kind, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func formatDisplayTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(displayTimeLayout)
}

func confirmationSubject(rec *validator.SubmissionRecord) string {
	return "Confirmación de envío – " + rec.NationalID
}
