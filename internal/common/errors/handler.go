package errors

import (
	stderrors "errors"
	"time"
)

// Public texts shown to the person filling the form. Operator detail stays in logs.
const (
	PublicClosedMessage       = "El formulario ya no está disponible"
	PublicValidationMessage   = "Error de validación"
	PublicAttachmentsMessage  = "Error en archivos adjuntos"
	PublicSendFailedMessage   = "Error al enviar el formulario"
	PublicSendFailedError     = "No se pudo enviar el correo. El equipo técnico ha sido notificado."
	PublicSystemErrorMessage  = "Error del sistema"
	PublicSystemErrorDetail   = "Ocurrió un error inesperado. Intente nuevamente en unos minutos."
	PublicBadRequestMessage   = "Solicitud inválida"
	PublicPayloadTooLargeText = "El tamaño total de archivos excede el límite"
)

// ErrorHandler normalizes and logs errors crossing a component boundary.
type ErrorHandler struct {
	logger Logger
}

// Logger is the subset of the logging interface the handler needs.
type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle normalizes err, logs it with the given context fields and returns the result.
// Errors caused by the request itself are logged at warn level.
func (h *ErrorHandler) Handle(err error, fields map[string]interface{}) *StandardError {
	stdErr := h.normalizeError(err)

	logFields := map[string]interface{}{
		"errorCode":    stdErr.Code,
		"errorMessage": stdErr.Message,
		"errorDetails": stdErr.Details,
		"retryable":    stdErr.Retryable,
	}
	for k, v := range stdErr.Metadata {
		logFields[k] = v
	}
	for k, v := range fields {
		logFields[k] = v
	}

	switch {
	case h.logger == nil:
	case IsRequestError(stdErr.Code):
		h.logger.Warn("Request rejected", logFields)
	default:
		h.logger.Error("Request failed", logFields)
	}
	return stdErr
}

// PublicMessage maps an error to the message and detail the end user is allowed to see.
func (h *ErrorHandler) PublicMessage(err error) (message, detail string) {
	code := h.normalizeError(err).Code
	if IsMailError(code) {
		return PublicSendFailedMessage, PublicSendFailedError
	}
	switch code {
	case ErrCodeFormClosed:
		return PublicClosedMessage, ""
	case ErrCodeValidationFailed:
		return PublicValidationMessage, ""
	case ErrCodeInputParsingFailed:
		return PublicBadRequestMessage, ""
	case ErrCodePayloadTooLarge:
		return PublicBadRequestMessage, PublicPayloadTooLargeText
	default:
		return PublicSystemErrorMessage, PublicSystemErrorDetail
	}
}

func (h *ErrorHandler) normalizeError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   errString(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}
