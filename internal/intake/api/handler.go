// Package api exposes the submission service over HTTP.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"form-coopecobana/internal/common/errors"
	httpx "form-coopecobana/internal/common/http"
	"form-coopecobana/internal/common/logger"
	"form-coopecobana/internal/common/mail"
	"form-coopecobana/internal/common/validation"
	"form-coopecobana/internal/intake/submission"
	"form-coopecobana/internal/intake/validator"
)

// multipartOverhead is allowed on top of the aggregate attachment limit for
// the text fields and part headers.
const multipartOverhead int64 = 1 << 20

// SubmissionService is what the handler needs from the orchestrator.
type SubmissionService interface {
	Submit(ctx context.Context, in validator.SubmissionInput) submission.Outcome
	IsFormOpen() bool
	TimeRemaining() (time.Duration, bool)
	Cutoff() time.Time
}

type Config struct {
	Policy       validator.AttachmentPolicy
	Location     *time.Location
	ReadyTimeout time.Duration
	// ReadyCacheTTL is how long a relay verification result is reused by /ready.
	ReadyCacheTTL time.Duration
}

type HandlerDependencies struct {
	Logger   logger.Logger
	Service  SubmissionService
	Verifier mail.Verifier // optional; /ready reports ready when nil
}

type Handler struct {
	config   Config
	logger   logger.Logger
	service  SubmissionService
	verifier mail.Verifier
	errors   *errors.ErrorHandler
	now      func() time.Time

	readyMu        sync.Mutex
	readyCheckedAt time.Time
	readyErr       *errors.StandardError
}

func NewHandler(deps HandlerDependencies, config Config) *Handler {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = 10 * time.Second
	}
	if config.ReadyCacheTTL <= 0 {
		config.ReadyCacheTTL = 30 * time.Second
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &Handler{
		config:   config,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
		service:  deps.Service,
		verifier: deps.Verifier,
		errors:   errors.NewErrorHandler(log),
		now:      time.Now,
	}
}

// Routes builds the router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/submit", h.handleSubmit)
		r.Get("/form/status", h.handleStatus)
		r.Post("/attachments/check", h.handleAttachmentCheck)
	})
	return r
}

// maxBodyBytes is the body cap for a submission of the given media type. JSON
// bodies carry attachments as base64, which is 4/3 of the raw size.
func (h *Handler) maxBodyBytes(mediaType string) int64 {
	limit := h.config.Policy.MaxTotalSize
	if mediaType == "application/json" {
		limit = (limit + 2) / 3 * 4
	}
	return limit + multipartOverhead
}

// ==========================
// Submit
// ==========================

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	in, err := h.readSubmission(w, r)
	if err != nil {
		h.writeRequestError(w, r, err)
		return
	}

	out := h.service.Submit(r.Context(), in)
	h.logger.Info("Submission handled", map[string]interface{}{
		"requestId":    middleware.GetReqID(r.Context()),
		"submissionId": out.SubmissionID,
		"outcome":      string(out.Kind),
	})
	httpx.WriteJSON(w, statusFor(out.Kind), out)
}

func statusFor(kind submission.Kind) int {
	switch kind {
	case submission.KindSuccess:
		return http.StatusOK
	case submission.KindClosed:
		return http.StatusForbidden
	case submission.KindValidationFailed:
		return http.StatusUnprocessableEntity
	case submission.KindNotificationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) readSubmission(w http.ResponseWriter, r *http.Request) (validator.SubmissionInput, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return validator.SubmissionInput{}, errors.NewInputParsingError(fmt.Errorf("content type: %w", err))
	}

	limit := h.maxBodyBytes(mediaType)
	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		return h.readMultipart(r, limit)
	case "application/json":
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		return h.readJSON(r, limit)
	default:
		return validator.SubmissionInput{}, errors.NewInputParsingError(fmt.Errorf("unsupported content type %q", mediaType))
	}
}

func (h *Handler) readMultipart(r *http.Request, limit int64) (validator.SubmissionInput, error) {
	if err := r.ParseMultipartForm(limit); err != nil {
		return validator.SubmissionInput{}, bodyError(err, limit)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := validator.SubmissionInput{
		AssociateNumber: r.FormValue(validator.FieldAssociateNumber),
		NationalID:      r.FormValue(validator.FieldNationalID),
		FullName:        r.FormValue(validator.FieldFullName),
		Email:           r.FormValue(validator.FieldEmail),
		SecondaryEmail:  r.FormValue(validator.FieldSecondaryEmail),
		MobilePhone:     r.FormValue(validator.FieldMobilePhone),
		Participation:   r.FormValue(validator.FieldParticipation),
		Representation:  r.FormValue(validator.FieldRepresentation),
	}

	for _, fh := range r.MultipartForm.File[validator.FieldAttachments] {
		if fh.Size == 0 {
			continue
		}
		a, err := readFilePart(fh)
		if err != nil {
			return validator.SubmissionInput{}, errors.NewInputParsingError(err)
		}
		in.Attachments = append(in.Attachments, a)
	}
	return in, nil
}

func readFilePart(fh *multipart.FileHeader) (validator.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return validator.Attachment{}, fmt.Errorf("open %q: %w", fh.Filename, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return validator.Attachment{}, fmt.Errorf("read %q: %w", fh.Filename, err)
	}
	return validator.Attachment{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

func (h *Handler) readJSON(r *http.Request, limit int64) (validator.SubmissionInput, error) {
	var req SubmitRequest
	if err := h.decodeJSON(r, GetSubmitSchema(), &req, limit); err != nil {
		return validator.SubmissionInput{}, err
	}
	in, err := req.toInput()
	if err != nil {
		return validator.SubmissionInput{}, errors.NewInputParsingError(err)
	}
	return in, nil
}

// decodeJSON reads the body, checks its shape against schema and decodes it into v.
func (h *Handler) decodeJSON(r *http.Request, schema validation.JSONSchema, v interface{}, limit int64) error {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return bodyError(err, limit)
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return errors.NewInputParsingError(err)
	}
	if result := validation.ValidateInput(doc, schema); !result.Valid {
		return errors.NewInputParsingError(fmt.Errorf("%s", strings.Join(result.GetErrorMessages(), "; ")))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.NewInputParsingError(err)
	}
	return nil
}

func bodyError(err error, limit int64) error {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		return errors.NewPayloadTooLargeError(limit)
	}
	return errors.NewInputParsingError(err)
}

func (h *Handler) writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := h.errors.Handle(err, map[string]interface{}{
		"requestId": middleware.GetReqID(r.Context()),
		"path":      r.URL.Path,
	})
	message, detail := h.errors.PublicMessage(stdErr)

	status := http.StatusBadRequest
	if stdErr.Code == errors.ErrCodePayloadTooLarge {
		status = http.StatusRequestEntityTooLarge
	}
	httpx.WriteError(w, status, string(stdErr.Code), message, detail)
}

// ==========================
// Form status and attachment pre-check
// ==========================

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	cutoff := h.service.Cutoff()
	resp := StatusResponse{
		Open:            h.service.IsFormOpen(),
		ClosesAt:        cutoff.Format(time.RFC3339),
		ClosesAtDisplay: FormatDisplayDate(cutoff, h.config.Location),
	}
	if remaining, ok := h.service.TimeRemaining(); ok {
		resp.RemainingSeconds = int64(remaining / time.Second)
		resp.Remaining = FormatRemaining(remaining)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAttachmentCheck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, multipartOverhead)

	var req AttachmentCheckRequest
	if err := h.decodeJSON(r, GetAttachmentCheckSchema(), &req, multipartOverhead); err != nil {
		h.writeRequestError(w, r, err)
		return
	}
	accepted, err := toAttachments(req.Accepted)
	if err != nil {
		h.writeRequestError(w, r, errors.NewInputParsingError(err))
		return
	}
	added, err := toAttachments(req.Added)
	if err != nil {
		h.writeRequestError(w, r, errors.NewInputParsingError(err))
		return
	}

	res := h.config.Policy.Merge(accepted, added)
	resp := AttachmentCheckResponse{
		Valid:     res.Valid(),
		Accepted:  make([]FileDescriptor, 0, len(res.Accepted)),
		Errors:    res.Errors,
		TotalSize: res.TotalSize,
	}
	for _, a := range res.Accepted {
		resp.Accepted = append(resp.Accepted, FileDescriptor{Name: a.Name, Type: a.ContentType, Size: a.EffectiveSize()})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// ==========================
// Health and readiness
// ==========================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	if stdErr := h.relayReadiness(r.Context()); stdErr != nil {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"code":   string(stdErr.Code),
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// relayReadiness verifies the relay at most once per ReadyCacheTTL and returns
// the last classified failure, or nil when the relay was reachable.
func (h *Handler) relayReadiness(ctx context.Context) *errors.StandardError {
	h.readyMu.Lock()
	defer h.readyMu.Unlock()

	now := h.now()
	if !h.readyCheckedAt.IsZero() && now.Sub(h.readyCheckedAt) < h.config.ReadyCacheTTL {
		return h.readyErr
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.ReadyTimeout)
	defer cancel()

	h.readyErr = nil
	if err := h.verifier.Verify(ctx); err != nil {
		h.readyErr = mail.Classify("readiness", err)
		h.logger.Warn("Relay not ready", map[string]interface{}{
			"errorCode": string(h.readyErr.Code),
			"reason":    h.readyErr.Reason(),
		})
	}
	h.readyCheckedAt = now
	return h.readyErr
}
