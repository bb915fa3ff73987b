package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"form-coopecobana/internal/common/logger"
	"form-coopecobana/internal/intake/submission"
	"form-coopecobana/internal/intake/validator"
)

// ==========================
// Fakes
// ==========================

type MockSubmissionService struct {
	SubmitFunc func(ctx context.Context, in validator.SubmissionInput) submission.Outcome
	open       bool
	remaining  time.Duration
	cutoff     time.Time
	received   []validator.SubmissionInput
}

func (m *MockSubmissionService) Submit(ctx context.Context, in validator.SubmissionInput) submission.Outcome {
	m.received = append(m.received, in)
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, in)
	}
	return submission.Outcome{Kind: submission.KindSuccess, Success: true, Message: submission.MessageSuccess, Redirect: submission.RedirectSent}
}

func (m *MockSubmissionService) IsFormOpen() bool { return m.open }

func (m *MockSubmissionService) TimeRemaining() (time.Duration, bool) {
	return m.remaining, m.open
}

func (m *MockSubmissionService) Cutoff() time.Time { return m.cutoff }

type MockVerifier struct {
	err   error
	calls int
}

func (m *MockVerifier) Verify(ctx context.Context) error {
	m.calls++
	return m.err
}

// ==========================
// Test Helpers
// ==========================

var costaRica = time.FixedZone("CST", -6*60*60)

func newTestHandler(t *testing.T, svc *MockSubmissionService) http.Handler {
	h := NewHandler(HandlerDependencies{
		Logger:  logger.NewTestLogger(t),
		Service: svc,
	}, Config{Policy: validator.DefaultPolicy(), Location: costaRica})
	return h.Routes()
}

func openService() *MockSubmissionService {
	return &MockSubmissionService{
		open:      true,
		remaining: 26 * time.Hour,
		cutoff:    time.Date(2025, 11, 6, 1, 0, 0, 0, costaRica),
	}
}

type filePart struct {
	name        string
	contentType string
	content     []byte
}

func multipartBody(t *testing.T, fields map[string]string, files []filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="archivos"; filename="%s"`, f.name))
		header.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"numeroAsociado":      "12345",
		"cedula":              "3-0102-0999",
		"nombreCompleto":      "Juan Pérez",
		"correoElectronico":   "juan@example.com",
		"telefonoCelular":     "8888-7777",
		"participaraAsamblea": "si",
		"representaraOtros":   "no",
	}
}

// ==========================
// POST /api/submit
// ==========================

func TestSubmit_Multipart(t *testing.T) {
	svc := openService()
	body, contentType := multipartBody(t, validFields(), []filePart{
		{name: "poder.pdf", contentType: "application/pdf", content: []byte("%PDF-1.4 test")},
		{name: "vacio.pdf", contentType: "application/pdf", content: nil},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/submit", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out submission.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "/enviado", out.Redirect)

	require.Len(t, svc.received, 1)
	in := svc.received[0]
	assert.Equal(t, "3-0102-0999", in.NationalID)
	assert.Equal(t, "si", in.Participation)
	require.Len(t, in.Attachments, 1, "empty file parts are ignored")
	assert.Equal(t, "poder.pdf", in.Attachments[0].Name)
	assert.Equal(t, "application/pdf", in.Attachments[0].ContentType)
	assert.Equal(t, []byte("%PDF-1.4 test"), in.Attachments[0].Content)
}

func TestSubmit_JSON(t *testing.T) {
	svc := openService()
	payload := map[string]interface{}{
		"numeroAsociado":      "12345",
		"cedula":              "301020999",
		"nombreCompleto":      "Juan Pérez",
		"correoElectronico":   "juan@example.com",
		"participaraAsamblea": "si",
		"representaraOtros":   "no",
		"archivos": []map[string]interface{}{
			{"name": "foto.png", "type": "image/png", "content": base64.StdEncoding.EncodeToString([]byte("png-bytes"))},
		},
	}
	raw, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/api/submit", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.received, 1)
	require.Len(t, svc.received[0].Attachments, 1)
	assert.Equal(t, int64(len("png-bytes")), svc.received[0].Attachments[0].Size)
}

func TestSubmit_JSONWithAttachmentsNearTotalLimit(t *testing.T) {
	svc := openService()
	pdf := bytes.Repeat([]byte("%PDF"), 9*int(validator.MB)/4)
	encoded := base64.StdEncoding.EncodeToString(pdf)
	payload := map[string]interface{}{
		"numeroAsociado":      "12345",
		"cedula":              "301020999",
		"nombreCompleto":      "Juan Pérez",
		"correoElectronico":   "juan@example.com",
		"participaraAsamblea": "si",
		"representaraOtros":   "no",
		"archivos": []map[string]interface{}{
			{"name": "poder-1.pdf", "type": "application/pdf", "content": encoded},
			{"name": "poder-2.pdf", "type": "application/pdf", "content": encoded},
		},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.Greater(t, int64(len(raw)), validator.DefaultPolicy().MaxTotalSize+multipartOverhead)

	req := httptest.NewRequest(http.MethodPost, "/api/submit", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, svc.received, 1)
	require.Len(t, svc.received[0].Attachments, 2)
	assert.Equal(t, int64(len(pdf)), svc.received[0].Attachments[1].Size)
}

func TestMaxBodyBytes(t *testing.T) {
	h := NewHandler(HandlerDependencies{}, Config{Policy: validator.AttachmentPolicy{MaxTotalSize: 30}})

	tests := []struct {
		mediaType string
		want      int64
	}{
		{"multipart/form-data", 30 + multipartOverhead},
		{"application/json", 40 + multipartOverhead},
	}
	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			assert.Equal(t, tt.want, h.maxBodyBytes(tt.mediaType))
		})
	}
}

func TestSubmit_RejectedRequests(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantCode    string
	}{
		{"unknown field", "application/json", `{"cedula":"1","extra":true}`, http.StatusBadRequest, "INPUT_PARSING_FAILED"},
		{"wrong type", "application/json", `{"cedula":301020999}`, http.StatusBadRequest, "INPUT_PARSING_FAILED"},
		{"malformed json", "application/json", `{"cedula":`, http.StatusBadRequest, "INPUT_PARSING_FAILED"},
		{"bad base64", "application/json", `{"archivos":[{"name":"a.pdf","content":"***"}]}`, http.StatusBadRequest, "INPUT_PARSING_FAILED"},
		{"unsupported content type", "text/plain", `hola`, http.StatusBadRequest, "INPUT_PARSING_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := openService()
			req := httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			newTestHandler(t, svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
			assert.Contains(t, rec.Body.String(), "Solicitud inválida")
			assert.Empty(t, svc.received)
		})
	}
}

func TestSubmit_PayloadTooLarge(t *testing.T) {
	svc := openService()
	h := NewHandler(HandlerDependencies{Logger: logger.NewTestLogger(t), Service: svc}, Config{
		Policy: validator.AttachmentPolicy{MaxFileSize: 1, MaxTotalSize: 1, AllowedExtensions: []string{".pdf"}},
	})

	big := bytes.Repeat([]byte("a"), int(multipartOverhead)+1024)
	body, contentType := multipartBody(t, validFields(), []filePart{{name: "a.pdf", contentType: "application/pdf", content: big}})

	req := httptest.NewRequest(http.MethodPost, "/api/submit", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "PAYLOAD_TOO_LARGE")
	assert.Empty(t, svc.received)

	jsonBody := fmt.Sprintf(`{"archivos":[{"name":"a.pdf","content":"%s"}]}`,
		base64.StdEncoding.EncodeToString(big))
	req = httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, svc.received)
}

func TestSubmit_OutcomeStatusCodes(t *testing.T) {
	tests := []struct {
		kind submission.Kind
		want int
	}{
		{submission.KindSuccess, http.StatusOK},
		{submission.KindClosed, http.StatusForbidden},
		{submission.KindValidationFailed, http.StatusUnprocessableEntity},
		{submission.KindNotificationFailed, http.StatusBadGateway},
		{submission.KindSystemError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			svc := openService()
			svc.SubmitFunc = func(context.Context, validator.SubmissionInput) submission.Outcome {
				return submission.Outcome{Kind: tt.kind, Message: "m"}
			}
			body, contentType := multipartBody(t, validFields(), nil)
			req := httptest.NewRequest(http.MethodPost, "/api/submit", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			newTestHandler(t, svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

// ==========================
// GET /api/form/status
// ==========================

func TestStatus(t *testing.T) {
	svc := openService()
	rec := httptest.NewRecorder()
	newTestHandler(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/form/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Open)
	assert.Equal(t, "2025-11-06T01:00:00-06:00", resp.ClosesAt)
	assert.Equal(t, "jueves, 6 de noviembre de 2025, 01:00", resp.ClosesAtDisplay)
	assert.Equal(t, int64(26*60*60), resp.RemainingSeconds)
	assert.Equal(t, "1 día y 2 horas", resp.Remaining)

	svc.open = false
	rec = httptest.NewRecorder()
	newTestHandler(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/form/status", nil))
	resp = StatusResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Open)
	assert.Empty(t, resp.Remaining)
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{3*24*time.Hour + 5*time.Hour + 59*time.Minute, "3 días y 5 horas"},
		{24 * time.Hour, "1 día y 0 horas"},
		{time.Hour + time.Minute, "1 hora y 1 minuto"},
		{5*time.Hour + 30*time.Minute + 59*time.Second, "5 horas y 30 minutos"},
		{59 * time.Minute, "59 minutos"},
		{30 * time.Second, "0 minutos"},
		{-time.Minute, "0 minutos"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRemaining(tt.in))
		})
	}
}

// ==========================
// POST /api/attachments/check
// ==========================

func TestAttachmentCheck(t *testing.T) {
	const mb = 1024 * 1024
	body := fmt.Sprintf(`{
		"accepted": [{"name":"a.pdf","type":"application/pdf","size":%d},{"name":"b.pdf","type":"application/pdf","size":%d}],
		"added":    [{"name":"c.pdf","type":"application/pdf","size":%d},{"name":"x.exe","type":"application/x-msdownload","size":10}]
	}`, 9*mb, 9*mb, 9*mb)

	req := httptest.NewRequest(http.MethodPost, "/api/attachments/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestHandler(t, openService()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AttachmentCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	assert.Len(t, resp.Accepted, 3)
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, "archivos[3]", resp.Errors[0].Field)
	assert.Equal(t, "archivos", resp.Errors[1].Field)
	assert.Equal(t, int64(27*mb), resp.TotalSize)
}

// ==========================
// Health and readiness
// ==========================

func TestHealthAndReadiness(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t, openService()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name     string
		verifier *MockVerifier
		want     int
	}{
		{"relay reachable", &MockVerifier{}, http.StatusOK},
		{"relay down", &MockVerifier{err: context.DeadlineExceeded}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(HandlerDependencies{
				Logger:   logger.NewTestLogger(t),
				Service:  openService(),
				Verifier: tt.verifier,
			}, Config{Policy: validator.DefaultPolicy()})

			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestReady_ReusesVerificationWithinTTL(t *testing.T) {
	verifier := &MockVerifier{err: context.DeadlineExceeded}
	h := NewHandler(HandlerDependencies{
		Logger:   logger.NewTestLogger(t),
		Service:  openService(),
		Verifier: verifier,
	}, Config{Policy: validator.DefaultPolicy(), ReadyCacheTTL: 30 * time.Second})

	now := time.Date(2025, 11, 1, 9, 0, 0, 0, costaRica)
	h.now = func() time.Time { return now }
	routes := h.Routes()

	ready := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		return rec
	}

	first := ready()
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)
	assert.Contains(t, first.Body.String(), "MAIL_TIMEOUT")

	now = now.Add(10 * time.Second)
	assert.Equal(t, http.StatusServiceUnavailable, ready().Code)
	assert.Equal(t, 1, verifier.calls)

	verifier.err = nil
	now = now.Add(30 * time.Second)
	assert.Equal(t, http.StatusOK, ready().Code)
	assert.Equal(t, 2, verifier.calls)

	assert.Equal(t, http.StatusOK, ready().Code)
	assert.Equal(t, 2, verifier.calls)
}
