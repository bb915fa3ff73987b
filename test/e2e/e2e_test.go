// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"form-coopecobana/internal/common/logger"
	"form-coopecobana/internal/common/mail"
	"form-coopecobana/internal/common/observability"
	"form-coopecobana/internal/intake/api"
	"form-coopecobana/internal/intake/deadline"
	"form-coopecobana/internal/intake/notifier"
	"form-coopecobana/internal/intake/submission"
	"form-coopecobana/internal/intake/validator"
)

// relayServer is an in-process SMTP endpoint that stores every accepted message.
type relayServer struct {
	ln       net.Listener
	mu       sync.Mutex
	received []received
}

type received struct {
	rcpts []string
	data  string
}

func startRelay(t *testing.T) *relayServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &relayServer{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.session(conn)
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *relayServer) session(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 relay ready")
	var current received
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"), strings.HasPrefix(upper, "MAIL FROM:"):
			_ = tp.PrintfLine("250 OK")
		case strings.HasPrefix(upper, "RCPT TO:"):
			current.rcpts = append(current.rcpts, strings.Trim(line[len("RCPT TO:"):], "<>"))
			_ = tp.PrintfLine("250 OK")
		case upper == "DATA":
			_ = tp.PrintfLine("354 send data")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			current.data = string(data)
			s.mu.Lock()
			s.received = append(s.received, current)
			s.mu.Unlock()
			current = received{}
			_ = tp.PrintfLine("250 queued")
		case upper == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 unsupported")
		}
	}
}

func (s *relayServer) port() int { return s.ln.Addr().(*net.TCPAddr).Port }

func (s *relayServer) messages() []received {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]received(nil), s.received...)
}

// newStack wires the same components cmd/form-server builds, against the given relay port.
func newStack(t *testing.T, relayPort int, cutoff time.Time) http.Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	obs := observability.NewNoop()

	relay := mail.NewSMTPRelay(mail.SMTPConfig{Host: "127.0.0.1", Port: relayPort, DialTimeout: 2 * time.Second})

	validatorCfg := validator.DefaultConfig()
	notifierCfg := notifier.DefaultConfig()
	notifierCfg.AdminRecipients = []string{"admin@coopecobanarl.com", "secretaria@coopecobanarl.com"}
	notifierCfg.ReplyTo = "coopecobana@outlook.com"
	notifierCfg.SendTimeout = 2 * time.Second
	require.NoError(t, notifierCfg.Validate())

	svc := submission.NewService(submission.ServiceDependencies{
		Logger:    log,
		Gate:      deadline.NewGate(cutoff, nil),
		Validator: validator.New(validatorCfg),
		Notifier: notifier.NewService(notifier.ServiceDependencies{
			Logger:        log,
			Relay:         relay,
			Observability: obs,
		}, notifierCfg),
		Observability: obs,
	})

	return api.NewHandler(api.HandlerDependencies{
		Logger:   log,
		Service:  svc,
		Verifier: relay,
	}, api.Config{
		Policy:   validatorCfg.Policy,
		Location: notifierCfg.Location,
	}).Routes()
}

func submitForm(t *testing.T, handler http.Handler, attachment []byte) (*httptest.ResponseRecorder, submission.Outcome) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"numeroAsociado":      "12345",
		"cedula":              "1-1234-5678",
		"nombreCompleto":      "María Fernández Solano",
		"correoElectronico":   "Maria@Example.com",
		"telefonoCelular":     "8888-7777",
		"participaraAsamblea": "si",
		"representaraOtros":   "si",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	if attachment != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="archivos"; filename="poder.pdf"`)
		header.Set("Content-Type", "application/pdf")
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(attachment)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/submit", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var out submission.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

// ==========================
// Full submission flow
// ==========================

func TestE2E_SubmissionDelivered(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}
	relay := startRelay(t)
	handler := newStack(t, relay.port(), time.Now().Add(48*time.Hour))

	rec, out := submitForm(t, handler, []byte("%PDF-1.4 carta poder"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, out.Success)
	assert.Equal(t, submission.RedirectSent, out.Redirect)
	assert.NotEmpty(t, out.SubmissionID)

	msgs := relay.messages()
	require.Len(t, msgs, 2)

	var admin, confirmant *received
	for i := range msgs {
		if len(msgs[i].rcpts) == 2 {
			admin = &msgs[i]
		} else {
			confirmant = &msgs[i]
		}
	}
	require.NotNil(t, admin)
	require.NotNil(t, confirmant)

	assert.ElementsMatch(t, []string{"admin@coopecobanarl.com", "secretaria@coopecobanarl.com"}, admin.rcpts)
	assert.Contains(t, admin.data, "Subject: 112345678")
	assert.Contains(t, admin.data, "filename=poder.pdf")
	assert.Contains(t, admin.data, "multipart/mixed")

	assert.Equal(t, []string{"maria@example.com"}, confirmant.rcpts)
	assert.Contains(t, confirmant.data, "text/plain; charset=UTF-8")
	assert.NotContains(t, confirmant.data, "multipart/mixed")
}

func TestE2E_ClosedFormSendsNothing(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}
	relay := startRelay(t)
	handler := newStack(t, relay.port(), time.Now().Add(-time.Minute))

	rec, out := submitForm(t, handler, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, submission.KindClosed, out.Kind)
	assert.Equal(t, submission.RedirectClosed, out.Redirect)
	assert.Empty(t, relay.messages())
}

func TestE2E_RelayUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	handler := newStack(t, port, time.Now().Add(time.Hour))
	rec, out := submitForm(t, handler, nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, out.Success)
	assert.Equal(t, submission.KindNotificationFailed, out.Kind)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	ready := httptest.NewRecorder()
	handler.ServeHTTP(ready, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)
}
