package httpapi_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtalk/internal/application"
	"jobtalk/internal/document"
	"jobtalk/internal/domain"
	"jobtalk/internal/infra/httpapi"
)

type stubSTT struct {
	text  string
	err   error
	calls int
}

func (s *stubSTT) Transcribe(_ context.Context, _ domain.AudioPayload) (string, error) {
	s.calls++
	return s.text, s.err
}

type stubCategorizer struct {
	fields domain.CategorizedFields
	err    error
}

func (s *stubCategorizer) Categorize(_ context.Context, _ string) (domain.CategorizedFields, error) {
	return s.fields, s.err
}

func janeDoe() domain.CategorizedFields {
	return domain.CategorizedFields{
		ScopeOfWork: "Build a fence",
		ContactInformation: domain.ContactInformation{
			Name:  "Jane Doe",
			Phone: "555-1234",
		},
		Timeline: "Two weeks",
		Budget:   "$3,000",
	}
}

func newTestServer(t *testing.T, cfg httpapi.Config, stt *stubSTT, cat *stubCategorizer) *httpapi.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipeline := application.NewPipeline(stt, cat, nil, nil, logger)
	if cfg.Document.Title == "" {
		cfg.Document = document.DefaultParams(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	}
	return httpapi.NewServer(cfg, pipeline, nil, nil, logger)
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func wavURI() string {
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString([]byte("RIFF....WAVE"))
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[application.SessionView](t, rec).ID
}

func TestTranscribe(t *testing.T) {
	stt := &stubSTT{text: "  build a fence  "}
	srv := newTestServer(t, httpapi.Config{}, stt, &stubCategorizer{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/transcribe", map[string]string{"audioDataUri": wavURI()})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "build a fence", decode[map[string]string](t, rec)["transcription"])
}

func TestTranscribe_ErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		stt      *stubSTT
		want     int
		sttCalls int
	}{
		{
			name: "malformed data uri",
			body: map[string]string{"audioDataUri": "data:video/mp4;base64,AAAA"},
			stt:  &stubSTT{text: "x"},
			want: http.StatusBadRequest,
		},
		{
			name: "empty body",
			body: nil,
			stt:  &stubSTT{text: "x"},
			want: http.StatusBadRequest,
		},
		{
			name:     "service failure",
			body:     map[string]string{"audioDataUri": wavURI()},
			stt:      &stubSTT{err: errors.New("upstream 503")},
			want:     http.StatusBadGateway,
			sttCalls: 1,
		},
		{
			name:     "empty transcription",
			body:     map[string]string{"audioDataUri": wavURI()},
			stt:      &stubSTT{text: "   "},
			want:     http.StatusBadGateway,
			sttCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, httpapi.Config{}, tt.stt, &stubCategorizer{})
			rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/transcribe", tt.body)

			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
			assert.Equal(t, tt.sttCalls, tt.stt.calls)
		})
	}
}

func TestCategorize(t *testing.T) {
	srv := newTestServer(t, httpapi.Config{}, &stubSTT{}, &stubCategorizer{fields: janeDoe()})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/categorize", map[string]string{"transcribedText": "fence for Jane"})

	require.Equal(t, http.StatusOK, rec.Code)
	fields := decode[domain.CategorizedFields](t, rec)
	assert.Equal(t, "Jane Doe", fields.ContactInformation.Name)
	assert.Equal(t, domain.NotMentioned, fields.ContactInformation.Email)
}

func TestCategorize_Failure(t *testing.T) {
	cat := &stubCategorizer{err: domain.ErrMalformedResult}
	srv := newTestServer(t, httpapi.Config{}, &stubSTT{}, cat)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/categorize", map[string]string{"transcribedText": "fence"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "failed to categorize information")
}

func TestSession_IntakeFlow(t *testing.T) {
	srv := newTestServer(t, httpapi.Config{}, &stubSTT{text: "fence for Jane"}, &stubCategorizer{fields: janeDoe()})
	h := srv.Handler()
	id := createSession(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/intake", map[string]string{"audioDataUri": wavURI()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	view := decode[application.SessionView](t, rec)
	assert.Equal(t, domain.StatusDone, view.State.Status)
	assert.Equal(t, "fence for Jane", view.State.Transcript)
	require.NotEmpty(t, view.Views)

	rec = doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/contact/email", map[string]string{"value": "jane@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/fields/timeline", map[string]string{"value": "Next month"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+id+"/document?format=markdown", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	body := rec.Body.String()
	assert.Contains(t, body, "- **Name:** Jane Doe")
	assert.Contains(t, body, "- **Email:** jane@example.com")
	assert.Contains(t, body, "Next month")
}

func TestSession_IntakeFailureKeepsSession(t *testing.T) {
	srv := newTestServer(t, httpapi.Config{}, &stubSTT{err: errors.New("boom")}, &stubCategorizer{})
	h := srv.Handler()
	id := createSession(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/intake", map[string]string{"audioDataUri": wavURI()})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[application.SessionView](t, rec)
	assert.Equal(t, domain.StatusError, view.State.Status)
	assert.Contains(t, view.State.Error, "failed to transcribe audio")
}

func TestSession_NotFound(t *testing.T) {
	srv := newTestServer(t, httpapi.Config{}, &stubSTT{}, &stubCategorizer{})

	for _, id := range []string{"not-a-uuid", "6f1c2b43-5a1e-4d8e-9a43-1f3b8f1d2c11"} {
		rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/sessions/"+id, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}
}

func TestSession_UnknownField(t *testing.T) {
	srv := newTestServer(t, httpapi.Config{}, &stubSTT{}, &stubCategorizer{})
	h := srv.Handler()
	id := createSession(t, h)

	rec := doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/fields/color", map[string]string{"value": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSession_Words(t *testing.T) {
	srv := newTestServer(t, httpapi.Config{}, &stubSTT{}, &stubCategorizer{})
	h := srv.Handler()
	id := createSession(t, h)

	// Words outside a recording are ignored
	rec := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/words", map[string]string{"word": "early"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/recording", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusRecording, decode[application.SessionView](t, rec).State.Status)

	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/words", map[string]string{"word": "build a fence"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, "fence", decode[application.SessionView](t, rec).State.LastWord)

	rec = doJSON(t, h, http.MethodDelete, "/api/sessions/"+id+"/recording", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[application.SessionView](t, rec).State
	assert.False(t, state.Recording)
	assert.Equal(t, domain.StatusIdle, state.Status)
	assert.Empty(t, state.LastWord)
}

func TestSession_LineItems(t *testing.T) {
	srv := newTestServer(t, httpapi.Config{}, &stubSTT{}, &stubCategorizer{})
	h := srv.Handler()
	id := createSession(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/line-items", map[string]any{
		"quantity": 2, "itemName": "Post", "price": 50,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decode[domain.LineItem](t, rec)
	assert.NotEmpty(t, item.ID)

	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/line-items", map[string]any{
		"quantity": 0, "itemName": "Nothing", "price": 5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+id, nil)
	view := decode[application.SessionView](t, rec)
	assert.Len(t, view.LineItems, 1)
	assert.InDelta(t, 100.0, view.Total, 1e-9)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+id+"/document", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<table>")
	assert.Contains(t, rec.Body.String(), "$100.00")

	rec = doJSON(t, h, http.MethodDelete, "/api/sessions/"+id+"/line-items/"+item.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Empty(t, decode[application.SessionView](t, rec).LineItems)
}

func uploadImage(t *testing.T, h http.Handler, id string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSession_Images(t *testing.T) {
	srv := newTestServer(t, httpapi.Config{}, &stubSTT{}, &stubCategorizer{})
	h := srv.Handler()
	id := createSession(t, h)

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	rec := uploadImage(t, h, id, png)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	img := decode[domain.ImageAttachment](t, rec)
	assert.Equal(t, "image/png", img.ContentType)

	rec = doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/images/"+img.ID, map[string]string{"description": "Old fence"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = uploadImage(t, h, id, []byte("plain text, not a picture"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for i := 0; i < domain.MaxImages-1; i++ {
		require.Equal(t, http.StatusCreated, uploadImage(t, h, id, png).Code)
	}
	rec = uploadImage(t, h, id, png)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "up to 5 images")

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+id+"/document?format=markdown", nil)
	assert.Contains(t, rec.Body.String(), "**Image 1:** Old fence")

	rec = doJSON(t, h, http.MethodDelete, "/api/sessions/"+id+"/images/"+img.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Len(t, decode[application.SessionView](t, rec).Images, domain.MaxImages-1)
}

func TestSession_Payment(t *testing.T) {
	srv := newTestServer(t, httpapi.Config{}, &stubSTT{}, &stubCategorizer{})
	h := srv.Handler()
	id := createSession(t, h)

	rec := doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/payment", map[string]any{"downPaymentPercent": 30})
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[application.SessionView](t, rec)
	assert.Equal(t, 30.0, view.DownPaymentPercent)
	assert.Equal(t, domain.DefaultTerms, view.Terms)

	rec = doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/payment", map[string]any{"terms": "Net 30"})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[application.SessionView](t, rec)
	assert.Equal(t, 30.0, view.DownPaymentPercent)
	assert.Equal(t, "Net 30", view.Terms)

	rec = doJSON(t, h, http.MethodPut, "/api/sessions/"+id+"/payment", map[string]any{"downPaymentPercent": 120, "terms": "ignored"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, "Net 30", decode[application.SessionView](t, rec).Terms)
}

func TestDocument_FromQuery(t *testing.T) {
	srv := newTestServer(t, httpapi.Config{}, &stubSTT{}, &stubCategorizer{})

	q := url.Values{}
	q.Set("name", "Jane Doe")
	q.Set("budget", "Labor $1,000\nMaterials $500")
	q.Set("format", "markdown")

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/document?"+q.Encode(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Jane Doe")
	assert.Contains(t, body, "$1,500.00")
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, httpapi.Config{}, &stubSTT{}, &stubCategorizer{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decode[map[string]any](t, rec)["status"])
}

func TestAuthToken(t *testing.T) {
	const token = "test-secret-token-123"
	srv := newTestServer(t, httpapi.Config{AuthToken: token}, &stubSTT{}, &stubCategorizer{})
	h := srv.Handler()

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "valid token in header", header: token, want: http.StatusCreated},
		{name: "valid token in query", query: token, want: http.StatusCreated},
		{name: "wrong token", header: "nope", want: http.StatusUnauthorized},
		{name: "no token", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/sessions"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodPost, target, http.NoBody)
			if tt.header != "" {
				req.Header.Set("X-Auth-Token", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, httpapi.Config{RateLimit: 2, RateWindow: time.Minute}, &stubSTT{}, &stubCategorizer{})
	h := srv.Handler()

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/sessions", nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "rate limit exceeded"))
}
