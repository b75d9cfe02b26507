package httpapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/cryptox"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/auth"
	"github.com/dmitrijs2005/fileshare/internal/server/blobstore"
	"github.com/dmitrijs2005/fileshare/internal/server/metrics"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fileshare/internal/server/services"
	"github.com/dmitrijs2005/fileshare/internal/server/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://files.test"

type mailbox struct {
	mu     sync.Mutex
	bodies []string
}

func (m *mailbox) Send(_ context.Context, _, _, body string) error {
	m.mu.Lock()
	m.bodies = append(m.bodies, body)
	m.mu.Unlock()
	return nil
}

func (m *mailbox) verifyPath(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.bodies)
	body := m.bodies[len(m.bodies)-1]
	i := strings.Index(body, baseURL)
	require.GreaterOrEqual(t, i, 0)
	rest := body[i+len(baseURL):]
	return strings.TrimSpace(strings.SplitN(rest, "\r\n", 2)[0])
}

// lockedBuffer collects log output written from handler goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// switchableBlobs is a memory blob store whose Open can be made to fail.
type switchableBlobs struct {
	*blobstore.MemoryStore
	openErr error
}

func (s *switchableBlobs) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.MemoryStore.Open(ctx, key)
}

type fixture struct {
	router http.Handler
	auth   *services.AuthService
	mail   *mailbox
	now    time.Time
	signer *auth.Signer
	blobs  *switchableBlobs
	logs   *lockedBuffer
}

func newFixture(t *testing.T, ratePerMin int) *fixture {
	t.Helper()

	hasher, err := cryptox.NewHasher(cryptox.Params{Time: 1, Memory: 8, Threads: 1, SaltLen: 8, KeyLen: 16})
	require.NoError(t, err)
	signer, err := auth.NewSigner([]byte(strings.Repeat("k", auth.MinSecretLen)))
	require.NoError(t, err)

	fx := &fixture{
		mail:   &mailbox{},
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		signer: signer,
		blobs:  &switchableBlobs{MemoryStore: blobstore.NewMemoryStore()},
		logs:   &lockedBuffer{},
	}
	signer.Now = func() time.Time { return fx.now }

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	log := logging.New(fx.logs, "debug", "json")
	rm := repomanager.NewMemoryRepositoryManager()

	fx.auth = services.NewAuthService(rm, sessions.NewRegistry(sessions.NewMemoryStore(), time.Hour, m), hasher, m, log)
	fx.router = NewRouter(Options{
		Auth:            fx.auth,
		Signup:          services.NewSignupService(rm, signer, hasher, fx.mail, baseURL, m, log),
		Download:        services.NewDownloadService(rm, signer, baseURL, m, log),
		Files:           services.NewFileService(rm, fx.blobs, 1<<20, log),
		Gatherer:        reg,
		MaxUploadBytes:  1 << 20,
		LoginRatePerMin: ratePerMin,
		Logger:          log,
	})
	return fx
}

func (fx *fixture) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func (fx *fixture) postJSON(t *testing.T, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return fx.do(t, http.MethodPost, path, "", bytes.NewReader(b), "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireProblem(t *testing.T, rec *httptest.ResponseRecorder, status int) Problem {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypeProblemJSON, rec.Header().Get("Content-Type"))
	p := decode[Problem](t, rec)
	assert.Equal(t, status, p.Status)
	return p
}

func (fx *fixture) opsToken(t *testing.T) string {
	t.Helper()
	_, err := fx.auth.CreateOpsUser(context.Background(), "alice", "ops-password")
	require.NoError(t, err)
	rec := fx.postJSON(t, "/ops/login", map[string]string{"username": "alice", "password": "ops-password"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[tokenResponse](t, rec).Token
}

func (fx *fixture) clientToken(t *testing.T) string {
	t.Helper()
	creds := map[string]string{"email": "carol@example.com", "password": "client-password"}
	rec := fx.postJSON(t, "/client/signup", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = fx.do(t, http.MethodGet, fx.mail.verifyPath(t), "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = fx.postJSON(t, "/client/login", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[tokenResponse](t, rec).Token
}

func docx(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = io.WriteString(w, `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`)
	require.NoError(t, err)
	w, err = zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = io.WriteString(w, `<w:document/>`)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, filename string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (fx *fixture) uploadDocx(t *testing.T, opsTok string) string {
	t.Helper()
	body, ct := multipartBody(t, "file", "Plan 2025.docx", docx(t))
	rec := fx.do(t, http.MethodPost, "/ops/upload", opsTok, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]any](t, rec)["id"].(string)
}

func flipMiddle(tok string) string {
	b := []byte(tok)
	i := len(b) / 2
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestIndexHealthMetrics(t *testing.T) {
	fx := newFixture(t, 100)

	rec := fx.do(t, http.MethodGet, "/", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "POST /ops/login")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = fx.do(t, http.MethodGet, "/healthz", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	fx.postJSON(t, "/ops/login", map[string]string{"username": "x", "password": "y"})
	rec = fx.do(t, http.MethodGet, "/metrics", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fileshare_")

	requireProblem(t, fx.do(t, http.MethodGet, "/nope", "", nil, ""), http.StatusNotFound)
}

func TestEndToEndDownload(t *testing.T) {
	fx := newFixture(t, 100)
	opsTok := fx.opsToken(t)
	fileID := fx.uploadDocx(t, opsTok)
	cliTok := fx.clientToken(t)

	rec := fx.do(t, http.MethodGet, "/client/files", cliTok, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Plan_2025.docx")
	assert.NotContains(t, rec.Body.String(), "storage_key")

	rec = fx.do(t, http.MethodGet, "/client/download-link/"+fileID, cliTok, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	link := decode[services.DownloadLink](t, rec)
	assert.Equal(t, "30 minutes", link.ExpiresIn)
	require.True(t, strings.HasPrefix(link.URL, baseURL+"/download/"))

	path := strings.TrimPrefix(link.URL, baseURL)

	fx.now = fx.now.Add(30 * time.Minute)
	rec = fx.do(t, http.MethodGet, path, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, docx(t), rec.Body.Bytes())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename=Plan_2025.docx`)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", rec.Header().Get("Content-Type"))

	fx.now = fx.now.Add(time.Minute)
	p := requireProblem(t, fx.do(t, http.MethodGet, path, "", nil, ""), http.StatusBadRequest)
	assert.Equal(t, tokenProblemDetail, p.Detail)

	fx.now = fx.now.Add(-time.Minute)
	p = requireProblem(t, fx.do(t, http.MethodGet, "/download/"+flipMiddle(link.Token), "", nil, ""), http.StatusBadRequest)
	assert.Equal(t, tokenProblemDetail, p.Detail)

	rec = fx.do(t, http.MethodDelete, "/ops/files/"+fileID, opsTok, nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	requireProblem(t, fx.do(t, http.MethodGet, path, "", nil, ""), http.StatusNotFound)
}

func TestDownload_StoreFailureDoesNotLogToken(t *testing.T) {
	fx := newFixture(t, 100)
	fileID := fx.uploadDocx(t, fx.opsToken(t))
	cliTok := fx.clientToken(t)

	rec := fx.do(t, http.MethodGet, "/client/download-link/"+fileID, cliTok, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	link := decode[services.DownloadLink](t, rec)

	fx.blobs.openErr = errors.New("s3 unavailable")
	requireProblem(t, fx.do(t, http.MethodGet, "/download/"+link.Token, "", nil, ""), http.StatusInternalServerError)

	logs := fx.logs.String()
	assert.Contains(t, logs, "request failed")
	assert.Contains(t, logs, "/download/[redacted]")
	assert.NotContains(t, logs, link.Token)
	assert.NotContains(t, logs, cliTok)
}

func TestGuards(t *testing.T) {
	fx := newFixture(t, 100)
	opsTok := fx.opsToken(t)
	cliTok := fx.clientToken(t)

	rec := fx.do(t, http.MethodGet, "/client/files", "", nil, "")
	requireProblem(t, rec, http.StatusUnauthorized)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	requireProblem(t, fx.do(t, http.MethodGet, "/client/files", opsTok, nil, ""), http.StatusUnauthorized)

	body, ct := multipartBody(t, "file", "a.docx", docx(t))
	requireProblem(t, fx.do(t, http.MethodPost, "/ops/upload", cliTok, body, ct), http.StatusUnauthorized)

	// bare token without the Bearer scheme
	req := httptest.NewRequest(http.MethodGet, "/client/files", nil)
	req.Header.Set("Authorization", cliTok)
	rr := httptest.NewRecorder()
	fx.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rec = fx.do(t, http.MethodPost, "/client/logout", cliTok, nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	requireProblem(t, fx.do(t, http.MethodGet, "/client/files", cliTok, nil, ""), http.StatusUnauthorized)
}

func TestLoginAndSignupErrors(t *testing.T) {
	fx := newFixture(t, 100)
	fx.opsToken(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"ops missing password", "/ops/login", map[string]string{"username": "alice"}, http.StatusBadRequest},
		{"ops wrong password", "/ops/login", map[string]string{"username": "alice", "password": "nope"}, http.StatusUnauthorized},
		{"ops unknown user", "/ops/login", map[string]string{"username": "bob", "password": "nope"}, http.StatusUnauthorized},
		{"client bad email", "/client/signup", map[string]string{"email": "nope", "password": "client-password"}, http.StatusBadRequest},
		{"client missing fields", "/client/signup", map[string]string{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireProblem(t, fx.postJSON(t, tt.path, tt.body), tt.status)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		rec := fx.do(t, http.MethodPost, "/ops/login", "", strings.NewReader("{"), "application/json")
		requireProblem(t, rec, http.StatusBadRequest)
	})

	t.Run("unverified then duplicate", func(t *testing.T) {
		creds := map[string]string{"email": "dan@example.com", "password": "client-password"}
		require.Equal(t, http.StatusCreated, fx.postJSON(t, "/client/signup", creds).Code)

		p := requireProblem(t, fx.postJSON(t, "/client/login", creds), http.StatusForbidden)
		assert.Equal(t, "email not verified", p.Detail)

		requireProblem(t, fx.postJSON(t, "/client/signup", creds), http.StatusConflict)
	})

	t.Run("bad verification token", func(t *testing.T) {
		p := requireProblem(t, fx.do(t, http.MethodGet, "/client/verify/not-a-token", "", nil, ""), http.StatusBadRequest)
		assert.Equal(t, tokenProblemDetail, p.Detail)
	})
}

func TestUploadErrors(t *testing.T) {
	fx := newFixture(t, 100)
	opsTok := fx.opsToken(t)

	body, ct := multipartBody(t, "file", "notes.txt", []byte("hello"))
	requireProblem(t, fx.do(t, http.MethodPost, "/ops/upload", opsTok, body, ct), http.StatusUnsupportedMediaType)

	body, ct = multipartBody(t, "other", "a.docx", docx(t))
	requireProblem(t, fx.do(t, http.MethodPost, "/ops/upload", opsTok, body, ct), http.StatusBadRequest)

	body, ct = multipartBody(t, "file", "huge.docx", make([]byte, 3<<20))
	requireProblem(t, fx.do(t, http.MethodPost, "/ops/upload", opsTok, body, ct), http.StatusRequestEntityTooLarge)

	cliTok := fx.clientToken(t)
	requireProblem(t, fx.do(t, http.MethodGet, "/client/download-link/missing", cliTok, nil, ""), http.StatusNotFound)
	requireProblem(t, fx.do(t, http.MethodDelete, "/ops/files/missing", opsTok, nil, ""), http.StatusNotFound)
}

func TestLoginRateLimited(t *testing.T) {
	fx := newFixture(t, 2)
	creds := map[string]string{"username": "x", "password": "y"}

	assert.Equal(t, http.StatusUnauthorized, fx.postJSON(t, "/ops/login", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, fx.postJSON(t, "/ops/login", creds).Code)
	requireProblem(t, fx.postJSON(t, "/ops/login", creds), http.StatusTooManyRequests)

	// the session-gated routes are not limited
	assert.Equal(t, http.StatusOK, fx.do(t, http.MethodGet, "/healthz", "", nil, "").Code)
}

func TestRedactPath(t *testing.T) {
	assert.Equal(t, "/download/[redacted]", redactPath("/download/abc.def.ghi"))
	assert.Equal(t, "/client/verify/[redacted]", redactPath("/client/verify/xyz"))
	assert.Equal(t, "/client/files", redactPath("/client/files"))
	assert.Equal(t, "/download/", redactPath("/download/"))
}
