package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/fichas/internal/config"
	"github.com/JonMunkholm/fichas/internal/core"
	"github.com/JonMunkholm/fichas/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoRecords = "MFN: 5\nTITULO/SUBTITULO\tFoo\n\nMFN: 3\nTITULO/SUBTITULO\tBar\n"

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{RequestTimeout: 10 * time.Second},
		Storage: config.StorageConfig{
			UploadDir: filepath.Join(root, "uploads"),
			OutputDir: filepath.Join(root, "outputs"),
		},
		Conversion: config.ConversionConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       10 * time.Second,
		},
		Rate:     config.RateLimitConfig{RequestsPerMinute: 100, UploadLimit: 20},
		Security: config.SecurityConfig{EnableCSP: true},
		History:  config.HistoryConfig{Driver: "memory", ListLimit: 10},
	}
	if mutate != nil {
		mutate(cfg)
	}

	svc, err := core.NewService(history.NewMemoryStore(100), cfg)
	require.NoError(t, err)
	return NewServer(t.Context(), svc, cfg)
}

// uploadRequest builds a multipart POST. An empty field sends no file part.
func uploadRequest(t *testing.T, target, field, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func flashFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", flashCookie)
	return nil
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="archivo"`)
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestConvertForm_ReturnsSpreadsheet(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, uploadRequest(t, "/", formField, "export.txt", twoRecords))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	disposition := rec.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, "attachment; filename=lista_"), disposition)
	assert.Contains(t, disposition, "_MFN3-5_")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
	assert.Empty(t, rec.Header().Get(duplicateHeader))
}

func TestConvertForm_FailuresRedirectWithNotice(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		content    string
		wantNotice string
	}{
		{
			name:       "no file selected",
			field:      "",
			wantNotice: "Debes seleccionar un archivo .txt",
		},
		{
			name:       "no records",
			field:      formField,
			content:    "   \n",
			wantNotice: "No se encontraron registros válidos",
		},
		{
			name:       "identifier without digits",
			field:      formField,
			content:    "MFN: 1\nMFN: s/n",
			wantNotice: `"s/n"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)

			rec := serve(s, uploadRequest(t, "/", tt.field, "export.txt", tt.content))

			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))

			// the notice shows once on the next page view
			next := httptest.NewRequest(http.MethodGet, "/", nil)
			next.AddCookie(flashFrom(t, rec))
			page := serve(s, next)
			assert.Contains(t, page.Body.String(), templEscaped(tt.wantNotice))
			cleared := flashFrom(t, page)
			assert.Equal(t, -1, cleared.MaxAge)
		})
	}
}

// templEscaped mirrors the escaping applied by the templates.
func templEscaped(s string) string {
	return strings.ReplaceAll(s, `"`, "&#34;")
}

func TestConvertForm_DuplicatesStillDownload(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, uploadRequest(t, "/", formField, "export.txt", "MFN: 1\nMFN: 2\nMFN: 1\nMFN: 3\nMFN: 2"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1,2", rec.Header().Get(duplicateHeader))
	assert.Equal(t, "2", rec.Header().Get(duplicateCountHeader))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(flashFrom(t, rec))
	page := serve(s, next)
	assert.Contains(t, page.Body.String(), "MFN duplicados detectados: 1, 2")
}

func TestConvertForm_ReplacedCellsNotice(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, uploadRequest(t, "/", formField, "export.txt", "MFN: 1\nTITULO/SUBTITULO\tA\x1fB\nMFN: 1"))

	require.Equal(t, http.StatusOK, rec.Code)
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(flashFrom(t, rec))
	page := serve(s, next).Body.String()
	assert.Contains(t, page, "MFN duplicados detectados: 1")
	assert.Contains(t, page, replacedNotice(1))
}

func TestConvertForm_DuplicateHeaderIsCapped(t *testing.T) {
	s := newTestServer(t, nil)
	total := maxNoticeMFNs + 10
	var export strings.Builder
	for i := 1; i <= total; i++ {
		fmt.Fprintf(&export, "MFN: %d\nMFN: %d\n", i, i)
	}

	rec := serve(s, uploadRequest(t, "/", formField, "export.txt", export.String()))

	require.Equal(t, http.StatusOK, rec.Code)
	listed := strings.Split(rec.Header().Get(duplicateHeader), ",")
	assert.Len(t, listed, maxNoticeMFNs)
	assert.Equal(t, "1", listed[0])
	assert.Equal(t, strconv.Itoa(total), rec.Header().Get(duplicateCountHeader))
}

func TestAPIConvertAndDownload(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, uploadRequest(t, "/api/convert", formField, "export.txt", twoRecords))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		OutputName  string `json:"output_name"`
		Records     int    `json:"records"`
		MinMFN      string `json:"min_mfn"`
		MaxMFN      string `json:"max_mfn"`
		DownloadURL string `json:"download_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Records)
	assert.Equal(t, "3", body.MinMFN)
	assert.Equal(t, "5", body.MaxMFN)
	assert.Equal(t, "/download/"+body.OutputName, body.DownloadURL)
	assert.Equal(t, body.DownloadURL, rec.Header().Get("Location"))

	dl := serve(s, httptest.NewRequest(http.MethodGet, body.DownloadURL, nil))
	assert.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, xlsxContentType, dl.Header().Get("Content-Type"))
}

func TestDownload_UnknownName(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/download/report.xlsx", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "CNV001")
}

func TestAPIPreview(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, uploadRequest(t, "/api/preview", formField, "export.txt", twoRecords+"MFN: 5\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Records    int      `json:"records"`
		MinMFN     string   `json:"min_mfn"`
		MaxMFN     string   `json:"max_mfn"`
		Duplicates []string `json:"duplicates"`
		Encoding   string   `json:"encoding"`
		Columns    []string `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Records)
	assert.Equal(t, "3", body.MinMFN)
	assert.Equal(t, "5", body.MaxMFN)
	assert.Equal(t, []string{"5"}, body.Duplicates)
	assert.Equal(t, "utf-8", body.Encoding)
	assert.Equal(t, core.ColumnNames(), body.Columns)
}

func TestAPIErrors(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*config.Config)
		field      string
		content    string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no file",
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
		},
		{
			name:       "no records",
			field:      formField,
			content:    "",
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "REC001",
		},
		{
			name:       "no digits",
			field:      formField,
			content:    "MFN: X",
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "REC002",
		},
		{
			name:       "too large",
			mutate:     func(c *config.Config) { c.Conversion.MaxFileSize = 16 },
			field:      formField,
			content:    twoRecords,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "FILE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.mutate)

			rec := serve(s, uploadRequest(t, "/api/convert", tt.field, "export.txt", tt.content))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestHistory(t *testing.T) {
	s := newTestServer(t, nil)
	for _, in := range []string{"MFN: 1", "MFN: 2\nMFN: 9"} {
		rec := serve(s, uploadRequest(t, "/api/convert", formField, "export.txt", in))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Conversions []core.Conversion `json:"conversions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Conversions, 1)
	assert.Equal(t, "9", body.Conversions[0].MaxMFN)

	page := serve(s, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Historial de listas")
	assert.Contains(t, page.Body.String(), "/download/lista_")
}

func TestHistory_EmptyIsArray(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	assert.JSONEq(t, `{"conversions":[]}`, rec.Body.String())
}

func TestStatusAndHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","conversions":{"active":0,"available":2,"max_concurrent":2}}`, rec.Body.String())

	health := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Equal(t, "ok", health.Body.String())
}

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, serve(s, req).Code)

	// the browser form is not behind the key
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRateLimit_Conversions(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.UploadLimit = 1
	})

	first := serve(s, uploadRequest(t, "/api/preview", formField, "export.txt", twoRecords))
	assert.Equal(t, http.StatusOK, first.Code)

	second := serve(s, uploadRequest(t, "/api/preview", formField, "export.txt", twoRecords))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "RATE001")

	// page views use the general budget
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := newRateLimiter(ctx, 2, time.Minute)

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNoFile, http.StatusBadRequest},
		{core.ErrNoRecords, http.StatusUnprocessableEntity},
		{&core.NoDigitsError{MFN: "x"}, http.StatusUnprocessableEntity},
		{&core.CellTooLongError{MFN: "1", Column: "IMPRENTA", Length: 40000}, http.StatusUnprocessableEntity},
		{fmt.Errorf("stage: %w", core.ErrFileTooLarge), http.StatusRequestEntityTooLarge},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{core.ErrOutputNotFound, http.StatusNotFound},
		{core.ErrTooManyConversions, http.StatusServiceUnavailable},
		{errRateLimited, http.StatusTooManyRequests},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestDuplicatesNotice(t *testing.T) {
	assert.Equal(t, "MFN duplicados detectados: 4, 7", duplicatesNotice([]string{"4", "7"}))

	many := make([]string, maxNoticeMFNs+3)
	for i := range many {
		many[i] = fmt.Sprint(i)
	}
	notice := duplicatesNotice(many)
	assert.True(t, strings.HasSuffix(notice, " y 3 más"), notice)
}
