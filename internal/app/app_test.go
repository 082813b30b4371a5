package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"contactsift/internal/config"
	apierrors "contactsift/internal/errors"
	customMiddleware "contactsift/internal/middleware"
	"contactsift/internal/shared/testutil"
	api "contactsift/pkg/contracts/api/v1"
)

// testConfig points the filter at fresh data files in a temp dir
func testConfig(t *testing.T, keywordFile string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Security.RateLimit.Enabled = false
	cfg.Filter.KeywordsFile = filepath.Join(dir, "filter.txt")
	cfg.Filter.TranslationsFile = filepath.Join(dir, "translations.yaml")
	require.NoError(t, os.WriteFile(cfg.Filter.KeywordsFile, []byte(keywordFile), 0644))
	require.NoError(t, os.WriteFile(cfg.Filter.TranslationsFile, []byte("scam:\n  - estafa\n"), 0644))
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Store.Close()
		_ = a.OTelProviders.Shutdown(context.Background())
	})
	return a
}

func workbook(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestNew_WiresRoutes(t *testing.T) {
	a := newTestApp(t, testConfig(t, "scam\nart\n"))
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		contentType string
	}{
		{"upload page", "/", http.StatusOK, "text/html"},
		{"health", config.HealthEndpoint, http.StatusOK, "application/json"},
		{"liveness", config.HealthEndpoint + "/live", http.StatusOK, "application/json"},
		{"version", "/api/version", http.StatusOK, "application/json"},
		{"keywords", config.APIBasePath + "/keywords", http.StatusOK, "application/json"},
		{"metrics", config.MetricsEndpoint, http.StatusOK, "text/plain"},
		{"unknown route", "/nope", http.StatusNotFound, "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), tt.contentType)
			assert.NotEmpty(t, resp.Header.Get(customMiddleware.RequestIDHeader))
			assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
		})
	}
}

func TestNew_KeywordsIncludeTranslations(t *testing.T) {
	a := newTestApp(t, testConfig(t, "scam\n"))

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, config.APIBasePath+"/keywords", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var kw api.KeywordsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kw))
	assert.Equal(t, []string{"estafa", "scam"}, kw.Keywords)
}

func TestNew_SiftEndToEnd(t *testing.T) {
	a := newTestApp(t, testConfig(t, "scam\n"))
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	data := workbook(t, [][]string{
		{"first name", "compt"},
		{"Maria", "Estafa piramidal"},
		{"John", "bakery"},
	})
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "leads.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+config.APIBasePath+"/sift", mw.FormDataContentType(), body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result api.SiftResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 1, result.MatchedRows)
	require.NotNil(t, result.Download)

	dl, err := http.Get(srv.URL + result.Download.URL)
	require.NoError(t, err)
	defer dl.Body.Close()
	assert.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Contains(t, dl.Header.Get("Content-Disposition"), "leads_filtered.xlsx")

	metrics, err := http.Get(srv.URL + config.MetricsEndpoint)
	require.NoError(t, err)
	defer metrics.Body.Close()
	scrape, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, string(scrape), "sift_runs_total")
	assert.Contains(t, string(scrape), "sift_downloads_total")
}

func TestNew_UploadLimit(t *testing.T) {
	cfg := testConfig(t, "scam\n")
	cfg.Export.MaxUploadBytes = 64
	a := newTestApp(t, cfg)

	data := workbook(t, [][]string{{"first name", "compt"}, {"Maria", "scam"}})
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "leads.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, config.APIBasePath+"/sift", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "UPLOAD_TOO_LARGE", problem["error_code"])
}

func TestNew_MissingNameTable(t *testing.T) {
	cfg := testConfig(t, "scam\n")
	cfg.Filter.NamesFile = filepath.Join(t.TempDir(), "names.yaml")
	logger, _ := testutil.NewTestLogger(t)

	_, err := New(cfg, logger)
	require.Error(t, err)
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeConfig, appErr.Type)
}

func TestNew_BrokenKeywordFileIsNotFatal(t *testing.T) {
	cfg := testConfig(t, "scam\n")
	require.NoError(t, os.WriteFile(cfg.Filter.TranslationsFile, []byte("scam: [oops\n"), 0644))
	a := newTestApp(t, cfg)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, config.HealthEndpoint, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestApplication_ServeAndStop(t *testing.T) {
	a := newTestApp(t, testConfig(t, "scam\n"))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, l) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + l.Addr().String() + config.HealthEndpoint + "/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
