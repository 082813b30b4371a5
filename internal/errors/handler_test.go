package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactsift/internal/shared/testutil"
)

func newHandler(t *testing.T) (*ErrorHandler, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	return NewErrorHandler(logger, false), logs
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAppError(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := NewParsingError("failed to open workbook", cause).WithContext("sheet", "Leads")

	assert.Equal(t, "[PARSING] failed to open workbook: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Leads", err.Context["sheet"])

	bare := NewExportError("no rows", nil)
	assert.Equal(t, "[EXPORT] no rows", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestErrorToProblem(t *testing.T) {
	h, _ := newHandler(t)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"parsing", NewParsingError("bad workbook", errors.New("zip: not a valid zip file")), http.StatusUnprocessableEntity, TypeMalformedUpload},
		{"validation", NewAppError(ErrTypeValidation, "bad option", nil), http.StatusBadRequest, TypeValidation},
		{"config", NewConfigError("translations unreadable", errors.New("yaml")), http.StatusInternalServerError, TypeFilterConfig},
		{"export", NewExportError("write failed", nil), http.StatusInternalServerError, TypeExportFailed},
		{"storage", NewStorageError("store closed", nil), http.StatusInternalServerError, TypeStorage},
		{"not found app error", NewAppError(ErrTypeNotFound, "gone", nil), http.StatusNotFound, TypeNotFound},
		{"wrapped app error", fmt.Errorf("sift: %w", NewParsingError("bad", nil)), http.StatusUnprocessableEntity, TypeMalformedUpload},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"max bytes", &http.MaxBytesError{Limit: 1024}, http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"missing upload", ErrMissingUpload, http.StatusBadRequest, TypeValidation},
		{"artifact", ErrArtifactNotFound, http.StatusNotFound, TypeNotFound},
		{"too large", ErrUploadTooLarge, http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"unsupported", ErrUnsupportedFile, http.StatusUnsupportedMediaType, TypeUnsupported},
		{"unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable, TypeServiceDown},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sift", nil)
			problem := h.ErrorToProblem(tt.err, req)

			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/v1/sift", problem.Instance)
		})
	}
}

func TestErrorToProblem_Details(t *testing.T) {
	h, _ := newHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/sift", nil)

	t.Run("parsing detail carries cause", func(t *testing.T) {
		problem := h.ErrorToProblem(NewParsingError("failed to open workbook", errors.New("zip: not a valid zip file")), req)
		assert.Equal(t, "failed to open workbook: zip: not a valid zip file", problem.Detail)
		assert.Equal(t, "PARSING", problem.Extensions["error_type"])
	})

	t.Run("max bytes limit", func(t *testing.T) {
		problem := h.ErrorToProblem(&http.MaxBytesError{Limit: 2048}, req)
		assert.Equal(t, int64(2048), problem.Extensions["limit_bytes"])
		assert.Contains(t, problem.Detail, "2048")
	})

	t.Run("api error details", func(t *testing.T) {
		err := NewValidationErrors([]ValidationError{{Field: "partition_mode", Message: "must be one of copy split"}})
		problem := h.ErrorToProblem(err, req)
		assert.Equal(t, "VALIDATION_FAILED", problem.Extensions["error_code"])
		assert.NotNil(t, problem.Extensions["details"])
	})

	t.Run("app error context", func(t *testing.T) {
		problem := h.ErrorToProblem(NewConfigError("bad file", nil).WithContext("path", "filter.txt"), req)
		assert.Equal(t, map[string]interface{}{"path": "filter.txt"}, problem.Extensions["context"])
	})
}

func TestHandleError(t *testing.T) {
	h, logs := newHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/download/abc", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-123"))
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, ErrArtifactNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "json")

	body := decodeProblem(t, rec)
	assert.Equal(t, TypeNotFound, body["type"])
	assert.Equal(t, "ARTIFACT_NOT_FOUND", body["error_code"])
	assert.Equal(t, "req-123", body["trace_id"])
	assert.Equal(t, "/download/abc", body["instance"])

	testutil.AssertLogAttr(t, logs, "request_id", "req-123")
}

func TestHandleError_ServerErrorsLogAtError(t *testing.T) {
	h, logs := newHandler(t)
	rec := httptest.NewRecorder()

	h.HandleError(rec, httptest.NewRequest(http.MethodPost, "/sift", nil), NewExportError("write failed", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, logs.GetRecordsByLevel(slog.LevelError), 1)
}

func TestHandleError_Nil(t *testing.T) {
	h, logs := newHandler(t)
	rec := httptest.NewRecorder()

	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, rec.Body.Len())
	assert.Equal(t, 0, logs.Count())
}

func TestHandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)
	rec := httptest.NewRecorder()

	h.HandlePanic(rec, httptest.NewRequest(http.MethodGet, "/", nil), "nil map")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, TypeInternal, body["type"])
	assert.Equal(t, "nil map", body["panic"])
	assert.NotEmpty(t, body["stack"])
	assert.True(t, logs.ContainsMessage("panic recovered"))
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, rec)["type"])

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/sift", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decodeProblem(t, rec)["detail"], "DELETE")
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", "", "/sift").
		WithExtension("error_code", "VALIDATION_FAILED").
		WithExtension("status", 999)

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	assert.Equal(t, float64(http.StatusBadRequest), body["status"])
	assert.NotContains(t, body, "detail")
}

func TestAPIError_WithDetails(t *testing.T) {
	detailed := ErrUnsupportedFile.WithDetails("leads.xls")

	assert.Equal(t, "leads.xls", detailed.Details)
	assert.Nil(t, ErrUnsupportedFile.Details)
	assert.ErrorIs(t, fmt.Errorf("upload: %w", detailed), ErrUnsupportedFile)
	assert.NotErrorIs(t, detailed, ErrUploadTooLarge)
}
