package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"contactsift/internal/config"
	apierrors "contactsift/internal/errors"
	"contactsift/internal/middleware"
	"contactsift/internal/services"
	"contactsift/internal/validation"
	api "contactsift/pkg/contracts/api/v1"
)

//go:embed templates/*.html
var templateFS embed.FS

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temp files
const multipartMemory = 8 << 20

// SiftHandler serves the upload page, the sift API and downloads
type SiftHandler struct {
	service      *services.SiftService
	validator    *middleware.ValidationMiddleware
	files        *validation.FileValidator
	errorHandler *apierrors.ErrorHandler
	page         *template.Template
	defaults     pageDefaults
	logger       *slog.Logger
}

type pageDefaults struct {
	PartitionMode string
	GenderOrder   string
	FilteredSheet string
}

// pageData feeds templates/index.html
type pageData struct {
	AppName  string
	Keywords []string
	Defaults pageDefaults
	Result   *services.SiftResult
	Error    *apierrors.ProblemDetails
}

// NewSiftHandler creates the handler and parses the page template
func NewSiftHandler(
	cfg *config.Config,
	service *services.SiftService,
	validator *middleware.ValidationMiddleware,
	files *validation.FileValidator,
	errorHandler *apierrors.ErrorHandler,
	logger *slog.Logger,
) (*SiftHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	filtered := cfg.Export.FilteredSheet
	if filtered == "" {
		filtered = config.SheetFiltered
	}
	return &SiftHandler{
		service:      service,
		validator:    validator,
		files:        files,
		errorHandler: errorHandler,
		page:         page,
		defaults: pageDefaults{
			PartitionMode: cfg.Filter.PartitionMode,
			GenderOrder:   cfg.Filter.GenderOrder,
			FilteredSheet: filtered,
		},
		logger: logger.With(slog.String("handler", "sift")),
	}, nil
}

// PageRoutes mounts the HTML surface
func (h *SiftHandler) PageRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/sift", h.SiftPage)
	r.Get("/download/{id}", h.Download)
}

// APIRoutes returns the JSON surface mounted under /api/v1
func (h *SiftHandler) APIRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(h.validator.ContentTypeValidator("multipart/form-data")).Post("/sift", h.SiftAPI)
	r.Get("/keywords", h.Keywords)
	r.Post("/keywords/reload", h.ReloadKeywords)
	r.Get("/download/{id}", h.Download)
	return r
}

// Index handles GET /
func (h *SiftHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, pageData{})
}

// SiftPage handles POST /sift and renders the results page
func (h *SiftHandler) SiftPage(w http.ResponseWriter, r *http.Request) {
	result, err := h.sift(r)
	if err != nil {
		problem := h.errorHandler.ErrorToProblem(err, r)
		h.logger.WarnContext(r.Context(), "sift request failed",
			slog.String("error", err.Error()),
			slog.Int("status", problem.Status))
		h.renderPage(w, r, problem.Status, pageData{Error: problem})
		return
	}
	h.renderPage(w, r, http.StatusOK, pageData{Result: result})
}

// SiftAPI handles POST /api/v1/sift
func (h *SiftHandler) SiftAPI(w http.ResponseWriter, r *http.Request) {
	result, err := h.sift(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, toSiftResponse(result))
}

// Keywords handles GET /api/v1/keywords
func (h *SiftHandler) Keywords(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Keywords(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, toKeywordsResponse(snap))
}

// ReloadKeywords handles POST /api/v1/keywords/reload
func (h *SiftHandler) ReloadKeywords(w http.ResponseWriter, r *http.Request) {
	snap, changed, err := h.service.ReloadKeywords(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.ReloadResponse{
		KeywordsResponse: toKeywordsResponse(snap),
		Changed:          changed,
	})
}

// Download handles GET /download/{id}. Each workbook is served once.
func (h *SiftHandler) Download(w http.ResponseWriter, r *http.Request) {
	req := api.DownloadRequest{ID: chi.URLParam(r, "id")}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrArtifactNotFound)
		return
	}

	art, err := h.service.Download(r.Context(), req.ID)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	contentType := art.ContentType
	if contentType == "" {
		contentType = config.XLSXContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(art.Size()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		h.logger.WarnContext(r.Context(), "download interrupted",
			slog.String("artifact_id", req.ID),
			slog.String("error", err.Error()))
	}
}

// sift reads the multipart upload, validates it and runs the pipeline
func (h *SiftHandler) sift(r *http.Request) (*services.SiftResult, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, apierrors.ErrMissingUpload
		}
		return nil, apierrors.InvalidRequestWithError(err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, apierrors.ErrMissingUpload
		}
		return nil, apierrors.InvalidRequestWithError(err)
	}
	defer file.Close()

	req := api.SiftRequest{
		Filename:      header.Filename,
		PartitionMode: r.FormValue("partition_mode"),
		GenderOrder:   r.FormValue("gender_order"),
		FilteredSheet: r.FormValue("filtered_sheet"),
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	body, err := h.checkUpload(header, file)
	if err != nil {
		return nil, err
	}

	return h.service.Process(r.Context(), services.Upload{
		Filename: header.Filename,
		Reader:   body,
	}, services.SiftOptions{
		PartitionMode: req.PartitionMode,
		GenderOrder:   req.GenderOrder,
		FilteredSheet: req.FilteredSheet,
	})
}

// checkUpload applies the file level checks the struct tags cannot express
func (h *SiftHandler) checkUpload(header *multipart.FileHeader, file multipart.File) (io.Reader, error) {
	if err := h.files.ValidateUploadName(header.Filename); err != nil {
		return nil, uploadError(err)
	}
	if err := h.files.ValidateUploadSize(header.Size); err != nil {
		return nil, uploadError(err)
	}
	sniffed, err := h.files.SniffXLSX(file)
	if err != nil {
		return nil, uploadError(err)
	}
	return sniffed, nil
}

func (h *SiftHandler) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	data.AppName = config.AppName
	data.Defaults = h.defaults
	if snap, err := h.service.Keywords(r.Context()); err == nil {
		data.Keywords = snap.Keywords.Words()
	} else if data.Error == nil {
		data.Error = h.errorHandler.ErrorToProblem(err, r)
	}

	var buf bytes.Buffer
	if err := h.page.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// uploadError maps file validator sentinels to API errors
func uploadError(err error) error {
	switch {
	case errors.Is(err, validation.ErrTooLarge):
		return apierrors.ErrUploadTooLarge
	case errors.Is(err, validation.ErrEmptyUpload):
		return apierrors.ErrMissingUpload
	case errors.Is(err, validation.ErrNotXLSX), errors.Is(err, validation.ErrLockFile):
		return apierrors.ErrUnsupportedFile.WithDetails(err.Error())
	}
	return apierrors.InvalidRequestWithError(err)
}

// serviceError maps service sentinels to API errors
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrArtifactNotFound), errors.Is(err, services.ErrArtifactExpired):
		return apierrors.ErrArtifactNotFound
	case errors.Is(err, services.ErrServiceUnavailable):
		return apierrors.ErrServiceUnavailable
	}
	return err
}
