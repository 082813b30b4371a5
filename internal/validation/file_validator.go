package validation

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// zipMagic opens every .xlsx file (it is a zip container)
var zipMagic = []byte("PK\x03\x04")

var (
	// ErrNotXLSX is returned for uploads that are not .xlsx workbooks
	ErrNotXLSX = errors.New("not an .xlsx workbook")
	// ErrLockFile is returned for Office "~$" owner files
	ErrLockFile = errors.New("temporary Excel lock file")
	// ErrEmptyUpload is returned for zero byte uploads
	ErrEmptyUpload = errors.New("empty upload")
	// ErrTooLarge is returned when the declared size exceeds the limit
	ErrTooLarge = errors.New("upload exceeds size limit")
)

// FileValidator checks uploads and the filter data files
type FileValidator struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewFileValidator creates a validator. maxBytes <= 0 disables the size
// check.
func NewFileValidator(maxBytes int64, logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateUploadName checks the client-side file name of an upload
func (v *FileValidator) ValidateUploadName(name string) error {
	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if strings.HasPrefix(base, "~$") {
		return fmt.Errorf("%w: %s", ErrLockFile, base)
	}
	ext := strings.ToLower(filepath.Ext(base))
	if ext != ".xlsx" || len(base) == len(ext) {
		v.logger.Debug("rejected upload name",
			slog.String("filename", base),
			slog.String("extension", ext))
		return fmt.Errorf("%w: %s", ErrNotXLSX, base)
	}
	return nil
}

// ValidateUploadSize checks a declared upload size
func (v *FileValidator) ValidateUploadSize(size int64) error {
	if size == 0 {
		return ErrEmptyUpload
	}
	if v.maxBytes > 0 && size > v.maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, size, v.maxBytes)
	}
	return nil
}

// SniffXLSX peeks at the first bytes of r and rejects anything that is not
// a zip container. The returned reader yields the complete stream.
func (v *FileValidator) SniffXLSX(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrEmptyUpload
	}
	if !bytes.Equal(head, zipMagic) {
		return nil, fmt.Errorf("%w: unexpected file signature", ErrNotXLSX)
	}
	return br, nil
}

// ValidateFile checks that a configured data file exists and is readable.
// A missing optional file is not an error.
func (v *FileValidator) ValidateFile(path string, optional bool) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if optional {
			v.logger.Warn("data file not found", slog.String("file", path))
			return nil
		}
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("data file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}
