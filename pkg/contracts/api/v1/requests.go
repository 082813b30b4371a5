// Package api contains the JSON contract of the sift API.
// Version v1 represents the current stable API version.
package api

import (
	"time"

	"contactsift/pkg/contracts/domain"
)

// Sift API Requests

// SiftRequest holds the form fields of POST /sift and POST /api/v1/sift.
// The workbook itself travels as the multipart "file" part; Filename is
// its client-side name.
type SiftRequest struct {
	Filename      string `json:"filename" form:"file" validate:"required,xlsxfile"`
	PartitionMode string `json:"partition_mode" form:"partition_mode" validate:"omitempty,oneof=copy split"`
	GenderOrder   string `json:"gender_order" form:"gender_order" validate:"omitempty,oneof=before after off"`
	FilteredSheet string `json:"filtered_sheet,omitempty" form:"filtered_sheet" validate:"omitempty,sheetname"`
}

// DownloadRequest identifies a stored workbook
type DownloadRequest struct {
	ID string `json:"id" param:"id" validate:"required,uuid"`
}

// Sift API Responses

// KeywordsResponse lists the active keyword set
type KeywordsResponse struct {
	Keywords    []string  `json:"keywords"`
	Count       int       `json:"count"`
	Configured  bool      `json:"configured"`
	Version     int       `json:"version"`
	Fingerprint string    `json:"fingerprint"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// ReloadResponse reports the outcome of a keyword reload
type ReloadResponse struct {
	KeywordsResponse
	Changed bool `json:"changed"`
}

// DownloadLink points at a one-shot workbook download
type DownloadLink struct {
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	SizeBytes int       `json:"size_bytes"`
	Sheets    []string  `json:"sheets"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TablePreview is the head of a dataset
type TablePreview struct {
	Headers []string     `json:"headers"`
	Rows    []domain.Row `json:"rows"`
	Total   int          `json:"total"`
}

// StepResult is the outcome of one pipeline step
type StepResult struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Status    string            `json:"status"`
	Message   string            `json:"message,omitempty"`
	Condition *domain.Condition `json:"condition,omitempty"`
}

// GenderStats counts name table lookups of one run
type GenderStats struct {
	Lookups   int `json:"lookups"`
	CacheHits int `json:"cache_hits"`
	Unknown   int `json:"unknown"`
}

// SiftResponse is the JSON result of one sift run
type SiftResponse struct {
	RunID         string            `json:"run_id"`
	Filename      string            `json:"filename"`
	PartitionMode string            `json:"partition_mode"`
	GenderOrder   string            `json:"gender_order"`
	Rows          int               `json:"rows"`
	MatchedRows   int               `json:"matched_rows"`
	Keywords      int               `json:"keywords"`
	Conditions    domain.Conditions `json:"conditions"`
	Steps         []StepResult      `json:"steps"`
	GenderStats   GenderStats       `json:"gender_stats"`
	Uploaded      TablePreview      `json:"uploaded"`
	Matched       TablePreview      `json:"matched"`
	Gender        *TablePreview     `json:"gender,omitempty"`
	Download      *DownloadLink     `json:"download,omitempty"`
	DurationMS    int64             `json:"duration_ms"`
}
