package config

import (
	"time"

	"contactsift/pkg/contracts"
)

// Application constants
const (
	AppName     = "Contact Sift"
	AppVersion  = contracts.Version
	ServiceName = "contactsift"

	// EnvPrefix namespaces every environment variable, e.g. SIFT_SERVER_PORT
	EnvPrefix = "SIFT"

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	DefaultOperationTimeout = 2 * time.Minute
	DefaultLogLevel         = "info"

	// Filter data files (relative paths resolve against cwd, then the executable)
	DefaultKeywordsFile     = "config/filter.txt"
	DefaultTranslationsFile = "config/translations.yaml"

	// Upload columns
	DefaultTextColumn   = "compt"
	DefaultNameColumn   = "first name"
	DefaultGenderColumn = "gender"
	DefaultPreviewRows  = 5

	// Export
	XLSXContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	DefaultFilenameSuffix = "_filtered"
	FallbackFilename      = "updated_with_filtered.xlsx"
	DefaultArtifactTTL    = 10 * time.Minute
	DefaultMaxUploadBytes = 20 << 20 // 20MB

	SheetOriginal  = "Original_Data"
	SheetTagged    = "All_Data_With_Gender"
	SheetRemaining = "Remaining_Data"
	SheetFiltered  = "Filtered_Results"

	// API Endpoints
	APIBasePath     = "/api/" + contracts.APIVersion
	HealthEndpoint  = "/api/health"
	MetricsEndpoint = "/metrics"
)
