// Package config provides centralized configuration management for the
// sift server. It loads configuration from multiple sources, validates it and
// exposes a type-safe struct to the rest of the application.
//
// # Configuration Sources
//
// Values are applied in the following order, later sources winning:
//
//  1. Default() values
//  2. A YAML file (config.yaml, configs/config.yaml or SIFT_CONFIG_FILE)
//  3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern SIFT_<SECTION>_<FIELD>:
//
//	SIFT_SERVER_PORT=8080
//	SIFT_FILTER_KEYWORDS_FILE=/etc/sift/filter.txt
//	SIFT_FILTER_PARTITION_MODE=split
//	SIFT_FILTER_GENDER_ORDER=before
//	SIFT_EXPORT_INCLUDE_EMPTY_SHEETS=false
//	SIFT_LOGGING_LEVEL=debug
//
// # Filter Data
//
// The keyword list is a plain text file with one lowercase word per line.
// Translations are a YAML mapping from a base word to its synonyms:
//
//	scam:
//	  - estafa
//	  - arnaque
//
// Relative file paths are resolved against the working directory first and
// the executable directory second.
//
// # Validation
//
// Load validates enums (partition mode, gender order, log level), numeric
// ranges and sheet name overrides before returning.
package config
