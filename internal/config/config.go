// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
)

// Config holds the application configuration loaded from environment
// variables. Application-level settings are deliberately not persisted by
// this tool; the environment is the only configuration source.
type Config struct {
	ProjectID    string
	ResourceType string
	ExportDir    string
}

// Load reads configuration from environment variables and returns a
// validated Config. CONNVAULT_PROJECT_ID is required and names the hidden
// per-project directory under the user's home. Optional variables with
// defaults: CONNVAULT_RESOURCE_TYPE (url), CONNVAULT_EXPORT_DIR (current
// directory).
func Load() (*Config, error) {
	projectID := os.Getenv("CONNVAULT_PROJECT_ID")
	if projectID == "" {
		return nil, errors.New("CONNVAULT_PROJECT_ID is required")
	}

	resourceType := "url"
	if v, ok := os.LookupEnv("CONNVAULT_RESOURCE_TYPE"); ok {
		if v != "dsn" && v != "url" {
			return nil, fmt.Errorf("CONNVAULT_RESOURCE_TYPE has invalid value %q: must be dsn or url", v)
		}
		resourceType = v
	}

	exportDir := "."
	if v, ok := os.LookupEnv("CONNVAULT_EXPORT_DIR"); ok {
		exportDir = v
	}

	return &Config{
		ProjectID:    projectID,
		ResourceType: resourceType,
		ExportDir:    exportDir,
	}, nil
}
