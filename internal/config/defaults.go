package config

import (
	"os"
	"path/filepath"

	"batch-archiver/internal/domain"
)

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		OutputDir:   filepath.Join(homeDir, "Documents", "Archives"),
		Format:      domain.Format7z,
		Backend:     domain.BackendSevenZip,
		Concurrency: 1,
	}
}
