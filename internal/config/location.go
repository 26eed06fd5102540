package config

import (
	"os"
	"path/filepath"
)

// GetConfigPath returns the configuration file path. It first checks the
// SIFT_CONFIG environment variable, then falls back to the default location
// (~/.sift/config).
func GetConfigPath() (string, error) {
	if configPath := os.Getenv("SIFT_CONFIG"); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".sift", "config"), nil
}

// EnsureConfigDir ensures that the configuration directory exists.
func EnsureConfigDir() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return os.MkdirAll(filepath.Dir(configPath), 0755)
}
