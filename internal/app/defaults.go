package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - PINPOINT_CONFIG_PATH: config file location (default: ~/.config/pinpoint.toml)
//   - PINPOINT_HOME: base directory for pinpoint data (default: ~/.local/share/pinpoint)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking PINPOINT_CONFIG_PATH
// env var first, then falling back to the default ~/.config/pinpoint.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("PINPOINT_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "pinpoint.toml"), nil
}

// getBaseDir returns the base directory for pinpoint data, checking
// PINPOINT_HOME env var first, then falling back to the XDG default
// ~/.local/share/pinpoint.
func getBaseDir() (string, error) {
	if path := os.Getenv("PINPOINT_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "pinpoint"), nil
}
