package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const (
	// EnvAPIURL overrides the backend base URL.
	EnvAPIURL = "IELTSMOCK_API_URL"
	// EnvToken supplies a bearer token without signing in.
	EnvToken = "IELTSMOCK_TOKEN"
)

// LoadEnv reads a dotenv file into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment values onto the file config.
func ApplyEnv(cfg *FileConfig) {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.BaseURL = &v
	}
}

// EnvTokenValue returns the token supplied through the environment, if any.
func EnvTokenValue() string {
	return os.Getenv(EnvToken)
}
