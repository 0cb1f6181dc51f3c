package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order when present. Variables already set in the
// process environment are never overwritten.
var envFiles = []string{".env", ".env.local"}

func loadEnvFile() error {
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}
