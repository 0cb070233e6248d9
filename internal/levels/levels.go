// Package levels loads the static career ladder.
package levels

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/internal/progression"
)

//go:embed levels.yaml
var defaultTable []byte

type tableFile struct {
	Levels []models.Level `yaml:"levels"`
}

// Default returns the built-in career ladder.
func Default() ([]models.Level, error) {
	return Parse(defaultTable)
}

// Parse decodes and validates a level table document.
func Parse(data []byte) ([]models.Level, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse level table: %w", err)
	}
	if err := progression.ValidateTable(file.Levels); err != nil {
		return nil, fmt.Errorf("invalid level table: %w", err)
	}
	return file.Levels, nil
}

// Load reads a level table from path, or the built-in table when path is empty.
func Load(path string) ([]models.Level, error) {
	if path == "" {
		return Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open level table %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read level table %s: %w", path, err)
	}
	return Parse(data)
}
