package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ryanjosebrosas/second-brain/pkg/models"
)

// contentTypesFile is the optional seed file inside the config directory.
const contentTypesFile = "content-types.yaml"

type contentTypesYAML struct {
	ContentTypes []models.ContentType `yaml:"content_types"`
}

// SeedContentTypesFromFile loads user content types from
// <configDir>/content-types.yaml into the registry. The file is optional;
// a missing file is not an error. DB-loaded types win over file seeds, so
// call this after LoadContentTypes.
func (s *Service) SeedContentTypesFromFile(configDir string) error {
	path := filepath.Join(configDir, contentTypesFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var seeds contentTypesYAML
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for _, ct := range seeds.ContentTypes {
		s.types.seed(ct)
	}
	slog.Info("content_types.seeded", "path", path, "count", len(seeds.ContentTypes))
	return nil
}
