package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BartekS5/marketsync/pkg/models"
	"gopkg.in/yaml.v3"
)

// LoadCatalog reads the collection catalog from filePath. An empty path
// returns the built-in catalog. Files ending in .json are parsed as JSON,
// anything else as YAML. A section left empty in the file falls back to the
// built-in list for that section.
func LoadCatalog(filePath string) (*models.Catalog, error) {
	if filePath == "" {
		return models.DefaultCatalog(), nil
	}

	bytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file '%s': %w", filePath, err)
	}

	var catalog models.Catalog
	if strings.EqualFold(filepath.Ext(filePath), ".json") {
		err = json.Unmarshal(bytes, &catalog)
	} else {
		err = yaml.Unmarshal(bytes, &catalog)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog file '%s': %w", filePath, err)
	}

	defaults := models.DefaultCatalog()
	if len(catalog.Collections) == 0 {
		catalog.Collections = defaults.Collections
	}
	if len(catalog.Schema) == 0 {
		catalog.Schema = defaults.Schema
	}

	if err := validateNames(catalog.Collections); err != nil {
		return nil, fmt.Errorf("catalog file '%s': %w", filePath, err)
	}
	if err := validateNames(catalog.Schema); err != nil {
		return nil, fmt.Errorf("catalog file '%s': %w", filePath, err)
	}
	return &catalog, nil
}

func validateNames(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		switch {
		case strings.TrimSpace(n) == "":
			return fmt.Errorf("empty collection name")
		case strings.HasPrefix(n, "system."), strings.ContainsAny(n, "$\x00"):
			return fmt.Errorf("invalid collection name %q", n)
		case seen[n]:
			return fmt.Errorf("duplicate collection name %q", n)
		}
		seen[n] = true
	}
	return nil
}
