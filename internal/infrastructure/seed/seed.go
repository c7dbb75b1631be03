// Package seed reads reference catalogs from YAML files.
package seed

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ak/cafeinv/internal/domain/services"
	"gopkg.in/yaml.v3"
)

// Load decodes a catalog document. Unknown keys are rejected so a typo in
// a field name does not silently drop data.
func Load(r io.Reader) (*services.SeedCatalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var catalog services.SeedCatalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		if err == io.EOF {
			return &catalog, nil
		}
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &catalog, nil
}

// LoadFile reads a catalog from disk
func LoadFile(path string) (*services.SeedCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
