package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/relo/internal/models"
)

// ManifestFile is the filename each namespace publishes its container list
// under.
const ManifestFile = "namespace.toml"

// LoadManifest reads a namespace manifest from path. If path is a directory
// the conventional manifest filename inside it is read.
func LoadManifest(path string) (*models.Namespace, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}
	if info.IsDir() {
		path = filepath.Join(path, ManifestFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var ns models.Namespace
	if err := toml.Unmarshal(data, &ns); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if ns.Name == "" {
		return nil, fmt.Errorf("manifest at %s has no namespace name", path)
	}

	ns.Path = filepath.Dir(path)
	return &ns, nil
}

// WriteManifest serializes a namespace manifest into its directory.
func WriteManifest(ns *models.Namespace) error {
	if ns.Path == "" {
		return fmt.Errorf("namespace %s has no filesystem location", ns.Name)
	}

	f, err := os.Create(filepath.Join(ns.Path, ManifestFile))
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(ns); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}
