package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/relo/internal/models"
)

func TestManifest(t *testing.T) {
	t.Run("write then load round-trips", func(t *testing.T) {
		dir := t.TempDir()
		ns := &models.Namespace{
			Name:       "billing",
			Path:       dir,
			Containers: []string{"Invoices", "Payments"},
		}

		if err := WriteManifest(ns); err != nil {
			t.Fatalf("WriteManifest failed: %v", err)
		}

		loaded, err := LoadManifest(dir)
		if err != nil {
			t.Fatalf("LoadManifest failed: %v", err)
		}
		if loaded.Name != "billing" {
			t.Errorf("name = %s, want billing", loaded.Name)
		}
		if !loaded.Declares("Invoices") || !loaded.Declares("Payments") {
			t.Errorf("containers lost: %v", loaded.Containers)
		}
		if loaded.Declares("Core") {
			t.Error("Core should not be declared")
		}
		if loaded.Path != dir {
			t.Errorf("path = %s, want %s", loaded.Path, dir)
		}
	})

	t.Run("loads from an explicit file path", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ManifestFile)
		content := "name = \"hr\"\ncontainers = [\"Employees\"]\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write manifest: %v", err)
		}

		loaded, err := LoadManifest(path)
		if err != nil {
			t.Fatalf("LoadManifest failed: %v", err)
		}
		if loaded.Name != "hr" || !loaded.Declares("Employees") {
			t.Errorf("loaded = %+v", loaded)
		}
	})

	t.Run("rejects manifests without a name", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ManifestFile)
		if err := os.WriteFile(path, []byte("containers = [\"X\"]\n"), 0644); err != nil {
			t.Fatalf("failed to write manifest: %v", err)
		}

		if _, err := LoadManifest(path); err == nil {
			t.Error("expected error for nameless manifest")
		}
	})

	t.Run("missing manifest fails", func(t *testing.T) {
		if _, err := LoadManifest(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing manifest")
		}
	})

	t.Run("write requires a location", func(t *testing.T) {
		ns := &models.Namespace{Name: "billing"}
		if err := WriteManifest(ns); err == nil {
			t.Error("expected error for manifest without a path")
		}
	})
}
